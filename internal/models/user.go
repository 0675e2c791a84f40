package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AnswerRef addresses an answer embedded in a question.
type AnswerRef struct {
	QuestionID primitive.ObjectID `bson:"questionId" json:"question_id"`
	AnswerID   primitive.ObjectID `bson:"answerId" json:"answer_id"`
}

// User is a forum member. Votes are not recorded here; they live in the
// voter sets of the voted-on items.
type User struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"user_id"`
	Username    string               `bson:"username" json:"username"`
	Email       string               `bson:"email" json:"email"`
	Salt        string               `bson:"salt" json:"-"`
	Key         string               `bson:"key" json:"-"`
	Points      int                  `bson:"points" json:"points"`
	QuestionIDs []primitive.ObjectID `bson:"questionIds" json:"-"`
	AnswerIDs   []AnswerRef          `bson:"answerIds" json:"-"`
	CreatedAt   time.Time            `bson:"createdAt" json:"createdAt"`
}
