// Package forum holds the question document model and the pure building blocks
// used to read and update it: paths into nested answers and comments, logical
// update operations, the sorter rules, the vote state machine and the search
// compiler. Nothing in here talks to a database.
package forum

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status of a question.
type Status string

const (
	StatusOpen      Status = "open"
	StatusClosed    Status = "closed"
	StatusProtected Status = "protected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusClosed, StatusProtected:
		return true
	}
	return false
}

// Votes is embedded by every votable entity.
type Votes struct {
	Upvotes            int      `bson:"upvotes" json:"upvotes"`
	Downvotes          int      `bson:"downvotes" json:"downvotes"`
	UpvoterUsernames   []string `bson:"upvoterUsernames" json:"-"`
	DownvoterUsernames []string `bson:"downvoterUsernames" json:"-"`
}

// Sorter holds the denormalized ranking scores of a question.
type Sorter struct {
	UVC  int `bson:"uvc" json:"uvc"`
	UVAC int `bson:"uvac" json:"uvac"`
}

type Comment struct {
	ID        primitive.ObjectID `bson:"_id" json:"comment_id"`
	Creator   string             `bson:"creator" json:"creator"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	Text      string             `bson:"text" json:"text"`
	Votes     `bson:",inline"`
}

type Answer struct {
	ID           primitive.ObjectID `bson:"_id" json:"answer_id"`
	Creator      string             `bson:"creator" json:"creator"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	Text         string             `bson:"text" json:"text"`
	Accepted     bool               `bson:"accepted" json:"accepted"`
	Votes        `bson:",inline"`
	CommentItems []Comment `bson:"commentItems" json:"-"`
}

type Question struct {
	ID                primitive.ObjectID `bson:"_id" json:"question_id"`
	Creator           string             `bson:"creator" json:"creator"`
	Title             string             `bson:"title" json:"title"`
	TitleLowercase    string             `bson:"titleLowercase" json:"-"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	Text              string             `bson:"text" json:"text"`
	Status            Status             `bson:"status" json:"status"`
	HasAcceptedAnswer bool               `bson:"hasAcceptedAnswer" json:"hasAcceptedAnswer"`
	Votes             `bson:",inline"`
	AnswerItems       []Answer  `bson:"answerItems" json:"-"`
	CommentItems      []Comment `bson:"commentItems" json:"-"`
	Views             int       `bson:"views" json:"views"`
	Answers           int       `bson:"answers" json:"answers"`
	Comments          int       `bson:"comments" json:"comments"`
	Sorter            Sorter    `bson:"sorter" json:"sorter"`
}

// NewQuestion builds a fully materialized question with zeroed counters.
func NewQuestion(creator, title, text string, now time.Time) *Question {
	return &Question{
		ID:             primitive.NewObjectID(),
		Creator:        creator,
		Title:          title,
		TitleLowercase: strings.ToLower(title),
		CreatedAt:      now,
		Text:           text,
		Status:         StatusOpen,
		Votes:          emptyVotes(),
		AnswerItems:    []Answer{},
		CommentItems:   []Comment{},
	}
}

func NewAnswer(creator, text string, now time.Time) *Answer {
	return &Answer{
		ID:           primitive.NewObjectID(),
		Creator:      creator,
		CreatedAt:    now,
		Text:         text,
		Votes:        emptyVotes(),
		CommentItems: []Comment{},
	}
}

func NewComment(creator, text string, now time.Time) *Comment {
	return &Comment{
		ID:        primitive.NewObjectID(),
		Creator:   creator,
		CreatedAt: now,
		Text:      text,
		Votes:     emptyVotes(),
	}
}

func emptyVotes() Votes {
	return Votes{UpvoterUsernames: []string{}, DownvoterUsernames: []string{}}
}

// Counters are the question root fields the sorter is derived from.
type Counters struct {
	Upvotes  int    `bson:"upvotes"`
	Views    int    `bson:"views"`
	Answers  int    `bson:"answers"`
	Comments int    `bson:"comments"`
	Sorter   Sorter `bson:"sorter"`
}

// CountersProjection selects exactly the fields of Counters.
var CountersProjection = map[string]interface{}{
	"upvotes": 1, "views": 1, "answers": 1, "comments": 1, "sorter": 1,
}

// Target is the slice of a votable entity the vote state machine needs.
type Target struct {
	Creator            string   `bson:"creator"`
	UpvoterUsernames   []string `bson:"upvoterUsernames"`
	DownvoterUsernames []string `bson:"downvoterUsernames"`
}

// TargetProjection selects exactly the fields of Target.
var TargetProjection = map[string]interface{}{
	"creator": 1, "upvoterUsernames": 1, "downvoterUsernames": 1,
}
