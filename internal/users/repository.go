package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/apperrors"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserRepository defines persistence operations for users
type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	AddQuestion(ctx context.Context, username string, qid primitive.ObjectID) error
	RemoveQuestion(ctx context.Context, username string, qid primitive.ObjectID) error
	AddAnswer(ctx context.Context, username string, ref models.AnswerRef) error
	RemoveAnswer(ctx context.Context, username string, ref models.AnswerRef) error
	// PruneAnswers removes every user's references to answers of qid.
	PruneAnswers(ctx context.Context, qid primitive.ObjectID) error
	// AddPoints moves a user's points by delta, never below zero.
	AddPoints(ctx context.Context, username string, delta int) error
}

// MongoUserRepository implements UserRepository using MongoDB. Uniqueness of
// username and email is enforced by the indexes created in database.EnsureIndexes.
type MongoUserRepository struct {
	col *mongo.Collection
}

// NewMongoUserRepository creates a new repository for the given collection
func NewMongoUserRepository(col *mongo.Collection) *MongoUserRepository {
	return &MongoUserRepository{col: col}
}

func (r *MongoUserRepository) Create(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if _, err := r.col.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return duplicateField(err, u)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// duplicateField names the unique field the insert collided on, read from
// the "index: <name> " part of the server's E11000 message.
func duplicateField(err error, u *models.User) error {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 && collidedIndex(e.Message) == "email" {
				return &apperrors.DuplicateFieldError{Field: "email", Value: u.Email}
			}
		}
	}
	return &apperrors.DuplicateFieldError{Field: "username", Value: u.Username}
}

func collidedIndex(msg string) string {
	_, rest, ok := strings.Cut(msg, "index: ")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, " ")
	return name
}

func (r *MongoUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"username": username}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("user", username)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *MongoUserRepository) update(ctx context.Context, username string, update interface{}) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"username": username}, update)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("user", username)
	}
	return nil
}

func (r *MongoUserRepository) AddQuestion(ctx context.Context, username string, qid primitive.ObjectID) error {
	return r.update(ctx, username, bson.M{"$push": bson.M{"questionIds": qid}})
}

func (r *MongoUserRepository) RemoveQuestion(ctx context.Context, username string, qid primitive.ObjectID) error {
	return r.update(ctx, username, bson.M{"$pull": bson.M{"questionIds": qid}})
}

func (r *MongoUserRepository) AddAnswer(ctx context.Context, username string, ref models.AnswerRef) error {
	return r.update(ctx, username, bson.M{"$push": bson.M{"answerIds": ref}})
}

func (r *MongoUserRepository) RemoveAnswer(ctx context.Context, username string, ref models.AnswerRef) error {
	return r.update(ctx, username, bson.M{"$pull": bson.M{"answerIds": bson.M{"questionId": ref.QuestionID, "answerId": ref.AnswerID}}})
}

func (r *MongoUserRepository) PruneAnswers(ctx context.Context, qid primitive.ObjectID) error {
	_, err := r.col.UpdateMany(ctx,
		bson.M{"answerIds.questionId": qid},
		bson.M{"$pull": bson.M{"answerIds": bson.M{"questionId": qid}}},
	)
	if err != nil {
		return fmt.Errorf("prune answers: %w", err)
	}
	return nil
}

func (r *MongoUserRepository) AddPoints(ctx context.Context, username string, delta int) error {
	pipeline := mongo.Pipeline{{{Key: "$set", Value: bson.M{
		"points": bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{"$points", delta}}}},
	}}}}
	return r.update(ctx, username, pipeline)
}
