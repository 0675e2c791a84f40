package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/apperrors"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/forum"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo stores each question as one document with its answers and
// comments embedded.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col}
}

func (m *MongoRepo) Insert(ctx context.Context, q *forum.Question) error {
	if _, err := m.col.InsertOne(ctx, q); err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (m *MongoRepo) Exists(ctx context.Context, qid primitive.ObjectID) (bool, error) {
	n, err := m.col.CountDocuments(ctx, bson.M{"_id": qid}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count question: %w", err)
	}
	return n > 0, nil
}

func (m *MongoRepo) Locate(ctx context.Context, p forum.Path, opts forum.LocateOptions, out interface{}) (bool, error) {
	pipeline, err := forum.LocatePipeline(p, opts)
	if err != nil {
		return false, err
	}
	cur, err := m.col.Aggregate(ctx, pipeline)
	if err != nil {
		return false, fmt.Errorf("locate %s: %w", p.Entity(), err)
	}
	defer cur.Close(ctx)
	if !cur.Next(ctx) {
		return false, cur.Err()
	}
	if err := cur.Decode(out); err != nil {
		return false, fmt.Errorf("decode %s: %w", p.Entity(), err)
	}
	return true, nil
}

func (m *MongoRepo) Mutate(ctx context.Context, p forum.Path, u forum.Update) (forum.MatchResult, error) {
	doc, opts := u.Physical(p)
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": p.QuestionID}, doc, opts)
	if err != nil {
		return forum.MatchResult{}, fmt.Errorf("mutate %s: %w", p.Entity(), err)
	}
	return forum.MatchResult{MatchedCount: res.MatchedCount}, nil
}

func (m *MongoRepo) Patch(ctx context.Context, qid primitive.ObjectID, patch forum.QuestionPatch) (forum.MatchResult, error) {
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": qid}, patch.Pipeline())
	if err != nil {
		return forum.MatchResult{}, fmt.Errorf("patch question: %w", err)
	}
	return forum.MatchResult{MatchedCount: res.MatchedCount}, nil
}

func (m *MongoRepo) Delete(ctx context.Context, qid primitive.ObjectID) (*forum.Question, error) {
	var q forum.Question
	if err := m.col.FindOneAndDelete(ctx, bson.M{"_id": qid}).Decode(&q); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("question", qid.Hex())
		}
		return nil, fmt.Errorf("delete question: %w", err)
	}
	return &q, nil
}

func (m *MongoRepo) Search(ctx context.Context, c *forum.Compiled) ([]*forum.Question, error) {
	var cursor *forum.Cursor
	if c.AfterID != nil {
		var after forum.Question
		proj := bson.M{"upvotes": 1, "sorter": 1}
		err := m.col.FindOne(ctx, bson.M{"_id": *c.AfterID}, options.FindOne().SetProjection(proj)).Decode(&after)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, apperrors.NotFound("question", c.AfterID.Hex())
			}
			return nil, fmt.Errorf("resolve after_id: %w", err)
		}
		pos := c.CursorFor(&after)
		cursor = &pos
	}
	cur, err := m.col.Aggregate(ctx, c.Pipeline(cursor))
	if err != nil {
		return nil, fmt.Errorf("search questions: %w", err)
	}
	out := []*forum.Question{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return out, nil
}
