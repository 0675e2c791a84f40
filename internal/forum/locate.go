package forum

import (
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// LocateOptions refine a Locate call.
type LocateOptions struct {
	// AnswerCreator selects the answer by creator instead of by id. Used to
	// check that a user has not answered a question already.
	AnswerCreator string
	// Projection is applied to the located item.
	Projection bson.M
}

// Validate rejects parameter combinations that could never locate one item.
func (o LocateOptions) Validate(p Path) error {
	if o.AnswerCreator != "" && p.AnswerID != nil {
		return apperrors.Invalid(apperrors.ErrIllegalParameters, "answer_creator", o.AnswerCreator,
			"cannot be combined with answer_id")
	}
	return nil
}

// LocatePipeline builds the aggregation that narrows the question document
// down to the item p addresses. An empty result means the question or the
// nested item does not exist.
func LocatePipeline(p Path, opts LocateOptions) (mongo.Pipeline, error) {
	if err := opts.Validate(p); err != nil {
		return nil, err
	}
	pipeline := mongo.Pipeline{{{Key: "$match", Value: bson.M{"_id": p.QuestionID}}}}

	switch {
	case p.AnswerID != nil:
		pipeline = append(pipeline, descend("answerItems", "_id", *p.AnswerID)...)
	case opts.AnswerCreator != "":
		pipeline = append(pipeline, descend("answerItems", "creator", opts.AnswerCreator)...)
	}
	if p.CommentID != nil {
		pipeline = append(pipeline, descend("commentItems", "_id", *p.CommentID)...)
	}
	if len(opts.Projection) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$project", Value: opts.Projection}})
	}
	return pipeline, nil
}

// descend replaces the working document with the first element of array whose
// key equals value.
func descend(array, key string, value interface{}) []bson.D {
	return []bson.D{
		{{Key: "$project", Value: bson.M{
			"item": bson.M{"$filter": bson.M{
				"input": "$" + array,
				"as":    "item",
				"cond":  bson.M{"$eq": bson.A{"$$item." + key, value}},
			}},
		}}},
		{{Key: "$unwind", Value: "$item"}},
		{{Key: "$limit", Value: 1}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$item"}}},
	}
}
