// Package repository persists questions. MongoRepo is the production store;
// MemoryRepo applies the same logical operations to in-process BSON documents
// and backs unit tests and database-less development runs.
package repository

import (
	"context"

	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/forum"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QuestionRepository is implemented by MongoRepo and MemoryRepo.
type QuestionRepository interface {
	Insert(ctx context.Context, q *forum.Question) error
	Exists(ctx context.Context, qid primitive.ObjectID) (bool, error)
	// Locate decodes the item p addresses into out. It reports false when the
	// question or the nested item is missing.
	Locate(ctx context.Context, p forum.Path, opts forum.LocateOptions, out interface{}) (bool, error)
	// Mutate applies u to the item p addresses in one atomic write.
	Mutate(ctx context.Context, p forum.Path, u forum.Update) (forum.MatchResult, error)
	// Patch applies a root patch, shifting the sorter against stored values.
	Patch(ctx context.Context, qid primitive.ObjectID, patch forum.QuestionPatch) (forum.MatchResult, error)
	// Delete removes the question and returns it as it was.
	Delete(ctx context.Context, qid primitive.ObjectID) (*forum.Question, error)
	Search(ctx context.Context, c *forum.Compiled) ([]*forum.Question, error)
}

var (
	_ QuestionRepository = (*MongoRepo)(nil)
	_ QuestionRepository = (*MemoryRepo)(nil)
)
