package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/apperrors"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/forum"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepo keeps question documents in process. The mutex stands in for
// MongoDB's single-document atomicity: every write is applied to a copy and
// swapped in only if all ops succeed.
type MemoryRepo struct {
	mu   sync.RWMutex
	docs map[primitive.ObjectID]bson.M
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{docs: make(map[primitive.ObjectID]bson.M)}
}

func (m *MemoryRepo) Insert(_ context.Context, q *forum.Question) error {
	doc, err := toDoc(q)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[q.ID]; ok {
		return fmt.Errorf("insert question: duplicate _id %s", q.ID.Hex())
	}
	m.docs[q.ID] = doc
	return nil
}

func (m *MemoryRepo) Exists(_ context.Context, qid primitive.ObjectID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.docs[qid]
	return ok, nil
}

func (m *MemoryRepo) Locate(_ context.Context, p forum.Path, opts forum.LocateOptions, out interface{}) (bool, error) {
	if err := opts.Validate(p); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	root, ok := m.docs[p.QuestionID]
	if !ok {
		return false, nil
	}
	item := resolve(root, p, opts)
	if item == nil {
		return false, nil
	}
	if err := fromDoc(project(item, opts.Projection), out); err != nil {
		return false, fmt.Errorf("decode %s: %w", p.Entity(), err)
	}
	return true, nil
}

func (m *MemoryRepo) Mutate(_ context.Context, p forum.Path, u forum.Update) (forum.MatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.docs[p.QuestionID]
	if !ok {
		return forum.MatchResult{}, nil
	}
	if err := m.apply(stored, p, u); err != nil {
		return forum.MatchResult{}, fmt.Errorf("mutate %s: %w", p.Entity(), err)
	}
	return forum.MatchResult{MatchedCount: 1}, nil
}

func (m *MemoryRepo) Patch(_ context.Context, qid primitive.ObjectID, patch forum.QuestionPatch) (forum.MatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.docs[qid]
	if !ok {
		return forum.MatchResult{}, nil
	}
	var cur forum.Counters
	if err := fromDoc(stored, &cur); err != nil {
		return forum.MatchResult{}, fmt.Errorf("patch question: %w", err)
	}
	if err := m.apply(stored, forum.QuestionPath(qid), patch.Resolve(cur)); err != nil {
		return forum.MatchResult{}, fmt.Errorf("patch question: %w", err)
	}
	return forum.MatchResult{MatchedCount: 1}, nil
}

// apply must be called with the write lock held. Ops addressed at a missing
// nested item are skipped, like an array filter that matches nothing.
func (m *MemoryRepo) apply(stored bson.M, p forum.Path, u forum.Update) error {
	doc, err := cloneDoc(stored)
	if err != nil {
		return err
	}
	leaf := resolve(doc, p, forum.LocateOptions{})
	for _, op := range u {
		target := leaf
		if op.Root {
			target = doc
		}
		if target == nil {
			continue
		}
		if err := applyOp(target, op); err != nil {
			return err
		}
	}
	m.docs[p.QuestionID] = doc
	return nil
}

func (m *MemoryRepo) Delete(_ context.Context, qid primitive.ObjectID) (*forum.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[qid]
	if !ok {
		return nil, apperrors.NotFound("question", qid.Hex())
	}
	var q forum.Question
	if err := fromDoc(doc, &q); err != nil {
		return nil, fmt.Errorf("delete question: %w", err)
	}
	delete(m.docs, qid)
	return &q, nil
}

func (m *MemoryRepo) Search(_ context.Context, c *forum.Compiled) ([]*forum.Question, error) {
	m.mu.RLock()
	all := make([]*forum.Question, 0, len(m.docs))
	for _, doc := range m.docs {
		var q forum.Question
		if err := fromDoc(doc, &q); err != nil {
			m.mu.RUnlock()
			return nil, fmt.Errorf("decode question %s: %w", objectIDOf(doc).Hex(), err)
		}
		all = append(all, &q)
	}
	m.mu.RUnlock()

	var cursor *forum.Cursor
	if c.AfterID != nil {
		for _, q := range all {
			if q.ID == *c.AfterID {
				pos := c.CursorFor(q)
				cursor = &pos
				break
			}
		}
		if cursor == nil {
			return nil, apperrors.NotFound("question", c.AfterID.Hex())
		}
	}

	out := []*forum.Question{}
	for _, q := range all {
		if !c.Matches(q) {
			continue
		}
		if cursor != nil && !c.After(q, *cursor) {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return c.Less(out[i], out[j]) })
	if len(out) > c.Limit {
		out = out[:c.Limit]
	}
	return out, nil
}
