package users

import (
	"context"
	"sync"

	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/apperrors"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryUserRepository is the in-process twin of MongoUserRepository.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*models.User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.Username]; ok {
		return &apperrors.DuplicateFieldError{Field: "username", Value: u.Username}
	}
	for _, other := range r.users {
		if other.Email == u.Email {
			return &apperrors.DuplicateFieldError{Field: "email", Value: u.Email}
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	cp := *u
	r.users[u.Username] = &cp
	return nil
}

func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[username]
	if !ok {
		return nil, apperrors.NotFound("user", username)
	}
	cp := *u
	cp.QuestionIDs = append([]primitive.ObjectID(nil), u.QuestionIDs...)
	cp.AnswerIDs = append([]models.AnswerRef(nil), u.AnswerIDs...)
	return &cp, nil
}

func (r *MemoryUserRepository) with(username string, fn func(u *models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return apperrors.NotFound("user", username)
	}
	fn(u)
	return nil
}

func (r *MemoryUserRepository) AddQuestion(_ context.Context, username string, qid primitive.ObjectID) error {
	return r.with(username, func(u *models.User) { u.QuestionIDs = append(u.QuestionIDs, qid) })
}

func (r *MemoryUserRepository) RemoveQuestion(_ context.Context, username string, qid primitive.ObjectID) error {
	return r.with(username, func(u *models.User) {
		kept := u.QuestionIDs[:0]
		for _, id := range u.QuestionIDs {
			if id != qid {
				kept = append(kept, id)
			}
		}
		u.QuestionIDs = kept
	})
}

func (r *MemoryUserRepository) AddAnswer(_ context.Context, username string, ref models.AnswerRef) error {
	return r.with(username, func(u *models.User) { u.AnswerIDs = append(u.AnswerIDs, ref) })
}

func (r *MemoryUserRepository) RemoveAnswer(_ context.Context, username string, ref models.AnswerRef) error {
	return r.with(username, func(u *models.User) {
		u.AnswerIDs = filterRefs(u.AnswerIDs, func(a models.AnswerRef) bool { return a == ref })
	})
}

func (r *MemoryUserRepository) PruneAnswers(_ context.Context, qid primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		u.AnswerIDs = filterRefs(u.AnswerIDs, func(a models.AnswerRef) bool { return a.QuestionID == qid })
	}
	return nil
}

func (r *MemoryUserRepository) AddPoints(_ context.Context, username string, delta int) error {
	return r.with(username, func(u *models.User) {
		u.Points += delta
		if u.Points < 0 {
			u.Points = 0
		}
	})
}

func filterRefs(refs []models.AnswerRef, drop func(models.AnswerRef) bool) []models.AnswerRef {
	kept := make([]models.AnswerRef, 0, len(refs))
	for _, a := range refs {
		if !drop(a) {
			kept = append(kept, a)
		}
	}
	return kept
}
