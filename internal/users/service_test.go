package users

import (
	"context"
	"testing"

	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/apperrors"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/models"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := NewService(NewMemoryUserRepository())
	ctx := context.Background()

	u, err := svc.Register(ctx, Registration{Username: "amy", Email: "amy@example.com", Password: "correct horse"})
	require.NoError(t, err)
	require.False(t, u.ID.IsZero())
	require.Len(t, u.Salt, saltBytes*2)
	require.NotContains(t, u.Key, "correct horse")

	got, err := svc.Authenticate(ctx, "amy", "correct horse")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "amy", "wrong password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody", "whatever1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterDuplicates(t *testing.T) {
	svc := NewService(NewMemoryUserRepository())
	ctx := context.Background()
	_, err := svc.Register(ctx, Registration{Username: "amy", Email: "amy@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, Registration{Username: "amy", Email: "other@example.com", Password: "password1"})
	require.ErrorIs(t, err, apperrors.ErrDuplicateFieldValue)
	require.Contains(t, err.Error(), "username")

	_, err = svc.Register(ctx, Registration{Username: "amy2", Email: "amy@example.com", Password: "password1"})
	require.ErrorIs(t, err, apperrors.ErrDuplicateFieldValue)
	require.Contains(t, err.Error(), "email")
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(NewMemoryUserRepository())
	ctx := context.Background()
	for _, reg := range []Registration{
		{Username: "", Email: "a@b.co", Password: "password1"},
		{Username: "has space", Email: "a@b.co", Password: "password1"},
		{Username: "amy", Email: "not-an-email", Password: "password1"},
		{Username: "amy", Email: "a@b.co", Password: "short"},
	} {
		_, err := svc.Register(ctx, reg)
		require.ErrorIs(t, err, apperrors.ErrValidation, "%+v", reg)
		require.NotContains(t, err.Error(), reg.Password)
	}
}

func TestMemoryRepositoryBookkeeping(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.User{Username: "amy", Email: "a@x.io"}))
	require.NoError(t, repo.Create(ctx, &models.User{Username: "bob", Email: "b@x.io"}))

	q1, q2 := primitive.NewObjectID(), primitive.NewObjectID()
	a1, a2 := primitive.NewObjectID(), primitive.NewObjectID()
	require.NoError(t, repo.AddQuestion(ctx, "amy", q1))
	require.NoError(t, repo.AddAnswer(ctx, "bob", models.AnswerRef{QuestionID: q1, AnswerID: a1}))
	require.NoError(t, repo.AddAnswer(ctx, "bob", models.AnswerRef{QuestionID: q2, AnswerID: a2}))

	require.NoError(t, repo.RemoveQuestion(ctx, "amy", q1))
	require.NoError(t, repo.PruneAnswers(ctx, q1))

	amy, err := repo.GetByUsername(ctx, "amy")
	require.NoError(t, err)
	require.Empty(t, amy.QuestionIDs)
	bob, err := repo.GetByUsername(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, []models.AnswerRef{{QuestionID: q2, AnswerID: a2}}, bob.AnswerIDs)

	require.NoError(t, repo.AddPoints(ctx, "bob", 3))
	require.NoError(t, repo.AddPoints(ctx, "bob", -10))
	bob, err = repo.GetByUsername(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, 0, bob.Points)

	require.ErrorIs(t, repo.AddPoints(ctx, "nobody", 1), apperrors.ErrNotFound)
}
