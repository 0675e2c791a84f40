package mail

import (
	"context"
	"strings"
	"testing"

	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/apperrors"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/config"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/models"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/users"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, perPage int) *Service {
	t.Helper()
	ur := users.NewMemoryUserRepository()
	for _, name := range []string{"amy", "bob"} {
		require.NoError(t, ur.Create(context.Background(), &models.User{Username: name, Email: name + "@example.com"}))
	}
	limits := config.DefaultLimits()
	limits.ResultsPerPage = perPage
	return NewService(NewMemoryRepo(), ur, limits)
}

func TestSendValidates(t *testing.T) {
	svc := newService(t, 10)
	ctx := context.Background()

	_, err := svc.Send(ctx, "amy", "bob", "", "hi")
	require.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = svc.Send(ctx, "amy", "bob", strings.Repeat("s", 76), "hi")
	require.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = svc.Send(ctx, "amy", "nobody", "hello", "hi")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	m, err := svc.Send(ctx, "amy", "bob", "hello", "hi")
	require.NoError(t, err)
	require.False(t, m.ID.IsZero())
}

func TestInboxPagination(t *testing.T) {
	svc := newService(t, 2)
	ctx := context.Background()
	var sent []string
	for i := 0; i < 5; i++ {
		m, err := svc.Send(ctx, "amy", "bob", "hello", "message")
		require.NoError(t, err)
		sent = append(sent, m.ID.Hex())
	}
	_, err := svc.Send(ctx, "bob", "amy", "reply", "hi")
	require.NoError(t, err)

	var got []string
	after := ""
	for {
		page, err := svc.Inbox(ctx, "bob", after)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		require.LessOrEqual(t, len(page), 2)
		for _, m := range page {
			got = append(got, m.ID.Hex())
		}
		after = page[len(page)-1].ID.Hex()
	}
	require.Equal(t, []string{sent[4], sent[3], sent[2], sent[1], sent[0]}, got)

	_, err = svc.Inbox(ctx, "bob", "zzz")
	require.ErrorIs(t, err, apperrors.ErrInvalidObjectID)
}

func TestDeleteOnlyByReceiver(t *testing.T) {
	svc := newService(t, 10)
	ctx := context.Background()
	m, err := svc.Send(ctx, "amy", "bob", "hello", "hi")
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, "amy", m.ID.Hex()), apperrors.ErrIllegalOperation)
	require.NoError(t, svc.Delete(ctx, "bob", m.ID.Hex()))
	require.ErrorIs(t, svc.Delete(ctx, "bob", m.ID.Hex()), apperrors.ErrNotFound)
}
