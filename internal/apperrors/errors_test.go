package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/ids"
	"github.com/stretchr/testify/require"
)

func TestValidationErrorMatchesKindAndClass(t *testing.T) {
	err := fmt.Errorf("apply vote: %w", Invalid(ErrDuplicateIncrement, "upvotes", nil, "already upvoted"))
	require.True(t, errors.Is(err, ErrValidation))
	require.True(t, errors.Is(err, ErrDuplicateIncrement))
	require.False(t, errors.Is(err, ErrInvalidDecrement))
	require.Contains(t, err.Error(), "upvotes")
}

func TestFromID(t *testing.T) {
	_, err := ids.Decode("question_id", "bad")
	err = FromID(err)
	require.ErrorIs(t, err, ErrValidation)
	require.ErrorIs(t, err, ErrInvalidObjectID)
	require.Contains(t, err.Error(), "question_id")
}

func TestKindsAreDistinct(t *testing.T) {
	require.ErrorIs(t, NotFound("answer", "x"), ErrNotFound)
	require.ErrorIs(t, Illegal("bob", "self vote"), ErrIllegalOperation)
	require.ErrorIs(t, &DuplicateFieldError{Field: "email", Value: "a@b.c"}, ErrDuplicateFieldValue)
	require.NotErrorIs(t, NotFound("answer", "x"), ErrValidation)
}

func TestCheckText(t *testing.T) {
	require.NoError(t, CheckText("title", "héllo", 5))
	err := CheckText("title", "héllo!", 5)
	require.ErrorIs(t, err, ErrValidation)
	require.ErrorIs(t, err, ErrInvalidInput)
	require.Contains(t, err.Error(), "title")
	require.ErrorIs(t, CheckText("title", "", 5), ErrInvalidInput)
}

func TestCheckOneOf(t *testing.T) {
	require.NoError(t, CheckOneOf("status", "closed", "open closed protected"))
	require.ErrorIs(t, CheckOneOf("status", "archived", "open closed protected"), ErrInvalidInput)
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFound("question", "x"), 404},
		{Invalid(ErrInvalidDecrement, "f", nil, ""), 400},
		{FromID(&ids.InvalidObjectIDError{Field: "question_id", Value: "x"}), 400},
		{Illegal("amy", "self vote"), 403},
		{&DuplicateFieldError{Field: "email", Value: "a@b.co"}, 409},
		{fmt.Errorf("wrapped: %w", NotFound("answer", "y")), 404},
		{errors.New("boom"), 500},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}
