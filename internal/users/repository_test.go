package users

import (
	"errors"
	"testing"

	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/apperrors"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/models"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func dupKey(msg string) error {
	return mongo.WriteException{WriteErrors: mongo.WriteErrors{{Index: 0, Code: 11000, Message: msg}}}
}

func TestDuplicateFieldNamesCollidingIndex(t *testing.T) {
	u := &models.User{Username: "myemail", Email: "username@example.com"}
	tests := []struct {
		msg   string
		field string
		value string
	}{
		{`E11000 duplicate key error collection: qoverflow.users index: username dup key: { username: "myemail" }`, "username", "myemail"},
		{`E11000 duplicate key error collection: qoverflow.users index: email dup key: { email: "username@example.com" }`, "email", "username@example.com"},
	}
	for _, tt := range tests {
		err := duplicateField(dupKey(tt.msg), u)
		var de *apperrors.DuplicateFieldError
		require.True(t, errors.As(err, &de), tt.msg)
		require.Equal(t, tt.field, de.Field)
		require.Equal(t, tt.value, de.Value)
		require.ErrorIs(t, err, apperrors.ErrDuplicateFieldValue)
	}
}

func TestCollidedIndex(t *testing.T) {
	require.Equal(t, "email", collidedIndex("E11000 duplicate key error collection: db.users index: email dup key: { email: \"a\" }"))
	require.Equal(t, "", collidedIndex("something else"))
}
