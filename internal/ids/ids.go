// Package ids converts between the opaque hex identifiers used by callers and
// the ObjectIDs stored in MongoDB.
package ids

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidObjectID is matched by every InvalidObjectIDError.
var ErrInvalidObjectID = errors.New("invalid object id")

// InvalidObjectIDError names the parameter that failed to decode.
type InvalidObjectIDError struct {
	Field string
	Value string
}

func (e *InvalidObjectIDError) Error() string {
	return fmt.Sprintf("%s: %q is not a valid object id", e.Field, e.Value)
}

func (e *InvalidObjectIDError) Is(target error) bool { return target == ErrInvalidObjectID }

// Decode parses a 24 character hex string.
func Decode(field, s string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, &InvalidObjectIDError{Field: field, Value: s}
	}
	return id, nil
}

// DecodeOptional is Decode for ids that may be absent: an empty string yields nil.
func DecodeOptional(field, s string) (*primitive.ObjectID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := Decode(field, s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func Encode(id primitive.ObjectID) string { return id.Hex() }

func New() primitive.ObjectID { return primitive.NewObjectID() }

// Ptr returns a pointer to a copy of id.
func Ptr(id primitive.ObjectID) *primitive.ObjectID { return &id }
