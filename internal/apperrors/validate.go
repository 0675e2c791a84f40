package apperrors

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// CheckText requires s to hold between 1 and max characters.
func CheckText(field, s string, max int) error {
	if err := validate.Var(s, fmt.Sprintf("required,max=%d", max)); err != nil {
		return Invalid(ErrInvalidInput, field, nil, fmt.Sprintf("must be 1 to %d characters", max))
	}
	return nil
}

// CheckOneOf requires s to be one of the space separated options.
func CheckOneOf(field, s, options string) error {
	if err := validate.Var(s, "required,oneof="+options); err != nil {
		return Invalid(ErrInvalidInput, field, s, "expected one of "+options)
	}
	return nil
}
