package apperrors

import (
	"errors"
	"net/http"
)

// HTTPStatus maps an error from the taxonomy onto a response status.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrIllegalOperation):
		return http.StatusForbidden
	case errors.Is(err, ErrDuplicateFieldValue):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
