package core

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jo-hoe/recipe-app/internal/backend/database"
)

// Error is a failure the HTTP layer can render directly. Details, when set, maps a
// request field to its messages.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Code == "" {
		return fmt.Sprintf("app error (status=%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) WithDetails(details map[string]any) *Error {
	if e == nil {
		return nil
	}
	cp := make(map[string]any, len(details))
	for k, v := range details {
		cp[k] = v
	}
	out := *e
	out.Details = cp
	return &out
}

const (
	CodeInvalid           = "invalid"
	CodeNotFound          = "not_found"
	CodeAuthFailed        = "authentication_failed"
	CodeNotAuthenticated  = "not_authenticated"
	msgInvalidCredentials = "unable to authenticate with provided credentials"
	msgFieldRequired      = "This field is required."
	msgFieldBlank         = "This field may not be blank."
	msgInvalidImage       = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
	msgNotFound           = "Not found."
	msgInvalidToken       = "Invalid token."
	msgUserInactive       = "User inactive or deleted."
	msgNoCredentials      = "Authentication credentials were not provided."
)

func fieldError(field string, messages ...string) *Error {
	return (&Error{
		Status:  http.StatusBadRequest,
		Code:    CodeInvalid,
		Message: fmt.Sprintf("invalid value for %s", field),
	}).WithDetails(map[string]any{field: messages})
}

func ErrNotFound() *Error {
	return &Error{Status: http.StatusNotFound, Code: CodeNotFound, Message: msgNotFound}
}

func ErrInvalidToken() *Error {
	return &Error{Status: http.StatusUnauthorized, Code: CodeAuthFailed, Message: msgInvalidToken}
}

func ErrNotAuthenticated() *Error {
	return &Error{Status: http.StatusUnauthorized, Code: CodeNotAuthenticated, Message: msgNoCredentials}
}

func errUserInactive() *Error {
	return &Error{Status: http.StatusUnauthorized, Code: CodeAuthFailed, Message: msgUserInactive}
}

func errInvalidCredentials() *Error {
	return (&Error{
		Status:  http.StatusBadRequest,
		Code:    CodeAuthFailed,
		Message: msgInvalidCredentials,
	}).WithDetails(map[string]any{"non_field_errors": []string{msgInvalidCredentials}})
}

// notFoundOr translates a storage miss into a 404 and passes other errors through.
func notFoundOr(err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return ErrNotFound()
	}
	return err
}
