package utils

import (
	"encoding/json"
	"errors"
	"net/http"
)

type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindAuthorization ErrorKind = "authorization"
	KindNotFound      ErrorKind = "not_found"
	KindDuplicate     ErrorKind = "duplicate"
	KindUpstream      ErrorKind = "upstream"
)

// Error is the API error taxonomy. Handlers return these and WriteError maps
// them onto HTTP statuses and a JSON body.
type Error struct {
	Kind    ErrorKind `json:"-"`
	Message string    `json:"error"`
	Details string    `json:"details,omitempty"`
}

func (e *Error) Error() string { return e.Message }

func ValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func AuthorizationError(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

func NotFoundError(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func DuplicateError(msg string) *Error {
	return &Error{Kind: KindDuplicate, Message: msg}
}

func UpstreamError(msg, details string) *Error {
	return &Error{Kind: KindUpstream, Message: msg, Details: details}
}

func statusFor(kind ErrorKind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicate:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err as JSON. Unknown error values become an opaque 500.
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		apiErr = &Error{Kind: "", Message: "internal server error"}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(apiErr.Kind))
	json.NewEncoder(w).Encode(apiErr)
}
