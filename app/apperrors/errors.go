package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for display and status mapping.
type Kind string

const (
	AuthRequired       Kind = "AUTH_REQUIRED"
	UsernameTaken      Kind = "USERNAME_TAKEN"
	UnknownUsername    Kind = "UNKNOWN_USERNAME"
	WrongPassword      Kind = "WRONG_PASSWORD"
	MissingImageURL    Kind = "MISSING_IMAGE_URL"
	RemoteStoreFailure Kind = "REMOTE_STORE_FAILURE"
	NotOwner           Kind = "NOT_OWNER"
	NotFound           Kind = "NOT_FOUND"
	Validation         Kind = "VALIDATION_ERROR"
)

var statusCodes = map[Kind]int{
	AuthRequired:       http.StatusUnauthorized,
	UsernameTaken:      http.StatusConflict,
	UnknownUsername:    http.StatusUnauthorized,
	WrongPassword:      http.StatusUnauthorized,
	MissingImageURL:    http.StatusUnprocessableEntity,
	RemoteStoreFailure: http.StatusBadGateway,
	NotOwner:           http.StatusForbidden,
	NotFound:           http.StatusNotFound,
	Validation:         http.StatusUnprocessableEntity,
}

var messages = map[Kind]string{
	AuthRequired:       "Login required",
	UsernameTaken:      "Username already exists",
	UnknownUsername:    "Username does not exist",
	WrongPassword:      "Password incorrect",
	MissingImageURL:    "Image URL is required",
	RemoteStoreFailure: "Something went wrong talking to the server, please retry",
	NotOwner:           "Only the author can do that",
	NotFound:           "Post not found",
	Validation:         "Invalid input",
}

// StatusCode returns the HTTP status code for this kind
func (k Kind) StatusCode() int {
	if code, ok := statusCodes[k]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// Message is the user-facing text for the kind.
func (k Kind) Message() string {
	if msg, ok := messages[k]; ok {
		return msg
	}
	return "Unexpected error"
}

// Error carries a Kind and an optional cause.
type Error struct {
	Kind    Kind   `json:"code"`
	Message string `json:"message"`
	Op      string `json:"-"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an error of kind with its default message.
func New(kind Kind) *Error {
	return &Error{Kind: kind, Message: kind.Message()}
}

// Wrap attaches kind and the failing operation to err.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Message: kind.Message(), Op: op, Err: err}
}

// Store wraps a repository failure.
func Store(op string, err error) *Error {
	return Wrap(RemoteStoreFailure, op, err)
}

// KindOf extracts the kind of err, or "" when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
