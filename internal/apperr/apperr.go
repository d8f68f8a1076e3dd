package apperr

import (
	"errors"
	"net/http"
)

// Kind groups errors by how the client should treat them.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindForbidden
	KindNotFound
	KindConflict
	KindCapacity
	KindUpstream
)

// Error is the single error type handlers translate into HTTP responses.
// Two Errors match under errors.Is when their codes are equal.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// New builds an Error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// WithMessage copies e with a different client-facing message, keeping the code.
func (e *Error) WithMessage(message string) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: message, Err: e.Err}
}

// Wrap attaches a cause to a copy of e.
func (e *Error) Wrap(err error) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Err: err}
}

// Sentinels shared across packages.
var (
	ErrValidation    = New(KindValidation, "VALIDATION_ERROR", "invalid input")
	ErrInvalidDomain = New(KindValidation, "INVALID_DOMAIN", "only .edu email addresses from recognized universities are allowed")

	ErrUnauthorized       = New(KindAuth, "UNAUTHORIZED", "unauthorized")
	ErrInvalidCredentials = New(KindAuth, "INVALID_CREDENTIALS", "invalid email or password")
	ErrEmailNotVerified   = New(KindAuth, "EMAIL_NOT_VERIFIED", "email address has not been verified")
	ErrCodeExpired        = New(KindAuth, "CODE_EXPIRED", "code has expired, request a new one")
	ErrCodeMismatch       = New(KindAuth, "CODE_MISMATCH", "code does not match")

	ErrForbidden = New(KindForbidden, "FORBIDDEN", "forbidden")
	ErrNotMember = New(KindForbidden, "NOT_MEMBER", "you are not a member of this ride")

	ErrNotFound         = New(KindNotFound, "NOT_FOUND", "resource not found")
	ErrRideNotFound     = New(KindNotFound, "RIDE_NOT_FOUND", "ride not found")
	ErrUserNotFound     = New(KindNotFound, "USER_NOT_FOUND", "user not found")
	ErrQuestionNotFound = New(KindNotFound, "QUESTION_NOT_FOUND", "question not found")

	ErrConflict      = New(KindConflict, "CONFLICT", "conflict")
	ErrAlreadyExists = New(KindConflict, "ALREADY_EXISTS", "an account with this email already exists")
	ErrAlreadyMember = New(KindConflict, "ALREADY_MEMBER", "you are already a member of this ride")

	ErrRideFull = New(KindCapacity, "RIDE_FULL", "ride is full")

	ErrUpstreamUnavailable = New(KindUpstream, "UPSTREAM_UNAVAILABLE", "upstream service unavailable")
)

// Validation returns a validation error with a specific message.
func Validation(message string) *Error { return ErrValidation.WithMessage(message) }

// Forbidden returns a forbidden error with a specific message.
func Forbidden(message string) *Error { return ErrForbidden.WithMessage(message) }

// Upstream reports a failed third-party dependency.
func Upstream(message string, err error) *Error {
	return ErrUpstreamUnavailable.WithMessage(message).Wrap(err)
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: "INTERNAL", Message: "internal server error", Err: err}
}

// From extracts an *Error from err's chain, treating anything else as internal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// Status maps an error to its HTTP status code.
func Status(err error) int {
	switch From(err).Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindCapacity:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
