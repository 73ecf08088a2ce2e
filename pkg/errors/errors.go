package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeUnavailable       Code = "UNAVAILABLE"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeInvalidState      Code = "INVALID_STATE"
	CodeIdempotency       Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit         Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal          Code = "INTERNAL_ERROR"
	CodeDependency        Code = "DEPENDENCY_ERROR"
)

// Metadata decides how a code is rendered to clients.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

type trait uint8

const (
	retryable trait = 1 << iota
	withDetails
)

func describe(status int, public string, traits trait) Metadata {
	return Metadata{
		HTTPStatus:     status,
		PublicMessage:  public,
		Retryable:      traits&retryable != 0,
		DetailsAllowed: traits&withDetails != 0,
	}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:   describe(http.StatusBadRequest, "validation failed", withDetails),
	CodeUnauthorized: describe(http.StatusUnauthorized, "authentication required", 0),
	CodeForbidden:    describe(http.StatusForbidden, "access denied", 0),
	CodeNotFound:     describe(http.StatusNotFound, "resource not found", 0),
	CodeConflict:     describe(http.StatusConflict, "conflict detected", 0),
	// Stock can come back after a cancellation.
	CodeUnavailable:       describe(http.StatusConflict, "bag unavailable", retryable|withDetails),
	CodeInvalidTransition: describe(http.StatusUnprocessableEntity, "state transition disallowed", withDetails),
	CodeInvalidState:      describe(http.StatusUnprocessableEntity, "operation not allowed in current state", withDetails),
	CodeIdempotency:       describe(http.StatusConflict, "idempotency key reused", withDetails),
	CodeRateLimit:         describe(http.StatusTooManyRequests, "rate limit exceeded", retryable),
	CodeInternal:          describe(http.StatusInternalServerError, "internal server error", retryable),
	CodeDependency:        describe(http.StatusServiceUnavailable, "dependency unavailable", retryable|withDetails),
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is the typed failure returned by services and rendered by api/responses.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails returns a copy carrying details; e itself is left untouched
// so package-level errors can be shared.
func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	dup := *e
	dup.details = details
	return &dup
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// HasCode reports whether err carries a typed error with the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
