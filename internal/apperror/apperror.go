// Package apperror defines the error taxonomy shared by the service layer and its transports.
// Every expected failure is an *AppError (or a type embedding one) carrying an HTTP-style status,
// a stable machine-readable code and structured details.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Stable error codes.
const (
	CodeInternal     = "INTERNAL_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeValidation   = "VALIDATION_ERROR"
	CodeBusinessRule = "BUSINESS_RULE_VIOLATION"
)

// Error is implemented by *AppError and by every type embedding it.
// errors.As(err, &target) with a target of this interface finds the base error
// through subtypes and %w wrapping alike.
type Error interface {
	error
	AppErr() *AppError
}

// AppError is the base of the taxonomy.
type AppError struct {
	Message     string
	StatusCode  int
	Code        string
	Operational bool
	Details     map[string]any
	Timestamp   time.Time
	// Err is the underlying cause, never serialized.
	Err error
}

// New builds an AppError. Timestamp is fixed here and never changes afterwards.
func New(message string, statusCode int, code string, operational bool, details map[string]any) *AppError {
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}
	if code == "" {
		code = CodeInternal
	}
	return &AppError{
		Message:     message,
		StatusCode:  statusCode,
		Code:        code,
		Operational: operational,
		Details:     details,
		Timestamp:   time.Now().UTC(),
	}
}

// Internal builds the default 500 error.
func Internal(message string) *AppError {
	return New(message, http.StatusInternalServerError, CodeInternal, true, nil)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause for errors.Is/As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// AppErr returns the receiver; subtypes inherit it through embedding.
func (e *AppError) AppErr() *AppError {
	return e
}

// WithDetail adds a key to Details and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Body is the serialized error payload.
type Body struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	StatusCode int            `json:"statusCode"`
	Details    map[string]any `json:"details,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Response is the envelope written to clients on failure.
type Response struct {
	Success bool `json:"success"`
	Error   Body `json:"error"`
}

// ToJSON returns the response envelope for this error.
func (e *AppError) ToJSON() Response {
	return Response{
		Success: false,
		Error: Body{
			Code:       e.Code,
			Message:    e.Message,
			StatusCode: e.StatusCode,
			Details:    e.Details,
			Timestamp:  e.Timestamp,
		},
	}
}

// IsAppError reports whether err is, or wraps, an AppError of any subtype.
func IsAppError(err error) bool {
	_, ok := As(err)
	return ok
}

// As extracts the base AppError from err's chain.
func As(err error) (*AppError, bool) {
	var target Error
	if errors.As(err, &target) {
		return target.AppErr(), true
	}
	return nil, false
}
