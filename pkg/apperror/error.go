package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
)

// Error represents an application error with HTTP status and error code
type Error struct {
	HTTPStatus int
	Code       string
	Message    string
	Internal   error
	Details    map[string]any
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the internal error
func (e *Error) Unwrap() error {
	return e.Internal
}

// Is matches on code so callers can compare against the predefined errors
// after WithMessage/WithInternal copies.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.HTTPStatus == t.HTTPStatus
}

// body is the "error" object of every JSON error response.
func (e *Error) body() map[string]any {
	b := map[string]any{
		"code":    e.Code,
		"message": e.Message,
	}
	if len(e.Details) > 0 {
		b["details"] = e.Details
	}
	return b
}

// ToEchoError converts the app error to an echo.HTTPError
func (e *Error) ToEchoError() *echo.HTTPError {
	return echo.NewHTTPError(e.HTTPStatus, map[string]any{"error": e.body()})
}

// WithInternal returns a copy of the error with an internal error attached
func (e *Error) WithInternal(err error) *Error {
	cp := *e
	cp.Internal = err
	return &cp
}

// WithMessage returns a copy of the error with a custom message
func (e *Error) WithMessage(message string) *Error {
	cp := *e
	cp.Message = message
	return &cp
}

// WithDetails returns a copy of the error with details attached
func (e *Error) WithDetails(details map[string]any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// New creates a new application error
func New(status int, code, message string) *Error {
	return &Error{
		HTTPStatus: status,
		Code:       code,
		Message:    message,
	}
}

var (
	// Authentication
	ErrUnauthorized       = New(http.StatusUnauthorized, "unauthorized", "Authentication required")
	ErrInvalidToken       = New(http.StatusUnauthorized, "invalid_token", "Invalid or expired token")
	ErrMissingToken       = New(http.StatusUnauthorized, "missing_token", "Missing authorization token")
	ErrInvalidCredentials = New(http.StatusUnauthorized, "invalid_credentials", "Invalid username or password")

	// Authorization
	ErrForbidden = New(http.StatusForbidden, "forbidden", "Access denied")

	// Resources
	ErrNotFound     = New(http.StatusNotFound, "not_found", "Resource not found")
	ErrUserNotFound = New(http.StatusNotFound, "user_not_found", "User not found")
	ErrTextNotFound = New(http.StatusNotFound, "text_not_found", "Text not found")
	ErrConflict     = New(http.StatusConflict, "conflict", "Resource already exists")

	// Validation
	ErrBadRequest = New(http.StatusBadRequest, "bad_request", "Invalid request")
	ErrValidation = New(http.StatusUnprocessableEntity, "validation_error", "Validation failed")

	// Annotation rules
	ErrMergeCycle             = New(http.StatusBadRequest, "merge_cycle", "Merging these concepts would create a cycle")
	ErrInvalidStateTransition = New(http.StatusConflict, "invalid_state_transition", "Concept state transition not allowed")
	ErrPartOfCycle            = New(http.StatusBadRequest, "part_of_cycle", "A text cannot be part of itself or its own parts")
	ErrInvalidControllingVerb = New(http.StatusBadRequest, "invalid_controlling_verb", "Controlling verb requires a predicate appellation")
	ErrIncompleteTemplate     = New(http.StatusBadRequest, "incomplete_template", "Template fields are missing")

	// Upstream
	ErrTokenExchangeFailed = New(http.StatusBadGateway, "token_exchange_failed", "Giles token exchange failed")
	ErrServiceUnavailable  = New(http.StatusServiceUnavailable, "service_unavailable", "Service not configured")

	// Server
	ErrInternal = New(http.StatusInternalServerError, "internal_error", "An internal error occurred")
	ErrDatabase = New(http.StatusInternalServerError, "database_error", "Database operation failed")
)

// Postgres SQLSTATE codes classified by FromDB.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// FromDB maps a driver error to an application error. Constraint violations
// become client errors, everything else is a database error.
func FromDB(err error) *Error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrConflict.WithInternal(err).WithDetails(map[string]any{"constraint": pgErr.ConstraintName})
		case pgForeignKeyViolation:
			return ErrBadRequest.WithMessage("Referenced resource does not exist").WithInternal(err).
				WithDetails(map[string]any{"constraint": pgErr.ConstraintName})
		case pgCheckViolation:
			return ErrValidation.WithInternal(err).WithDetails(map[string]any{"constraint": pgErr.ConstraintName})
		}
	}
	return ErrDatabase.WithInternal(err)
}

// ToHTTPError converts an app error to an HTTP-friendly format
func ToHTTPError(err error) (int, map[string]any) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus, map[string]any{"error": appErr.body()}
	}
	return http.StatusInternalServerError, map[string]any{"error": ErrInternal.body()}
}

// NewBadRequest creates a bad request error with a custom message
func NewBadRequest(message string) *Error {
	return ErrBadRequest.WithMessage(message)
}

// NewNotFound creates a not found error for a resource type and ID
func NewNotFound(resourceType, id string) *Error {
	return ErrNotFound.WithMessage(fmt.Sprintf("%s '%s' not found", resourceType, id))
}

// NewInternal creates an internal error with a message and optional wrapped error
func NewInternal(message string, err error) *Error {
	return ErrInternal.WithMessage(message).WithInternal(err)
}

// NewForbidden creates a forbidden error with a custom message
func NewForbidden(message string) *Error {
	return ErrForbidden.WithMessage(message)
}
