package utils

import "fmt"

type AppError struct {
	Code    string
	Message string
	Origin  error // Original error that caused this error, if any
}

func (appErr *AppError) Error() string {
	if appErr.Origin != nil {
		return appErr.Message + ": " + appErr.Origin.Error()
	}
	return appErr.Message
}

// Standard error codes for the application
const (
	// Resource errors
	ErrNotFound     = "NOT_FOUND"
	ErrDuplicate    = "DUPLICATE"
	ErrInvalidInput = "INVALID_INPUT"

	// Authentication/Authorization errors
	ErrUnauthorized = "UNAUTHORIZED"
	ErrForbidden    = "FORBIDDEN" // Caller is known but lacks the capability
	ErrInvalidToken = "INVALID_TOKEN"

	// Domain-rule errors
	ErrInsufficientPoints = "INSUFFICIENT_POINTS"
	ErrAlreadyClaimed     = "ALREADY_CLAIMED"

	// User/marker specific errors
	ErrUserNotFound   = "USER_NOT_FOUND"
	ErrMarkerNotFound = "MARKER_NOT_FOUND"

	// Actor communication errors
	ErrActorTimeout = "ACTOR_TIMEOUT"

	ErrDatabase = "DATABASE_ERROR"
)

// Error creation helper functions
func NewAppError(code string, message string, originalErr error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Origin:  originalErr,
	}
}

func NewMarkerNotFoundError(markerID string) *AppError {
	return &AppError{
		Code:    ErrMarkerNotFound,
		Message: "Marker not found: " + markerID,
	}
}

func NewInsufficientPointsError(required int, actual int) *AppError {
	return &AppError{
		Code:    ErrInsufficientPoints,
		Message: fmt.Sprintf("Insufficient points. Required: %d, Actual: %d", required, actual),
	}
}

func NewForbiddenError(reason string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: "Forbidden: " + reason,
	}
}

// Helper method to check if an error is of a specific type
func IsErrorCode(err error, code string) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// DomainResult is returned for rule violations that are expected in
// normal operation (cooldowns, balances). The caller shows Message to
// the user instead of treating the response as a failure.
type DomainResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Points  *int   `json:"points,omitempty"`
}

// AppErrorToHTTPStatus converts an AppError code to an HTTP status code.
func AppErrorToHTTPStatus(errorCode string) int {
	switch errorCode {
	case ErrNotFound, ErrUserNotFound, ErrMarkerNotFound:
		return 404 // http.StatusNotFound
	case ErrInvalidInput:
		return 400 // http.StatusBadRequest
	case ErrUnauthorized, ErrInvalidToken:
		return 401 // http.StatusUnauthorized
	case ErrForbidden:
		return 403 // http.StatusForbidden
	case ErrDuplicate:
		return 409 // http.StatusConflict
	case ErrInsufficientPoints, ErrAlreadyClaimed:
		return 400 // domain rules surfaced as structured results upstream
	case ErrDatabase, ErrActorTimeout:
		return 500 // http.StatusInternalServerError
	default:
		return 500 // http.StatusInternalServerError for unknown errors
	}
}
