package apperror

import "net/http"

// AppError is a custom error type that includes an HTTP status code and an optional internal error code.
type AppError struct {
	Code    int            // HTTP Status Code (e.g., 400, 404)
	Message string         // User-facing error message
	Details map[string]any // Optional actionable context (e.g. the conflicting entity)
	Err     error          // The underlying error, if any (not exposed to user)
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches AppErrors by status code and message so that sentinel values
// still compare equal after WithDetails or Wrap produced a copy.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// WithDetails returns a copy of e carrying the given details.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// New creates a new AppError with a status code and message.
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error.
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error taxonomy shared by every module.

func Validation(message string) *AppError {
	return New(http.StatusBadRequest, message)
}

func SlotUnavailable(message string) *AppError {
	return New(http.StatusConflict, message)
}

func InvalidState(message string) *AppError {
	return New(http.StatusConflict, message)
}

func AmountExceedsBalance(message string) *AppError {
	return New(http.StatusUnprocessableEntity, message)
}

func InvalidSignature(message string) *AppError {
	return New(http.StatusUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return New(http.StatusForbidden, message)
}

func NotFound(message string) *AppError {
	return New(http.StatusNotFound, message)
}

// Transient marks store or network failures that are safe to retry.
func Transient(err error) *AppError {
	return Wrap(err, http.StatusServiceUnavailable, "temporarily unavailable, retry later")
}

// IsTransient reports whether err carries a 503 AppError.
func IsTransient(err error) bool {
	if appErr, ok := As(err); ok {
		return appErr.Code == http.StatusServiceUnavailable
	}
	return false
}
