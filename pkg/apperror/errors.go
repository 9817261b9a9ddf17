package apperror

import (
	"errors"
	"net/http"
)

// Kind classifies a failure the way callers need to react to it.
type Kind string

const (
	// KindSourceUnavailable means the primary store read/write failed.
	// Reads fall back to the cache, writes are logged and retried on the
	// next flush.
	KindSourceUnavailable Kind = "SOURCE_UNAVAILABLE"

	// KindSynthesisConflict means the target fact appeared between the
	// absence check and the write. The rule aborts silently.
	KindSynthesisConflict Kind = "SYNTHESIS_CONFLICT"

	// KindValidation means a malformed record was coerced to a best-effort
	// shape rather than dropped.
	KindValidation Kind = "VALIDATION_ERROR"

	// KindAuthorizationDenied means the caller lacks the tier or role for
	// the operation. Not an internal fault.
	KindAuthorizationDenied Kind = "AUTHORIZATION_DENIED"

	// KindExternalDegraded means an AI/weather/email call failed or timed
	// out. The ledger is unaffected.
	KindExternalDegraded Kind = "EXTERNAL_SERVICE_DEGRADED"
)

// AppError carries a stable code, a human message, and an HTTP status for
// the facade layer.
type AppError struct {
	Kind    Kind   `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message, Status: statusFor(kind)}
}

func Wrap(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Status: statusFor(kind), Err: err}
}

func SourceUnavailable(message string, err error) *AppError {
	return Wrap(KindSourceUnavailable, message, err)
}

func SynthesisConflict(message string) *AppError {
	return New(KindSynthesisConflict, message)
}

func Validation(message string) *AppError {
	return New(KindValidation, message)
}

func AuthorizationDenied(message string) *AppError {
	return New(KindAuthorizationDenied, message)
}

func ExternalDegraded(message string, err error) *AppError {
	return Wrap(KindExternalDegraded, message, err)
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// MapError normalizes an arbitrary error into an AppError for the facade.
func MapError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{Kind: "INTERNAL_ERROR", Message: "an unexpected error occurred", Status: http.StatusInternalServerError, Err: err}
}

func statusFor(kind Kind) int {
	switch kind {
	case KindSourceUnavailable:
		return http.StatusServiceUnavailable
	case KindSynthesisConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorizationDenied:
		return http.StatusForbidden
	case KindExternalDegraded:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
