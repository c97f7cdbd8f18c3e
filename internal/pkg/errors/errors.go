package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
)

type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

const (
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal            = "INTERNAL_ERROR"
	ErrCodeAuthorizationFailed = "AUTHORIZATION_CHECK_FAILED"
	ErrCodeCannotDeleteSelf    = "CANNOT_DELETE_SELF"
	ErrCodeProtectedAccount    = "PROTECTED_ACCOUNT"
)

// Error kinds. Callers wrap these with fmt.Errorf("%w: ...") and the HTTP
// layer maps the chain back with errors.Is.
var (
	ErrUnauthenticated          = stderrors.New("unauthenticated")
	ErrForbidden                = stderrors.New("forbidden")
	ErrValidation               = stderrors.New("validation error")
	ErrConflict                 = stderrors.New("conflict")
	ErrNotFound                 = stderrors.New("not found")
	ErrDependency               = stderrors.New("dependency error")
	ErrAuthorizationCheckFailed = stderrors.New("authorization check failed")

	ErrCannotDeleteSelf             = &kindError{msg: "cannot delete your own user", kind: ErrForbidden}
	ErrCannotDeleteProtectedAccount = &kindError{msg: "cannot delete the protected system account", kind: ErrForbidden}
)

// kindError is a named error that also matches a broader kind.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    code,
		Details: details,
	})
}

// Classify returns the HTTP status, error code and client-safe message for err.
// Server-side faults get a fixed message so backend payloads never leak.
func Classify(err error) (int, string, string) {
	switch {
	case stderrors.Is(err, ErrCannotDeleteSelf):
		return http.StatusBadRequest, ErrCodeCannotDeleteSelf, ErrCannotDeleteSelf.Error()
	case stderrors.Is(err, ErrCannotDeleteProtectedAccount):
		return http.StatusForbidden, ErrCodeProtectedAccount, ErrCannotDeleteProtectedAccount.Error()
	case stderrors.Is(err, ErrAuthorizationCheckFailed):
		return http.StatusInternalServerError, ErrCodeAuthorizationFailed, "Failed to verify permissions"
	case stderrors.Is(err, ErrDependency):
		return http.StatusInternalServerError, ErrCodeInternal, "Backend operation failed"
	case stderrors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized, ErrCodeUnauthorized, "Not authenticated"
	case stderrors.Is(err, ErrForbidden):
		return http.StatusForbidden, ErrCodeForbidden, "Requires system administrator or at least one enabled role"
	case stderrors.Is(err, ErrValidation):
		return http.StatusBadRequest, ErrCodeInvalidInput, err.Error()
	case stderrors.Is(err, ErrConflict):
		return http.StatusConflict, ErrCodeConflict, err.Error()
	case stderrors.Is(err, ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound, err.Error()
	default:
		return http.StatusInternalServerError, ErrCodeInternal, "Internal server error"
	}
}

// WriteAppError renders err using Classify.
func WriteAppError(w http.ResponseWriter, err error) {
	status, code, message := Classify(err)
	WriteError(w, status, code, message, nil)
}
