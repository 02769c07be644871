package errors

import (
	"errors"
	"net/http"
)

// Kind classifies a domain error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindLocked
	KindValidation
	KindUpstream
	KindUnauthenticated
)

// Error is a classified domain error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same Code, so role-specific Forbidden
// messages still compare equal to the sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrUserNotFound     = &Error{Kind: KindNotFound, Code: "USER_NOT_FOUND", Message: "user not found"}
	ErrDocumentNotFound = &Error{Kind: KindNotFound, Code: "DOCUMENT_NOT_FOUND", Message: "document not found"}
	ErrCategoryNotFound = &Error{Kind: KindNotFound, Code: "CATEGORY_NOT_FOUND", Message: "category not found"}

	// ErrForbiddenScope is returned when a non-superadmin asks for every department.
	ErrForbiddenScope = &Error{Kind: KindForbidden, Code: "FORBIDDEN_SCOPE", Message: "department scope '*' is reserved for superadmin"}
	// ErrForbiddenRole is returned when the caller's role does not allow the operation.
	ErrForbiddenRole = &Error{Kind: KindForbidden, Code: "FORBIDDEN_ROLE", Message: "insufficient role"}
	// ErrAccountInactive is returned when a deactivated user authenticates.
	ErrAccountInactive = &Error{Kind: KindForbidden, Code: "ACCOUNT_INACTIVE", Message: "account is not active"}

	ErrEmailTaken     = &Error{Kind: KindConflict, Code: "EMAIL_TAKEN", Message: "email already registered"}
	ErrCategoryExists = &Error{Kind: KindConflict, Code: "CATEGORY_EXISTS", Message: "category already exists in department"}
	ErrCategoryInUse  = &Error{Kind: KindLocked, Code: "CATEGORY_IN_USE", Message: "category is still referenced by documents"}

	ErrUnsupportedImage    = &Error{Kind: KindValidation, Code: "UNSUPPORTED_IMAGE", Message: "unsupported image type"}
	ErrInvalidImagePayload = &Error{Kind: KindValidation, Code: "INVALID_IMAGE_PAYLOAD", Message: "image payload is not valid base64"}
	ErrInvalidInput        = &Error{Kind: KindValidation, Code: "INVALID_INPUT", Message: "invalid input"}
	// ErrUnknownCategory is returned when a document names a category that does not exist.
	ErrUnknownCategory = &Error{Kind: KindValidation, Code: "UNKNOWN_CATEGORY", Message: "category does not exist"}
	// ErrDepartmentRequired is returned when a user below superadmin would be left in every department.
	ErrDepartmentRequired = &Error{Kind: KindValidation, Code: "DEPARTMENT_REQUIRED", Message: "department '*' is reserved for superadmin"}

	ErrInvalidCredentials  = &Error{Kind: KindUnauthenticated, Code: "INVALID_CREDENTIALS", Message: "invalid email or password"}
	ErrInvalidToken        = &Error{Kind: KindUnauthenticated, Code: "INVALID_TOKEN", Message: "invalid or expired token"}
	ErrInvalidRefreshToken = &Error{Kind: KindUnauthenticated, Code: "INVALID_REFRESH_TOKEN", Message: "invalid or expired refresh token"}

	ErrUpstream = &Error{Kind: KindUpstream, Code: "UPSTREAM_ERROR", Message: "upstream service failure"}
)

// Forbidden builds a policy denial with a caller-specific message.
func Forbidden(code, msg string) *Error {
	return &Error{Kind: KindForbidden, Code: code, Message: msg}
}

// Validation builds a payload rejection.
func Validation(code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

// Upstream wraps a failure of an external dependency. The result matches ErrUpstream.
func Upstream(op string, err error) *Error {
	return &Error{Kind: KindUpstream, Code: ErrUpstream.Code, Message: op, Err: err}
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

var kindStatus = map[Kind]int{
	KindNotFound:        http.StatusNotFound,
	KindForbidden:       http.StatusForbidden,
	KindConflict:        http.StatusConflict,
	KindLocked:          http.StatusLocked,
	KindValidation:      http.StatusBadRequest,
	KindUpstream:        http.StatusBadGateway,
	KindUnauthenticated: http.StatusUnauthorized,
}

// MapErrorToHTTP maps domain errors to HTTP errors.
// Upstream details are not exposed to clients.
func MapErrorToHTTP(err error) *HTTPError {
	var de *Error
	if !errors.As(err, &de) {
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
	status, ok := kindStatus[de.Kind]
	if !ok {
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
	if de.Kind == KindUpstream {
		return NewHTTPError(status, ErrUpstream.Message, de.Code)
	}
	return NewHTTPError(status, de.Message, de.Code)
}
