package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// Type categorizes costctl errors for retry and exit-code decisions.
type Type string

const (
	TypeValidation Type = "Validation"
	TypeState      Type = "State"
	TypeThrottling Type = "Throttling"
	TypePermission Type = "Permission"
	TypeNotFound   Type = "NotFound"
	TypeService    Type = "Service"
)

// Error is a user-facing error carrying actionable guidance.
type Error struct {
	Type      Type
	Service   string
	Operation string
	Message   string
	Cause     error
	Solutions []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder

	if e.Service != "" && e.Operation != "" {
		fmt.Fprintf(&sb, "%s %s: %s", e.Service, e.Operation, e.Message)
	} else {
		sb.WriteString(e.Message)
	}
	if e.Cause != nil {
		fmt.Fprintf(&sb, ": %v", e.Cause)
	}

	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error of the given type.
func New(t Type, message string) *Error {
	return &Error{Type: t, Message: message}
}

// WithCause attaches the underlying error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithService records the service/operation the error came from.
func (e *Error) WithService(service, operation string) *Error {
	e.Service = service
	e.Operation = operation
	return e
}

// WithSolutions appends recovery suggestions shown to the user.
func (e *Error) WithSolutions(solutions ...string) *Error {
	e.Solutions = append(e.Solutions, solutions...)
	return e
}

// Guidance renders the solutions block, empty when there are none.
func (e *Error) Guidance() string {
	if len(e.Solutions) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Suggestions:\n")
	for _, s := range e.Solutions {
		fmt.Fprintf(&sb, "  - %s\n", s)
	}
	return sb.String()
}

// AWS error codes that should trigger retries.
var retryableCodes = map[string]struct{}{
	"ThrottlingException":      {},
	"TooManyRequestsException": {},
	"RequestLimitExceeded":     {},
	"ServiceUnavailable":       {},
	"InternalError":            {},
	"RequestTimeout":           {},
	"PriorRequestNotComplete":  {},
	"LimitExceededException":   {},
}

// AWS error codes that indicate missing permissions.
var permissionCodes = map[string]struct{}{
	"AccessDenied":                {},
	"AccessDeniedException":       {},
	"UnauthorizedOperation":       {},
	"UnauthorizedException":       {},
	"Forbidden":                   {},
	"InvalidClientTokenId":        {},
	"UnrecognizedClientException": {},
}

// AWS error codes that indicate a missing resource.
var notFoundCodes = map[string]struct{}{
	"ResourceNotFoundException": {},
	"NoSuchEntity":              {},
	"NoSuchKey":                 {},
	"NotFound":                  {},
	"NotFoundException":         {},
}

// Classify converts an AWS SDK error into a typed Error. Non-API
// errors map to TypeService.
func Classify(err error, service, operation string) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		message := apiErr.ErrorMessage()

		switch {
		case isCode(code, retryableCodes):
			return New(TypeThrottling, message).WithCause(err).WithService(service, operation)
		case isCode(code, permissionCodes):
			return New(TypePermission, message).
				WithCause(err).
				WithService(service, operation).
				WithSolutions("Check the IAM permissions attached to the active credentials")
		case isCode(code, notFoundCodes):
			return New(TypeNotFound, message).WithCause(err).WithService(service, operation)
		default:
			return New(TypeService, message).WithCause(err).WithService(service, operation)
		}
	}

	return New(TypeService, err.Error()).WithCause(err).WithService(service, operation)
}

func isCode(code string, set map[string]struct{}) bool {
	_, ok := set[code]
	return ok
}

// TypeOf reports the Type of err, or TypeService when err is not a
// costctl Error.
func TypeOf(err error) Type {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Type
	}
	return TypeService
}

// IsNotFound reports whether err classifies as a not-found failure.
func IsNotFound(err error) bool {
	return TypeOf(err) == TypeNotFound
}

// IsRetryable reports whether err is a transient failure worth retrying.
func IsRetryable(err error) bool {
	return TypeOf(err) == TypeThrottling
}

// ExitCode maps an error to the process exit code. The CLI convention
// is 0 for success and 1 for any error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
