package roles

import "fmt"

type ErrorReason string

const (
	REASON_FAILED_TO_WRITE        ErrorReason = "FAILED_TO_WRITE"
	REASON_FAILED_TO_FETCH        ErrorReason = "FAILED_TO_FETCH"
	REASON_GRANT_ALREADY_EXISTS   ErrorReason = "GRANT_ALREADY_EXISTS"
	REASON_MISSING_ROLE           ErrorReason = "MISSING_ROLE"
	REASON_UNKNOWN_ROLE           ErrorReason = "UNKNOWN_ROLE"
	REASON_ACCOUNT_DOES_NOT_EXIST ErrorReason = "ACCOUNT_DOES_NOT_EXIST"
)

type Error struct {
	Reason  ErrorReason
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Reason, e.Message)
	}
	return fmt.Sprintf("%s: %s. Cause: %s", e.Reason, e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newRoleError(reason ErrorReason, message string, cause error) *Error {
	return &Error{
		Reason:  reason,
		Message: message,
		Cause:   cause,
	}
}

func NewFailedToWriteError(message string, cause error) *Error {
	return newRoleError(REASON_FAILED_TO_WRITE, message, cause)
}

func NewFailedToFetchError(message string, cause error) *Error {
	return newRoleError(REASON_FAILED_TO_FETCH, message, cause)
}

func NewGrantAlreadyExistsError(message string, cause error) *Error {
	return newRoleError(REASON_GRANT_ALREADY_EXISTS, message, cause)
}

func NewMissingRoleError(role Role) *Error {
	return newRoleError(REASON_MISSING_ROLE, fmt.Sprintf("Role %q is required", role), nil)
}

func NewUnknownRoleError(role string) *Error {
	return newRoleError(REASON_UNKNOWN_ROLE, fmt.Sprintf("Unknown role %q", role), nil)
}

func NewAccountDoesNotExistError(message string, cause error) *Error {
	return newRoleError(REASON_ACCOUNT_DOES_NOT_EXIST, message, cause)
}
