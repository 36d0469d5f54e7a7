package stats

import "fmt"

type ErrorReason string

const (
	REASON_FAILED_TO_FETCH ErrorReason = "FAILED_TO_FETCH"
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

func NewFailedToFetchError(message string, cause error) *Error {
	return &Error{
		Reason:  REASON_FAILED_TO_FETCH,
		Message: message,
		Cause:   cause,
	}
}
