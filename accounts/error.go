package accounts

import "fmt"

type ErrorReason string

const (
	REASON_FAILED_TO_TRANSLATE_TO_DB_MODEL ErrorReason = "FAILED_TO_TRANSLATE_TO_DB_MODEL"
	REASON_FAILED_TO_WRITE                 ErrorReason = "FAILED_TO_WRITE"
	REASON_FAILED_TO_FETCH                 ErrorReason = "FAILED_TO_FETCH"
	REASON_ACCOUNT_DOES_NOT_EXIST          ErrorReason = "ACCOUNT_DOES_NOT_EXIST"
	REASON_ACCOUNT_ALREADY_EXISTS          ErrorReason = "ACCOUNT_ALREADY_EXISTS"
	REASON_EMAIL_ALREADY_REGISTERED        ErrorReason = "EMAIL_ALREADY_REGISTERED"
	REASON_INVALID_CREDENTIALS             ErrorReason = "INVALID_CREDENTIALS"
	REASON_INVALID_INPUT                   ErrorReason = "INVALID_INPUT"
	REASON_TIMEOUT                         ErrorReason = "TIMEOUT"
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

func newAccountError(reason ErrorReason, message string, cause error) *Error {
	return &Error{
		Reason:  reason,
		Message: message,
		Cause:   cause,
	}
}

func NewFailedToTranslateToDBModelError(message string, cause error) *Error {
	return newAccountError(REASON_FAILED_TO_TRANSLATE_TO_DB_MODEL, message, cause)
}

func NewFailedToWriteError(message string, cause error) *Error {
	return newAccountError(REASON_FAILED_TO_WRITE, message, cause)
}

func NewFailedToFetchError(message string, cause error) *Error {
	return newAccountError(REASON_FAILED_TO_FETCH, message, cause)
}

func NewAccountDoesNotExistError(message string, cause error) *Error {
	return newAccountError(REASON_ACCOUNT_DOES_NOT_EXIST, message, cause)
}

func NewAccountAlreadyExistsError(message string, cause error) *Error {
	return newAccountError(REASON_ACCOUNT_ALREADY_EXISTS, message, cause)
}

func NewEmailAlreadyRegisteredError(email string, cause error) *Error {
	return newAccountError(REASON_EMAIL_ALREADY_REGISTERED, fmt.Sprintf("Email %q is already registered", email), cause)
}

func NewInvalidCredentialsError() *Error {
	return newAccountError(REASON_INVALID_CREDENTIALS, "Invalid email or password", nil)
}

func NewInvalidInputError(message string) *Error {
	return newAccountError(REASON_INVALID_INPUT, message, nil)
}

func NewTimeoutError(message string) *Error {
	return newAccountError(REASON_TIMEOUT, message, nil)
}
