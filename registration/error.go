package registration

import "fmt"

type ErrorReason string

const (
	REASON_FAILED_TO_TRANSLATE_TO_DB_MODEL ErrorReason = "FAILED_TO_TRANSLATE_TO_DB_MODEL"
	REASON_FAILED_TO_WRITE                 ErrorReason = "FAILED_TO_WRITE"
	REASON_REGISTRATION_ALREADY_EXISTS     ErrorReason = "REGISTRATION_ALREADY_EXISTS"
	REASON_CAPACITY_EXCEEDED               ErrorReason = "CAPACITY_EXCEEDED"
	REASON_TICKET_CODE_TAKEN               ErrorReason = "TICKET_CODE_TAKEN"
	REASON_TICKET_CODES_EXHAUSTED          ErrorReason = "TICKET_CODES_EXHAUSTED"
	REASON_FAILED_TO_FETCH                 ErrorReason = "FAILED_TO_FETCH"
	REASON_INVALID_CURSOR                  ErrorReason = "INVALID_CURSOR"
	REASON_INVALID_PAYMENT                 ErrorReason = "INVALID_PAYMENT"
	REASON_ASSOCIATED_EVENT_DOES_NOT_EXIST ErrorReason = "ASSOCIATED_EVENT_DOES_NOT_EXIST"
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

func newRegistrationError(reason ErrorReason, message string, cause error) *Error {
	return &Error{
		Reason:  reason,
		Message: message,
		Cause:   cause,
	}
}

func NewFailedToWriteError(message string, cause error) *Error {
	return newRegistrationError(REASON_FAILED_TO_WRITE, message, cause)
}

func NewFailedToTranslateToDBModelError(message string, cause error) *Error {
	return newRegistrationError(REASON_FAILED_TO_TRANSLATE_TO_DB_MODEL, message, cause)
}

func NewRegistrationAlreadyExistsError(message string, cause error) *Error {
	return newRegistrationError(REASON_REGISTRATION_ALREADY_EXISTS, message, cause)
}

func NewCapacityExceededError(capacity int, cause error) *Error {
	return newRegistrationError(REASON_CAPACITY_EXCEEDED, fmt.Sprintf("Event is at its capacity of %d", capacity), cause)
}

func NewTicketCodeTakenError(code string, cause error) *Error {
	return newRegistrationError(REASON_TICKET_CODE_TAKEN, fmt.Sprintf("Ticket code %q is already issued", code), cause)
}

func NewTicketCodesExhaustedError(attempts int) *Error {
	return newRegistrationError(REASON_TICKET_CODES_EXHAUSTED, fmt.Sprintf("No free ticket code after %d attempts", attempts), nil)
}

func NewFailedToFetchError(message string, cause error) *Error {
	return newRegistrationError(REASON_FAILED_TO_FETCH, message, cause)
}

func NewInvalidCursorError(message string, cause error) *Error {
	return newRegistrationError(REASON_INVALID_CURSOR, message, cause)
}

func NewInvalidPaymentError(message string) *Error {
	return newRegistrationError(REASON_INVALID_PAYMENT, message, nil)
}

func NewAssociatedEventDoesNotExistError(message string, cause error) *Error {
	return newRegistrationError(REASON_ASSOCIATED_EVENT_DOES_NOT_EXIST, message, cause)
}

func NewTimeoutError(message string) *Error {
	return newRegistrationError(REASON_TIMEOUT, message, nil)
}
