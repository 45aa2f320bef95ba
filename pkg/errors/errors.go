package errors

var (
	// ErrTimeoutExceeded is returned when graceful timeout period exceeds.
	ErrTimeoutExceeded = New("Timeout exceeded")
	// ErrInvalidQueuePayload is returned when type assertion fails in queue producer.
	ErrInvalidQueuePayload = New("Invalid Queue Payload")
	// ErrInvalidLoggerInstance is returned when logger instance is not supported.
	ErrInvalidLoggerInstance = New("Invalid logger instance")
	// ErrMarshalJSON is returned when json marshal failed.
	ErrMarshalJSON = New("JSON marshal failed")
	// ErrUnMarshalJSON is returned when json unmarshal failed.
	ErrUnMarshalJSON = New("JSON unmarshal failed")
	// ErrTypeAssertionFailed is returned when type assertion fails for a var.
	ErrTypeAssertionFailed = New("type assertion failed")
	// ErrInvalidTransition is returned when an execution status update does not
	// follow the forward state machine.
	ErrInvalidTransition = New("invalid execution status transition")
	// GenericErrorMessage is generic error message returned to UI.
	GenericErrorMessage = New("Unexpected error. Please try again later.")
)

// Error represents a json-encoded API error.
type Error struct {
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// New returns a new error message.
func New(text string) error {
	return &Error{Message: text}
}
