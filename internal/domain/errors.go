package domain

import "fmt"

// ErrorType categorizes retriever failures.
type ErrorType string

const (
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeResource      ErrorType = "resource"
	ErrorTypeRequest       ErrorType = "request"
)

// Error is returned by the factory and every adapter.
type Error struct {
	Type    ErrorType
	Kind    Kind
	Message string
	Err     error
}

// Sentinels for errors.Is. Matching compares only the Type.
var (
	ErrConfiguration = &Error{Type: ErrorTypeConfiguration}
	ErrResource      = &Error{Type: ErrorTypeResource}
	ErrRequest       = &Error{Type: ErrorTypeRequest}
)

func (e *Error) Error() string {
	prefix := string(e.Type)
	if e.Kind != "" {
		prefix = fmt.Sprintf("%s %s", e.Kind, e.Type)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", prefix, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

func NewConfigError(kind Kind, message string) *Error {
	return &Error{Type: ErrorTypeConfiguration, Kind: kind, Message: message}
}

func NewResourceError(kind Kind, message string, err error) *Error {
	return &Error{Type: ErrorTypeResource, Kind: kind, Message: message, Err: err}
}

func NewRequestError(kind Kind, message string, err error) *Error {
	return &Error{Type: ErrorTypeRequest, Kind: kind, Message: message, Err: err}
}
