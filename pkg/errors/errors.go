package errors

import (
	"errors"
	"fmt"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates insufficient permissions
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a service is unavailable
	ErrUnavailable = errors.New("service unavailable")

	// ErrRateLimited indicates the provider rejected a call due to rate limits
	ErrRateLimited = errors.New("rate limit exceeded")
)

// Session-specific errors

var (
	// ErrNoSession indicates no pending selection exists for the chat/sender pair
	ErrNoSession = errors.New("no pending session")

	// ErrInvalidChoice indicates the reply did not match any offered option
	ErrInvalidChoice = errors.New("invalid choice")
)

// Messaging-specific errors

var (
	// ErrUnauthorizedChat indicates the chat is not on the allow-list
	ErrUnauthorizedChat = errors.New("chat not authorized")

	// ErrUnsupportedMessage indicates the webhook carried a message type with no text
	ErrUnsupportedMessage = errors.New("unsupported message type")

	// ErrDeliveryFailed indicates the provider rejected an outbound message or file
	ErrDeliveryFailed = errors.New("message delivery failed")
)

// Fetcher-specific errors

var (
	// ErrFetchFailed indicates the resource fetcher could not produce a local file
	ErrFetchFailed = errors.New("resource fetch failed")

	// ErrNoFormats indicates the extractor found nothing downloadable at the URL
	ErrNoFormats = errors.New("no downloadable formats")
)

// DomainError wraps an error with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
