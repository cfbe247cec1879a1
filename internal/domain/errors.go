package domain

import (
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeValidation       ErrorType = "validation"
	ErrorTypeUnsupportedMedia ErrorType = "unsupported_media"
	ErrorTypeConversion       ErrorType = "conversion"
	ErrorTypeEmptyExtraction  ErrorType = "empty_extraction"
	ErrorTypeMalformedOutput  ErrorType = "malformed_model_output"
	ErrorTypeRateLimited      ErrorType = "rate_limited"
	ErrorTypeRetryExhausted   ErrorType = "retry_exhausted"
	ErrorTypeLookup           ErrorType = "lookup"
	ErrorTypeAPI              ErrorType = "api"
	ErrorTypeConfig           ErrorType = "config"
	ErrorTypeIO               ErrorType = "io"
	ErrorTypeStorage          ErrorType = "storage"
)

// DomainError represents a domain-specific error with context. Message is
// safe to show to end users; Err carries the raw diagnostic detail and is
// confined to server-side logs.
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func UnsupportedMediaError(message string, err error) *DomainError {
	return NewError(ErrorTypeUnsupportedMedia, message, err)
}

func ConversionError(message string, err error) *DomainError {
	return NewError(ErrorTypeConversion, message, err)
}

func EmptyExtractionError(message string, err error) *DomainError {
	return NewError(ErrorTypeEmptyExtraction, message, err)
}

func MalformedOutputError(message string, err error) *DomainError {
	return NewError(ErrorTypeMalformedOutput, message, err)
}

func RateLimitedError(message string, err error) *DomainError {
	return NewError(ErrorTypeRateLimited, message, err)
}

func RetryExhaustedError(message string, err error) *DomainError {
	return NewError(ErrorTypeRetryExhausted, message, err)
}

func LookupError(message string, err error) *DomainError {
	return NewError(ErrorTypeLookup, message, err)
}

func APIError(message string, err error) *DomainError {
	return NewError(ErrorTypeAPI, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}

func StorageError(message string, err error) *DomainError {
	return NewError(ErrorTypeStorage, message, err)
}

// TypeOf returns the domain error type of err, or the empty string when err
// carries no DomainError in its chain.
func TypeOf(err error) ErrorType {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type
	}
	return ""
}

// IsType reports whether err carries a DomainError of the given type.
func IsType(err error, t ErrorType) bool {
	return TypeOf(err) == t
}

// UserMessage returns the short, non-technical description of err suitable
// for end users. Raw upstream detail stays out of the result.
func UserMessage(err error) string {
	var de *DomainError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return "Erro ao processar análise. Tente novamente."
}
