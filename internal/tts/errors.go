package tts

import (
	"errors"
	"fmt"
)

// Common TTS errors
var (
	// ErrNoEngineConfigured indicates no TTS engine has been selected
	ErrNoEngineConfigured = errors.New("no TTS engine configured - specify --engine gcloud, gtts or piper")

	// ErrInvalidEngine indicates an unknown engine was specified
	ErrInvalidEngine = errors.New("invalid TTS engine specified")

	// ErrSynthesisFailed indicates synthesis operation failed
	ErrSynthesisFailed = errors.New("text synthesis failed")

	// ErrEmptyText indicates there was nothing to synthesize
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = errors.New("operation timed out")
)

// TTSError represents a TTS-specific error with additional context
type TTSError struct {
	Code    ErrorCode
	Engine  string
	Message string
	Cause   error
}

// Error implements the error interface
func (e *TTSError) Error() string {
	prefix := string(e.Code)
	if e.Engine != "" {
		prefix = e.Engine + ": " + prefix
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying error
func (e *TTSError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match ErrSynthesisFailed for engine failures.
func (e *TTSError) Is(target error) bool {
	return target == ErrSynthesisFailed && e.Code == ErrorCodeEngineFailure
}

// ErrorCode identifies specific error types
type ErrorCode string

const (
	// Engine errors
	ErrorCodeEngineFailure     ErrorCode = "ENGINE_FAILURE"
	ErrorCodeEngineUnavailable ErrorCode = "ENGINE_UNAVAILABLE"
	ErrorCodeEngineTimeout     ErrorCode = "ENGINE_TIMEOUT"

	// Input errors
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorCodeTextTooLong  ErrorCode = "TEXT_TOO_LONG"

	// Audio errors
	ErrorCodeAudioFormat ErrorCode = "AUDIO_FORMAT"
)

// NewTTSError creates a new TTS error
func NewTTSError(code ErrorCode, engine, message string, cause error) *TTSError {
	return &TTSError{
		Code:    code,
		Engine:  engine,
		Message: message,
		Cause:   cause,
	}
}

// IsRetryable returns true if re-running the item may succeed
func (e *TTSError) IsRetryable() bool {
	switch e.Code {
	case ErrorCodeEngineTimeout, ErrorCodeEngineFailure:
		return true
	default:
		return false
	}
}
