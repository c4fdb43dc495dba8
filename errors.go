package autotrans

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrPassRunning is returned when a pass is requested while another one is running.
	ErrPassRunning = errors.New("translation pass already running")

	// ErrUnsupportedLanguage is returned for language codes outside SupportedLanguages.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// TranslationError is the base error type for translation failures.
type TranslationError struct {
	Message string
	Cause   error
}

func (e *TranslationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TranslationError) Unwrap() error {
	return e.Cause
}

// ProviderError indicates an upstream provider failure (API error, rate limit, etc.).
type ProviderError struct {
	Message    string
	Cause      error
	Retryable  bool          // Whether the operation can be retried
	RetryAfter time.Duration // Wait requested by the upstream, 0 if none
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// BackendError indicates a failed call to the translation backend:
// a transport error, a non-2xx status or a malformed response.
type BackendError struct {
	Endpoint   string
	StatusCode int // 0 when no response was received
	Message    string
	Cause      error
	RetryAfter time.Duration // from the Retry-After header, 0 if absent
}

func (e *BackendError) Error() string {
	msg := fmt.Sprintf("backend error (%s)", e.Endpoint)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status %d", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *BackendError) Unwrap() error {
	return e.Cause
}

// CacheError indicates a cache operation failure.
type CacheError struct {
	Message string
	Cause   error
}

func (e *CacheError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cache error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("cache error: %s", e.Message)
}

func (e *CacheError) Unwrap() error {
	return e.Cause
}

// DocumentError indicates a document parsing or rendering failure.
type DocumentError struct {
	Message string
	Cause   error
}

func (e *DocumentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("document error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("document error: %s", e.Message)
}

func (e *DocumentError) Unwrap() error {
	return e.Cause
}

// CountMismatchError indicates a backend returned a different number of translations than expected.
type CountMismatchError struct {
	Expected int
	Got      int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("translation count mismatch: expected %d, got %d", e.Expected, e.Got)
}
