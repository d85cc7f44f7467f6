package models

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error codes used in run summaries and internal error handling.
const (
	ErrCodeLaunch            = "LAUNCH_FAILED"
	ErrCodeNavigationTimeout = "NAVIGATION_TIMEOUT"
	ErrCodeSelectorTimeout   = "SELECTOR_TIMEOUT"
	ErrCodeNavigation        = "NAVIGATION_FAILED"
	ErrCodeBlocked           = "BLOCKED"
	ErrCodeBrowserCrash      = "BROWSER_CRASH"
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeInvalidConfig     = "INVALID_CONFIG"
	ErrCodeRetriesExhausted  = "RETRIES_EXHAUSTED"
	ErrCodeDetailScrape      = "DETAIL_SCRAPE_FAILED"
	ErrCodeLogin             = "LOGIN_FAILED"
	ErrCodeExport            = "EXPORT_FAILED"
	ErrCodeWebhook           = "WEBHOOK_FAILED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// RetriesExhaustedError is returned by the retry helpers once every attempt
// failed. Last is the error of the final attempt.
type RetriesExhaustedError struct {
	Op       string
	Attempts int
	Last     error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("%s: %s gave up after %d attempts: %v",
		ErrCodeRetriesExhausted, e.Op, e.Attempts, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() error {
	return e.Last
}

// CodeOf returns the code of the outermost ScrapeError in err's chain, or ""
// when there is none. A RetriesExhaustedError reports RETRIES_EXHAUSTED.
func CodeOf(err error) string {
	var exhausted *RetriesExhaustedError
	if errors.As(err, &exhausted) {
		return ErrCodeRetriesExhausted
	}
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsTransient reports whether err belongs to the navigation/timeout class of
// failures that are worth retrying. Cancellation, invalid input and unknown
// errors are not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var se *ScrapeError
	if errors.As(err, &se) {
		switch se.Code {
		case ErrCodeNavigationTimeout, ErrCodeSelectorTimeout,
			ErrCodeNavigation, ErrCodeBlocked, ErrCodeBrowserCrash,
			ErrCodeWebhook:
			return true
		default:
			return false
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
