package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a scrape failure.
type Kind string

// Failure kinds.
const (
	KindBadInput            Kind = "bad_input"
	KindAuth                Kind = "auth"
	KindNavigation          Kind = "navigation"
	KindContentNotFound     Kind = "content_not_found"
	KindExtraction          Kind = "extraction"
	KindUnsupportedPlatform Kind = "unsupported_platform"
	KindInternal            Kind = "internal"
)

// Error is the tagged error surfaced to callers of Scrape.
type Error struct {
	Kind  Kind
	Stage string
	Msg   string
	Err   error
	// Fatal errors are never retried.
	Fatal bool
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the kind to its numeric classification.
func (e *Error) Status() int {
	switch e.Kind {
	case KindBadInput:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNavigation, KindContentNotFound:
		return http.StatusNotFound
	case KindUnsupportedPlatform:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// BadInputError reports an invalid request.
func BadInputError(msg string) *Error {
	return &Error{Kind: KindBadInput, Msg: msg, Fatal: true}
}

// UnsupportedPlatformError reports a known platform without a selector config.
func UnsupportedPlatformError(platform string) *Error {
	return &Error{
		Kind:  KindUnsupportedPlatform,
		Msg:   fmt.Sprintf("scraper not implemented for platform: %s", platform),
		Fatal: true,
	}
}

// NavigationError reports an unreachable target or a load timeout.
func NavigationError(target string, err error) *Error {
	return &Error{Kind: KindNavigation, Stage: StageNavigation, Msg: "navigate " + target, Err: err}
}

// ContentNotFoundError reports a landmark that never appeared.
func ContentNotFoundError(stage, landmark string, err error) *Error {
	return &Error{Kind: KindContentNotFound, Stage: stage, Msg: "landmark not found: " + landmark, Err: err}
}

// AuthError reports a failed login flow.
func AuthError(err error) *Error {
	return &Error{Kind: KindAuth, Stage: StageLogin, Msg: "login failed", Err: err}
}

// MissingCredentialsError reports a login wall with no stored credentials. Retrying cannot help.
func MissingCredentialsError(platform string) *Error {
	return &Error{
		Kind:  KindAuth,
		Stage: StageLogin,
		Msg:   fmt.Sprintf("credentials not configured for %s", platform),
		Fatal: true,
	}
}

// ExtractionError reports an empty result or a failed DOM read.
func ExtractionError(msg string, err error) *Error {
	return &Error{Kind: KindExtraction, Stage: StageExtraction, Msg: msg, Err: err}
}

// ExhaustedRetriesError wraps the last cause once every attempt failed.
type ExhaustedRetriesError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("scrape failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedRetriesError) Unwrap() error { return e.Err }

// Status reports the classification of the wrapped cause.
func (e *ExhaustedRetriesError) Status() int { return StatusOf(e.Err) }

// StatusOf returns the numeric classification for any error returned by this package.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Status()
	}
	return http.StatusInternalServerError
}

// Retryable reports whether the retry loop may start a fresh attempt after err.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	// Per-operation timeouts surface wrapped in *Error and stay retryable; the retry loop checks
	// its own context for caller cancellation.
	var se *Error
	if errors.As(err, &se) {
		return !se.Fatal
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func stageOf(err error, fallback string) string {
	var se *Error
	if errors.As(err, &se) && se.Stage != "" {
		return se.Stage
	}
	return fallback
}
