package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrElementNotFound signals a resolution miss: the element or one of its iframe
	// hosts is not on the live page.
	ErrElementNotFound = errors.New("element not found")
	// ErrAmbiguousElement signals that a strict lookup matched more than one element.
	ErrAmbiguousElement = errors.New("selector matched more than one element")
	// ErrUnsupportedCapability is returned when a capability cannot serve the request shape.
	ErrUnsupportedCapability = errors.New("unsupported capability")

	ErrContextOverflow = errors.New("context length exceeded")
	ErrRateLimit       = errors.New("rate limit exceeded")
	ErrNetwork         = errors.New("network failure")
	ErrCancelled       = errors.New("run cancelled")
	ErrHistorySealed   = errors.New("history already finished")
	ErrNoPage          = errors.New("no page capability available")
)

// CaptureError wraps a state capture failure.
type CaptureError struct {
	URL string
	Err error
}

func (e *CaptureError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("capture page state: %v", e.Err)
	}
	return fmt.Sprintf("capture page state of %s: %v", e.URL, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// DisallowedNavigationError reports a URL outside the allow-list.
type DisallowedNavigationError struct {
	URL string
}

func (e *DisallowedNavigationError) Error() string {
	return fmt.Sprintf("navigation to non-allowed URL: %s", e.URL)
}

// DecisionParseError reports decision-engine output that could not be turned into actions.
type DecisionParseError struct {
	Raw string
	Err error
}

func (e *DecisionParseError) Error() string {
	return fmt.Sprintf("could not parse response: %v", e.Err)
}

func (e *DecisionParseError) Unwrap() error { return e.Err }
