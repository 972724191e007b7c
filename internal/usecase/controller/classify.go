package controller

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strings"

	"webpilot/internal/domain/entity"
)

type errorClass int

const (
	classOther errorClass = iota
	classParse
	classValidation
	classContextOverflow
	classRateLimit
	classCancelled
)

// ParseGuidance is appended to the next prompt after an unparseable response.
const ParseGuidance = "Your previous response could not be parsed. Respond with exactly one valid JSON object " +
	`of the form {"current_state": {"evaluation_previous_goal": "...", "memory": "...", "next_goal": "..."}, ` +
	`"action": [{"action_name": {"param": "value"}}]} and nothing else.`

var (
	networkPatterns = []string{
		"timeout", "timed out", "connection refused", "connection reset", "connection closed",
		"fetch failed", "network", "no such host", "dial tcp", "tls handshake", "broken pipe",
		"unexpected eof", "econnreset", "econnrefused", "etimedout",
	}
	rateLimitPatterns  = []string{"rate limit", "too many requests", "429", "quota exceeded"}
	overflowPatterns   = []string{"context length", "context_length", "maximum context", "too many tokens", "prompt is too long"}
	validationPatterns = []string{"validation", "invalid"}
	parsePatterns      = []string{"could not parse"}

	urlPattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+.-]*://\S+`)
)

// classify maps a step error to the recovery it needs. Typed errors win over
// message patterns.
func classify(err error) errorClass {
	var parseErr *entity.DecisionParseError
	var navErr *entity.DisallowedNavigationError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, entity.ErrCancelled):
		return classCancelled
	case errors.As(err, &navErr):
		return classOther
	case errors.Is(err, entity.ErrContextOverflow):
		return classContextOverflow
	case errors.As(err, &parseErr):
		return classParse
	case errors.Is(err, entity.ErrRateLimit):
		return classRateLimit
	}

	msg := causeText(err)
	switch {
	case containsAny(msg, overflowPatterns):
		return classContextOverflow
	case containsAny(msg, parsePatterns):
		return classParse
	case containsAny(msg, rateLimitPatterns):
		return classRateLimit
	case containsAny(msg, validationPatterns):
		return classValidation
	}
	return classOther
}

// isNetwork is independent of classify: a network error also counts as a general failure.
func isNetwork(err error) bool {
	if errors.Is(err, entity.ErrNetwork) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var navErr *entity.DisallowedNavigationError
	if errors.As(err, &navErr) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return containsAny(causeText(err), networkPatterns)
}

// causeText is the lowercased message of the innermost wrapped error with any
// URLs removed. Wrappers add page URLs and selectors that must not match the
// patterns above.
func causeText(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	return strings.ToLower(urlPattern.ReplaceAllString(err.Error(), ""))
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
