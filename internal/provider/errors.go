package provider

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies backend failures for the retry and fallback contract.
type ErrorKind int

const (
	// KindUnknown is the fallback for unclassified errors. Retryable.
	KindUnknown ErrorKind = iota

	// KindAuth indicates an authentication failure. Terminal.
	KindAuth

	// KindBadRequest indicates a malformed request rejected by the provider. Terminal.
	KindBadRequest

	// KindQuota indicates exhausted credits or billing quota. Terminal.
	KindQuota

	// KindRateLimit indicates a transient 429. Retryable.
	KindRateLimit

	// KindNetwork indicates a connectivity or upstream 5xx failure. Retryable.
	KindNetwork

	// KindTimeout indicates a deadline or timeout. Retryable.
	KindTimeout

	// KindNoResponse indicates the provider returned an empty completion. Retryable.
	KindNoResponse

	// KindMalformedOutput indicates output that failed strict schema
	// validation. Terminal for the attempt.
	KindMalformedOutput
)

// String returns the classifier name.
func (k ErrorKind) String() string {
	names := []string{
		"unknown",
		"auth",
		"bad_request",
		"quota",
		"rate_limit",
		"network",
		"timeout",
		"no_response",
		"malformed_output",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// Terminal reports whether the kind must not be retried.
func (k ErrorKind) Terminal() bool {
	switch k {
	case KindAuth, KindBadRequest, KindQuota, KindMalformedOutput:
		return true
	}
	return false
}

// BackendError wraps a backend failure with its classification.
type BackendError struct {
	Backend string
	Kind    ErrorKind
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Backend, e.Kind, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As compatibility.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// Terminal reports whether this error short-circuits the retry loop.
func (e *BackendError) Terminal() bool {
	return e.Kind.Terminal()
}

// AsBackendError unwraps err to a *BackendError if one is present.
func AsBackendError(err error) (*BackendError, bool) {
	var be *BackendError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// Classify wraps err with a kind inferred from its message. Used where only
// a transport error string is available; typed errors pass through untouched.
func Classify(backend string, err error) *BackendError {
	if be, ok := AsBackendError(err); ok {
		return be
	}

	kind := KindUnknown
	msg := strings.ToLower(err.Error())

	switch {
	case containsAny(msg, "unauthorized", "invalid api key", "invalid x-api-key", "authentication", "401", "403"):
		kind = KindAuth
	case containsAny(msg, "insufficient_quota", "quota exceeded", "billing", "credit balance"):
		kind = KindQuota
	case containsAny(msg, "rate limit", "429", "resource_exhausted", "resource has been exhausted"):
		kind = KindRateLimit
	case containsAny(msg, "timeout", "deadline", "timed out"):
		kind = KindTimeout
	case containsAny(msg, "connection", "dial", "dns", "unreachable", "eof", "reset by peer"):
		kind = KindNetwork
	}

	return &BackendError{Backend: backend, Kind: kind, Err: err}
}

// classifyStatus maps an HTTP status and response body to an error kind.
// 429 with quota wording is treated as exhausted quota, not a transient limit.
func classifyStatus(backend string, status int, body string) *BackendError {
	lower := strings.ToLower(body)
	var kind ErrorKind

	switch {
	case status == 401 || status == 403:
		kind = KindAuth
	case status == 429 && containsAny(lower, "quota", "billing", "credit"):
		kind = KindQuota
	case status == 429:
		kind = KindRateLimit
	case status == 400 || status == 404 || status == 422:
		kind = KindBadRequest
	case status >= 500:
		kind = KindNetwork
	default:
		kind = KindUnknown
	}

	return &BackendError{
		Backend: backend,
		Kind:    kind,
		Err:     fmt.Errorf("API request failed with status %d: %s", status, strings.TrimSpace(body)),
	}
}

// containsAny returns true if s contains any of the patterns.
func containsAny(s string, patterns ...string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
