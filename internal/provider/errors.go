package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrCancelled is returned when a call is stopped by its context.
var ErrCancelled = errors.New("provider call cancelled")

// ErrorCode represents a provider error code.
type ErrorCode string

const (
	ErrorCodeRateLimit      ErrorCode = "rate_limit"
	ErrorCodeCredit         ErrorCode = "credit_exhausted"
	ErrorCodeAuth           ErrorCode = "authentication_failed"
	ErrorCodeInvalidRequest ErrorCode = "invalid_request"
	ErrorCodeContextLength  ErrorCode = "context_length_exceeded"
	ErrorCodeContentBlocked ErrorCode = "content_blocked"
	ErrorCodeUnavailable    ErrorCode = "service_unavailable"
	ErrorCodeNetwork        ErrorCode = "network_error"
	ErrorCodeTimeout        ErrorCode = "timeout"
	ErrorCodeMalformed      ErrorCode = "malformed_response"
)

// ProviderError wraps errors with additional context.
type ProviderError struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Underlying error
	Retryable  bool
	RetryIn    time.Duration
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// RetryAfter is the server's retry hint, zero when none was given.
func (e *ProviderError) RetryAfter() time.Duration {
	return e.RetryIn
}

// ErrorKind groups provider failures by how the loop must react.
type ErrorKind int

const (
	KindPermanent ErrorKind = iota
	KindCancelled
	KindRateLimit
	KindCreditExhausted
	KindTransient
)

func (k ErrorKind) String() string {
	switch k {
	case KindCancelled:
		return "cancelled"
	case KindRateLimit:
		return "rate_limit"
	case KindCreditExhausted:
		return "credit_exhausted"
	case KindTransient:
		return "transient"
	default:
		return "permanent"
	}
}

// Classify maps err onto an ErrorKind. Cancellation wins over everything.
// Errors that did not come from an adapter are inspected by message.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindPermanent
	}
	if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
		return KindCancelled
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		switch {
		case pe.Code == ErrorCodeCredit:
			return KindCreditExhausted
		case pe.Code == ErrorCodeRateLimit:
			return KindRateLimit
		case pe.Retryable:
			return KindTransient
		default:
			return KindPermanent
		}
	}

	msg := err.Error()
	if _, ok := DetectCreditExhaustion(0, msg); ok {
		return KindCreditExhausted
	}
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests") || strings.Contains(lower, "429") {
		return KindRateLimit
	}
	// Anything unrecognised is treated as network trouble.
	return KindTransient
}

var creditSignals = []string{
	"insufficient_quota",
	"insufficient credits",
	"insufficient credit",
	"credit balance is too low",
	"credit balance",
	"exceeded your current quota",
	"payment required",
	"billing",
	"out of credits",
}

// DetectCreditExhaustion reports whether a status code or message says the
// account cannot pay for more requests. The returned reason quotes the signal.
func DetectCreditExhaustion(status int, message string) (string, bool) {
	if status == http.StatusPaymentRequired {
		if message == "" {
			message = http.StatusText(status)
		}
		return message, true
	}
	lower := strings.ToLower(message)
	for _, s := range creditSignals {
		if strings.Contains(lower, s) {
			return message, true
		}
	}
	return "", false
}

// MapHTTPError builds a ProviderError from an HTTP-style failure. Adapters call
// it once they have extracted the status and message from their SDK's error.
func MapHTTPError(status int, message string, retryAfter time.Duration, underlying error) error {
	if reason, ok := DetectCreditExhaustion(status, message); ok {
		return &ProviderError{Code: ErrorCodeCredit, StatusCode: status, Message: reason, Underlying: underlying}
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &ProviderError{Code: ErrorCodeAuth, StatusCode: status, Message: "authentication failed", Underlying: underlying}
	case status == http.StatusTooManyRequests:
		return &ProviderError{Code: ErrorCodeRateLimit, StatusCode: status, Message: "rate limit exceeded", Underlying: underlying, Retryable: true, RetryIn: retryAfter}
	case status == http.StatusRequestEntityTooLarge:
		return &ProviderError{Code: ErrorCodeContextLength, StatusCode: status, Message: message, Underlying: underlying}
	case status == http.StatusRequestTimeout:
		return &ProviderError{Code: ErrorCodeTimeout, StatusCode: status, Message: "request timeout", Underlying: underlying, Retryable: true}
	case status >= 400 && status < 500:
		return &ProviderError{Code: ErrorCodeInvalidRequest, StatusCode: status, Message: fmt.Sprintf("invalid request: %s", message), Underlying: underlying}
	case status >= 500:
		return &ProviderError{Code: ErrorCodeUnavailable, StatusCode: status, Message: "service unavailable", Underlying: underlying, Retryable: true}
	default:
		return &ProviderError{Code: ErrorCodeNetwork, StatusCode: status, Message: message, Underlying: underlying, Retryable: true}
	}
}

// WrapContextError turns a context error into ErrCancelled or a timeout, and
// returns nil for anything else.
func WrapContextError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return &ProviderError{Code: ErrorCodeTimeout, Message: "request timeout", Underlying: err, Retryable: true}
	}
	return nil
}

// MalformedArgumentsError reports tool-call arguments that could not be
// repaired into a JSON object.
type MalformedArgumentsError struct {
	Raw string
	Err error
}

func (e *MalformedArgumentsError) Error() string {
	return fmt.Sprintf("malformed tool arguments: %v", e.Err)
}

func (e *MalformedArgumentsError) Unwrap() error {
	return e.Err
}
