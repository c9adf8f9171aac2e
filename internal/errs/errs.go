// Package errs defines the error kinds external collaborators report to the
// orchestration loop. Kinds are decided where the failure is observed (HTTP
// status, SDK error type) so callers never inspect error text.
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Kind classifies a failure by how the caller should react to it.
type Kind int

const (
	// KindTransient is any failure worth retrying on a later cycle.
	KindTransient Kind = iota
	// KindRateLimited means the remote side asked us to back off.
	KindRateLimited
	// KindFatal means retrying cannot help (bad credentials, forbidden).
	KindFatal
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindFatal:
		return "fatal"
	default:
		return "transient"
	}
}

// Error carries a Kind alongside the operation that failed.
type Error struct {
	Kind       Kind
	Op         string
	Err        error
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// RateLimited wraps err as a rate-limit failure. retryAfter may be zero when
// the remote side gave no hint.
func RateLimited(op string, err error, retryAfter time.Duration) error {
	return &Error{Kind: KindRateLimited, Op: op, Err: err, RetryAfter: retryAfter}
}

// Transient wraps err as a retryable failure.
func Transient(op string, err error) error {
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

// Fatal wraps err as a non-retryable failure.
func Fatal(op string, err error) error {
	return &Error{Kind: KindFatal, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindTransient when err carries no kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

// IsRateLimited reports whether err was classified as a rate limit.
func IsRateLimited(err error) bool {
	return err != nil && KindOf(err) == KindRateLimited
}

// IsFatal reports whether err was classified as fatal.
func IsFatal(err error) bool {
	return err != nil && KindOf(err) == KindFatal
}

// RetryAfter returns the back-off hint carried by a rate-limit error, if any.
func RetryAfter(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}

// maxBodyLen caps, in bytes, how much of a response body FromStatus keeps.
const maxBodyLen = 300

// FromStatus classifies a non-2xx HTTP response. body is included in the
// message, truncated, to keep remote error details in the logs.
func FromStatus(op string, status int, body []byte, header http.Header) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxBodyLen {
		cut := maxBodyLen
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "..."
	}
	cause := fmt.Errorf("unexpected status %d: %s", status, msg)

	switch {
	case status == http.StatusTooManyRequests:
		return RateLimited(op, cause, retryAfterFromHeader(header, time.Now()))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return Fatal(op, cause)
	default:
		return Transient(op, cause)
	}
}

// retryAfterFromHeader reads Retry-After (seconds) or x-rate-limit-reset
// (unix epoch seconds).
func retryAfterFromHeader(header http.Header, now time.Time) time.Duration {
	if header == nil {
		return 0
	}
	if v := header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	if v := header.Get("x-rate-limit-reset"); v != "" {
		if epoch, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			if d := time.Unix(epoch, 0).Sub(now); d > 0 {
				return d
			}
		}
	}
	return 0
}
