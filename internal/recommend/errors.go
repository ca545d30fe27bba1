package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/drakeRAGE/movie-recommendation-app/internal/llm"
)

// UserMessage is the only failure text shown to end users, whatever the kind.
const UserMessage = "could not fetch recommendations"

// Kind classifies a failed recommendation.
type Kind string

const (
	KindValidation  Kind = "validation"   // empty input, no call made
	KindTransport   Kind = "transport"    // network, timeout, non-success status, empty or malformed body
	KindRateLimited Kind = "rate_limited" // provider asked us to slow down
	KindAuth        Kind = "auth"         // credential rejected
	KindQuota       Kind = "quota"        // quota or billing exhausted
	KindParse       Kind = "parse"        // reply had no usable movie lines
	KindCanceled    Kind = "canceled"     // caller abandoned the call
)

// Error is the single error type returned by Service.Recommend.
// Use errors.As to get at it, or KindOf for just the kind.
type Error struct {
	Kind       Kind
	Transient  bool   // eligible for a retry
	StatusCode int    // provider HTTP status, 0 if none
	Raw        string // model reply, set for KindParse
	Err        error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("recommend: %s", e.Kind)
	}
	return fmt.Sprintf("recommend: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of a recommendation error, or "" if err is not one.
func KindOf(err error) Kind {
	var recErr *Error
	if errors.As(err, &recErr) {
		return recErr.Kind
	}
	return ""
}

// classify maps an error from llm.Client.Complete onto the taxonomy above.
// parent is the caller's context; an error caused by the caller giving up is
// never transient, while a per-attempt timeout is.
func classify(parent context.Context, err error) *Error {
	if parentErr := parent.Err(); parentErr != nil {
		return contextError(parentErr)
	}

	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(statusErr, err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, llm.ErrEmptyResponse),
		errors.As(err, &syntaxErr),
		errors.As(err, &typeErr):
		return &Error{Kind: KindTransport, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTransport, Transient: true, Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindCanceled, Err: err}
	default:
		// Connection refused, reset, DNS failure and friends.
		return &Error{Kind: KindTransport, Transient: true, Err: err}
	}
}

func classifyStatus(e *llm.StatusError, err error) *Error {
	out := &Error{StatusCode: e.StatusCode, Err: err}

	switch {
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		out.Kind = KindAuth
	case e.StatusCode == http.StatusPaymentRequired:
		out.Kind = KindQuota
	case e.StatusCode == http.StatusTooManyRequests:
		// OpenAI uses 429 for both throttling and an exhausted balance.
		if e.Code == "insufficient_quota" {
			out.Kind = KindQuota
		} else {
			out.Kind = KindRateLimited
			out.Transient = true
		}
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode >= 500:
		// 529 is Anthropic's "overloaded".
		out.Kind = KindTransport
		out.Transient = true
	default:
		out.Kind = KindTransport
	}
	return out
}

// contextError converts the caller's context error. A deadline the caller set
// is a timeout; an explicit cancel means nobody is waiting for the answer.
func contextError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTransport, Err: fmt.Errorf("caller deadline: %w", err)}
	}
	return &Error{Kind: KindCanceled, Err: err}
}

func errNoMovies(lines int) error {
	return fmt.Errorf("no usable movie lines in reply (%d non-blank lines)", lines)
}
