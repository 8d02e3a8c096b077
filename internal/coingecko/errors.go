package coingecko

import (
	"fmt"
	"net/http"

	"github.com/Tonic56/cryptofolio/lib/errs"
)

// Error is returned for every failed call to the provider. Its message is meant to be
// shown to the user as is; errors.Is matches errs.ErrRateLimited or errs.ErrFetchFailed.
type Error struct {
	Kind       error
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsRetriable reports whether the call may succeed if issued again later.
func (e *Error) IsRetriable() bool {
	return e.Kind == errs.ErrRateLimited
}

type messages struct {
	rateLimited string
	failed      string
}

var (
	priceMessages = messages{
		rateLimited: "API rate limit exceeded. Please wait a moment and try again.",
		failed:      "Failed to fetch prices",
	}
	searchMessages = messages{
		rateLimited: "API rate limit exceeded. Please wait a moment.",
		failed:      "Search failed",
	}
	detailsMessages = messages{
		rateLimited: "API rate limit exceeded. Please wait a moment.",
		failed:      "Failed to fetch coin details",
	}
)

func statusError(msgs messages, statusCode int) *Error {
	if statusCode == http.StatusTooManyRequests {
		return &Error{
			Kind:       errs.ErrRateLimited,
			StatusCode: statusCode,
			Message:    msgs.rateLimited,
		}
	}
	return &Error{
		Kind:       errs.ErrFetchFailed,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("%s: %s", msgs.failed, http.StatusText(statusCode)),
	}
}

func transportError(msgs messages, err error) *Error {
	return &Error{
		Kind:    errs.ErrFetchFailed,
		Message: msgs.failed,
		Err:     err,
	}
}
