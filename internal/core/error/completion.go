package errx

import (
	"context"
	"errors"
	"net/http"
)

var (
	// ErrEmptyCompletion is returned when the service answers with no usable text.
	ErrEmptyCompletion = errors.New("empty completion")
	// ErrCompletionUnavailable is returned when no completion service is configured.
	ErrCompletionUnavailable = errors.New("completion service unavailable")
)

// WrapCompletion maps completion failures to AppError. Deadline overruns get
// their own status so the caller can pick a matching apology.
func WrapCompletion(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return New(err, http.StatusGatewayTimeout, CompletionTimeoutMessage)
	}
	if errors.Is(err, ErrCompletionUnavailable) {
		return New(err, http.StatusServiceUnavailable, CompletionErrorMessage)
	}
	if errors.Is(err, ErrEmptyCompletion) {
		return New(err, http.StatusUnprocessableEntity, CompletionErrorMessage)
	}

	return New(err, http.StatusBadGateway, CompletionErrorMessage)
}
