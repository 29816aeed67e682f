package errutil

import (
	"context"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"

	"github.com/chiron-lab/chiron/pkg/utils/logging"
)

// Handle logs the error with a message and returns an appropriate user-facing error.
// This function ensures that all errors, especially 5xx errors, are properly logged.
// Errors are also reported to Sentry when it is configured.
func Handle(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}

	logger := logging.From(ctx)

	// Extract goerr values for structured logging
	var ge *goerr.Error
	if errors.As(err, &ge) {
		// Log with all context from goerr
		logger.Error(msg,
			"error", err.Error(),
			"values", ge.Values(),
			"stack", ge.Stacks(),
		)
	} else {
		// Log standard error
		logger.Error(msg, "error", err.Error())
	}

	// CaptureException is a no-op when Sentry was never initialized
	sentry.CaptureException(err)

	// Return the error as-is for the caller to surface
	return err
}

// HandleHTTP logs the error and writes an appropriate HTTP error response.
// Server-side (5xx) errors are reported to Sentry.
func HandleHTTP(ctx context.Context, w http.ResponseWriter, err error, statusCode int) {
	if err == nil {
		return
	}

	logger := logging.From(ctx)

	// Always log errors, especially 5xx errors
	var ge *goerr.Error
	if errors.As(err, &ge) {
		logger.Error("HTTP error",
			"status", statusCode,
			"error", err.Error(),
			"values", ge.Values(),
			"stack", ge.Stacks(),
		)
	} else {
		logger.Error("HTTP error",
			"status", statusCode,
			"error", err.Error(),
		)
	}

	if statusCode >= http.StatusInternalServerError {
		sentry.CaptureException(err)
	}

	// Write HTTP error response
	http.Error(w, err.Error(), statusCode)
}
