package http

import (
	"context"
	"errors"
	"net/http"

	"tracker/internal/core"
	applog "tracker/internal/log"
)

const (
	internalErrorMessage = "Internal server error"
	invalidBodyMessage   = "Invalid request body"
)

// validationFailure turns a decode or validation error into a 400.
func validationFailure(ctx context.Context, op string, err error) *JSONResponseBuilder {
	errorType := applog.ErrorTypeValidation
	msg := core.ErrorMessage(err)
	if errors.Is(err, ErrMalformedRequest) {
		errorType = applog.ErrorTypeMalformed
		msg = invalidBodyMessage
	}
	applog.FromContext(ctx).WarnContext(ctx, "Request rejected",
		applog.FieldOperation, op,
		applog.FieldErrorType, errorType,
		applog.FieldError, err.Error())
	return BadRequestError(msg)
}

// backendFailure logs err and answers with the backend's own message. Auth
// rejections get authStatus; everything else is a 500.
func backendFailure(ctx context.Context, op string, err error, authStatus int) *JSONResponseBuilder {
	logger := applog.NewStructuredLogger(applog.FromContext(ctx))

	var ae *core.AuthError
	if errors.As(err, &ae) && authStatus != 0 {
		logger.LogError(ctx, "Backend rejected credentials", err, applog.ErrorTypeAuth, op, nil)
		return ErrorResponse(authStatus, ae.Message)
	}

	logger.LogError(ctx, "Backend call failed", err, applog.ErrorTypeBackend, op, nil)
	msg := core.ErrorMessage(err)
	if msg == "" {
		msg = internalErrorMessage
	}
	return InternalServerError(msg)
}

// withTimeout bounds a single backend call.
func (s *Server) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.timeout)
}
