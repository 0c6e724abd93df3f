package http

import (
	"net/http"

	applog "tracker/internal/log"
)

const (
	loginSuccessMessage  = "Login successful"
	signupSuccessMessage = "Signup successful. Please check your email to verify your account."
)

// handleLogin authenticates with email and password. Rejected credentials
// answer 401 with the backend's message.
func (s *Server) handleLogin(r *http.Request) *JSONResponseBuilder {
	ctx := r.Context()

	body, err := DecodeBody(r)
	if err != nil {
		return validationFailure(ctx, applog.OpLogin, err)
	}
	creds, err := ValidateCredentials(body, false)
	if err != nil {
		return validationFailure(ctx, applog.OpLogin, err)
	}

	applog.FromContext(ctx).DebugContext(ctx, "Login attempt",
		applog.FieldOperation, applog.OpLogin,
		"email", creds.Email)

	cctx, cancel := s.withTimeout(r)
	defer cancel()
	result, err := s.backend.SignIn(cctx, creds.Email, creds.Password)
	if err != nil {
		return backendFailure(ctx, applog.OpLogin, err, http.StatusUnauthorized)
	}

	return AuthSuccess(loginSuccessMessage, result)
}

// handleSignup registers a new account. The password length is checked
// before the backend sees the request; backend rejections answer 400.
func (s *Server) handleSignup(r *http.Request) *JSONResponseBuilder {
	ctx := r.Context()

	body, err := DecodeBody(r)
	if err != nil {
		return validationFailure(ctx, applog.OpSignup, err)
	}
	creds, err := ValidateCredentials(body, true)
	if err != nil {
		return validationFailure(ctx, applog.OpSignup, err)
	}

	cctx, cancel := s.withTimeout(r)
	defer cancel()
	result, err := s.backend.SignUp(cctx, creds.Email, creds.Password)
	if err != nil {
		return backendFailure(ctx, applog.OpSignup, err, http.StatusBadRequest)
	}

	fields := []any{applog.FieldOperation, applog.OpSignup}
	if result != nil && result.User != nil {
		fields = append(fields, "session_issued", result.Session != nil)
		fields = append(fields, applog.FieldUserID, result.User.ID)
	}
	applog.FromContext(ctx).InfoContext(ctx, "Account registered", fields...)

	return AuthSuccess(signupSuccessMessage, result)
}
