// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses.
// Every API handler returns a builder instead of writing to the
// ResponseWriter, so the success and error shapes stay uniform.

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"tracker/internal/core"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	body, err := json.Marshal(b.body)
	if err != nil {
		slog.Error("Failed to encode response", "error", err, "component", "http")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"` + internalErrorMessage + `"}`))
		return
	}

	w.WriteHeader(b.statusCode)
	_, _ = w.Write(body)
}

type successBody struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

type errorBody struct {
	Error string `json:"error"`
}

type authBody struct {
	Message string        `json:"message"`
	User    *core.User    `json:"user"`
	Session *core.Session `json:"session"`
}

// Success wraps data as {"success":true,"data":...}.
func Success(data any) *JSONResponseBuilder {
	return NewJSONResponse().Body(successBody{Success: true, Data: data})
}

// Created is Success with a confirmation message.
func Created(message string, data any) *JSONResponseBuilder {
	return NewJSONResponse().Body(successBody{Success: true, Message: message, Data: data})
}

// AuthSuccess returns the sign in / sign up payload. A nil session encodes
// as null when the backend wants the email confirmed first.
func AuthSuccess(message string, result *core.AuthResult) *JSONResponseBuilder {
	body := authBody{Message: message}
	if result != nil {
		body.User = result.User
		body.Session = result.Session
	}
	return NewJSONResponse().Body(body)
}

// ErrorResponse creates a standard {"error": message} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(errorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// MethodNotAllowedError creates a 405 Method Not Allowed error response.
func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed").
		Header("Allow", allowedMethods)
}
