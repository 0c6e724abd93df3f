// Package http provides HTTP server and handler implementations.
//
// This file implements request body decoding and the presence checks each
// endpoint runs before touching the backend.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"unicode/utf16"

	"tracker/internal/auth"
	"tracker/internal/core"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// ErrMalformedRequest is returned when the body is not a JSON object.
var ErrMalformedRequest = errors.New("malformed request body")

// DecodeBody reads a JSON object from the request. Numbers are kept as
// json.Number so amounts reach the backend unchanged.
func DecodeBody(r *http.Request) (core.Record, error) {
	if r.Body == nil {
		return nil, ErrMalformedRequest
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if len(raw) > maxBodyBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrMalformedRequest, maxBodyBytes)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, ErrMalformedRequest
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body core.Record
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrMalformedRequest)
	}
	return body, nil
}

// RequireFields fails with message unless every field is truthy.
func RequireFields(body core.Record, message string, fields ...string) error {
	for _, f := range fields {
		if !body.Has(f) {
			return core.NewValidationError(message)
		}
	}
	return nil
}

// Credentials are the sign in / sign up inputs.
type Credentials struct {
	Email    string
	Password string
}

// ValidateCredentials checks email and password presence and, when
// checkLength is set, the minimum password length. Length is counted in
// UTF-16 units like browser clients do.
func ValidateCredentials(body core.Record, checkLength bool) (Credentials, error) {
	if err := RequireFields(body, "Email and password are required", "email", "password"); err != nil {
		return Credentials{}, err
	}
	creds := Credentials{
		Email:    body.String("email"),
		Password: body.String("password"),
	}
	if checkLength {
		if pw, ok := body["password"].(string); ok && len(utf16.Encode([]rune(pw))) < auth.MinPasswordLength {
			return Credentials{}, core.NewValidationError(fmt.Sprintf("Password must be at least %d characters", auth.MinPasswordLength))
		}
	}
	return creds, nil
}
