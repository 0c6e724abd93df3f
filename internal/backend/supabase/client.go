// Package supabase talks to a hosted Supabase project through the
// supabase-go SDK: GoTrue for credentials and PostgREST for table access.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/supabase-community/gotrue-go/types"
	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"tracker/internal/core"
)

type Client struct {
	sdk *supa.Client
}

// NewClient builds a client for the project at baseURL. Empty credentials
// are accepted; every call then fails with core.ErrNotConfigured so the
// process can still start.
func NewClient(baseURL, apiKey string) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	apiKey = strings.TrimSpace(apiKey)

	c := &Client{}
	if baseURL == "" || apiKey == "" {
		return c, nil
	}

	sdk, err := supa.NewClient(baseURL, apiKey, &supa.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	c.sdk = sdk
	return c, nil
}

// Configured reports whether both the URL and the key are set.
func (c *Client) Configured() bool {
	return c.sdk != nil
}

func (c *Client) ready() error {
	if c.sdk == nil {
		return &core.BackendError{Message: "Supabase credentials not found", Err: core.ErrNotConfigured}
	}
	return nil
}

// SignIn exchanges email and password for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*core.AuthResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	resp, err := call(ctx, "sign_in", func() (*types.TokenResponse, error) {
		return c.sdk.Auth.SignInWithEmailPassword(email, password)
	})
	if err != nil {
		return nil, authFailure(err)
	}
	return authResult(resp)
}

// SignUp registers a new account. The session is nil when the project
// requires email confirmation.
func (c *Client) SignUp(ctx context.Context, email, password string) (*core.AuthResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	resp, err := call(ctx, "sign_up", func() (*types.SignupResponse, error) {
		return c.sdk.Auth.Signup(types.SignupRequest{Email: email, Password: password})
	})
	if err != nil {
		return nil, authFailure(err)
	}
	return authResult(resp)
}

// authFailure turns a 4xx from GoTrue into an AuthError. Transport errors
// and 5xx answers stay BackendErrors.
func authFailure(err error) error {
	err = translate(err)
	var be *core.BackendError
	if errors.As(err, &be) && be.Status >= 400 && be.Status < 500 {
		return &core.AuthError{Message: be.Message, Err: err}
	}
	return err
}

// Insert writes one row through PostgREST and returns the stored
// representation.
func (c *Client) Insert(ctx context.Context, table string, record core.Record) (core.Record, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	raw, err := call(ctx, "insert", func() ([]byte, error) {
		data, _, err := c.sdk.From(table).Insert(record, false, "", "representation", "").Execute()
		return data, err
	})
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", table, translate(err))
	}
	rows, err := decodeRows(raw)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &core.BackendError{Message: fmt.Sprintf("insert into %s returned no rows", table)}
	}
	return rows[0], nil
}

// Select reads rows through PostgREST.
func (c *Client) Select(ctx context.Context, table string, q core.Query) ([]core.Record, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	columns := "*"
	if len(q.Columns) > 0 {
		columns = strings.Join(q.Columns, ",")
	}
	raw, err := call(ctx, "select", func() ([]byte, error) {
		fb := c.sdk.From(table).Select(columns, "", false)
		for _, f := range q.Filters {
			fb = fb.Eq(f.Column, f.Value)
		}
		for _, o := range q.Order {
			fb = fb.Order(o.Column, &postgrest.OrderOpts{Ascending: o.Ascending})
		}
		data, _, err := fb.Execute()
		return data, err
	})
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", table, translate(err))
	}
	return decodeRows(raw)
}

// Ping hits the GoTrue health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	_, err := call(ctx, "ping", func() (*types.HealthCheckResponse, error) {
		return c.sdk.Auth.HealthCheck()
	})
	return translate(err)
}

// Close is a no-op; the SDK keeps no resources that need releasing.
func (c *Client) Close() error {
	return nil
}

// call runs one SDK request. The SDK takes no context, so a cancelled ctx
// abandons the request and returns at once.
func call[T any](ctx context.Context, op string, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, &core.BackendError{Message: err.Error(), Err: err}
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case <-ctx.Done():
		slog.WarnContext(ctx, "Supabase request abandoned",
			"operation", op,
			"error", ctx.Err(),
			"component", "backend")
		return zero, &core.BackendError{Message: ctx.Err().Error(), Err: ctx.Err()}
	case r := <-done:
		slog.DebugContext(ctx, "Supabase request completed",
			"operation", op,
			"duration_ms", time.Since(start).Milliseconds(),
			"success", r.err == nil,
			"component", "backend")
		return r.v, r.err
	}
}

var (
	// GoTrue: "response status code 400: {...}"
	statusPattern = regexp.MustCompile(`(?s)status code (\d{3})(?::\s*(.*))?$`)
	// PostgREST: "(23502) null value in column ..."
	postgrestPattern = regexp.MustCompile(`(?s)^\(([^)]*)\)\s*(.*)$`)
)

// apiError matches both GoTrue and PostgREST error payloads.
type apiError struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorName        string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// translate turns an SDK error into a *core.BackendError carrying the
// backend's own message.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var be *core.BackendError
	if errors.As(err, &be) {
		return err
	}

	text := err.Error()
	if m := statusPattern.FindStringSubmatch(text); m != nil {
		status, _ := strconv.Atoi(m[1])
		var payload apiError
		_ = json.Unmarshal([]byte(m[2]), &payload)

		msg := firstNonEmpty(payload.Msg, payload.Message, payload.ErrorDescription, payload.ErrorName)
		if msg == "" {
			msg = http.StatusText(status)
		}
		code := payload.ErrorCode
		if code == "" {
			if s, ok := payload.Code.(string); ok {
				code = s
			}
		}
		return &core.BackendError{Status: status, Code: code, Message: msg, Err: err}
	}
	if m := postgrestPattern.FindStringSubmatch(text); m != nil {
		return &core.BackendError{Code: m[1], Message: m[2], Err: err}
	}
	return &core.BackendError{Message: text, Err: err}
}

func decodeRows(raw []byte) ([]core.Record, error) {
	rows := []core.Record{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return rows, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		return nil, &core.BackendError{Message: "invalid response from backend", Err: err}
	}
	if rows == nil {
		rows = []core.Record{}
	}
	return rows, nil
}

// sessionKeys are the token fields GoTrue puts next to the user object.
var sessionKeys = []string{
	"access_token", "token_type", "expires_in", "expires_at",
	"refresh_token", "provider_token", "provider_refresh_token", "user",
}

// authResult reshapes a GoTrue payload. The user object is kept whole so
// metadata reaches the client unchanged.
func authResult(payload any) (*core.AuthResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, &core.BackendError{Message: "invalid response from backend", Err: err}
	}
	var rec core.Record
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil {
		return nil, &core.BackendError{Message: "invalid response from backend", Err: err}
	}

	token := rec.String("access_token")
	var user *core.User
	if nested, ok := rec["user"].(map[string]any); ok && token != "" {
		user = core.UserFromRecord(core.Record(nested))
	}
	if user == nil {
		top := rec.Clone()
		for _, k := range sessionKeys {
			delete(top, k)
		}
		if top.String("id") != "" {
			user = core.UserFromRecord(top)
		}
	}

	out := &core.AuthResult{User: user}
	if token != "" {
		out.Session = &core.Session{
			AccessToken:  token,
			TokenType:    rec.String("token_type"),
			ExpiresIn:    int64Of(rec["expires_in"]),
			ExpiresAt:    int64Of(rec["expires_at"]),
			RefreshToken: rec.String("refresh_token"),
			User:         user,
		}
	}
	return out, nil
}

func int64Of(v any) int64 {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
