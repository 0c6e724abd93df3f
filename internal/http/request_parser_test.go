package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tracker/internal/core"
)

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"object", `{"amount": 12.50}`, false},
		{"leading space", "  \n{}", false},
		{"empty", "", true},
		{"array", `[1,2]`, true},
		{"null", `null`, true},
		{"truncated", `{"a":`, true},
		{"trailing", `{} {}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			_, err := DecodeBody(req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformedRequest) {
				t.Errorf("err = %v, want ErrMalformedRequest", err)
			}
		})
	}
}

func TestDecodeBodyKeepsNumbers(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount": 12.50}`))
	body, err := DecodeBody(req)
	if err != nil {
		t.Fatal(err)
	}
	if body["amount"] != json.Number("12.50") {
		t.Errorf("amount = %T %v", body["amount"], body["amount"])
	}
}

func TestDecodeBodyTooLarge(t *testing.T) {
	big := `{"a":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	if _, err := DecodeBody(req); !errors.Is(err, ErrMalformedRequest) {
		t.Fatalf("err = %v", err)
	}
}

func TestRequireFields(t *testing.T) {
	body := core.Record{"title": "Read", "empty": "", "zero": json.Number("0"), "no": false}
	if err := RequireFields(body, "m", "title"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, f := range []string{"missing", "empty", "zero", "no"} {
		err := RequireFields(body, "Title is required", "title", f)
		var ve *core.ValidationError
		if !errors.As(err, &ve) || ve.Message != "Title is required" {
			t.Errorf("%s: err = %v", f, err)
		}
	}
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name        string
		body        core.Record
		checkLength bool
		wantMsg     string
	}{
		{"ok", core.Record{"email": "a@b.c", "password": "secret"}, true, ""},
		{"missing email", core.Record{"password": "secret"}, false, "Email and password are required"},
		{"short", core.Record{"email": "a@b.c", "password": "12345"}, true, "Password must be at least 6 characters"},
		{"short ignored on login", core.Record{"email": "a@b.c", "password": "12345"}, false, ""},
		{"multibyte counts units", core.Record{"email": "a@b.c", "password": "ééééé"}, true, "Password must be at least 6 characters"},
		{"astral counts two", core.Record{"email": "a@b.c", "password": "😀😀😀"}, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds, err := ValidateCredentials(tt.body, tt.checkLength)
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if creds.Email != tt.body.String("email") {
					t.Errorf("email = %q", creds.Email)
				}
				return
			}
			if core.ErrorMessage(err) != tt.wantMsg {
				t.Errorf("err = %v, want %q", err, tt.wantMsg)
			}
		})
	}
}
