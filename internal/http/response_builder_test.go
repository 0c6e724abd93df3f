package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"tracker/internal/core"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusAccepted).
		Header("X-Test", "1").
		Body(map[string]int{"n": 1}).
		Write(w)

	if w.Code != http.StatusAccepted {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusAccepted)
	}
	if w.Header().Get("X-Test") != "1" {
		t.Errorf("custom header missing")
	}
	if w.Header().Get("Content-Type") != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
	if w.Body.String() != `{"n":1}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestJSONResponseBuilder_Shapes(t *testing.T) {
	tests := []struct {
		name string
		b    *JSONResponseBuilder
		code int
		body string
	}{
		{"success", Success([]string{"a"}), 200, `{"success":true,"data":["a"]}`},
		{"created", Created("Task added successfully", map[string]string{"id": "1"}), 200,
			`{"success":true,"message":"Task added successfully","data":{"id":"1"}}`},
		{"bad request", BadRequestError("Title is required"), 400, `{"error":"Title is required"}`},
		{"unauthorized", ErrorResponse(http.StatusUnauthorized, "nope"), 401, `{"error":"nope"}`},
		{"internal", InternalServerError("Internal server error"), 500, `{"error":"Internal server error"}`},
		{"auth without session", AuthSuccess("ok", &core.AuthResult{User: &core.User{ID: "u"}}), 200, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.b.Write(w)
			if w.Code != tt.code {
				t.Errorf("code = %d, want %d", w.Code, tt.code)
			}
			if tt.body != "" && w.Body.String() != tt.body {
				t.Errorf("body = %s, want %s", w.Body.String(), tt.body)
			}
		})
	}
}

func TestMethodNotAllowedSetsAllow(t *testing.T) {
	w := httptest.NewRecorder()
	MethodNotAllowedError("POST").Write(w)
	if w.Code != http.StatusMethodNotAllowed || w.Header().Get("Allow") != "POST" {
		t.Errorf("got %d Allow=%q", w.Code, w.Header().Get("Allow"))
	}
}

func TestWriteUnencodableBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Body(make(chan int)).Write(w)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("code = %d", w.Code)
	}
}
