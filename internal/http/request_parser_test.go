package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestBodyParser_JSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/prompts", strings.NewReader(`{"text":"  Send Ben $20 ","count":3,"ok":true}`))
	req.Header.Set("Content-Type", "application/json")

	p := NewRequestBodyParser(httptest.NewRecorder(), req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !p.IsJSON() {
		t.Error("IsJSON() = false, want true")
	}
	if got := p.Get("text"); got != "Send Ben $20" {
		t.Errorf("Get(text) = %q", got)
	}
	if got := p.Get("count"); got != "3" {
		t.Errorf("Get(count) = %q, want 3", got)
	}
	if got := p.Get("ok"); got != "true" {
		t.Errorf("Get(ok) = %q, want true", got)
	}
	if got := p.Get("missing"); got != "" {
		t.Errorf("Get(missing) = %q, want empty", got)
	}
}

func TestRequestBodyParser_JSONWithoutContentType(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/prompts", strings.NewReader(`{"text":"Summary"}`))

	p := NewRequestBodyParser(httptest.NewRecorder(), req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := p.Get("text"); got != "Summary" {
		t.Errorf("Get(text) = %q, want Summary", got)
	}
}

func TestRequestBodyParser_Form(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/prompts", strings.NewReader("text=Give+Ben+a+raise%01"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	p := NewRequestBodyParser(httptest.NewRecorder(), req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.IsJSON() {
		t.Error("IsJSON() = true, want false")
	}
	if got := p.Get("text"); got != "Give Ben a raise" {
		t.Errorf("Get(text) = %q", got)
	}
}

func TestRequestBodyParser_Errors(t *testing.T) {
	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":`))
		err := NewRequestBodyParser(httptest.NewRecorder(), req).Parse()
		if !errors.As(err, new(badRequest)) {
			t.Errorf("Parse() error = %v, want badRequest", err)
		}
	})

	t.Run("too large", func(t *testing.T) {
		body := "text=" + strings.Repeat("a", maxBodyBytes+1)
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		err := NewRequestBodyParser(httptest.NewRecorder(), req).Parse()
		if !errors.Is(err, errBodyTooLarge) {
			t.Errorf("Parse() error = %v, want errBodyTooLarge", err)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		p := NewRequestBodyParser(httptest.NewRecorder(), req)
		if err := p.Parse(); err != nil {
			t.Errorf("Parse() error = %v, want nil", err)
		}
		if got := p.Get("text"); got != "" {
			t.Errorf("Get(text) = %q, want empty", got)
		}
	})
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantBad bool
	}{
		{"valid", `{"name":"Nora"}`, false},
		{"unknown field", `{"name":"Nora","salary":1}`, true},
		{"empty", ``, true},
		{"two objects", `{"name":"a"}{"name":"b"}`, true},
		{"wrong type", `{"name":5}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst employeeRequest
			err := decodeJSON(httptest.NewRecorder(), req, &dst)
			if got := errors.As(err, new(badRequest)); got != tt.wantBad {
				t.Errorf("decodeJSON() error = %v, wantBad %v", err, tt.wantBad)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  hello  ", "hello"},
		{"a\x00b\x07c", "abc"},
		{"line1\nline2\tx", "line1\nline2\tx"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestQueryInt(t *testing.T) {
	tests := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"", 50, false},
		{"limit=5", 5, false},
		{"limit=0", 0, false},
		{"limit=-1", 0, true},
		{"limit=abc", 0, true},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/activity?"+tt.query, nil)
		got, err := queryInt(req, "limit", 50)
		if (err != nil) != tt.wantErr {
			t.Errorf("queryInt(%q) error = %v, wantErr %v", tt.query, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("queryInt(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}

func TestValidateStruct(t *testing.T) {
	if err := validateStruct(employeeRequest{Name: "Nora", Email: "nora@example.com"}); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	err := validateStruct(employeeRequest{Email: "not-an-email"})
	fields, ok := fieldErrors(err)
	if !ok {
		t.Fatalf("fieldErrors(%v) found none", err)
	}
	got := map[string]string{}
	for _, f := range fields {
		got[f.Field] = f.Tag
	}
	if got["name"] != "required" || got["email"] != "email" {
		t.Errorf("field tags = %v", got)
	}

	status := "archived"
	fields, _ = fieldErrors(validateStruct(automationRequest{Status: &status}))
	if len(fields) != 1 || fields[0].Field != "status" || !strings.Contains(fields[0].Message, "paused") {
		t.Errorf("status errors = %+v", fields)
	}
}
