package http

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		Header("X-Custom", "value").
		JSON(map[string]int{"version": 3}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Header().Get("Content-Type"); !strings.HasPrefix(got, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if got := w.Header().Get("X-Custom"); got != "value" {
		t.Errorf("X-Custom = %q, want %q", got, "value")
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"version":3}` {
		t.Errorf("Body = %q", got)
	}
}

func TestResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().Status(http.StatusNoContent).Write(w)

	if w.Code != http.StatusNoContent {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusNoContent)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Body = %q, want empty", w.Body.String())
	}
}

func TestResponseBuilder_EncodingFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().JSON(math.Inf(1)).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if !strings.Contains(w.Body.String(), `"internal"`) {
		t.Errorf("Body = %q, want internal error envelope", w.Body.String())
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name       string
		builder    *ResponseBuilder
		wantStatus int
		wantCode   string
	}{
		{"bad request", BadRequestError("nope"), http.StatusBadRequest, "bad_request"},
		{"unprocessable", UnprocessableEntityError("nope"), http.StatusUnprocessableEntity, "invalid"},
		{"internal", InternalServerError("nope"), http.StatusInternalServerError, "internal"},
		{"not found", NotFoundError("nope"), http.StatusNotFound, "not_found"},
		{"conflict", ConflictError("nope"), http.StatusConflict, "conflict"},
		{"rate limited", TooManyRequestsError(), http.StatusTooManyRequests, "rate_limited"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			var env struct {
				Error ErrorBody `json:"error"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", env.Error.Code, tt.wantCode)
			}
			if env.Error.Message == "" {
				t.Error("message is empty")
			}
		})
	}
}

func TestValidationErrorListsFields(t *testing.T) {
	w := httptest.NewRecorder()
	ValidationError([]FieldError{
		{Field: "name", Tag: "required", Message: "is required"},
		{Field: "email", Tag: "email", Message: "must be a valid e-mail address"},
	}).Write(w)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	var env struct {
		Error ErrorBody `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "validation" || len(env.Error.Fields) != 2 {
		t.Fatalf("unexpected envelope: %+v", env.Error)
	}
	if env.Error.Fields[1].Field != "email" {
		t.Errorf("second field = %q, want email", env.Error.Fields[1].Field)
	}
}
