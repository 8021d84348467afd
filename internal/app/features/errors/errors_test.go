package errors_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	apierrors "github.com/dalemusser/grouphub/internal/app/features/errors"
)

func TestRender(t *testing.T) {
	rec := httptest.NewRecorder()
	apierrors.Render(rec, http.StatusBadRequest, "Name can't be blank", "Grant trust level must be between 0 and 4")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
	var got struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []string{"Name can't be blank", "Grant trust level must be between 0 and 4"}
	if !reflect.DeepEqual(got.Errors, want) {
		t.Errorf("errors: got %v, want %v", got.Errors, want)
	}
}

func TestRender_NoMessages(t *testing.T) {
	rec := httptest.NewRecorder()
	apierrors.Render(rec, http.StatusInternalServerError)
	if body := rec.Body.String(); body != "{\"errors\":[]}\n" {
		t.Errorf("body: got %q", body)
	}
}

func TestHandler(t *testing.T) {
	h := apierrors.NewHandler()
	tests := []struct {
		name string
		fn   http.HandlerFunc
		want int
	}{
		{"not found", h.NotFound, http.StatusNotFound},
		{"method not allowed", h.MethodNotAllowed, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.fn(rec, httptest.NewRequest("GET", "/nope", nil))
			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
