package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/perf-import/internal/domain/kv"
	"github.com/riskibarqy/perf-import/internal/usecase"
)

func TestWriteSuccess_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeSuccess(context.Background(), rec, http.StatusOK, map[string]string{"status": "ok"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	if got, _ := body["apiVersion"].(string); got != "2.0" {
		t.Fatalf("expected apiVersion=2.0, got %v", body["apiVersion"])
	}
	if _, ok := body["data"]; !ok {
		t.Fatalf("expected data key in success response")
	}
	if _, ok := body["error"]; ok {
		t.Fatalf("did not expect error key in success response")
	}
}

func TestWriteError_HidesInternalMessages(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(context.Background(), rec, errors.New("pq: relation players does not exist"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}

	var body envelope
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	if body.Error == nil || body.Error.Message != "internal server error" {
		t.Fatalf("unexpected error body: %+v", body.Error)
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "invalid input", err: fmt.Errorf("%w: bad payload", usecase.ErrInvalidInput), status: http.StatusBadRequest, code: "INVALID_ARGUMENT"},
		{name: "not found", err: usecase.ErrNotFound, status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "store marked", err: crerr.Mark(errors.New("dial tcp: timeout"), kv.ErrUnavailable), status: http.StatusServiceUnavailable, code: "UNAVAILABLE"},
		{name: "dependency", err: crerr.Mark(crerr.Wrap(errors.New("boom"), "list roster"), usecase.ErrDependencyUnavailable), status: http.StatusServiceUnavailable, code: "UNAVAILABLE"},
		{name: "deadline", err: crerr.Wrap(context.DeadlineExceeded, "apply"), status: http.StatusGatewayTimeout, code: "DEADLINE_EXCEEDED"},
		{name: "unknown", err: errors.New("boom"), status: http.StatusInternalServerError, code: "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err)
			if got.HTTPStatus != tt.status || got.Status != tt.code {
				t.Fatalf("mapError(%v) = %d %s, want %d %s", tt.err, got.HTTPStatus, got.Status, tt.status, tt.code)
			}
		})
	}
}
