package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"safestep/internal/logger"
)

func TestRequestLogger_LogsStatus(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, "info")

	handler := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/crosswalk/history", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("Expected status 418, got %d", rec.Code)
	}
	out := buf.String()
	if !strings.Contains(out, "status=418") || !strings.Contains(out, "path=/api/crosswalk/history") {
		t.Errorf("Expected status and path in log, got: %s", out)
	}
}

func TestRequestLogger_QuietPaths(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, "info")

	handler := RequestLogger(log, "/api/crosswalk")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/crosswalk", nil))

	if strings.Contains(buf.String(), "/api/crosswalk") {
		t.Errorf("Expected polling request to be logged at debug level only, got: %s", buf.String())
	}
}
