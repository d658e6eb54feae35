package route

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	gorilla "github.com/gorilla/websocket"

	"safestep/internal/config"
	"safestep/internal/dto"
	"safestep/internal/logger"
	"safestep/internal/repository/sqlite"
	"safestep/internal/service/crosswalk"
	"safestep/internal/service/storage"
	"safestep/internal/service/websocket"
)

func newTestRouter(t *testing.T) (http.Handler, *crosswalk.Store) {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		CORSOrigins:    []string{"http://localhost:3000"},
		ImageDirectory: t.TempDir(),
	}
	log := logger.New(&bytes.Buffer{}, "error")
	images := sqlite.NewImageRepository(db)
	store := crosswalk.NewStore()

	viewHub := websocket.NewHubService("viewers", log)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go viewHub.Run(ctx)

	deps := Dependencies{
		Store:   store,
		ViewHub: viewHub,
		Events:  sqlite.NewEventRepository(db),
		Images:  images,
		Buffer:  storage.NewBufferService(cfg, log, images),
	}
	return SetupRoutes(deps, cfg, log), store
}

func TestSetupRoutes_Crosswalk(t *testing.T) {
	router, store := newTestRouter(t)
	store.Set(dto.CrosswalkState{Detected: true, Confidence: 0.95})

	req := httptest.NewRequest(http.MethodGet, "/api/crosswalk", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"detected":true,"confidence":0.95}` {
		t.Errorf("Unexpected body %s", body)
	}
	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "http://localhost:3000" {
		t.Errorf("Expected CORS header for allowed origin, got %q", origin)
	}
}

func TestSetupRoutes_CORS(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name     string
		origin   string
		expected string
	}{
		{"allowed origin", "http://localhost:3000", "http://localhost:3000"},
		{"other origin", "http://evil.example", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/crosswalk", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.expected {
				t.Errorf("got %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestSetupRoutes_Endpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		method   string
		path     string
		expected int
	}{
		{http.MethodGet, "/api/crosswalk/history", http.StatusOK},
		{http.MethodGet, "/api/snapshots", http.StatusOK},
		{http.MethodGet, "/api/snapshots/view", http.StatusBadRequest},
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/logs", http.StatusNotFound},
		{http.MethodPut, "/api/crosswalk", http.StatusMethodNotAllowed},
		{http.MethodGet, "/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.expected {
				t.Errorf("got %d, expected %d", rec.Code, tt.expected)
			}
		})
	}
}

func TestSetupRoutes_WebsocketOrigin(t *testing.T) {
	router, _ := newTestRouter(t)
	server := httptest.NewServer(router)
	defer server.Close()

	tests := []struct {
		name        string
		path        string
		origin      string
		expectAllow bool
	}{
		{"view foreign", "/api/view", "http://evil.example", false},
		{"stream foreign", "/api/crosswalk/stream", "http://evil.example", false},
		{"view allowed", "/api/view", "http://localhost:3000", true},
		{"stream allowed", "/api/crosswalk/stream", "http://localhost:3000", true},
		{"stream without origin", "/api/crosswalk/stream", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}

			conn, resp, err := gorilla.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+tt.path, header)
			if tt.expectAllow {
				if err != nil {
					t.Fatalf("Expected upgrade, got %v", err)
				}
				conn.Close()
				return
			}

			if err == nil {
				conn.Close()
				t.Fatal("Expected foreign origin to be rejected")
			}
			if resp == nil || resp.StatusCode != http.StatusForbidden {
				t.Errorf("Expected 403, got %v", resp)
			}
		})
	}
}

func TestSetupRoutes_MutatingRoutesRejectForeignOrigin(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		method   string
		path     string
		origin   string
		expected int
	}{
		{http.MethodPost, "/logs/clear", "http://evil.example", http.StatusForbidden},
		{http.MethodDelete, "/api/snapshots/delete?name=a.jpg", "http://evil.example", http.StatusForbidden},
		{http.MethodPost, "/logs/clear", "http://localhost:3000", http.StatusNoContent},
		{http.MethodDelete, "/api/snapshots/delete?name=a.jpg", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path+" "+tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.expected {
				t.Errorf("got %d, expected %d", rec.Code, tt.expected)
			}
		})
	}
}
