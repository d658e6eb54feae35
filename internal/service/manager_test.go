package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"safestep/internal/config"
	"safestep/internal/dto"
	"safestep/internal/logger"
	"safestep/internal/model"
	"safestep/internal/service/camera"
	"safestep/internal/service/crosswalk"
	"safestep/internal/service/websocket"
)

// fakeSource yields a fixed number of gray frames, then ErrFrameRead.
type fakeSource struct {
	frames int
	reads  int
	onRead func()
	closed bool
}

func (s *fakeSource) Read(dst *gocv.Mat) error {
	if s.onRead != nil {
		s.onRead()
	}
	if s.reads >= s.frames {
		return camera.ErrFrameRead
	}
	s.reads++

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 40, 40, 0), 120, 160, gocv.MatTypeCV8UC3)
	defer frame.Close()
	return frame.CopyTo(dst)
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

// fakeDetector returns the result of detect for the n-th call (1-based).
type fakeDetector struct {
	calls  int
	detect func(n int) ([]model.Detection, error)
}

func (d *fakeDetector) Detect(frame gocv.Mat) ([]model.Detection, error) {
	d.calls++
	return d.detect(d.calls)
}

func (d *fakeDetector) Close() error { return nil }

type fakeSink struct {
	mu        sync.Mutex
	snapshots [][]byte
}

func (s *fakeSink) AddImage(data []byte, camera string, detections []model.Detection) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, data)
	return "snapshot.jpg"
}

func crosswalkBox(confidence float64) []model.Detection {
	return []model.Detection{{Label: "crosswalk", Confidence: confidence, X: 10, Y: 20, Width: 50, Height: 40}}
}

func newTestManager(t *testing.T, source camera.Source, detector *fakeDetector, hub *websocket.HubService, interval int) (*Manager, *crosswalk.Store, *fakeSink) {
	t.Helper()

	log := logger.New(&bytes.Buffer{}, "error")
	store := crosswalk.NewStore()
	sink := &fakeSink{}
	tracker := crosswalk.NewTracker(crosswalk.NewChecker("crosswalk", 0.80), store, nil, sink, "webcam", log)
	cfg := &config.Config{CameraName: "webcam", StreamInterval: interval}

	return NewManager(source, detector, tracker, hub, cfg, log), store, sink
}

func TestManager_StopsOnFrameReadError(t *testing.T) {
	source := &fakeSource{frames: 3}
	detector := &fakeDetector{detect: func(n int) ([]model.Detection, error) {
		return crosswalkBox(0.93), nil
	}}
	m, store, sink := newTestManager(t, source, detector, nil, 1)

	var runningDuringCapture bool
	source.onRead = func() { runningDuringCapture = m.Running() }

	err := m.Run(context.Background())
	if !errors.Is(err, camera.ErrFrameRead) {
		t.Fatalf("Expected ErrFrameRead, got %v", err)
	}

	if !runningDuringCapture {
		t.Error("Expected Running() to be true while capturing")
	}
	if m.Running() {
		t.Error("Expected Running() to be false after the loop stopped")
	}
	if m.Frames() != 3 {
		t.Errorf("got %d frames, expected 3", m.Frames())
	}
	if detector.calls != 3 {
		t.Errorf("got %d detections, expected 3", detector.calls)
	}

	// The last state stays in place for the HTTP handlers.
	expected := dto.CrosswalkState{Detected: true, Confidence: 0.93}
	if got := store.Get(); got != expected {
		t.Errorf("got state %+v, expected %+v", got, expected)
	}

	if len(sink.snapshots) != 1 {
		t.Fatalf("Expected one snapshot on the rising edge, got %d", len(sink.snapshots))
	}
	if snap := sink.snapshots[0]; len(snap) < 2 || snap[0] != 0xFF || snap[1] != 0xD8 {
		t.Error("Expected snapshot to be a JPEG image")
	}
}

func TestManager_DetectionErrorsDoNotStopLoop(t *testing.T) {
	source := &fakeSource{frames: 3}
	detector := &fakeDetector{detect: func(n int) ([]model.Detection, error) {
		switch n {
		case 1:
			return crosswalkBox(0.85), nil
		case 2:
			return nil, errors.New("inference failed")
		default:
			return crosswalkBox(0.70), nil
		}
	}}
	m, store, _ := newTestManager(t, source, detector, nil, 1)

	if err := m.Run(context.Background()); !errors.Is(err, camera.ErrFrameRead) {
		t.Fatalf("Expected ErrFrameRead, got %v", err)
	}
	if m.Frames() != 3 {
		t.Errorf("got %d frames, expected 3", m.Frames())
	}

	// Frame 3 only has a box below the reporting threshold.
	if got := store.Get(); got != (dto.CrosswalkState{}) {
		t.Errorf("Expected cleared state, got %+v", got)
	}
}

func TestManager_CancelledContext(t *testing.T) {
	source := &fakeSource{frames: 10}
	detector := &fakeDetector{detect: func(int) ([]model.Detection, error) { return nil, nil }}
	m, _, _ := newTestManager(t, source, detector, nil, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.Run(ctx); err != nil {
		t.Errorf("Expected nil error on cancel, got %v", err)
	}
	if m.Frames() != 0 {
		t.Errorf("Expected no frames after cancel, got %d", m.Frames())
	}
}

func TestManager_MissingDependencies(t *testing.T) {
	log := logger.New(&bytes.Buffer{}, "error")
	store := crosswalk.NewStore()
	tracker := crosswalk.NewTracker(crosswalk.NewChecker("", 0.80), store, nil, nil, "webcam", log)
	cfg := &config.Config{CameraName: "webcam", StreamInterval: 1}

	if err := NewManager(nil, &fakeDetector{}, tracker, nil, cfg, log).Run(context.Background()); err == nil {
		t.Error("Expected an error without a camera source")
	}
	if err := NewManager(&fakeSource{}, nil, tracker, nil, cfg, log).Run(context.Background()); err == nil {
		t.Error("Expected an error without a detector")
	}
}

func TestManager_StreamsEveryNthFrame(t *testing.T) {
	log := logger.New(&bytes.Buffer{}, "error")
	hub := websocket.NewHubService("viewers", log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	upgrader := gorilla.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(conn)
		defer hub.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	conn, _, err := gorilla.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("Viewer was not registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	source := &fakeSource{frames: 5}
	detector := &fakeDetector{detect: func(int) ([]model.Detection, error) { return crosswalkBox(0.9), nil }}
	m, _, _ := newTestManager(t, source, detector, hub, 2)

	if err := m.Run(ctx); !errors.Is(err, camera.ErrFrameRead) {
		t.Fatalf("Expected ErrFrameRead, got %v", err)
	}

	// Frames 2 and 4 of 5 are sent.
	for i := 0; i < 2; i++ {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Expected frame message %d: %v", i+1, err)
		}

		var msg FrameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Invalid frame message: %v", err)
		}
		if msg.Camera != "webcam" {
			t.Errorf("got camera %q, expected webcam", msg.Camera)
		}
		jpeg, err := base64.StdEncoding.DecodeString(msg.Image)
		if err != nil || len(jpeg) < 2 || jpeg[0] != 0xFF || jpeg[1] != 0xD8 {
			t.Errorf("Expected base64 JPEG image, err=%v", err)
		}
	}

	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected only every second frame to be streamed")
	}
}
