package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"safestep/internal/config"
	"safestep/internal/logger"
	"safestep/internal/repository/sqlite"
	"safestep/internal/route"
	"safestep/internal/service"
	"safestep/internal/service/ai"
	"safestep/internal/service/camera"
	"safestep/internal/service/crosswalk"
	"safestep/internal/service/storage"
	"safestep/internal/service/websocket"
)

const (
	shutdownTimeout    = 10 * time.Second
	captureStopTimeout = 5 * time.Second
)

type App struct {
	config   *config.Config
	logger   *logger.Logger
	db       *sqlite.DB
	events   *sqlite.EventRepository
	images   *sqlite.ImageRepository
	buffer   *storage.BufferService
	store    *crosswalk.Store
	tracker  *crosswalk.Tracker
	viewHub  *websocket.HubService
	detector ai.Detector
}

func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	events := sqlite.NewEventRepository(db)
	images := sqlite.NewImageRepository(db)
	buffer := storage.NewBufferService(cfg, log, images)
	store := crosswalk.NewStore()
	checker := crosswalk.NewChecker(cfg.TargetLabel, cfg.ReportConfidence)
	tracker := crosswalk.NewTracker(checker, store, events, buffer, cfg.CameraName, log)

	// The server still answers with the default state when the model is missing.
	detector, err := ai.NewDetector(cfg, log)
	if err != nil {
		log.Error("Error loading detection model: %v", err)
		detector = nil
	}

	return &App{
		config:   cfg,
		logger:   log,
		db:       db,
		events:   events,
		images:   images,
		buffer:   buffer,
		store:    store,
		tracker:  tracker,
		viewHub:  websocket.NewHubService("viewers", log),
		detector: detector,
	}, nil
}

// Run serves HTTP and runs the capture loop until SIGINT or SIGTERM.
func (a *App) Run() error {
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background services
	go a.viewHub.Run(ctx)

	bufferDone := make(chan struct{})
	go func() {
		defer close(bufferDone)
		a.buffer.Run(ctx)
	}()

	source := a.openSource(ctx)
	manager := service.NewManager(source, a.detector, a.tracker, a.viewHub, a.config, a.logger)

	router := route.SetupRoutes(route.Dependencies{
		Store:   a.store,
		ViewHub: a.viewHub,
		Events:  a.events,
		Images:  a.images,
		Buffer:  a.buffer,
		Capture: manager,
	}, a.config, a.logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("🚀 SafeStep server listening on http://localhost:%d", a.config.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	a.logger.Info("📍 State: http://localhost:%d/api/crosswalk", a.config.Port)
	a.logger.Info("🤖 AI Model: %s (%s)", a.config.ModelPath, a.config.ModelBackend)
	a.logger.Info("🎯 Target: %q above %.2f", a.config.TargetLabel, a.config.ReportConfidence)

	canCapture := source != nil && a.detector != nil
	captureDone := make(chan struct{})
	go func() {
		defer close(captureDone)
		if !canCapture {
			return
		}
		if err := manager.Run(ctx); err != nil {
			a.logger.Warning("Capture stopped: %v - still serving last known state", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down server...")
	case err := <-serverErr:
		runErr = fmt.Errorf("server failed: %w", err)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Server forced to shut down: %v", err)
	}

	if !stopCapture(captureDone, source, captureStopTimeout, a.logger) {
		a.detector = nil
	}

	<-bufferDone
	return runErr
}

// stopCapture waits for the capture loop to exit and then closes source.
// If the loop is still inside Read or Detect after timeout, nothing is closed
// and false is returned: freeing the camera or the network under a running
// cgo call is not safe.
func stopCapture(done <-chan struct{}, source camera.Source, timeout time.Duration, logger *logger.Logger) bool {
	select {
	case <-done:
	case <-time.After(timeout):
		logger.Warning("Capture loop did not stop within %s, leaving camera and model open", timeout)
		return false
	}

	if source != nil {
		if err := source.Close(); err != nil {
			logger.Warning("Error closing camera: %v", err)
		}
	}
	return true
}

func (a *App) openSource(ctx context.Context) camera.Source {
	var (
		source camera.Source
		err    error
	)

	switch a.config.CameraSource {
	case "udp":
		source, err = camera.ListenUDP(ctx, a.config.CameraUDPPort, a.logger)
	default:
		source, err = camera.OpenDevice(a.config.CameraDevice)
	}

	if err != nil {
		a.logger.Error("Error: Could not open webcam (%v)", err)
		return nil
	}
	a.logger.Info("📷 Camera opened: %s", a.config.CameraSource)
	return source
}

// close releases the model and the database. A nil detector is skipped,
// including one still in use by a capture loop that did not stop.
func (a *App) close() {
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			a.logger.Warning("Error closing detector: %v", err)
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warning("Error closing database: %v", err)
	}
	a.logger.Info("Server stopped")
	a.logger.Close()
}
