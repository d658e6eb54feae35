package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync/atomic"

	"gocv.io/x/gocv"

	"safestep/internal/config"
	"safestep/internal/logger"
	"safestep/internal/service/ai"
	"safestep/internal/service/camera"
	"safestep/internal/service/crosswalk"
	"safestep/internal/service/websocket"
)

const windowName = "Webcam"

// FrameMessage is sent to viewers of the annotated stream.
type FrameMessage struct {
	Camera string `json:"camera"`
	Image  string `json:"image"`
}

// Manager runs the capture loop: read a frame, detect, update the shared
// state, and feed viewers.
type Manager struct {
	source   camera.Source
	detector ai.Detector
	tracker  *crosswalk.Tracker
	viewHub  *websocket.HubService
	logger   *logger.Logger

	cameraName     string
	streamInterval int
	showWindow     bool

	frames  atomic.Uint64
	running atomic.Bool
}

func NewManager(source camera.Source, detector ai.Detector, tracker *crosswalk.Tracker,
	viewHub *websocket.HubService, config *config.Config, logger *logger.Logger) *Manager {
	interval := config.StreamInterval
	if interval < 1 {
		interval = 1
	}

	return &Manager{
		source:         source,
		detector:       detector,
		tracker:        tracker,
		viewHub:        viewHub,
		logger:         logger,
		cameraName:     config.CameraName,
		streamInterval: interval,
		showWindow:     config.ShowWindow,
	}
}

// Run captures frames until the source fails, ctx is done, or 'q' is pressed
// in the preview window.
func (m *Manager) Run(ctx context.Context) error {
	if m.source == nil {
		return errors.New("no camera source")
	}
	if m.detector == nil {
		return ai.ErrNetNotLoaded
	}

	m.running.Store(true)
	defer m.running.Store(false)

	var window *gocv.Window
	if m.showWindow {
		window = gocv.NewWindow(windowName)
		defer window.Close()
	}

	frame := gocv.NewMat()
	defer frame.Close()

	m.logger.Info("🎬 Capture loop started on %s - streaming every %d frame(s)", m.cameraName, m.streamInterval)
	defer func() {
		m.logger.Info("🛑 Capture loop stopped after %d frame(s)", m.frames.Load())
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := m.source.Read(&frame); err != nil {
			m.logger.Error("Error: %v", err)
			return err
		}

		count := m.frames.Add(1)
		m.processFrame(&frame, count)

		if window != nil {
			window.IMShow(frame)
			if window.WaitKey(1)&0xFF == 'q' {
				m.logger.Info("Quit requested from preview window")
				return nil
			}
		}
	}
}

func (m *Manager) processFrame(frame *gocv.Mat, count uint64) {
	detections, err := m.detector.Detect(*frame)
	if err != nil {
		m.logger.Error("Error detecting objects: %v", err)
		return
	}

	if len(detections) > 0 {
		if err := ai.Annotate(frame, detections); err != nil {
			m.logger.Warning("Failed to annotate frame: %v", err)
		}
	}

	_, err = m.tracker.Observe(detections, func() ([]byte, error) {
		return ai.EncodeJPEG(*frame)
	})
	if err != nil {
		m.logger.Error("Error tracking crosswalk state: %v", err)
	}

	if m.viewHub != nil && count%uint64(m.streamInterval) == 0 && m.viewHub.GetClientCount() > 0 {
		m.sendToViewers(*frame)
	}
}

func (m *Manager) sendToViewers(frame gocv.Mat) {
	data, err := ai.EncodeJPEG(frame)
	if err != nil {
		m.logger.Error("Failed to encode frame: %v", err)
		return
	}

	msg, err := json.Marshal(FrameMessage{
		Camera: m.cameraName,
		Image:  base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		m.logger.Error("Failed to encode frame message: %v", err)
		return
	}
	m.viewHub.Broadcast(msg)
}

// Frames returns how many frames have been captured.
func (m *Manager) Frames() uint64 {
	return m.frames.Load()
}

// Running reports whether the capture loop is active.
func (m *Manager) Running() bool {
	return m.running.Load()
}
