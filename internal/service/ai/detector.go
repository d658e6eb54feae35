package ai

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"safestep/internal/config"
	"safestep/internal/logger"
	"safestep/internal/model"
	"safestep/internal/service/ai/yolo"
)

const (
	BackendGoCV = "gocv"
	BackendONNX = "onnx"
)

// ErrNetNotLoaded is returned by Detect when the model could not be loaded.
var ErrNetNotLoaded = errors.New("detection network not initialized")

// Detector runs a pretrained model on a single frame.
type Detector interface {
	Detect(frame gocv.Mat) ([]model.Detection, error)
	Close() error
}

// Options holds model settings shared by all backends.
type Options struct {
	ModelPath     string
	Labels        yolo.Labels
	InputSize     int
	ConfThreshold float32
	NMSThreshold  float32
}

// NewDetector loads the model with the backend selected in config.
func NewDetector(cfg *config.Config, logger *logger.Logger) (Detector, error) {
	labels, err := loadLabels(cfg)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	opts := Options{
		ModelPath:     cfg.ModelPath,
		Labels:        labels,
		InputSize:     cfg.ModelInputSize,
		ConfThreshold: float32(cfg.InferenceConfidence),
		NMSThreshold:  float32(cfg.NMSThreshold),
	}

	switch cfg.ModelBackend {
	case BackendGoCV, "":
		return NewNetDetector(opts, logger)
	case BackendONNX:
		return NewONNXDetector(opts, cfg.ONNXLibraryPath, logger)
	default:
		return nil, fmt.Errorf("unknown model backend %q", cfg.ModelBackend)
	}
}

func loadLabels(cfg *config.Config) (yolo.Labels, error) {
	if cfg.LabelsPath != "" {
		return yolo.LoadLabels(cfg.LabelsPath)
	}

	labels := yolo.ParseLabels(cfg.ClassNames)
	if len(labels) == 0 {
		return nil, fmt.Errorf("no class names configured")
	}
	return labels, nil
}

// NetDetector runs a YOLOv8 ONNX export through the OpenCV DNN module.
type NetDetector struct {
	net    gocv.Net
	opts   Options
	logger *logger.Logger
	mu     sync.Mutex
}

// NewNetDetector loads the network and sets backend/target preferences.
func NewNetDetector(opts Options, logger *logger.Logger) (*NetDetector, error) {
	net := gocv.ReadNet(opts.ModelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", opts.ModelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target")
	}

	logger.Info("Detection network initialized successfully (%s, %d classes)", opts.ModelPath, len(opts.Labels))
	return &NetDetector{net: net, opts: opts, logger: logger}, nil
}

// Detect letterboxes the frame into a square, runs the network and applies NMS.
func (d *NetDetector) Detect(frame gocv.Mat) ([]model.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.net.Empty() {
		return nil, ErrNetNotLoaded
	}
	if frame.Empty() {
		return nil, fmt.Errorf("frame is empty")
	}

	height, width := frame.Rows(), frame.Cols()
	maxDim := max(height, width)

	square := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), maxDim, maxDim, gocv.MatTypeCV8UC3)
	defer square.Close()
	roi := square.Region(image.Rect(0, 0, width, height))
	err := frame.CopyTo(&roi)
	roi.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to letterbox frame: %w", err)
	}

	size := d.opts.InputSize
	scale := float32(maxDim) / float32(size)

	blob := gocv.BlobFromImage(square, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	dims := output.Size()
	shape := make([]int64, len(dims))
	for i, v := range dims {
		shape[i] = int64(v)
	}
	numClasses, numAnchors, err := yolo.NumClasses(shape)
	if err != nil {
		return nil, err
	}

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read network output: %w", err)
	}

	candidates, err := yolo.DecodeYOLOv8(data, numClasses, numAnchors, d.opts.ConfThreshold, scale, scale, d.opts.Labels)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	boxes := make([]image.Rectangle, len(candidates))
	scores := make([]float32, len(candidates))
	for i, c := range candidates {
		boxes[i] = c.Rect()
		scores[i] = float32(c.Confidence)
	}

	indices := gocv.NMSBoxes(boxes, scores, d.opts.ConfThreshold, d.opts.NMSThreshold)
	results := make([]model.Detection, 0, len(indices))
	for _, idx := range indices {
		results = append(results, candidates[idx])
		d.logger.Debug("Detected %s (%.2f)", candidates[idx].Label, candidates[idx].Confidence)
	}

	return results, nil
}

func (d *NetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
