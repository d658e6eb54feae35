package ai

import (
	"fmt"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"safestep/internal/logger"
	"safestep/internal/model"
	"safestep/internal/service/ai/yolo"
)

// ONNXDetector runs a YOLOv8 ONNX export through onnxruntime with
// pre-allocated input and output tensors.
type ONNXDetector struct {
	session    *ort.AdvancedSession
	input      *ort.Tensor[float32]
	output     *ort.Tensor[float32]
	opts       Options
	numAnchors int
	logger     *logger.Logger
	mu         sync.Mutex
}

// NewONNXDetector initializes the onnxruntime environment and creates a session.
// libraryPath overrides the bundled shared library location when set.
func NewONNXDetector(opts Options, libraryPath string, logger *logger.Logger) (*ONNXDetector, error) {
	if libraryPath == "" {
		path, err := sharedLibPath()
		if err != nil {
			return nil, err
		}
		libraryPath = path
	}
	ort.SetSharedLibraryPath(libraryPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}

	size := int64(opts.InputSize)
	inputTensor, err := ort.NewTensor(ort.NewShape(1, 3, size, size), make([]float32, 3*size*size))
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	numAnchors := yolo.AnchorCount(opts.InputSize)
	outputShape := ort.NewShape(1, int64(4+len(opts.Labels)), int64(numAnchors))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		opts.ModelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create onnx session: %w", err)
	}

	logger.Info("ONNX session initialized successfully (%s, output %v)", opts.ModelPath, outputShape)
	return &ONNXDetector{
		session:    session,
		input:      inputTensor,
		output:     outputTensor,
		opts:       opts,
		numAnchors: numAnchors,
		logger:     logger,
	}, nil
}

func (d *ONNXDetector) Detect(frame gocv.Mat) ([]model.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil, ErrNetNotLoaded
	}
	if frame.Empty() {
		return nil, fmt.Errorf("frame is empty")
	}

	// ToImage converts BGR to RGB for us.
	img, err := frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}

	scaleX, scaleY, err := yolo.FillCHW(img, d.input.GetData(), d.opts.InputSize)
	if err != nil {
		return nil, err
	}

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	candidates, err := yolo.DecodeYOLOv8(d.output.GetData(), len(d.opts.Labels), d.numAnchors, d.opts.ConfThreshold, scaleX, scaleY, d.opts.Labels)
	if err != nil {
		return nil, err
	}

	results := yolo.NMS(candidates, float64(d.opts.NMSThreshold))
	for _, det := range results {
		d.logger.Debug("Detected %s (%.2f)", det.Label, det.Confidence)
	}
	return results, nil
}

func (d *ONNXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil
	}
	d.session.Destroy()
	d.input.Destroy()
	d.output.Destroy()
	d.session = nil
	return ort.DestroyEnvironment()
}

// sharedLibPath returns the onnxruntime shared library bundled for this platform.
func sharedLibPath() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if runtime.GOARCH == "amd64" {
			return "./third_party/onnxruntime.dll", nil
		}
	case "darwin":
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.dylib", nil
		}
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so", nil
		}
		return "./third_party/onnxruntime.so", nil
	}
	return "", fmt.Errorf("no onnxruntime library bundled for %s/%s", runtime.GOOS, runtime.GOARCH)
}
