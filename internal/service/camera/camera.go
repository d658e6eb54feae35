package camera

import (
	"errors"
	"fmt"
	"strconv"

	"gocv.io/x/gocv"
)

// ErrFrameRead is returned when a source stops producing frames.
var ErrFrameRead = errors.New("failed to capture frame")

// Source yields frames for the capture loop.
type Source interface {
	Read(dst *gocv.Mat) error
	Close() error
}

// Device reads frames from a local capture device or video file.
type Device struct {
	capture *gocv.VideoCapture
	id      string
}

// OpenDevice opens a camera by index ("0") or a file/stream URL.
func OpenDevice(id string) (*Device, error) {
	var device interface{} = id
	if index, err := strconv.Atoi(id); err == nil {
		device = index
	}

	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("could not open camera %s: %w", id, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("could not open camera %s", id)
	}

	return &Device{capture: capture, id: id}, nil
}

func (d *Device) Read(dst *gocv.Mat) error {
	if ok := d.capture.Read(dst); !ok || dst.Empty() {
		return ErrFrameRead
	}
	return nil
}

func (d *Device) Close() error {
	return d.capture.Close()
}

func (d *Device) String() string {
	return "device " + d.id
}
