package camera

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"

	"gocv.io/x/gocv"

	"safestep/internal/logger"
	"safestep/internal/service/camera/jpegframe"
)

// UDP receives JPEG frames split across UDP datagrams and decodes them.
type UDP struct {
	conn      *net.UDPConn
	frames    chan []byte
	logger    *logger.Logger
	closeOnce sync.Once
	done      chan struct{}
}

// ListenUDP starts receiving frames on port until ctx is done or Close is called.
func ListenUDP(ctx context.Context, port int, logger *logger.Logger) (*UDP, error) {
	addr, err := net.ResolveUDPAddr("udp", ":"+strconv.Itoa(port))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on UDP port %d: %w", port, err)
	}

	u := &UDP{
		conn:   conn,
		frames: make(chan []byte, 2),
		logger: logger,
		done:   make(chan struct{}),
	}

	go u.receive()
	go func() {
		select {
		case <-ctx.Done():
			u.Close()
		case <-u.done:
		}
	}()

	logger.Info("UDP camera listener started on port %d", port)
	return u, nil
}

func (u *UDP) receive() {
	defer close(u.frames)

	buffer := make([]byte, 65535)
	assembler := &jpegframe.Assembler{}

	for {
		n, _, err := u.conn.ReadFromUDP(buffer)
		if err != nil {
			select {
			case <-u.done:
			default:
				u.logger.Error("Error reading UDP packet: %v", err)
			}
			return
		}

		frame := assembler.Push(buffer[:n])
		if frame == nil {
			continue
		}

		// Drop frames the capture loop is too slow to take.
		select {
		case u.frames <- frame:
		default:
			u.logger.Debug("Dropping UDP frame, capture loop busy")
		}
	}
}

// Read blocks until the next complete frame arrives. Frames that fail to
// decode are skipped.
func (u *UDP) Read(dst *gocv.Mat) error {
	for data := range u.frames {
		mat, err := gocv.IMDecode(data, gocv.IMReadColor)
		if err != nil {
			u.logger.Warning("Skipping undecodable UDP frame (%d bytes): %v", len(data), err)
			continue
		}
		if mat.Empty() {
			u.logger.Warning("Skipping empty UDP frame (%d bytes)", len(data))
			mat.Close()
			continue
		}

		err = mat.CopyTo(dst)
		mat.Close()
		return err
	}
	return ErrFrameRead
}

func (u *UDP) Close() error {
	var err error
	u.closeOnce.Do(func() {
		close(u.done)
		err = u.conn.Close()
	})
	return err
}
