// Package jpegframe reassembles JPEG images sent in pieces over datagram transports.
package jpegframe

import "bytes"

var (
	jpegHeader = []byte{0xFF, 0xD8}
	jpegFooter = []byte{0xFF, 0xD9}
)

// Assembler rebuilds JPEG frames from consecutive datagrams.
// A datagram starting with the SOI marker begins a new frame and one ending
// with the EOI marker completes it.
type Assembler struct {
	buf     bytes.Buffer
	started bool
}

// Push appends a datagram and returns a complete frame, or nil.
func (a *Assembler) Push(data []byte) []byte {
	if bytes.HasPrefix(data, jpegHeader) {
		a.buf.Reset()
		a.started = true
	}
	if !a.started {
		return nil
	}
	a.buf.Write(data)

	if !bytes.HasSuffix(data, jpegFooter) {
		return nil
	}

	frame := make([]byte, a.buf.Len())
	copy(frame, a.buf.Bytes())
	a.buf.Reset()
	a.started = false
	return frame
}
