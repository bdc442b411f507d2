// Package protocol implements the length-prefixed frame layer for sockrpc.
//
// Every message exchanged over the socket is one frame: a fixed 4-byte
// big-endian length header followed by exactly that many payload bytes.
// The receiver reads the header first to learn the payload length, then
// reads exactly that many bytes — this is what turns the raw byte stream
// into whole, ordered messages.
//
// Frame format:
//
//	0         4
//	┌─────────┬────────────────┐
//	│ length  │  payload ...   │
//	│ uint32  │  length bytes  │
//	└─────────┴────────────────┘
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// HeaderSize is the size of the length header in bytes.
	HeaderSize = 4

	// MaxFrameSize caps the payload length accepted by ReadFrame.
	// A corrupt or foreign length header almost always decodes to an
	// absurd length; the cap turns that into a clean error instead of
	// a giant allocation.
	MaxFrameSize = 8 * 1024 * 1024
)

// WriteFrame writes one complete frame (header + payload) to w.
// The caller must serialize concurrent writers sharing the same w,
// otherwise frames from different messages will interleave and corrupt
// the stream.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("frame too large: %d bytes (max %d)", len(payload), MaxFrameSize)
	}

	header := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(header, uint32(len(payload)))

	// Write header
	if _, err := w.Write(header); err != nil {
		return err
	}
	// Write payload (may be empty)
	if _, err := w.Write(payload); err != nil {
		return err
	}
	return nil
}

// ReadFrame reads one complete frame from r and returns its payload.
// Uses io.ReadFull to guarantee exactly HeaderSize + length bytes are
// consumed, preventing partial reads from desynchronizing the stream.
func ReadFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(header)
	if length > MaxFrameSize {
		return nil, fmt.Errorf("frame too large: %d bytes (max %d)", length, MaxFrameSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
