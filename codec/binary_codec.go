package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"sockrpc/message"
)

// BinaryCodec is the layer-2 envelope codec: a fixed, deterministic binary
// layout for *message.Request and *message.Response. Every field is
// length-prefixed (big-endian), so decoding never guesses at boundaries.
//
// Request layout:
//
//	u16 idLen | id | u16 methodLen | method | u32 bodyLen | body
//
// Response layout:
//
//	u16 toLen | to | u16 methodLen | method | u16 errLen | err | u32 bodyLen | body
//
// There is no type tag on the wire: the receiver knows from the direction
// of the conversation whether it is reading a Request or a Response.
type BinaryCodec struct{}

var errShortEnvelope = errors.New("BinaryCodec: truncated envelope")

func (c *BinaryCodec) Encode(v any) ([]byte, error) {
	switch m := v.(type) {
	case *message.Request:
		total := 2 + len(m.ID) + 2 + len(m.Method) + 4 + len(m.Body)
		buf := make([]byte, 0, total)
		buf = appendString16(buf, m.ID)
		buf = appendString16(buf, m.Method)
		buf = appendBytes32(buf, m.Body)
		return buf, nil

	case *message.Response:
		total := 2 + len(m.To) + 2 + len(m.Method) + 2 + len(m.Error) + 4 + len(m.Body)
		buf := make([]byte, 0, total)
		buf = appendString16(buf, m.To)
		buf = appendString16(buf, m.Method)
		buf = appendString16(buf, m.Error)
		buf = appendBytes32(buf, m.Body)
		return buf, nil

	default:
		return nil, errors.New("BinaryCodec: v must be *message.Request or *message.Response")
	}
}

func (c *BinaryCodec) Decode(data []byte, v any) error {
	switch m := v.(type) {
	case *message.Request:
		id, rest, err := readString16(data)
		if err != nil {
			return err
		}
		method, rest, err := readString16(rest)
		if err != nil {
			return err
		}
		body, rest, err := readBytes32(rest)
		if err != nil {
			return err
		}
		if len(rest) != 0 {
			return fmt.Errorf("BinaryCodec: %d trailing bytes after envelope", len(rest))
		}
		m.ID, m.Method, m.Body = id, method, body
		return nil

	case *message.Response:
		to, rest, err := readString16(data)
		if err != nil {
			return err
		}
		method, rest, err := readString16(rest)
		if err != nil {
			return err
		}
		errMsg, rest, err := readString16(rest)
		if err != nil {
			return err
		}
		body, rest, err := readBytes32(rest)
		if err != nil {
			return err
		}
		if len(rest) != 0 {
			return fmt.Errorf("BinaryCodec: %d trailing bytes after envelope", len(rest))
		}
		m.To, m.Method, m.Error, m.Body = to, method, errMsg, body
		return nil

	default:
		return errors.New("BinaryCodec: v must be *message.Request or *message.Response")
	}
}

func (c *BinaryCodec) Type() CodecType {
	return CodecTypeBinary
}

func appendString16(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

func appendBytes32(buf []byte, b []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

// readString16 consumes a u16 length prefix and that many bytes,
// returning the string and the unconsumed remainder.
func readString16(data []byte) (string, []byte, error) {
	if len(data) < 2 {
		return "", nil, errShortEnvelope
	}
	n := int(binary.BigEndian.Uint16(data))
	data = data[2:]
	if len(data) < n {
		return "", nil, errShortEnvelope
	}
	return string(data[:n]), data[n:], nil
}

// readBytes32 consumes a u32 length prefix and that many bytes.
// The body is copied so the decoded envelope does not alias the frame buffer.
func readBytes32(data []byte) ([]byte, []byte, error) {
	if len(data) < 4 {
		return nil, nil, errShortEnvelope
	}
	n := binary.BigEndian.Uint32(data)
	data = data[4:]
	if uint32(len(data)) < n {
		return nil, nil, errShortEnvelope
	}
	body := make([]byte, n)
	copy(body, data[:n])
	return body, data[n:], nil
}
