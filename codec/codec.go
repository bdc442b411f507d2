// Package codec provides the two serialization stages of the wire protocol.
//
// Layer 1 turns a typed parameter or return value into opaque bytes; layer 2
// turns a whole envelope (with the body already opaque) into the final wire
// bytes. Both sides of a socket must use byte-for-byte identical rules at
// both stages — the codec is the de facto wire protocol.
package codec

type CodecType byte

const (
	CodecTypeJSON   CodecType = 0
	CodecTypeBinary CodecType = 1
)

// Codec serializes and deserializes values.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	Type() CodecType
}

func GetCodec(codecType CodecType) Codec {
	if codecType == CodecTypeJSON {
		return &JSONCodec{}
	}

	return &BinaryCodec{}
}

// bodyCodec is the fixed layer-1 codec used for typed values.
var bodyCodec Codec = &JSONCodec{}

// Marshal performs the layer-1 encoding of a typed value into body bytes.
func Marshal(v any) ([]byte, error) {
	return bodyCodec.Encode(v)
}

// Unmarshal performs the layer-1 decoding of body bytes into T.
// It fails if the bytes were not produced by Marshal on a value of T —
// the type expectation travels with the caller, not inside the bytes.
func Unmarshal[T any](data []byte) (T, error) {
	var v T
	err := bodyCodec.Decode(data, &v)
	return v, err
}
