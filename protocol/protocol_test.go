package protocol

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestWriteReadFrame(t *testing.T) {
	payload := []byte("hello world")

	var buf bytes.Buffer
	if err := WriteFrame(&buf, payload); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	if buf.Len() != HeaderSize+len(payload) {
		t.Errorf("frame size mismatch: got %d, want %d", buf.Len(), HeaderSize+len(payload))
	}

	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload mismatch: got %q, want %q", got, payload)
	}
}

func TestEmptyFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, nil); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expect empty payload, got %d bytes", len(got))
	}
}

func TestMultipleFramesInOrder(t *testing.T) {
	var buf bytes.Buffer
	for _, payload := range []string{"first", "second", "third"} {
		if err := WriteFrame(&buf, []byte(payload)); err != nil {
			t.Fatalf("WriteFrame(%q) failed: %v", payload, err)
		}
	}

	for _, want := range []string{"first", "second", "third"} {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame failed: %v", err)
		}
		if string(got) != want {
			t.Errorf("frame order broken: got %q, want %q", got, want)
		}
	}
}

func TestReadFrameCorruptLengthHeader(t *testing.T) {
	// A length header beyond MaxFrameSize must fail the read instead of
	// allocating gigabytes.
	var buf bytes.Buffer
	header := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(header, MaxFrameSize+1)
	buf.Write(header)
	buf.Write([]byte("junk"))

	_, err := ReadFrame(&buf)
	if err == nil {
		t.Fatal("expect error for oversized length header, got nil")
	}
	if !bytes.Contains([]byte(err.Error()), []byte("frame too large")) {
		t.Errorf("error should mention 'frame too large', got: %v", err)
	}
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	// Header promises 100 bytes, stream delivers 3.
	var buf bytes.Buffer
	header := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(header, 100)
	buf.Write(header)
	buf.Write([]byte("abc"))

	_, err := ReadFrame(&buf)
	if err == nil {
		t.Fatal("expect error for truncated payload, got nil")
	}
}

func TestWriteFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrame(&buf, make([]byte, MaxFrameSize+1))
	if err == nil {
		t.Fatal("expect error for oversized payload, got nil")
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should be written on failure, got %d bytes", buf.Len())
	}
}
