package net

import (
	"bytes"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte{0x01, 0xDE, 0xAD, 0xBE, 0xEF}
	if err := WriteFrame(&buf, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload = % x, want % x", got, payload)
	}
}

func TestReadFrameRejectsBadLength(t *testing.T) {
	// Header says total length 2 → zero-byte payload.
	if _, err := ReadFrame(bytes.NewReader([]byte{0x02, 0x00})); err == nil {
		t.Fatal("zero-length frame accepted")
	}
	// Header says 1 → negative payload.
	if _, err := ReadFrame(bytes.NewReader([]byte{0x01, 0x00})); err == nil {
		t.Fatal("undersized frame accepted")
	}
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	if _, err := ReadFrame(bytes.NewReader([]byte{0x0A, 0x00, 0x01})); err == nil {
		t.Fatal("truncated frame accepted")
	}
}
