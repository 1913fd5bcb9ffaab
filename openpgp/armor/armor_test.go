package armor

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nguyennv/gopg/openpgp/errors"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog"), 10)
	headers := map[string]string{"Version": "gopg test"}

	var buf bytes.Buffer
	if err := Encode(&buf, TypeMessage, headers, data); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	block, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if block.Type != TypeMessage {
		t.Fatalf("got type %q, want %q", block.Type, TypeMessage)
	}
	if block.Headers["Version"] != "gopg test" {
		t.Fatalf("got headers %#v", block.Headers)
	}
	if !bytes.Equal(block.Body, data) {
		t.Fatalf("round-tripped body mismatch")
	}
}

func TestDecodeRejectsBadChecksum(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, TypeMessage, nil, []byte("hello")); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	armored := strings.Replace(buf.String(), "=", "=A", 1)

	_, err := Decode(strings.NewReader(armored))
	if err == nil {
		t.Fatal("expected a CRC mismatch to be rejected")
	}
	if _, ok := err.(errors.ChecksumError); !ok {
		// A single extra "=A" byte may also corrupt the base64 payload
		// itself rather than just the trailing checksum line; either
		// way Decode must not return a Block.
		if _, ok := err.(errors.StructuralError); !ok {
			t.Fatalf("expected ChecksumError or StructuralError, got %T: %v", err, err)
		}
	}
}

func TestDecodeNoArmorHeader(t *testing.T) {
	_, err := Decode(strings.NewReader("just some plain text\nwith no armor\n"))
	if _, ok := err.(errors.StructuralError); !ok {
		t.Fatalf("expected StructuralError, got %T: %v", err, err)
	}
}

func TestDecodeUnterminatedBlock(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, TypeMessage, nil, []byte("hello")); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	truncated := strings.Split(buf.String(), "-----END")[0]

	_, err := Decode(strings.NewReader(truncated))
	if _, ok := err.(errors.StructuralError); !ok {
		t.Fatalf("expected StructuralError, got %T: %v", err, err)
	}
}
