package packet

import (
	"bytes"
	"io"
	"testing"

	"github.com/nguyennv/gopg/openpgp/errors"
)

func TestOpaqueRoundTrip(t *testing.T) {
	o := &Opaque{Tag: TagMarker, Contents: []byte("PGP")}
	var buf bytes.Buffer
	if err := o.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	p, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	got, ok := p.(*Opaque)
	if !ok {
		t.Fatalf("got %T, want *Opaque", p)
	}
	if got.Tag != TagMarker || !bytes.Equal(got.Contents, []byte("PGP")) {
		t.Fatalf("round-tripped Opaque mismatch: %#v", got)
	}
}

func TestReadAllPreservesOrder(t *testing.T) {
	var buf bytes.Buffer
	first := &Opaque{Tag: TagMarker, Contents: []byte("one")}
	second := &Opaque{Tag: TagPadding, Contents: []byte("two")}
	if err := first.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if err := second.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	packets, err := ReadAll(&buf)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(packets) != 2 {
		t.Fatalf("got %d packets, want 2", len(packets))
	}
	if packets[0].(*Opaque).Tag != TagMarker || packets[1].(*Opaque).Tag != TagPadding {
		t.Fatalf("ReadAll did not preserve packet order: %#v", packets)
	}
}

// A legitimate partial-length chunk sequence: a first chunk flagged
// partial, followed by a final (non-partial) chunk that terminates it.
// The reassembled body is the concatenation of both chunks' data.
func TestPartialLengthReassembly(t *testing.T) {
	var raw bytes.Buffer
	raw.WriteByte(0x80 | 0x40 | byte(TagMarker)) // new-format header
	raw.WriteByte(0xE0)                          // partial length, chunk size 1<<0 = 1
	raw.WriteByte('A')
	raw.WriteByte(0x01) // final chunk, length 1 (terminates the partial sequence)
	raw.WriteByte('B')

	p, err := Read(&raw)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	o, ok := p.(*Opaque)
	if !ok {
		t.Fatalf("got %T, want *Opaque", p)
	}
	if string(o.Contents) != "AB" {
		t.Fatalf("got %q, want %q", o.Contents, "AB")
	}
}

// A partial-length chunk sequence that ends mid-stream, before a
// terminating final-length chunk arrives, must surface as a
// StructuralError rather than being silently accepted as a complete,
// truncated packet.
func TestPartialLengthTruncationIsRejected(t *testing.T) {
	var raw bytes.Buffer
	raw.WriteByte(0x80 | 0x40 | byte(TagMarker)) // new-format header
	raw.WriteByte(0xE0)                          // partial length, chunk size 1
	raw.WriteByte('A')
	// Stream ends here: no terminating final-length chunk follows.

	_, err := Read(&raw)
	if err == nil {
		t.Fatal("expected a truncated partial-length sequence to be rejected")
	}
	if err == io.EOF {
		t.Fatal("truncated partial-length sequence must not surface as a bare io.EOF")
	}
	if _, ok := err.(errors.StructuralError); !ok {
		t.Fatalf("expected StructuralError, got %T: %v", err, err)
	}
}

func TestLiteralDataRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteLiteral(&buf, 'b', "test.txt", 12345, []byte("hello literal")); err != nil {
		t.Fatalf("WriteLiteral: %v", err)
	}

	p, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	lit, ok := p.(*LiteralData)
	if !ok {
		t.Fatalf("got %T, want *LiteralData", p)
	}
	if lit.Format != 'b' || lit.FileName != "test.txt" || lit.Time != 12345 {
		t.Fatalf("round-tripped literal header mismatch: %#v", lit)
	}
	body, err := lit.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if string(body) != "hello literal" {
		t.Fatalf("got body %q", body)
	}
}
