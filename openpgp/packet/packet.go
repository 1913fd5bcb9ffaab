// Package packet implements parsing and serialization of OpenPGP
// packets, RFC 4880 and RFC 9580.
package packet

import (
	"bytes"
	"io"

	"github.com/nguyennv/gopg/openpgp/errors"
)

// Tag identifies an OpenPGP packet type (RFC 4880 §4.3, RFC 9580 §5.2).
type Tag uint8

const (
	TagPublicKeyEncryptedSessionKey Tag = 1
	TagSignature                    Tag = 2
	TagSymmetricKeyEncryptedSession Tag = 3
	TagOnePassSignature             Tag = 4
	TagSecretKey                    Tag = 5
	TagPublicKey                    Tag = 6
	TagSecretSubkey                 Tag = 7
	TagCompressedData               Tag = 8
	TagSymmetricallyEncrypted       Tag = 9
	TagMarker                       Tag = 10
	TagLiteralData                  Tag = 11
	TagTrust                        Tag = 12
	TagUserId                       Tag = 13
	TagPublicSubkey                 Tag = 14
	TagUserAttribute                Tag = 17
	TagSymmetricallyEncryptedIntegrityProtected Tag = 18
	TagModificationDetectionCode                Tag = 19
	TagPadding                                  Tag = 21
)

// Packet represents an OpenPGP packet. Implementations know how to
// parse their body from a length-delimited reader and serialize
// themselves back to the wire, satisfying decode(encode(x)) == x.
type Packet interface {
	parse(io.Reader) error
}

// packetLengthReader limits reads to one packet body, fetching the
// next partial-length chunk through nextPartialFunc when the current
// one is used up.
type packetLengthReader struct {
	r               io.Reader
	remaining       int64
	isPartial       bool
	nextPartialFunc func() (int64, bool, error)
}

func (r *packetLengthReader) Read(p []byte) (n int, err error) {
	for r.remaining == 0 {
		if !r.isPartial {
			return 0, io.EOF
		}
		length, isPartial, err := r.nextPartialFunc()
		if err != nil {
			// The stream ended while a partial-length chunk sequence
			// was still open, i.e. before the terminating final-length
			// chunk arrived. That's a truncated packet, not a clean
			// end of stream, so callers like io.ReadAll must not see
			// a bare io.EOF and mistake it for success.
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return 0, errors.StructuralError("partial length chunk sequence truncated before terminator")
			}
			return 0, err
		}
		r.remaining = length
		r.isPartial = isPartial
	}
	toRead := int64(len(p))
	if toRead > r.remaining {
		toRead = r.remaining
	}
	n, err = r.r.Read(p[:toRead])
	r.remaining -= int64(n)
	if n != int(toRead) && err == nil {
		err = io.ErrUnexpectedEOF
	}
	return
}

// readHeader parses one packet header (old or new format, including
// new-format partial-length continuation) and returns the packet tag
// plus a reader bounded to exactly that packet's (possibly
// reassembled) body.
func readHeader(r io.Reader) (tag Tag, body io.Reader, err error) {
	var buf [4]byte
	if _, err = io.ReadFull(r, buf[:1]); err != nil {
		return 0, nil, err
	}
	if buf[0]&0x80 == 0 {
		return 0, nil, errors.StructuralError("tag byte does not have MSB set")
	}
	if buf[0]&0x40 != 0 {
		// New format.
		tag = Tag(buf[0] & 0x3f)
		var length int64
		var partial bool
		length, partial, err = readNewLength(r)
		if err != nil {
			return 0, nil, err
		}
		pr := &packetLengthReader{r: r, remaining: length, isPartial: partial}
		if partial {
			pr.nextPartialFunc = func() (int64, bool, error) { return readNewLength(r) }
		}
		return tag, pr, nil
	}
	// Old format.
	tag = Tag((buf[0] >> 2) & 0xf)
	lengthType := buf[0] & 3
	switch lengthType {
	case 0:
		if _, err = io.ReadFull(r, buf[:1]); err != nil {
			return 0, nil, err
		}
		return tag, io.LimitReader(r, int64(buf[0])), nil
	case 1:
		if _, err = io.ReadFull(r, buf[:2]); err != nil {
			return 0, nil, err
		}
		return tag, io.LimitReader(r, int64(buf[0])<<8|int64(buf[1])), nil
	case 2:
		if _, err = io.ReadFull(r, buf[:4]); err != nil {
			return 0, nil, err
		}
		n := int64(buf[0])<<24 | int64(buf[1])<<16 | int64(buf[2])<<8 | int64(buf[3])
		return tag, io.LimitReader(r, n), nil
	case 3:
		return tag, r, nil // indeterminate length: read until EOF
	}
	return 0, nil, errors.StructuralError("unreachable length type")
}

// readNewLength reads one new-format length field, returning whether
// it denotes a partial-length chunk (RFC 4880 §4.2.2.4).
func readNewLength(r io.Reader) (length int64, isPartial bool, err error) {
	var first [1]byte
	if _, err = io.ReadFull(r, first[:]); err != nil {
		return 0, false, err
	}
	switch {
	case first[0] < 192:
		return int64(first[0]), false, nil
	case first[0] < 224:
		var second [1]byte
		if _, err = io.ReadFull(r, second[:]); err != nil {
			return 0, false, err
		}
		return (int64(first[0])-192)<<8 + int64(second[0]) + 192, false, nil
	case first[0] == 255:
		var buf [4]byte
		if _, err = io.ReadFull(r, buf[:]); err != nil {
			return 0, false, err
		}
		return int64(buf[0])<<24 | int64(buf[1])<<16 | int64(buf[2])<<8 | int64(buf[3]), false, nil
	default:
		// Partial body length: 224..254, body length = 1 << (octet & 0x1f).
		return int64(1) << (first[0] & 0x1f), true, nil
	}
}

// writeNewFormatHeader emits the packet's new-format header with a
// single length chunk (never partial), matching the "always emit
// new-format" rule in §4.2.
func writeNewFormatHeader(w io.Writer, tag Tag, length int) error {
	var buf [6]byte
	buf[0] = 0x80 | 0x40 | byte(tag)
	n := 1
	switch {
	case length < 192:
		buf[1] = byte(length)
		n = 2
	case length < 8384:
		adj := length - 192
		buf[1] = byte((adj >> 8) + 192)
		buf[2] = byte(adj)
		n = 3
	default:
		buf[1] = 255
		buf[2] = byte(length >> 24)
		buf[3] = byte(length >> 16)
		buf[4] = byte(length >> 8)
		buf[5] = byte(length)
		n = 6
	}
	_, err := w.Write(buf[:n])
	return err
}

// serializeToBuffer renders a packet's body via fn, then emits the
// complete wire packet (header + body) to w.
func serializeToBuffer(w io.Writer, tag Tag, fn func(*bytes.Buffer) error) error {
	var body bytes.Buffer
	if err := fn(&body); err != nil {
		return err
	}
	if err := writeNewFormatHeader(w, tag, body.Len()); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

// Opaque is the fallback representation for a packet whose tag is
// recognized but whose body the engine doesn't interpret (or that is
// deliberately kept as raw bytes, e.g. the Marker and Padding packets).
// It round-trips exactly.
type Opaque struct {
	Tag      Tag
	Contents []byte
}

func (o *Opaque) parse(r io.Reader) (err error) {
	o.Contents, err = io.ReadAll(r)
	return err
}

func (o *Opaque) Serialize(w io.Writer) error {
	return serializeToBuffer(w, o.Tag, func(b *bytes.Buffer) error {
		_, err := b.Write(o.Contents)
		return err
	})
}

// newPacketFor allocates the zero value for a recognized tag, or nil
// if the tag is unknown (falls back to Opaque).
func newPacketFor(tag Tag) Packet {
	switch tag {
	case TagPublicKeyEncryptedSessionKey:
		return new(EncryptedKey)
	case TagSignature:
		return new(Signature)
	case TagSymmetricKeyEncryptedSession:
		return new(SymmetricKeyEncrypted)
	case TagOnePassSignature:
		return new(OnePassSignature)
	case TagSecretKey, TagSecretSubkey:
		return new(PrivateKey)
	case TagPublicKey, TagPublicSubkey:
		return new(PublicKey)
	case TagCompressedData:
		return new(CompressedData)
	case TagSymmetricallyEncrypted:
		return &SymmetricallyEncrypted{Tag: TagSymmetricallyEncrypted}
	case TagLiteralData:
		return new(LiteralData)
	case TagUserId:
		return new(UserId)
	case TagUserAttribute:
		return new(UserAttribute)
	case TagSymmetricallyEncryptedIntegrityProtected:
		return &SymmetricallyEncrypted{Tag: TagSymmetricallyEncryptedIntegrityProtected}
	default:
		return nil
	}
}

// Read parses a single packet from r, dispatching on its tag. Unknown
// tags and tags this engine intentionally treats as opaque (Marker,
// Trust, Padding, MDC-as-standalone) come back as *Opaque.
func Read(r io.Reader) (p Packet, err error) {
	tag, body, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	switch tag {
	case TagSecretKey:
		pk := &PrivateKey{}
		p = pk
	case TagSecretSubkey:
		pk := &PrivateKey{}
		pk.PublicKey.IsSubkey = true
		p = pk
	case TagPublicKey:
		p = &PublicKey{}
	case TagPublicSubkey:
		p = &PublicKey{IsSubkey: true}
	case TagSymmetricallyEncrypted, TagSymmetricallyEncryptedIntegrityProtected:
		p = &SymmetricallyEncrypted{Tag: tag}
	case TagMarker, TagTrust, TagPadding, TagModificationDetectionCode:
		p = &Opaque{Tag: tag}
	default:
		p = newPacketFor(tag)
		if p == nil {
			p = &Opaque{Tag: tag}
		}
	}
	err = p.parse(body)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return p, err
}

// Reader reads a sequence of packets, such as an armor-decoded OpenPGP
// message or transferable key.
type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader { return &Reader{r: r} }

// Next returns the next packet, or io.EOF when the stream is exhausted.
func (r *Reader) Next() (Packet, error) {
	p, err := Read(r.r)
	if err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, err
		}
		return nil, err
	}
	return p, nil
}

// ReadAll consumes the full stream into a packet list, preserving order.
func ReadAll(r io.Reader) ([]Packet, error) {
	var out []Packet
	pr := NewReader(r)
	for {
		p, err := pr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
}
