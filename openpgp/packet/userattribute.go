package packet

import (
	"bytes"
	"io"
)

// UserAttribute represents an RFC 4880 §5.12 User Attribute packet: a
// sequence of subpackets, in practice almost always a single JPEG
// image subpacket (type 1).
type UserAttribute struct {
	Contents []byte // raw subpacket area, round-tripped opaquely
}

func (ua *UserAttribute) parse(r io.Reader) (err error) {
	ua.Contents, err = io.ReadAll(r)
	return err
}

func (ua *UserAttribute) Serialize(w io.Writer) error {
	return serializeToBuffer(w, TagUserAttribute, func(buf *bytes.Buffer) error {
		_, err := buf.Write(ua.Contents)
		return err
	})
}

// SignatureTargetBytes mirrors UserId.SignatureTargetBytes for
// certifications issued over a user-attribute instead of a user-id:
// 0xd1 || 4-byte length || subpacket bytes (RFC 4880 §5.2.4).
func (ua *UserAttribute) SignatureTargetBytes() []byte {
	var out bytes.Buffer
	out.WriteByte(0xd1)
	var lenBuf [4]byte
	putUint32(lenBuf[:], uint32(len(ua.Contents)))
	out.Write(lenBuf[:])
	out.Write(ua.Contents)
	return out.Bytes()
}
