package packet

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/nguyennv/gopg/openpgp/errors"
)

// LiteralData represents an RFC 4880 §5.9 Literal Data packet: a
// format octet ('b' binary, 't' text, 'u' UTF-8), a filename, a
// modification time, and the literal body.
type LiteralData struct {
	Format   byte
	FileName string
	Time     uint32
	Body     io.Reader
}

// ForceTextOrUTF8 reports whether the literal's signature type should
// be Text rather than Binary, per §4.5's "selected by the literal's
// format octet" rule.
func (l *LiteralData) ForceTextOrUTF8() bool {
	return l.Format == 't' || l.Format == 'u'
}

func (l *LiteralData) parse(r io.Reader) error {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	l.Format = buf[0]
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	nameLen := int(buf[0])
	nameBuf := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBuf); err != nil {
		return err
	}
	l.FileName = string(nameBuf)
	var timeBuf [4]byte
	if _, err := io.ReadFull(r, timeBuf[:]); err != nil {
		return err
	}
	l.Time = binary.BigEndian.Uint32(timeBuf[:])
	body, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	l.Body = bytes.NewReader(body)
	return nil
}

// WriteLiteral writes a complete literal-data packet (format, file
// name, modification time and the whole of body) to w in one call,
// building it in memory with serializeToBuffer.
func WriteLiteral(w io.Writer, format byte, fileName string, modTime uint32, body []byte) error {
	if len(fileName) > 255 {
		return errors.InvalidArgumentError("literal data filename too long")
	}
	return serializeToBuffer(w, TagLiteralData, func(buf *bytes.Buffer) error {
		buf.WriteByte(format)
		buf.WriteByte(byte(len(fileName)))
		buf.WriteString(fileName)
		var t [4]byte
		binary.BigEndian.PutUint32(t[:], modTime)
		buf.Write(t[:])
		buf.Write(body)
		return nil
	})
}

// Bytes drains the literal body into memory.
func (l *LiteralData) Bytes() ([]byte, error) {
	return io.ReadAll(l.Body)
}
