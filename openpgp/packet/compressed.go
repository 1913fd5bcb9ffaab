package packet

import (
	"bytes"
	"compress/bzip2"
	"compress/flate"
	"compress/zlib"
	"io"

	"github.com/nguyennv/gopg/openpgp/errors"
)

// CompressionAlgo identifies an RFC 4880 §9.3 compression algorithm.
type CompressionAlgo uint8

const (
	CompressionNone CompressionAlgo = 0
	CompressionZIP  CompressionAlgo = 1
	CompressionZLIB CompressionAlgo = 2
	CompressionBZIP2 CompressionAlgo = 3
)

// CompressedData represents an RFC 4880 §5.6 Compressed Data packet.
// The body is itself a nested OpenPGP packet stream.
type CompressedData struct {
	Algo CompressionAlgo
	Body io.Reader
}

func (c *CompressedData) parse(r io.Reader) error {
	var algoByte [1]byte
	if _, err := io.ReadFull(r, algoByte[:]); err != nil {
		return err
	}
	c.Algo = CompressionAlgo(algoByte[0])
	switch c.Algo {
	case CompressionNone:
		c.Body = r
	case CompressionZIP:
		c.Body = flate.NewReader(r)
	case CompressionZLIB:
		zr, err := zlib.NewReader(r)
		if err != nil {
			return err
		}
		c.Body = zr
	case CompressionBZIP2:
		c.Body = bzip2.NewReader(r)
	default:
		return errors.UnsupportedError("compression algorithm")
	}
	return nil
}

// WriteCompressed compresses plaintext (a fully serialized inner
// packet stream) with algo and emits a compressed-data packet. BZIP2
// has no compressor in the Go standard library or in any pack
// dependency (Go's compress/bzip2 is decode-only); requesting it here
// returns UnsupportedError, matching §4.8's preference list, which
// still advertises bzip2 for interoperating with peers that compress.
func WriteCompressed(w io.Writer, algo CompressionAlgo, plaintext []byte) error {
	return serializeToBuffer(w, TagCompressedData, func(buf *bytes.Buffer) error {
		buf.WriteByte(byte(algo))
		switch algo {
		case CompressionNone:
			buf.Write(plaintext)
			return nil
		case CompressionZIP:
			fw, err := flate.NewWriter(buf, flate.DefaultCompression)
			if err != nil {
				return err
			}
			if _, err := fw.Write(plaintext); err != nil {
				return err
			}
			return fw.Close()
		case CompressionZLIB:
			zw := zlib.NewWriter(buf)
			if _, err := zw.Write(plaintext); err != nil {
				return err
			}
			return zw.Close()
		default:
			return errors.UnsupportedError("compression algorithm for encoding")
		}
	})
}
