// Package encoding implements the low-level integer encodings used
// throughout the OpenPGP wire format: multiprecision integers (MPI) and
// fixed-length octet strings.
package encoding

import (
	"encoding/binary"
	"io"
	"math/big"

	"github.com/nguyennv/gopg/openpgp/errors"
)

// MPI represents a multiprecision integer as it travels on the wire: a
// 16-bit big-endian bit count followed by the big-endian byte string
// for the value. The bit count excludes the leading zero bits of the
// first byte; NewMPI and NewMPIFromBig store the minimal byte string,
// with no leading 0x00 bytes.
type MPI struct {
	bytes    []byte
	bitCount uint16
}

// NewMPI builds an MPI from a big-endian byte string, computing the bit
// count from the value's actual magnitude.
func NewMPI(b []byte) *MPI {
	b = trimLeadingZeroBytes(b)
	bits := uint16(len(b) * 8)
	if len(b) > 0 {
		bits -= 8
		firstByte := b[0]
		for firstByte != 0 {
			firstByte >>= 1
			bits++
		}
	}
	return &MPI{bytes: b, bitCount: bits}
}

// NewMPIFromBig builds an MPI from a math/big.Int.
func NewMPIFromBig(v *big.Int) *MPI {
	return &MPI{bytes: v.Bytes(), bitCount: uint16(v.BitLen())}
}

func trimLeadingZeroBytes(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] == 0 {
		i++
	}
	return b[i:]
}

// Bytes returns the big-endian value bytes (no length prefix).
func (m *MPI) Bytes() []byte { return m.bytes }

// BitLength returns the number of significant bits, as encoded on the wire.
func (m *MPI) BitLength() uint16 { return m.bitCount }

// ByteLength returns ceil(bits/8), the number of value bytes.
func (m *MPI) ByteLength() int { return (int(m.bitCount) + 7) / 8 }

// Big returns the value as a math/big.Int.
func (m *MPI) Big() *big.Int { return new(big.Int).SetBytes(m.bytes) }

// EncodedBytes returns the full wire encoding: 2-byte bit count plus
// value bytes.
func (m *MPI) EncodedBytes() []byte {
	out := make([]byte, 2+len(m.bytes))
	binary.BigEndian.PutUint16(out, m.bitCount)
	copy(out[2:], m.bytes)
	return out
}

// EncodedLength returns the length of EncodedBytes() without allocating.
func (m *MPI) EncodedLength() int { return 2 + len(m.bytes) }

// Encode writes the wire form of m to w.
func (m *MPI) Encode(w io.Writer) error {
	_, err := w.Write(m.EncodedBytes())
	return err
}

// ReadMPI parses one MPI from r.
func ReadMPI(r io.Reader) (*MPI, error) {
	var lenBytes [2]byte
	if _, err := io.ReadFull(r, lenBytes[:]); err != nil {
		return nil, err
	}
	bitCount := binary.BigEndian.Uint16(lenBytes[:])
	byteCount := (int(bitCount) + 7) / 8
	if byteCount > (1<<17)/8 {
		return nil, errors.StructuralError("MPI too large")
	}
	buf := make([]byte, byteCount)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return &MPI{bytes: buf, bitCount: bitCount}, nil
}

// OctetString represents a raw fixed-length octet string used by the
// modern RFC 9580 algorithms (X25519/X448/Ed25519/Ed448), which are
// encoded without an MPI-style bit-count prefix when used as native
// v6-style parameters, but as length-prefixed strings when embedded in
// v4 signature/session-key material per RFC 9580 §5.5.5. ReadOctets
// reads exactly n raw bytes (no prefix); ReadLengthPrefixedOctets reads
// a 1-byte length followed by that many bytes.
type OctetString struct {
	bytes []byte
}

func NewOctetString(b []byte) *OctetString { return &OctetString{bytes: b} }

func (o *OctetString) Bytes() []byte { return o.bytes }

func ReadOctets(r io.Reader, n int) (*OctetString, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return &OctetString{bytes: buf}, nil
}

func ReadLengthPrefixedOctets(r io.Reader) (*OctetString, error) {
	var lenByte [1]byte
	if _, err := io.ReadFull(r, lenByte[:]); err != nil {
		return nil, err
	}
	buf := make([]byte, lenByte[0])
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return &OctetString{bytes: buf}, nil
}

func WriteLengthPrefixedOctets(w io.Writer, b []byte) error {
	if len(b) > 255 {
		return errors.StructuralError("octet string too long for 1-byte length prefix")
	}
	if _, err := w.Write([]byte{byte(len(b))}); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}
