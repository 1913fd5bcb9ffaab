package packet

import (
	"encoding/binary"
	"io"

	"github.com/nguyennv/gopg/openpgp/internal/encoding"
)

func putUint32(b []byte, v uint32) { binary.BigEndian.PutUint32(b, v) }
func putUint16(b []byte, v uint16) { binary.BigEndian.PutUint16(b, v) }

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readUint16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func readMPI(r io.Reader) (*encoding.MPI, error) { return encoding.ReadMPI(r) }

func checksumKeyMaterial(b []byte) uint16 {
	var sum uint16
	for _, v := range b {
		sum += uint16(v)
	}
	return sum
}
