package packet

import (
	"crypto/aes"
	"encoding/binary"

	"github.com/nguyennv/gopg/openpgp/errors"
)

// aesKeyWrap/aesKeyUnwrap implement RFC 3394 AES Key Wrap, the
// construction PKESK uses to protect a session key under an ECDH- or
// X25519-derived key-encryption key (§4.7). Like the AEAD modes in the
// crypto package, this is protocol-level plumbing layered over a block
// cipher primitive, not a primitive in its own right.
var aesKeyWrapIV = [8]byte{0xa6, 0xa6, 0xa6, 0xa6, 0xa6, 0xa6, 0xa6, 0xa6}

func aesKeyWrap(kek, plaintext []byte) ([]byte, error) {
	if len(plaintext)%8 != 0 {
		return nil, errors.InvalidArgumentError("key wrap input must be a multiple of 8 bytes")
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, err
	}
	n := len(plaintext) / 8
	r := make([][8]byte, n)
	for i := 0; i < n; i++ {
		copy(r[i][:], plaintext[i*8:(i+1)*8])
	}
	var a [8]byte
	copy(a[:], aesKeyWrapIV[:])

	var buf [16]byte
	for j := 0; j <= 5; j++ {
		for i := 0; i < n; i++ {
			copy(buf[:8], a[:])
			copy(buf[8:], r[i][:])
			block.Encrypt(buf[:], buf[:])
			t := uint64(n*j + i + 1)
			var tb [8]byte
			binary.BigEndian.PutUint64(tb[:], t)
			for k := range a {
				a[k] = buf[k] ^ tb[k]
			}
			copy(r[i][:], buf[8:])
		}
	}

	out := make([]byte, 8+len(plaintext))
	copy(out[:8], a[:])
	for i := 0; i < n; i++ {
		copy(out[8+i*8:8+(i+1)*8], r[i][:])
	}
	return out, nil
}

func aesKeyUnwrap(kek, wrapped []byte) ([]byte, error) {
	if len(wrapped) < 16 || len(wrapped)%8 != 0 {
		return nil, errors.StructuralError("malformed key-wrapped data")
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, err
	}
	n := len(wrapped)/8 - 1
	var a [8]byte
	copy(a[:], wrapped[:8])
	r := make([][8]byte, n)
	for i := 0; i < n; i++ {
		copy(r[i][:], wrapped[8+i*8:8+(i+1)*8])
	}

	var buf [16]byte
	for j := 5; j >= 0; j-- {
		for i := n - 1; i >= 0; i-- {
			t := uint64(n*j + i + 1)
			var tb [8]byte
			binary.BigEndian.PutUint64(tb[:], t)
			var ax [8]byte
			for k := range ax {
				ax[k] = a[k] ^ tb[k]
			}
			copy(buf[:8], ax[:])
			copy(buf[8:], r[i][:])
			block.Decrypt(buf[:], buf[:])
			copy(a[:], buf[:8])
			copy(r[i][:], buf[8:])
		}
	}
	if a != aesKeyWrapIV {
		return nil, errors.ErrSessionKeyDecryptionFailed
	}
	out := make([]byte, n*8)
	for i := 0; i < n; i++ {
		copy(out[i*8:(i+1)*8], r[i][:])
	}
	return out, nil
}
