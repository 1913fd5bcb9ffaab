package packet

import (
	"bytes"
	"io"

	gopgp_crypto "github.com/nguyennv/gopg/openpgp/crypto"
	"github.com/nguyennv/gopg/openpgp/errors"
)

// OnePassSignature represents an RFC 4880 §5.4 One-Pass Signature
// packet: it precedes the literal data in a signed message so a
// streaming verifier knows what to hash before it has seen the
// trailing Signature packet.
type OnePassSignature struct {
	Version    int
	SigType    SignatureType
	Hash       gopgp_crypto.Hash
	PubKeyAlgo gopgp_crypto.PublicKeyAlgorithm
	KeyId      uint64
	IsLast     bool
}

func (ops *OnePassSignature) parse(r io.Reader) error {
	var buf [13]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	ops.Version = int(buf[0])
	if ops.Version != 3 {
		return errors.UnsupportedError("one-pass signature version")
	}
	ops.SigType = SignatureType(buf[1])
	ops.Hash = gopgp_crypto.Hash(buf[2])
	ops.PubKeyAlgo = gopgp_crypto.PublicKeyAlgorithm(buf[3])
	ops.KeyId = beUint64(buf[4:12])
	ops.IsLast = buf[12] != 0
	return nil
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

// Serialize writes the one-pass-signature packet.
func (ops *OnePassSignature) Serialize(w io.Writer) error {
	return serializeToBuffer(w, TagOnePassSignature, func(buf *bytes.Buffer) error {
		buf.WriteByte(3)
		buf.WriteByte(byte(ops.SigType))
		buf.WriteByte(byte(ops.Hash))
		buf.WriteByte(byte(ops.PubKeyAlgo))
		var keyID [8]byte
		putUint64(keyID[:], ops.KeyId)
		buf.Write(keyID[:])
		if ops.IsLast {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		return nil
	})
}

func putUint64(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}
