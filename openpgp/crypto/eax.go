package crypto

import (
	"crypto/cipher"
	"crypto/subtle"

	"github.com/nguyennv/gopg/openpgp/errors"
)

// eaxAEAD implements EAX mode (Bellare, Rogaway, Wagner) over a 128-bit
// block cipher, as RFC 9580 §5.13.2 requires. Like OCB, no pack example
// vendors a ready-made EAX package, so this composes CTR encryption
// with an OMAC1/CMAC authenticator built from the same cipher.Block —
// again mode plumbing, not a primitive reimplementation.
type eaxAEAD struct {
	block cipher.Block
	bs    int
}

func newEAX(block cipher.Block) (cipher.AEAD, error) {
	if block.BlockSize() != 16 {
		return nil, errors.UnsupportedError("EAX requires a 128-bit block cipher")
	}
	return &eaxAEAD{block: block, bs: block.BlockSize()}, nil
}

func (e *eaxAEAD) NonceSize() int { return 16 }
func (e *eaxAEAD) Overhead() int  { return 16 }

// omac1 computes the one-key CMAC of msg tweaked with the integer t,
// per the OMAC1 construction EAX specifies.
func (e *eaxAEAD) omac1(t int, msg []byte) []byte {
	bs := e.bs
	zero := make([]byte, bs)
	l := make([]byte, bs)
	e.block.Encrypt(l, zero)
	k1 := double(l)
	k2 := double(k1)

	var padded []byte
	complete := len(msg) > 0 && len(msg)%bs == 0
	if complete {
		padded = append(padded, msg...)
		xorBytes(padded[len(padded)-bs:], padded[len(padded)-bs:], k1)
	} else {
		padded = append(padded, msg...)
		padded = append(padded, 0x80)
		for len(padded)%bs != 0 {
			padded = append(padded, 0x00)
		}
		xorBytes(padded[len(padded)-bs:], padded[len(padded)-bs:], k2)
	}

	prev := make([]byte, bs)
	prev[bs-1] = byte(t)
	e.block.Encrypt(prev, prev)
	for i := 0; i < len(padded); i += bs {
		block := make([]byte, bs)
		xorBytes(block, prev, padded[i:i+bs])
		e.block.Encrypt(block, block)
		prev = block
	}
	return prev
}

func (e *eaxAEAD) ctr(nonce []byte, in []byte) []byte {
	stream := cipher.NewCTR(e.block, nonce)
	out := make([]byte, len(in))
	stream.XORKeyStream(out, in)
	return out
}

func (e *eaxAEAD) Seal(dst, nonce, plaintext, aad []byte) []byte {
	n := e.omac1(0, nonce)
	h := e.omac1(1, aad)
	ct := e.ctr(n, plaintext)
	c := e.omac1(2, ct)
	tag := make([]byte, e.bs)
	xorBytes(tag, n, h)
	xorBytes(tag, tag, c)
	ret := append(dst, ct...)
	ret = append(ret, tag...)
	return ret
}

func (e *eaxAEAD) Open(dst, nonce, ciphertext, aad []byte) ([]byte, error) {
	if len(ciphertext) < e.bs {
		return nil, errors.StructuralError("EAX ciphertext too short")
	}
	ct := ciphertext[:len(ciphertext)-e.bs]
	gotTag := ciphertext[len(ciphertext)-e.bs:]

	n := e.omac1(0, nonce)
	h := e.omac1(1, aad)
	c := e.omac1(2, ct)
	tag := make([]byte, e.bs)
	xorBytes(tag, n, h)
	xorBytes(tag, tag, c)

	if subtle.ConstantTimeCompare(tag, gotTag) != 1 {
		return nil, errors.SignatureError("EAX authentication failed")
	}
	pt := e.ctr(n, ct)
	return append(dst, pt...), nil
}
