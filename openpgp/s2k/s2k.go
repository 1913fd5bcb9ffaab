// Package s2k implements the String-to-Key derivation functions used to
// turn a passphrase into a symmetric key: RFC 4880 §3.7's Simple,
// Salted and Iterated-Salted variants, and RFC 9580's Argon2id variant.
package s2k

import (
	"hash"
	"io"

	"golang.org/x/crypto/argon2"

	"github.com/nguyennv/gopg/openpgp/errors"
)

// Mode is the S2K specifier type octet.
type Mode uint8

const (
	ModeSimple   Mode = 0
	ModeSalted   Mode = 1
	ModeIterated Mode = 3
	ModeArgon2   Mode = 4
)

// HashFunc returns a hash.Hash constructor for a given RFC 4880 hash
// algorithm id. The core does not implement hash primitives itself; it
// is handed constructors the same way the teacher package is (via
// crypto.Hash.New after crypto.Hash.Available()), so this indirection
// lives in the s2k package only to keep it independent of the packet
// package's algorithm-id table.
type HashFunc func() hash.Hash

// Params is a fully decoded S2K specifier: the on-wire salt/count/
// Argon2 parameters plus the mode and (for non-Argon2 modes) a hash
// constructor supplied by the caller.
type Params struct {
	Mode Mode

	// Simple, Salted, Iterated
	Hash     HashFunc
	HashID   byte
	Salt     []byte // 8 bytes for Salted/Iterated
	CountLog byte   // coded iteration count (Iterated only)

	// Argon2
	Argon2Salt  []byte // 16 bytes
	Passes      byte
	Parallelism byte
	MemExpOctet byte
}

// DecodedCount returns the actual byte count an Iterated S2K consumes,
// per RFC 4880 §3.7.1.3: (16 + (c & 15)) << ((c >> 4) + 6).
func DecodedCount(c byte) int {
	return (16 + int(c&15)) << (uint(c>>4) + 6)
}

// EncodeCount picks the coded octet whose decoded value is >= want,
// rounding up to the next representable count.
func EncodeCount(want int) byte {
	if want < 1024 {
		return 0
	}
	if want > 0x3e00000 {
		return 255
	}
	var c int
	for c = 0; c < 256; c++ {
		if DecodedCount(byte(c)) >= want {
			break
		}
	}
	return byte(c)
}

// Key derives an L-byte key from passphrase P per the decoded Params.
func (p *Params) Key(passphrase []byte, length int) ([]byte, error) {
	switch p.Mode {
	case ModeSimple, ModeSalted, ModeIterated:
		return p.legacyKey(passphrase, length)
	case ModeArgon2:
		return p.argon2Key(passphrase, length)
	default:
		return nil, errors.UnsupportedError("S2K mode")
	}
}

func (p *Params) legacyKey(passphrase []byte, length int) ([]byte, error) {
	if p.Hash == nil {
		return nil, errors.UnsupportedError("S2K hash algorithm")
	}
	if p.Mode != ModeSimple && len(p.Salt) != 8 {
		return nil, errors.StructuralError("S2K salt must be 8 bytes")
	}

	out := make([]byte, 0, length)
	for zeros := 0; len(out) < length; zeros++ {
		h := p.Hash()
		for i := 0; i < zeros; i++ {
			h.Write([]byte{0})
		}
		switch p.Mode {
		case ModeSimple:
			h.Write(passphrase)
		case ModeSalted:
			h.Write(p.Salt)
			h.Write(passphrase)
		case ModeIterated:
			combined := make([]byte, 0, len(p.Salt)+len(passphrase))
			combined = append(combined, p.Salt...)
			combined = append(combined, passphrase...)
			count := DecodedCount(p.CountLog)
			if count < len(combined) {
				count = len(combined)
			}
			written := 0
			for written+len(combined) <= count {
				h.Write(combined)
				written += len(combined)
			}
			if tail := count - written; tail > 0 {
				h.Write(combined[:tail])
			}
		}
		out = append(out, h.Sum(nil)...)
	}
	return out[:length], nil
}

func (p *Params) argon2Key(passphrase []byte, length int) ([]byte, error) {
	if len(p.Argon2Salt) == 0 {
		return nil, errors.InvalidArgumentError("Argon2 S2K requires a non-empty salt")
	}
	if len(p.Argon2Salt) != 16 {
		return nil, errors.StructuralError("Argon2 salt must be 16 bytes")
	}
	memKiB := uint32(1) << p.MemExpOctet
	return argon2.IDKey(passphrase, p.Argon2Salt, uint32(p.Passes), memKiB, uint8(p.Parallelism), uint32(length)), nil
}

// Serialize writes the S2K specifier (type byte + parameters, NOT the
// derived key) to w, per RFC 4880 §3.7.1 / RFC 9580 §3.7.1.4.
func (p *Params) Serialize(w io.Writer) error {
	if _, err := w.Write([]byte{byte(p.Mode)}); err != nil {
		return err
	}
	switch p.Mode {
	case ModeSimple:
		_, err := w.Write([]byte{p.HashID})
		return err
	case ModeSalted:
		if _, err := w.Write([]byte{p.HashID}); err != nil {
			return err
		}
		_, err := w.Write(p.Salt)
		return err
	case ModeIterated:
		if _, err := w.Write([]byte{p.HashID}); err != nil {
			return err
		}
		if _, err := w.Write(p.Salt); err != nil {
			return err
		}
		_, err := w.Write([]byte{p.CountLog})
		return err
	case ModeArgon2:
		if _, err := w.Write(p.Argon2Salt); err != nil {
			return err
		}
		_, err := w.Write([]byte{p.Passes, p.Parallelism, p.MemExpOctet})
		return err
	default:
		return errors.UnsupportedError("S2K mode")
	}
}

// EncodedLength returns the byte length of Serialize's output.
func (p *Params) EncodedLength() int {
	switch p.Mode {
	case ModeSimple:
		return 2
	case ModeSalted:
		return 2 + 8
	case ModeIterated:
		return 2 + 8 + 1
	case ModeArgon2:
		return 1 + 16 + 3
	default:
		return 1
	}
}

// Parse reads an S2K specifier from r. hashByID resolves an RFC 4880
// hash algorithm octet to a constructor (nil if unknown, in which case
// Key will later fail with UnsupportedError rather than here, mirroring
// the "version as data" design note: unknown ids still parse).
func Parse(r io.Reader, hashByID func(byte) HashFunc) (*Params, error) {
	var modeByte [1]byte
	if _, err := io.ReadFull(r, modeByte[:]); err != nil {
		return nil, err
	}
	p := &Params{Mode: Mode(modeByte[0])}
	switch p.Mode {
	case ModeSimple:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		p.HashID = b[0]
		p.Hash = hashByID(b[0])
	case ModeSalted:
		var b [1 + 8]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		p.HashID = b[0]
		p.Hash = hashByID(b[0])
		p.Salt = append([]byte(nil), b[1:]...)
	case ModeIterated:
		var b [1 + 8 + 1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		p.HashID = b[0]
		p.Hash = hashByID(b[0])
		p.Salt = append([]byte(nil), b[1:9]...)
		p.CountLog = b[9]
	case ModeArgon2:
		var b [16 + 3]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		p.Argon2Salt = append([]byte(nil), b[:16]...)
		p.Passes = b[16]
		p.Parallelism = b[17]
		p.MemExpOctet = b[18]
	default:
		return nil, errors.UnsupportedError("S2K type")
	}
	return p, nil
}

// NewIterated builds an Iterated-Salted S2K with a fresh random salt at
// the given coded byte-cost, for the caller-supplied hash algorithm.
// This is the S2K §4.6 step 2 chooses when AEAD isn't requested.
func NewIterated(rand io.Reader, hashID byte, hash HashFunc, countLog byte) (*Params, error) {
	salt := make([]byte, 8)
	if _, err := io.ReadFull(rand, salt); err != nil {
		return nil, err
	}
	return &Params{
		Mode:     ModeIterated,
		Hash:     hash,
		HashID:   hashID,
		Salt:     salt,
		CountLog: countLog,
	}, nil
}

// NewArgon2 builds an Argon2id S2K with a fresh random 16-byte salt.
func NewArgon2(rand io.Reader, passes, parallelism, memExpOctet byte) (*Params, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand, salt); err != nil {
		return nil, err
	}
	return &Params{
		Mode:        ModeArgon2,
		Argon2Salt:  salt,
		Passes:      passes,
		Parallelism: parallelism,
		MemExpOctet: memExpOctet,
	}, nil
}
