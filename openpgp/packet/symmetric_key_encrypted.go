package packet

import (
	"bytes"
	"io"

	gopgp_crypto "github.com/nguyennv/gopg/openpgp/crypto"
	"github.com/nguyennv/gopg/openpgp/errors"
	"github.com/nguyennv/gopg/openpgp/s2k"
)

// SymmetricKeyEncrypted represents an RFC 4880/9580 §5.3 Symmetric-Key
// Encrypted Session Key packet: a passphrase-derived key, optionally
// wrapping an independently chosen session key.
type SymmetricKeyEncrypted struct {
	Version  int // 4 or 6
	Cipher   gopgp_crypto.CipherFunction
	AEADMode gopgp_crypto.AEADMode // v6 only
	Params   *s2k.Params

	// v6 carries an explicit AEAD starting IV; v4's "IV" is implicitly
	// all-zero for its CFB-wrapped session key.
	IV []byte

	// EncryptedSessionKey is present when the S2K-derived key wraps a
	// distinct session key rather than being used directly as one; nil
	// means "derived key is the session key" (only valid for v4).
	EncryptedSessionKey []byte
}

func (s *SymmetricKeyEncrypted) parse(r io.Reader) error {
	verByte, err := readByte(r)
	if err != nil {
		return err
	}
	s.Version = int(verByte)

	switch s.Version {
	case 4:
		cipherByte, err := readByte(r)
		if err != nil {
			return err
		}
		s.Cipher = gopgp_crypto.CipherFunction(cipherByte)
		s.Params, err = s2k.Parse(r, hashByID)
		if err != nil {
			return err
		}
		rest, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		if len(rest) > 0 {
			s.EncryptedSessionKey = rest
		}
		return nil
	case 6:
		// octet count: as Serialize writes it, the length of the
		// cipher, AEAD mode, S2K and IV fields plus one for the count
		// itself; the packet framing already bounds body, so it is
		// consumed and not otherwise used.
		if _, err := readByte(r); err != nil {
			return err
		}
		cipherByte, err := readByte(r)
		if err != nil {
			return err
		}
		s.Cipher = gopgp_crypto.CipherFunction(cipherByte)
		aeadByte, err := readByte(r)
		if err != nil {
			return err
		}
		s.AEADMode = gopgp_crypto.AEADMode(aeadByte)
		s.Params, err = s2k.Parse(r, hashByID)
		if err != nil {
			return err
		}
		s.IV = make([]byte, aeadNonceSize(s.AEADMode))
		if _, err := io.ReadFull(r, s.IV); err != nil {
			return err
		}
		rest, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		s.EncryptedSessionKey = rest
		return nil
	default:
		return errors.UnsupportedError("symmetric-key encrypted session key version")
	}
}

// Serialize writes the SKESK packet.
func (s *SymmetricKeyEncrypted) Serialize(w io.Writer) error {
	return serializeToBuffer(w, TagSymmetricKeyEncryptedSession, func(buf *bytes.Buffer) error {
		buf.WriteByte(byte(s.Version))
		switch s.Version {
		case 4:
			buf.WriteByte(byte(s.Cipher))
			if err := s.Params.Serialize(buf); err != nil {
				return err
			}
			buf.Write(s.EncryptedSessionKey)
			return nil
		case 6:
			body := new(bytes.Buffer)
			body.WriteByte(byte(s.Cipher))
			body.WriteByte(byte(s.AEADMode))
			if err := s.Params.Serialize(body); err != nil {
				return err
			}
			body.Write(s.IV)
			buf.WriteByte(byte(1 + body.Len())) // octet count includes the cipher/aead/s2k/iv fields and itself
			buf.Write(body.Bytes())
			buf.Write(s.EncryptedSessionKey)
			return nil
		default:
			return errors.UnsupportedError("symmetric-key encrypted session key version for encoding")
		}
	})
}

// DeriveSessionKey recovers the message session key (algo-prefixed for
// v4 when wrapping, raw for v6) by deriving the S2K key from passphrase
// and, if EncryptedSessionKey is present, unwrapping it.
func (s *SymmetricKeyEncrypted) DeriveSessionKey(provider gopgp_crypto.Provider, passphrase []byte) ([]byte, gopgp_crypto.CipherFunction, error) {
	derived, err := s.Params.Key(passphrase, s.Cipher.KeySize())
	if err != nil {
		return nil, 0, err
	}
	if len(s.EncryptedSessionKey) == 0 {
		return derived, s.Cipher, nil
	}
	switch s.Version {
	case 4:
		iv := make([]byte, s.Cipher.BlockSize())
		stream, err := provider.NewCFBDecryptStream(s.Cipher, derived, iv)
		if err != nil {
			return nil, 0, err
		}
		out := make([]byte, len(s.EncryptedSessionKey))
		stream.XORKeyStream(out, s.EncryptedSessionKey)
		if len(out) < 1 {
			return nil, 0, errors.StructuralError("truncated wrapped session key")
		}
		return out[1:], gopgp_crypto.CipherFunction(out[0]), nil
	case 6:
		aad := []byte{0xc0 | 3, byte(s.Version), byte(s.Cipher), byte(s.AEADMode)}
		out, err := provider.Open(s.AEADMode, s.Cipher, derived, s.IV, aad, s.EncryptedSessionKey)
		if err != nil {
			return nil, 0, errors.ErrSessionKeyDecryptionFailed
		}
		return out, s.Cipher, nil
	default:
		return nil, 0, errors.UnsupportedError("symmetric-key encrypted session key version")
	}
}
