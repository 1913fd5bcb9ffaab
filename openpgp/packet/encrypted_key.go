package packet

import (
	"bytes"
	"crypto/ecdh"
	"io"

	gopgp_crypto "github.com/nguyennv/gopg/openpgp/crypto"
	"github.com/nguyennv/gopg/openpgp/errors"
	"github.com/nguyennv/gopg/openpgp/internal/encoding"
)

// PKESKCiphertext carries the algorithm-specific wrapped-session-key
// payload of a Public-Key Encrypted Session Key packet (§4.7).
type PKESKCiphertext struct {
	RSA *encoding.MPI

	ElGamalC1, ElGamalC2 *encoding.MPI

	ECDHEphemeral    *encoding.MPI // recipient-curve point, MPI-wrapped (algorithm 18)
	ECDHWrappedKey   []byte        // length-prefixed on the wire; stored unwrapped-of-length here

	X25519Ephemeral  [32]byte
	X25519WrappedKey []byte
}

// EncryptedKey represents an RFC 4880/9580 §5.1 Public-Key Encrypted
// Session Key packet.
type EncryptedKey struct {
	Version int // 3 or 6

	// v3 always carries an explicit 8-byte key id (0 meaning "anonymous").
	KeyId uint64

	// v6 instead carries a key-version octet (0 for anonymous) and,
	// when non-anonymous, the full fingerprint.
	KeyVersion  byte
	Fingerprint []byte

	PubKeyAlgo gopgp_crypto.PublicKeyAlgorithm
	Ciphertext PKESKCiphertext
}

func (e *EncryptedKey) parse(r io.Reader) error {
	verByte, err := readByte(r)
	if err != nil {
		return err
	}
	e.Version = int(verByte)
	switch e.Version {
	case 3:
		id, err := readUint64(r)
		if err != nil {
			return err
		}
		e.KeyId = id
	case 6:
		kv, err := readByte(r)
		if err != nil {
			return err
		}
		e.KeyVersion = kv
		if kv != 0 {
			fprLen := 20
			if kv == 6 {
				fprLen = 32
			}
			o, err := encoding.ReadOctets(r, fprLen)
			if err != nil {
				return err
			}
			e.Fingerprint = o.Bytes()
			if fprLen == 20 {
				e.KeyId = be64(e.Fingerprint[12:20])
			} else {
				e.KeyId = be64(e.Fingerprint[0:8])
			}
		}
	default:
		return errors.UnsupportedError("public-key encrypted session key version")
	}

	algoByte, err := readByte(r)
	if err != nil {
		return err
	}
	e.PubKeyAlgo = gopgp_crypto.PublicKeyAlgorithm(algoByte)

	switch e.PubKeyAlgo {
	case gopgp_crypto.PubKeyAlgoRSA, gopgp_crypto.PubKeyAlgoRSAEncryptOnly:
		e.Ciphertext.RSA, err = readMPI(r)
		return err
	case gopgp_crypto.PubKeyAlgoElGamal:
		if e.Ciphertext.ElGamalC1, err = readMPI(r); err != nil {
			return err
		}
		e.Ciphertext.ElGamalC2, err = readMPI(r)
		return err
	case gopgp_crypto.PubKeyAlgoECDH:
		if e.Ciphertext.ECDHEphemeral, err = readMPI(r); err != nil {
			return err
		}
		wlen, err := readByte(r)
		if err != nil {
			return err
		}
		o, err := encoding.ReadOctets(r, int(wlen))
		if err != nil {
			return err
		}
		e.Ciphertext.ECDHWrappedKey = o.Bytes()
		return nil
	case gopgp_crypto.PubKeyAlgoX25519:
		o, err := encoding.ReadOctets(r, 32)
		if err != nil {
			return err
		}
		copy(e.Ciphertext.X25519Ephemeral[:], o.Bytes())
		wlen, err := readByte(r)
		if err != nil {
			return err
		}
		wo, err := encoding.ReadOctets(r, int(wlen))
		if err != nil {
			return err
		}
		e.Ciphertext.X25519WrappedKey = wo.Bytes()
		return nil
	default:
		return errors.UnsupportedError("PKESK public-key algorithm")
	}
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return be64(b[:]), nil
}

// Serialize writes the PKESK packet.
func (e *EncryptedKey) Serialize(w io.Writer) error {
	return serializeToBuffer(w, TagPublicKeyEncryptedSessionKey, func(buf *bytes.Buffer) error {
		buf.WriteByte(byte(e.Version))
		switch e.Version {
		case 3:
			var id [8]byte
			putUint64(id[:], e.KeyId)
			buf.Write(id[:])
		case 6:
			buf.WriteByte(e.KeyVersion)
			if e.KeyVersion != 0 {
				buf.Write(e.Fingerprint)
			}
		}
		buf.WriteByte(byte(e.PubKeyAlgo))
		switch e.PubKeyAlgo {
		case gopgp_crypto.PubKeyAlgoRSA, gopgp_crypto.PubKeyAlgoRSAEncryptOnly:
			buf.Write(e.Ciphertext.RSA.EncodedBytes())
		case gopgp_crypto.PubKeyAlgoElGamal:
			buf.Write(e.Ciphertext.ElGamalC1.EncodedBytes())
			buf.Write(e.Ciphertext.ElGamalC2.EncodedBytes())
		case gopgp_crypto.PubKeyAlgoECDH:
			buf.Write(e.Ciphertext.ECDHEphemeral.EncodedBytes())
			buf.WriteByte(byte(len(e.Ciphertext.ECDHWrappedKey)))
			buf.Write(e.Ciphertext.ECDHWrappedKey)
		case gopgp_crypto.PubKeyAlgoX25519:
			buf.Write(e.Ciphertext.X25519Ephemeral[:])
			buf.WriteByte(byte(len(e.Ciphertext.X25519WrappedKey)))
			buf.Write(e.Ciphertext.X25519WrappedKey)
		default:
			return errors.UnsupportedError("PKESK serialization for this public-key algorithm")
		}
		return nil
	})
}

// ecdhEncryptSessionKey wraps keyData (the pre-framed "algo || key ||
// checksum" payload for v3 PKESK, or the raw session key for v6) under
// an RFC 6637-style ECDH key-encryption key: an ephemeral key pair on
// the recipient's curve, X9.63 KDF over the shared secret plus the
// recipient's own key-material parameters, then AES key wrap.
func ecdhEncryptSessionKey(provider gopgp_crypto.Provider, rnd io.Reader, recipient *ECDHPublicMaterial, keyData []byte) (*PKESKCiphertext, error) {
	curve, err := ecdhCurveByOID(recipient.OID)
	if err != nil {
		return nil, err
	}
	ephemeral, err := provider.GenerateECDH(rnd, curve)
	if err != nil {
		return nil, err
	}
	peerPub, err := ecdhUnmarshalPeer(curve, recipient.Point.Bytes())
	if err != nil {
		return nil, err
	}
	shared, err := provider.ECDH(ephemeral, peerPub)
	if err != nil {
		return nil, err
	}

	kek, err := ecdhKDF(provider, recipient, shared)
	if err != nil {
		return nil, err
	}
	wrapped, err := aesKeyWrap(kek, keyData)
	if err != nil {
		return nil, err
	}

	ephPub := ephemeral.PublicKey().Bytes()
	return &PKESKCiphertext{
		ECDHEphemeral:  encoding.NewMPI(ephPub),
		ECDHWrappedKey: wrapped,
	}, nil
}

func ecdhUnmarshalPeer(curve ecdh.Curve, point []byte) (*ecdh.PublicKey, error) {
	return curve.NewPublicKey(point)
}

// ecdhKDF derives the AES key-encryption key per RFC 6637 §7: SHA(00
// 00 00 01 || Z || param), where param encodes the curve OID, KDF
// parameters, "Anonymous Sender    ", and the recipient fingerprint.
// Only the 20-byte v4 fingerprint form is supported; v6 ECDH recipients
// are expected to use X25519/X448 instead per RFC 9580.
func ecdhKDF(provider gopgp_crypto.Provider, recipient *ECDHPublicMaterial, shared []byte) ([]byte, error) {
	var param bytes.Buffer
	param.WriteByte(byte(len(recipient.OID)))
	param.Write(recipient.OID)
	param.WriteByte(byte(gopgp_crypto.PubKeyAlgoECDH))
	param.WriteByte(3)
	param.WriteByte(1)
	param.WriteByte(byte(recipient.KDFHash))
	param.WriteByte(byte(recipient.KDFCipher))
	param.WriteString("Anonymous Sender    ")

	h, ok := provider.New(recipient.KDFHash)
	if !ok {
		return nil, errors.UnsupportedError("ECDH KDF hash algorithm")
	}
	h.Write([]byte{0, 0, 0, 1})
	h.Write(shared)
	h.Write(param.Bytes())
	digest := h.Sum(nil)
	return digest[:recipient.KDFCipher.KeySize()], nil
}

// x25519EncryptSessionKey wraps keyData under an X25519-derived KEK
// per RFC 9580 §5.1.6: ephemeral X25519 key pair, HKDF-SHA256 over
// ephemeral-public || recipient-public || shared-secret, AES key wrap.
func x25519EncryptSessionKey(provider gopgp_crypto.Provider, rnd io.Reader, recipient *RawPublicMaterial, keyData []byte) (*PKESKCiphertext, error) {
	curve := ecdh.X25519()
	ephemeral, err := provider.GenerateECDH(rnd, curve)
	if err != nil {
		return nil, err
	}
	peerPub, err := curve.NewPublicKey(recipient.B)
	if err != nil {
		return nil, err
	}
	shared, err := provider.ECDH(ephemeral, peerPub)
	if err != nil {
		return nil, err
	}

	ephPub := ephemeral.PublicKey().Bytes()
	ikm := append(append(append([]byte{}, ephPub...), recipient.B...), shared...)
	kek, err := provider.HKDF(gopgp_crypto.HashSHA256, ikm, nil, []byte("OpenPGP X25519"), 16)
	if err != nil {
		return nil, err
	}
	wrapped, err := aesKeyWrap(kek, keyData)
	if err != nil {
		return nil, err
	}

	ct := &PKESKCiphertext{X25519WrappedKey: wrapped}
	copy(ct.X25519Ephemeral[:], ephPub)
	return ct, nil
}

// DecryptSessionKey recovers the pre-framed session-key payload from a
// PKESK ciphertext using priv, the inverse of PublicKey.EncryptSessionKey.
func (e *EncryptedKey) DecryptSessionKey(provider gopgp_crypto.Provider, priv *PrivateKey) ([]byte, error) {
	if priv.decrypted == nil {
		return nil, errors.InvalidArgumentError("decryption key is locked")
	}
	switch e.PubKeyAlgo {
	case gopgp_crypto.PubKeyAlgoRSA, gopgp_crypto.PubKeyAlgoRSAEncryptOnly:
		return provider.DecryptRSA(priv.decrypted.RSA, e.Ciphertext.RSA.Bytes())
	case gopgp_crypto.PubKeyAlgoElGamal:
		return provider.DecryptElGamal(priv.decrypted.ElGamal, e.Ciphertext.ElGamalC1.Bytes(), e.Ciphertext.ElGamalC2.Bytes())
	case gopgp_crypto.PubKeyAlgoECDH:
		curve, err := ecdhCurveByOID(priv.PublicKey.ECDH.OID)
		if err != nil {
			return nil, err
		}
		ephPub, err := curve.NewPublicKey(e.Ciphertext.ECDHEphemeral.Bytes())
		if err != nil {
			return nil, err
		}
		shared, err := provider.ECDH(priv.decrypted.ECDH, ephPub)
		if err != nil {
			return nil, err
		}
		kek, err := ecdhKDF(provider, priv.PublicKey.ECDH, shared)
		if err != nil {
			return nil, err
		}
		return aesKeyUnwrap(kek, e.Ciphertext.ECDHWrappedKey)
	case gopgp_crypto.PubKeyAlgoX25519:
		curve := ecdh.X25519()
		ephPub, err := curve.NewPublicKey(e.Ciphertext.X25519Ephemeral[:])
		if err != nil {
			return nil, err
		}
		shared, err := provider.ECDH(priv.decrypted.X25519, ephPub)
		if err != nil {
			return nil, err
		}
		ikm := append(append(append([]byte{}, e.Ciphertext.X25519Ephemeral[:]...), priv.PublicKey.X25519.B...), shared...)
		kek, err := provider.HKDF(gopgp_crypto.HashSHA256, ikm, nil, []byte("OpenPGP X25519"), 16)
		if err != nil {
			return nil, err
		}
		return aesKeyUnwrap(kek, e.Ciphertext.X25519WrappedKey)
	default:
		return nil, errors.UnsupportedError("PKESK decryption for this public-key algorithm")
	}
}
