// Package crypto defines the cryptographic-primitive provider interface
// the rest of the engine depends on (spec §6.2, component C8): hashing,
// HKDF, Argon2id, symmetric CFB/AEAD ciphers, the public-key
// sign/verify/encrypt/decrypt operations, and a CSPRNG. Raw big-integer
// arithmetic and the algorithm implementations themselves are treated
// as external collaborators; this package only abstracts over them so
// the packet/signature/session-key engines never import an algorithm
// package directly.
package crypto

import (
	"crypto/dsa"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/rsa"
	"hash"
	"io"

	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/openpgp/elgamal"
)

// Hash identifies an RFC 4880 / RFC 9580 hash algorithm.
type Hash uint8

const (
	HashMD5       Hash = 1
	HashSHA1      Hash = 2
	HashRIPEMD160 Hash = 3
	HashSHA256    Hash = 8
	HashSHA384    Hash = 9
	HashSHA512    Hash = 10
	HashSHA224    Hash = 11
	HashSHA3_256  Hash = 12
	HashSHA3_512  Hash = 14
)

// PublicKeyAlgorithm identifies an RFC 4880 / RFC 9580 public-key
// algorithm.
type PublicKeyAlgorithm uint8

const (
	PubKeyAlgoRSA            PublicKeyAlgorithm = 1
	PubKeyAlgoRSAEncryptOnly PublicKeyAlgorithm = 2
	PubKeyAlgoRSASignOnly    PublicKeyAlgorithm = 3
	PubKeyAlgoElGamal        PublicKeyAlgorithm = 16
	PubKeyAlgoDSA            PublicKeyAlgorithm = 17
	PubKeyAlgoECDH           PublicKeyAlgorithm = 18
	PubKeyAlgoECDSA          PublicKeyAlgorithm = 19
	PubKeyAlgoElGamalSign    PublicKeyAlgorithm = 20 // deprecated, verify/decrypt only
	PubKeyAlgoEdDSALegacy    PublicKeyAlgorithm = 22
	PubKeyAlgoX25519         PublicKeyAlgorithm = 25
	PubKeyAlgoX448           PublicKeyAlgorithm = 26
	PubKeyAlgoEd25519        PublicKeyAlgorithm = 27
	PubKeyAlgoEd448          PublicKeyAlgorithm = 28
)

// CipherFunction identifies an RFC 4880 symmetric cipher.
type CipherFunction uint8

const (
	CipherPlaintext CipherFunction = 0
	CipherIDEA      CipherFunction = 1
	Cipher3DES      CipherFunction = 2
	CipherCAST5     CipherFunction = 3
	CipherAES128    CipherFunction = 7
	CipherAES192    CipherFunction = 8
	CipherAES256    CipherFunction = 9
)

// AEADMode identifies an RFC 9580 AEAD construction.
type AEADMode uint8

const (
	AEADModeEAX AEADMode = 1
	AEADModeOCB AEADMode = 2
	AEADModeGCM AEADMode = 3
)

// KeySize returns the key length in bytes for a symmetric cipher, or 0
// if unknown.
func (c CipherFunction) KeySize() int {
	switch c {
	case CipherIDEA, CipherCAST5:
		return 16
	case Cipher3DES:
		return 24
	case CipherAES128:
		return 16
	case CipherAES192:
		return 24
	case CipherAES256:
		return 32
	}
	return 0
}

// BlockSize returns the cipher's block size in bytes, or 0 if unknown.
func (c CipherFunction) BlockSize() int {
	switch c {
	case CipherIDEA, CipherCAST5, Cipher3DES:
		return 8
	case CipherAES128, CipherAES192, CipherAES256:
		return 16
	}
	return 0
}

// Hasher exposes digest and HKDF operations. Streaming callers use New
// directly; Digest is a convenience one-shot wrapper.
type Hasher interface {
	New(h Hash) (hash.Hash, bool)
	Digest(h Hash, data []byte) ([]byte, bool)
	HKDF(h Hash, ikm, salt, info []byte, length int) ([]byte, error)
}

// Argon2KDF exposes Argon2id key derivation for S2K mode 4.
type Argon2KDF interface {
	Argon2id(passphrase, salt []byte, passes, parallelism, memKiB uint32, length uint32) []byte
}

// SymmetricCipher exposes CFB stream construction.
type SymmetricCipher interface {
	NewCFBEncryptStream(c CipherFunction, key, iv []byte) (CFBStream, error)
	NewCFBDecryptStream(c CipherFunction, key, iv []byte) (CFBStream, error)
}

// CFBStream XORs a keystream into src, writing the result to dst; dst
// and src may overlap exactly as with cipher.Stream.
type CFBStream interface {
	XORKeyStream(dst, src []byte)
}

// AEADCipher exposes the three AEAD constructions RFC 9580 allows.
type AEADCipher interface {
	Seal(mode AEADMode, c CipherFunction, key, nonce, aad, plaintext []byte) ([]byte, error)
	Open(mode AEADMode, c CipherFunction, key, nonce, aad, ciphertext []byte) ([]byte, error)
	NonceSize(mode AEADMode) int
	TagSize(mode AEADMode) int
}

// RSAOps exposes RSA sign/verify/encrypt/decrypt (PKCS#1 v1.5 per RFC 4880).
type RSAOps interface {
	SignRSA(priv *rsa.PrivateKey, h Hash, digest []byte) (s []byte, err error)
	VerifyRSA(pub *rsa.PublicKey, h Hash, digest, sig []byte) error
	EncryptRSA(rand io.Reader, pub *rsa.PublicKey, plaintext []byte) ([]byte, error)
	DecryptRSA(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error)
}

// DSAOps exposes DSA sign/verify.
type DSAOps interface {
	SignDSA(rand io.Reader, priv *dsa.PrivateKey, digest []byte) (r, s []byte, err error)
	VerifyDSA(pub *dsa.PublicKey, digest, r, s []byte) bool
}

// ECDSAOps exposes ECDSA sign/verify.
type ECDSAOps interface {
	SignECDSA(rand io.Reader, priv *ecdsa.PrivateKey, digest []byte) (r, s []byte, err error)
	VerifyECDSA(pub *ecdsa.PublicKey, digest, r, s []byte) bool
}

// EdDSAOps exposes Ed25519 sign/verify (Ed448 is not implemented by any
// library in the dependency set available and is surfaced to callers
// as UnsupportedAlgorithm).
type EdDSAOps interface {
	SignEd25519(priv ed25519.PrivateKey, msg []byte) []byte
	VerifyEd25519(pub ed25519.PublicKey, msg, sig []byte) bool
}

// ECDHOps exposes elliptic-curve Diffie-Hellman for the ECDH(18) and
// X25519(25) public-key algorithms, both modeled via stdlib crypto/ecdh.
type ECDHOps interface {
	GenerateECDH(rand io.Reader, curve ecdh.Curve) (*ecdh.PrivateKey, error)
	ECDH(priv *ecdh.PrivateKey, peerPub *ecdh.PublicKey) ([]byte, error)
}

// ElGamalOps exposes ElGamal encrypt/decrypt (legacy PKESK recipients).
type ElGamalOps interface {
	EncryptElGamal(rand io.Reader, pub *elgamal.PublicKey, plaintext []byte) (c1, c2 []byte, err error)
	DecryptElGamal(priv *elgamal.PrivateKey, c1, c2 []byte) ([]byte, error)
}

// Provider is the full capability surface the engine depends on. A
// caller that only needs read-only parsing never touches it; any
// construct/sign/verify/encrypt/decrypt path needs one. Implementations
// must be safe for concurrent use (§5).
type Provider interface {
	Hasher
	Argon2KDF
	SymmetricCipher
	AEADCipher
	RSAOps
	DSAOps
	ECDSAOps
	EdDSAOps
	ECDHOps
	ElGamalOps
	Random(n int) ([]byte, error)
}
