package crypto

import (
	stdcrypto "crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/dsa"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/md5"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"io"
	"math/big"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/cast5"
	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/openpgp/elgamal"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // RFC 4880 algorithm 3

	"github.com/nguyennv/gopg/openpgp/errors"
)

// DefaultProvider is the stock Provider implementation: every operation
// is delegated to the Go standard library or to golang.org/x/crypto,
// except the OCB and EAX AEAD modes, which come from this package's own
// ocb.go and eax.go built over a cipher.Block. It holds no state and is
// safe for concurrent use.
type DefaultProvider struct{}

var _ Provider = DefaultProvider{}

func (DefaultProvider) New(h Hash) (hash.Hash, bool) {
	switch h {
	case HashMD5:
		return md5.New(), true
	case HashSHA1:
		return sha1.New(), true
	case HashRIPEMD160:
		return ripemd160.New(), true
	case HashSHA256:
		return sha256.New(), true
	case HashSHA384:
		return sha512.New384(), true
	case HashSHA512:
		return sha512.New(), true
	case HashSHA224:
		return sha256.New224(), true
	case HashSHA3_256, HashSHA3_512:
		return nil, false // no sha3 dependency in the pack; treated as unsupported
	}
	return nil, false
}

func (p DefaultProvider) Digest(h Hash, data []byte) ([]byte, bool) {
	hh, ok := p.New(h)
	if !ok {
		return nil, false
	}
	hh.Write(data)
	return hh.Sum(nil), true
}

func (p DefaultProvider) HKDF(h Hash, ikm, salt, info []byte, length int) ([]byte, error) {
	if _, ok := p.New(h); !ok {
		return nil, errors.UnsupportedError("HKDF hash algorithm")
	}
	r := hkdf.New(func() hash.Hash { nh, _ := p.New(h); return nh }, ikm, salt, info)
	out := make([]byte, length)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (DefaultProvider) Argon2id(passphrase, salt []byte, passes, parallelism, memKiB, length uint32) []byte {
	return argon2.IDKey(passphrase, salt, passes, memKiB, uint8(parallelism), length)
}

func newBlockCipher(c CipherFunction, key []byte) (cipher.Block, error) {
	switch c {
	case CipherAES128, CipherAES192, CipherAES256:
		return aes.NewCipher(key)
	case CipherCAST5:
		return cast5.NewCipher(key)
	case Cipher3DES:
		return des.NewTripleDESCipher(key)
	case CipherIDEA:
		return nil, errors.UnsupportedError("IDEA cipher has no available Go implementation in this build")
	default:
		return nil, errors.UnsupportedError("symmetric cipher")
	}
}

func (DefaultProvider) NewCFBEncryptStream(c CipherFunction, key, iv []byte) (CFBStream, error) {
	block, err := newBlockCipher(c, key)
	if err != nil {
		return nil, err
	}
	return cipher.NewCFBEncrypter(block, iv), nil
}

func (DefaultProvider) NewCFBDecryptStream(c CipherFunction, key, iv []byte) (CFBStream, error) {
	block, err := newBlockCipher(c, key)
	if err != nil {
		return nil, err
	}
	return cipher.NewCFBDecrypter(block, iv), nil
}

func (p DefaultProvider) Seal(mode AEADMode, c CipherFunction, key, nonce, aad, plaintext []byte) ([]byte, error) {
	aead, err := p.aead(mode, c, key)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

func (p DefaultProvider) Open(mode AEADMode, c CipherFunction, key, nonce, aad, ciphertext []byte) ([]byte, error) {
	aead, err := p.aead(mode, c, key)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce, ciphertext, aad)
}

func (p DefaultProvider) aead(mode AEADMode, c CipherFunction, key []byte) (cipher.AEAD, error) {
	block, err := newBlockCipher(c, key)
	if err != nil {
		return nil, err
	}
	switch mode {
	case AEADModeGCM:
		return cipher.NewGCM(block)
	case AEADModeOCB:
		return newOCB(block)
	case AEADModeEAX:
		return newEAX(block)
	default:
		return nil, errors.UnsupportedError("AEAD mode")
	}
}

func (p DefaultProvider) NonceSize(mode AEADMode) int {
	switch mode {
	case AEADModeGCM:
		return 12
	case AEADModeOCB:
		return 15
	case AEADModeEAX:
		return 16
	}
	return 0
}

func (p DefaultProvider) TagSize(mode AEADMode) int { return 16 }

func (DefaultProvider) SignRSA(priv *rsa.PrivateKey, h Hash, digest []byte) ([]byte, error) {
	ch, err := cryptoHash(h)
	if err != nil {
		return nil, err
	}
	return rsa.SignPKCS1v15(rand.Reader, priv, ch, digest)
}

func (DefaultProvider) VerifyRSA(pub *rsa.PublicKey, h Hash, digest, sig []byte) error {
	ch, err := cryptoHash(h)
	if err != nil {
		return err
	}
	return rsa.VerifyPKCS1v15(pub, ch, digest, sig)
}

func (DefaultProvider) EncryptRSA(rnd io.Reader, pub *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	return rsa.EncryptPKCS1v15(rnd, pub, plaintext)
}

func (DefaultProvider) DecryptRSA(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	return rsa.DecryptPKCS1v15(rand.Reader, priv, ciphertext)
}

func (DefaultProvider) SignDSA(rnd io.Reader, priv *dsa.PrivateKey, digest []byte) (r, s []byte, err error) {
	rb, sb, err := dsa.Sign(rnd, priv, digest)
	if err != nil {
		return nil, nil, err
	}
	return rb.Bytes(), sb.Bytes(), nil
}

func (DefaultProvider) VerifyDSA(pub *dsa.PublicKey, digest, r, s []byte) bool {
	return dsa.Verify(pub, digest, new(big.Int).SetBytes(r), new(big.Int).SetBytes(s))
}

func (DefaultProvider) SignECDSA(rnd io.Reader, priv *ecdsa.PrivateKey, digest []byte) (r, s []byte, err error) {
	rb, sb, err := ecdsa.Sign(rnd, priv, digest)
	if err != nil {
		return nil, nil, err
	}
	return rb.Bytes(), sb.Bytes(), nil
}

func (DefaultProvider) VerifyECDSA(pub *ecdsa.PublicKey, digest, r, s []byte) bool {
	return ecdsa.Verify(pub, digest, new(big.Int).SetBytes(r), new(big.Int).SetBytes(s))
}

func (DefaultProvider) SignEd25519(priv ed25519.PrivateKey, msg []byte) []byte {
	return ed25519.Sign(priv, msg)
}

func (DefaultProvider) VerifyEd25519(pub ed25519.PublicKey, msg, sig []byte) bool {
	return ed25519.Verify(pub, msg, sig)
}

func (DefaultProvider) GenerateECDH(rnd io.Reader, curve ecdh.Curve) (*ecdh.PrivateKey, error) {
	return curve.GenerateKey(rnd)
}

func (DefaultProvider) ECDH(priv *ecdh.PrivateKey, peerPub *ecdh.PublicKey) ([]byte, error) {
	return priv.ECDH(peerPub)
}

func (DefaultProvider) EncryptElGamal(rnd io.Reader, pub *elgamal.PublicKey, plaintext []byte) (c1, c2 []byte, err error) {
	return elgamal.Encrypt(rnd, pub, plaintext)
}

func (DefaultProvider) DecryptElGamal(priv *elgamal.PrivateKey, c1, c2 []byte) ([]byte, error) {
	return elgamal.Decrypt(priv, c1, c2)
}

func (DefaultProvider) Random(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func cryptoHash(h Hash) (stdcrypto.Hash, error) {
	switch h {
	case HashMD5:
		return stdcrypto.MD5, nil
	case HashSHA1:
		return stdcrypto.SHA1, nil
	case HashSHA224:
		return stdcrypto.SHA224, nil
	case HashSHA256:
		return stdcrypto.SHA256, nil
	case HashSHA384:
		return stdcrypto.SHA384, nil
	case HashSHA512:
		return stdcrypto.SHA512, nil
	}
	return 0, errors.UnsupportedError("hash algorithm for RSA PKCS#1 signing")
}
