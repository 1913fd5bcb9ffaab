package packet

import (
	"bytes"
	"crypto/dsa"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"io"
	"math/big"
	"time"

	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/openpgp/elgamal"

	gopgp_crypto "github.com/nguyennv/gopg/openpgp/crypto"
	"github.com/nguyennv/gopg/openpgp/errors"
	"github.com/nguyennv/gopg/openpgp/internal/encoding"
	"github.com/nguyennv/gopg/openpgp/s2k"
)

func sha1Hash() hash.Hash   { return sha1.New() }
func sha256Hash() hash.Hash { return sha256.New() }
func sha384Hash() hash.Hash { return sha512.New384() }
func sha512Hash() hash.Hash { return sha512.New() }

// s2kUsage identifies how a secret-key packet's material is protected,
// RFC 4880 §5.5.3 / RFC 9580 §5.6.3.
const (
	s2kUsageNone          = 0
	s2kUsageChecksummed   = 255 // v4 legacy: S2K + CFB + 2-byte sum
	s2kUsageSHA1          = 254 // v4: S2K + CFB + SHA-1
	s2kUsageAEAD          = 253 // v6: S2K + AEAD
)

// decryptedMaterial holds the algorithm-specific private key in its
// native stdlib/x-crypto type, populated only after Decrypt succeeds
// (or immediately, for an s2kUsageNone key).
type decryptedMaterial struct {
	RSA     *rsa.PrivateKey
	DSA     *dsa.PrivateKey
	ElGamal *elgamal.PrivateKey
	ECDSA   *ecdsa.PrivateKey
	EdDSA   ed25519.PrivateKey // legacy algorithm 22: 64-byte seed||pub
	ECDH    *ecdh.PrivateKey
	X25519  *ecdh.PrivateKey
	Ed25519 ed25519.PrivateKey
}

// PrivateKey represents an RFC 4880/9580 Secret-Key (tag 5) or
// Secret-Subkey (tag 7) packet: the embedded PublicKey plus protected
// private material, lockable/unlockable via a passphrase.
type PrivateKey struct {
	PublicKey PublicKey

	s2kUsage   byte
	cipher     gopgp_crypto.CipherFunction
	aeadMode   gopgp_crypto.AEADMode
	s2kParams  *s2k.Params
	iv         []byte // CFB IV (v4 encrypted) or AEAD nonce (v6 AEAD)
	encrypted  []byte // encrypted or plaintext material, wire-encoded
	checksum   []byte // v4 s2kUsageChecksummed trailer

	decrypted *decryptedMaterial
}

// parse reads the full secret-key packet body: first the embedded
// public portion (teed so the fingerprint can still be computed over
// it), then the secret material.
func (pk *PrivateKey) parse(r io.Reader) error {
	var pubBuf bytes.Buffer
	tee := io.TeeReader(r, &pubBuf)

	var verAndTime [5]byte
	if _, err := io.ReadFull(tee, verAndTime[:]); err != nil {
		return err
	}
	pk.PublicKey.Version = int(verAndTime[0])
	if pk.PublicKey.Version != 4 && pk.PublicKey.Version != 6 {
		return errors.UnsupportedError("public key version")
	}
	pk.PublicKey.CreationTime = time.Unix(int64(be32(verAndTime[1:5])), 0)

	var algoByte [1]byte
	if _, err := io.ReadFull(tee, algoByte[:]); err != nil {
		return err
	}
	pk.PublicKey.Algo = gopgp_crypto.PublicKeyAlgorithm(algoByte[0])

	if pk.PublicKey.Version == 6 {
		if _, err := readUint32(tee); err != nil {
			return err
		}
	}
	if err := pk.PublicKey.parseMaterial(tee); err != nil {
		return err
	}
	pk.PublicKey.rawBody = append([]byte(nil), pubBuf.Bytes()...)
	pk.PublicKey.computeFingerprintAndKeyID()

	usage, err := readByte(r)
	if err != nil {
		return err
	}
	pk.s2kUsage = usage

	switch usage {
	case s2kUsageNone:
		// plaintext material follows directly
	case s2kUsageChecksummed, s2kUsageSHA1:
		cipherByte, err := readByte(r)
		if err != nil {
			return err
		}
		pk.cipher = gopgp_crypto.CipherFunction(cipherByte)
		params, err := s2k.Parse(r, hashByID)
		if err != nil {
			return err
		}
		pk.s2kParams = params
		pk.iv = make([]byte, pk.cipher.BlockSize())
		if _, err := io.ReadFull(r, pk.iv); err != nil {
			return err
		}
	case s2kUsageAEAD:
		cipherByte, err := readByte(r)
		if err != nil {
			return err
		}
		pk.cipher = gopgp_crypto.CipherFunction(cipherByte)
		aeadByte, err := readByte(r)
		if err != nil {
			return err
		}
		pk.aeadMode = gopgp_crypto.AEADMode(aeadByte)
		params, err := s2k.Parse(r, hashByID)
		if err != nil {
			return err
		}
		pk.s2kParams = params
		pk.iv = make([]byte, aeadNonceSize(pk.aeadMode))
		if _, err := io.ReadFull(r, pk.iv); err != nil {
			return err
		}
	default:
		// A bare usage octet in 1..252 denotes an unencrypted legacy
		// cipher selection that was never standardized for S2K-less
		// secrets; treat as structurally invalid rather than guess.
		return errors.StructuralError("unknown string-to-key usage octet")
	}

	if pk.s2kParams != nil && pk.s2kParams.Mode == s2k.ModeArgon2 && usage != s2kUsageAEAD {
		return errors.InvalidArgumentError("Argon2 string-to-key requires AEAD protection")
	}
	if pk.PublicKey.Version == 6 && usage != s2kUsageNone && usage != s2kUsageAEAD {
		return errors.InvalidArgumentError("v6 secret keys must use AEAD protection, not CFB")
	}

	rest, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if usage == s2kUsageChecksummed {
		if len(rest) < 2 {
			return errors.StructuralError("truncated secret key checksum")
		}
		pk.checksum = rest[len(rest)-2:]
		pk.encrypted = rest[:len(rest)-2]
	} else {
		pk.encrypted = rest
	}

	if usage == s2kUsageNone {
		return pk.unpackPlaintext(pk.encrypted)
	}
	return nil
}

func hashByID(id byte) s2k.HashFunc {
	switch gopgp_crypto.Hash(id) {
	case gopgp_crypto.HashSHA1:
		return sha1Hash
	case gopgp_crypto.HashSHA256:
		return sha256Hash
	case gopgp_crypto.HashSHA384:
		return sha384Hash
	case gopgp_crypto.HashSHA512:
		return sha512Hash
	default:
		return nil
	}
}

func aeadNonceSize(mode gopgp_crypto.AEADMode) int {
	switch mode {
	case gopgp_crypto.AEADModeEAX:
		return 16
	case gopgp_crypto.AEADModeOCB:
		return 15
	case gopgp_crypto.AEADModeGCM:
		return 12
	default:
		return 12
	}
}

// Locked reports whether the secret material still needs Decrypt.
func (pk *PrivateKey) Locked() bool {
	return pk.s2kUsage != s2kUsageNone && pk.decrypted == nil
}

// Decrypt unlocks the secret material with passphrase, populating
// decrypted. A v6 key protected with usage 253 is authenticated AEAD;
// a v4 key protected with usage 254/255 is CFB-encrypted and
// integrity-checked via SHA-1 digest or additive checksum,
// respectively — a v6 key with a CFB usage (254 or 255), and Argon2
// S2K paired with a non-AEAD usage, are rejected during parse already,
// per §4.6's invariant that a v6 key
// never uses the malleable legacy CFB-with-checksum scheme.
func (pk *PrivateKey) Decrypt(provider gopgp_crypto.Provider, passphrase []byte) error {
	if pk.s2kUsage == s2kUsageNone {
		return nil
	}
	if pk.PublicKey.Version == 6 && pk.s2kUsage != s2kUsageAEAD {
		return errors.InvalidArgumentError("v6 secret keys must use AEAD protection, not CFB")
	}
	key, err := pk.s2kParams.Key(passphrase, pk.cipher.KeySize())
	if err != nil {
		return err
	}

	var plaintext []byte
	switch pk.s2kUsage {
	case s2kUsageAEAD:
		aad := []byte{0x94 | byte(pk.PublicKey.Version), byte(pk.PublicKey.Algo)}
		plaintext, err = provider.Open(pk.aeadMode, pk.cipher, key, pk.iv, aad, pk.encrypted)
		if err != nil {
			return errors.ErrKeyIncorrect
		}
	case s2kUsageChecksummed, s2kUsageSHA1:
		stream, err := provider.NewCFBDecryptStream(pk.cipher, key, pk.iv)
		if err != nil {
			return err
		}
		plaintext = make([]byte, len(pk.encrypted))
		stream.XORKeyStream(plaintext, pk.encrypted)
		if pk.s2kUsage == s2kUsageSHA1 {
			if len(plaintext) < sha1.Size {
				return errors.StructuralError("truncated secret key material")
			}
			body, sum := plaintext[:len(plaintext)-sha1.Size], plaintext[len(plaintext)-sha1.Size:]
			h := sha1.New()
			h.Write(body)
			if !bytes.Equal(h.Sum(nil), sum) {
				return errors.ErrKeyIncorrect
			}
			plaintext = body
		} else {
			if len(plaintext) < 2 {
				return errors.StructuralError("truncated secret key material")
			}
			body, sum := plaintext[:len(plaintext)-2], plaintext[len(plaintext)-2:]
			if checksumKeyMaterial(body) != uint16(sum[0])<<8|uint16(sum[1]) {
				return errors.ChecksumError("secret key checksum mismatch")
			}
			plaintext = body
		}
	default:
		return errors.StructuralError("unknown string-to-key usage octet")
	}
	return pk.unpackPlaintext(plaintext)
}

// unpackPlaintext parses the algorithm-specific private parameters
// from decrypted (or never-encrypted) material bytes.
func (pk *PrivateKey) unpackPlaintext(plaintext []byte) error {
	r := bytes.NewReader(plaintext)
	dm := &decryptedMaterial{}
	var err error
	switch pk.PublicKey.Algo {
	case gopgp_crypto.PubKeyAlgoRSA, gopgp_crypto.PubKeyAlgoRSAEncryptOnly, gopgp_crypto.PubKeyAlgoRSASignOnly:
		var d, p, q, u *encoding.MPI
		if d, err = readMPI(r); err != nil {
			return err
		}
		if p, err = readMPI(r); err != nil {
			return err
		}
		if q, err = readMPI(r); err != nil {
			return err
		}
		if u, err = readMPI(r); err != nil {
			return err
		}
		_ = u // the u (p^-1 mod q) parameter is redundant with p,q; recomputed below
		priv := &rsa.PrivateKey{
			PublicKey: *pk.PublicKey.RSA.key(),
			D:         d.Big(),
			Primes:    []*big.Int{p.Big(), q.Big()},
		}
		priv.Precompute()
		dm.RSA = priv
	case gopgp_crypto.PubKeyAlgoDSA:
		x, err := readMPI(r)
		if err != nil {
			return err
		}
		dm.DSA = &dsa.PrivateKey{
			PublicKey: *pk.PublicKey.DSA.key(),
			X:         x.Big(),
		}
	case gopgp_crypto.PubKeyAlgoElGamal:
		x, err := readMPI(r)
		if err != nil {
			return err
		}
		dm.ElGamal = &elgamal.PrivateKey{
			PublicKey: elgamal.PublicKey{P: pk.PublicKey.ElGamal.P.Big(), G: pk.PublicKey.ElGamal.G.Big(), Y: pk.PublicKey.ElGamal.Y.Big()},
			X:         x.Big(),
		}
	case gopgp_crypto.PubKeyAlgoECDSA:
		d, err := readMPI(r)
		if err != nil {
			return err
		}
		curve := curveByOID(pk.PublicKey.ECDSA.OID)
		if curve == nil {
			return errors.UnsupportedError("EC curve")
		}
		pub, _ := pk.PublicKey.ECDSA.ecdsaKey()
		dm.ECDSA = &ecdsa.PrivateKey{PublicKey: *pub, D: d.Big()}
	case gopgp_crypto.PubKeyAlgoEdDSALegacy:
		d, err := readMPI(r)
		if err != nil {
			return err
		}
		seed := leftPad(d.Bytes(), 32)
		dm.EdDSA = ed25519.NewKeyFromSeed(seed)
	case gopgp_crypto.PubKeyAlgoECDH:
		d, err := readMPI(r)
		if err != nil {
			return err
		}
		curve, cerr := ecdhCurveByOID(pk.PublicKey.ECDH.OID)
		if cerr != nil {
			return cerr
		}
		priv, perr := curve.NewPrivateKey(leftPad(d.Bytes(), ecdhScalarLen(curve)))
		if perr != nil {
			return perr
		}
		dm.ECDH = priv
	case gopgp_crypto.PubKeyAlgoX25519:
		o, err := encoding.ReadOctets(r, 32)
		if err != nil {
			return err
		}
		priv, perr := ecdh.X25519().NewPrivateKey(o.Bytes())
		if perr != nil {
			return perr
		}
		dm.X25519 = priv
	case gopgp_crypto.PubKeyAlgoEd25519:
		o, err := encoding.ReadOctets(r, 32)
		if err != nil {
			return err
		}
		dm.Ed25519 = ed25519.NewKeyFromSeed(o.Bytes())
	default:
		return errors.UnsupportedError("private key material for this public-key algorithm")
	}
	pk.decrypted = dm
	return nil
}

func ecdhCurveByOID(oid []byte) (ecdh.Curve, error) {
	curve := curveByOID(oid)
	switch curve {
	case nil:
		if bytes.Equal(oid, oidCurve25519) {
			return ecdh.X25519(), nil
		}
		return nil, errors.UnsupportedError("ECDH curve")
	default:
		switch curve.Params().Name {
		case "P-256":
			return ecdh.P256(), nil
		case "P-384":
			return ecdh.P384(), nil
		case "P-521":
			return ecdh.P521(), nil
		}
		return nil, errors.UnsupportedError("ECDH curve")
	}
}

func ecdhScalarLen(c ecdh.Curve) int {
	switch c {
	case ecdh.X25519():
		return 32
	case ecdh.P256():
		return 32
	case ecdh.P384():
		return 48
	case ecdh.P521():
		return 66
	default:
		return 32
	}
}

// Serialize writes the secret-key (or secret-subkey) packet with the
// protection the key currently carries (as parsed, or as last set by
// Lock); it does not encrypt anything itself, so a key with usage
// "none" is written in the clear.
func (pk *PrivateKey) Serialize(w io.Writer) error {
	tag := TagSecretKey
	if pk.PublicKey.IsSubkey {
		tag = TagSecretSubkey
	}
	return serializeToBuffer(w, tag, func(buf *bytes.Buffer) error {
		pubBody, err := pk.PublicKey.serializeBody()
		if err != nil {
			return err
		}
		buf.Write(pubBody)
		buf.WriteByte(pk.s2kUsage)
		switch pk.s2kUsage {
		case s2kUsageNone:
		case s2kUsageChecksummed, s2kUsageSHA1:
			buf.WriteByte(byte(pk.cipher))
			if err := pk.s2kParams.Serialize(buf); err != nil {
				return err
			}
			buf.Write(pk.iv)
		case s2kUsageAEAD:
			buf.WriteByte(byte(pk.cipher))
			buf.WriteByte(byte(pk.aeadMode))
			if err := pk.s2kParams.Serialize(buf); err != nil {
				return err
			}
			buf.Write(pk.iv)
		}
		buf.Write(pk.encrypted)
		if pk.s2kUsage == s2kUsageChecksummed {
			buf.Write(pk.checksum)
		}
		return nil
	})
}

// plaintextMaterial renders the algorithm-specific secret parameters,
// the pre-protection payload Lock encrypts.
func (pk *PrivateKey) plaintextMaterial() ([]byte, error) {
	var buf bytes.Buffer
	switch pk.PublicKey.Algo {
	case gopgp_crypto.PubKeyAlgoRSA, gopgp_crypto.PubKeyAlgoRSAEncryptOnly, gopgp_crypto.PubKeyAlgoRSASignOnly:
		d := pk.decrypted.RSA
		buf.Write(encoding.NewMPIFromBig(d.D).EncodedBytes())
		buf.Write(encoding.NewMPIFromBig(d.Primes[0]).EncodedBytes())
		buf.Write(encoding.NewMPIFromBig(d.Primes[1]).EncodedBytes())
		qInv := new(big.Int).ModInverse(d.Primes[0], d.Primes[1])
		buf.Write(encoding.NewMPIFromBig(qInv).EncodedBytes())
	case gopgp_crypto.PubKeyAlgoDSA:
		buf.Write(encoding.NewMPIFromBig(pk.decrypted.DSA.X).EncodedBytes())
	case gopgp_crypto.PubKeyAlgoElGamal:
		buf.Write(encoding.NewMPIFromBig(pk.decrypted.ElGamal.X).EncodedBytes())
	case gopgp_crypto.PubKeyAlgoECDSA:
		buf.Write(encoding.NewMPIFromBig(pk.decrypted.ECDSA.D).EncodedBytes())
	case gopgp_crypto.PubKeyAlgoEdDSALegacy:
		seed := pk.decrypted.EdDSA.Seed()
		buf.Write(encoding.NewMPI(seed).EncodedBytes())
	case gopgp_crypto.PubKeyAlgoECDH:
		buf.Write(encoding.NewMPI(pk.decrypted.ECDH.Bytes()).EncodedBytes())
	case gopgp_crypto.PubKeyAlgoX25519:
		buf.Write(pk.decrypted.X25519.Bytes())
	case gopgp_crypto.PubKeyAlgoEd25519:
		buf.Write(pk.decrypted.Ed25519.Seed())
	default:
		return nil, errors.UnsupportedError("private key serialization for this public-key algorithm")
	}
	return buf.Bytes(), nil
}

// Lock re-protects decrypted material with passphrase: a v6 key gets
// Argon2id S2K with AEAD (OCB unless cfg.AEADConfig names a mode), any
// other key the legacy Iterated-Salted S2K with CFB and a SHA-1
// trailer, mirroring Decrypt's inverse.
func (pk *PrivateKey) Lock(provider gopgp_crypto.Provider, rand io.Reader, passphrase []byte, cfg *Config) error {
	plaintext, err := pk.plaintextMaterial()
	if err != nil {
		return err
	}
	pk.cipher = cfg.cipher()

	if pk.PublicKey.Version == 6 {
		mode := gopgp_crypto.AEADModeOCB
		if cfg.AEADConfig != nil {
			mode = cfg.AEADConfig.Mode
		}
		pk.s2kUsage = s2kUsageAEAD
		pk.aeadMode = mode
		params, err := s2k.NewArgon2(rand, 3, 4, 21)
		if err != nil {
			return err
		}
		pk.s2kParams = params
		key, err := params.Key(passphrase, pk.cipher.KeySize())
		if err != nil {
			return err
		}
		pk.iv = make([]byte, aeadNonceSize(mode))
		if _, err := io.ReadFull(rand, pk.iv); err != nil {
			return err
		}
		aad := []byte{0x94 | byte(pk.PublicKey.Version), byte(pk.PublicKey.Algo)}
		pk.encrypted, err = provider.Seal(mode, pk.cipher, key, pk.iv, aad, plaintext)
		return err
	}

	pk.s2kUsage = s2kUsageSHA1
	h := sha1.New()
	h.Write(plaintext)
	plaintext = append(plaintext, h.Sum(nil)...)
	params, err := s2k.NewIterated(rand, byte(gopgp_crypto.HashSHA1), sha1Hash, s2k.EncodeCount(65536))
	if err != nil {
		return err
	}
	pk.s2kParams = params
	key, err := params.Key(passphrase, pk.cipher.KeySize())
	if err != nil {
		return err
	}
	pk.iv = make([]byte, pk.cipher.BlockSize())
	if _, err := io.ReadFull(rand, pk.iv); err != nil {
		return err
	}
	stream, err := provider.NewCFBEncryptStream(pk.cipher, key, pk.iv)
	if err != nil {
		return err
	}
	pk.encrypted = make([]byte, len(plaintext))
	stream.XORKeyStream(pk.encrypted, plaintext)
	return nil
}

// NewRSAPrivateKey wraps a generated RSA key as an unprotected
// PrivateKey, computing the embedded PublicKey's fingerprint
// immediately (§4.8's key generation step 1).
func NewRSAPrivateKey(creationTime time.Time, version int, priv *rsa.PrivateKey) (*PrivateKey, error) {
	pub := &PublicKey{
		Version:      version,
		CreationTime: creationTime,
		Algo:         gopgp_crypto.PubKeyAlgoRSA,
		RSA:          &RSAPublicMaterial{N: encoding.NewMPIFromBig(priv.N), E: encoding.NewMPIFromBig(big.NewInt(int64(priv.E)))},
	}
	if _, err := pub.serializeBody(); err != nil {
		return nil, err
	}
	return newGeneratedPrivateKey(pub, &decryptedMaterial{RSA: priv})
}

// NewEd25519PrivateKey wraps a generated Ed25519 signing key.
func NewEd25519PrivateKey(creationTime time.Time, version int, priv ed25519.PrivateKey) (*PrivateKey, error) {
	pub := &PublicKey{
		Version:      version,
		CreationTime: creationTime,
		Algo:         gopgp_crypto.PubKeyAlgoEd25519,
		Ed25519:      &RawPublicMaterial{B: append([]byte(nil), priv.Public().(ed25519.PublicKey)...)},
	}
	if _, err := pub.serializeBody(); err != nil {
		return nil, err
	}
	return newGeneratedPrivateKey(pub, &decryptedMaterial{Ed25519: priv})
}

// NewX25519PrivateKey wraps a generated X25519 encryption key.
func NewX25519PrivateKey(creationTime time.Time, version int, priv *ecdh.PrivateKey) (*PrivateKey, error) {
	pub := &PublicKey{
		Version:      version,
		CreationTime: creationTime,
		Algo:         gopgp_crypto.PubKeyAlgoX25519,
		X25519:       &RawPublicMaterial{B: append([]byte(nil), priv.PublicKey().Bytes()...)},
	}
	if _, err := pub.serializeBody(); err != nil {
		return nil, err
	}
	return newGeneratedPrivateKey(pub, &decryptedMaterial{X25519: priv})
}

func newGeneratedPrivateKey(pub *PublicKey, dm *decryptedMaterial) (*PrivateKey, error) {
	pk := &PrivateKey{PublicKey: *pub, s2kUsage: s2kUsageNone, decrypted: dm}
	plain, err := pk.plaintextMaterial()
	if err != nil {
		return nil, err
	}
	pk.encrypted = plain
	return pk, nil
}
