package packet

import (
	"bytes"
	"crypto/dsa"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"io"
	"time"

	"golang.org/x/crypto/openpgp/elgamal"

	gopgp_crypto "github.com/nguyennv/gopg/openpgp/crypto"
	"github.com/nguyennv/gopg/openpgp/errors"
	"github.com/nguyennv/gopg/openpgp/internal/encoding"
)

// curve OIDs used by the ECDSA/ECDH/EdDSA-legacy algorithms (RFC 4880bis).
var (
	oidP256          = []byte{0x2a, 0x86, 0x48, 0xce, 0x3d, 0x03, 0x01, 0x07}
	oidP384          = []byte{0x2b, 0x81, 0x04, 0x00, 0x22}
	oidP521          = []byte{0x2b, 0x81, 0x04, 0x00, 0x23}
	oidCurve25519    = []byte{0x2b, 0x06, 0x01, 0x04, 0x01, 0x97, 0x55, 0x01, 0x05, 0x01}
	oidEd25519Legacy = []byte{0x2b, 0x06, 0x01, 0x04, 0x01, 0xda, 0x47, 0x0f, 0x01}
)

func curveByOID(oid []byte) elliptic.Curve {
	switch {
	case bytes.Equal(oid, oidP256):
		return elliptic.P256()
	case bytes.Equal(oid, oidP384):
		return elliptic.P384()
	case bytes.Equal(oid, oidP521):
		return elliptic.P521()
	}
	return nil
}

func oidForCurve(c elliptic.Curve) []byte {
	switch c {
	case elliptic.P256():
		return oidP256
	case elliptic.P384():
		return oidP384
	case elliptic.P521():
		return oidP521
	}
	return nil
}

// PublicKey represents an RFC 4880/9580 Public-Key (tag 6) or
// Public-Subkey (tag 14) packet. Exactly one of the algorithm-specific
// material fields is populated, selected by Algo; this realizes the
// "closed tagged variant" design note (§9) instead of the teacher's
// runtime-dispatched interface value.
type PublicKey struct {
	IsSubkey     bool
	Version      int // 4 or 6
	CreationTime time.Time
	Algo         gopgp_crypto.PublicKeyAlgorithm

	KeyId       uint64
	Fingerprint []byte // 20 bytes (v4) or 32 bytes (v6)

	RSA     *RSAPublicMaterial
	DSA     *DSAPublicMaterial
	ElGamal *ElGamalPublicMaterial
	ECDSA   *ECPublicMaterial
	ECDH    *ECDHPublicMaterial
	EdDSA   *ECPublicMaterial // algorithm 22, legacy MPI-wrapped Ed25519
	X25519  *RawPublicMaterial
	Ed25519 *RawPublicMaterial
	Opaque  *OpaquePublicMaterial

	rawBody []byte // exact parsed body, for fingerprint/signature hashing
}

// RSAPublicMaterial holds an RSA public key's wire parameters.
type RSAPublicMaterial struct {
	N, E *encoding.MPI
}

func (m *RSAPublicMaterial) key() *rsa.PublicKey {
	return &rsa.PublicKey{N: m.N.Big(), E: int(m.E.Big().Int64())}
}

func (m *RSAPublicMaterial) IsValid() bool {
	n := m.N.Big()
	return n.Sign() > 0 && n.BitLen() >= 1024 && m.E.Big().Sign() > 0
}

// DSAPublicMaterial holds a DSA public key's wire parameters.
type DSAPublicMaterial struct {
	P, Q, G, Y *encoding.MPI
}

func (m *DSAPublicMaterial) key() *dsa.PublicKey {
	return &dsa.PublicKey{
		Parameters: dsa.Parameters{P: m.P.Big(), Q: m.Q.Big(), G: m.G.Big()},
		Y:          m.Y.Big(),
	}
}

func (m *DSAPublicMaterial) IsValid() bool {
	return m.P.Big().Sign() > 0 && m.Q.Big().Sign() > 0 && m.G.Big().Sign() > 0 && m.Y.Big().Sign() > 0
}

// ElGamalPublicMaterial holds an ElGamal public key's wire parameters.
type ElGamalPublicMaterial struct {
	P, G, Y *encoding.MPI
}

func (m *ElGamalPublicMaterial) IsValid() bool {
	return m.P.Big().Sign() > 0 && m.G.Big().Sign() > 0 && m.Y.Big().Sign() > 0
}

// ECPublicMaterial holds an ECDSA or legacy-EdDSA public key: a curve
// OID plus an MPI-wrapped point.
type ECPublicMaterial struct {
	OID   []byte
	Point *encoding.MPI
}

func (m *ECPublicMaterial) ecdsaKey() (*ecdsa.PublicKey, error) {
	curve := curveByOID(m.OID)
	if curve == nil {
		return nil, errors.UnsupportedError("EC curve")
	}
	x, y := elliptic.UnmarshalCompressed(curve, m.Point.Bytes())
	if x == nil {
		x, y = elliptic.Unmarshal(curve, m.Point.Bytes())
	}
	if x == nil {
		return nil, errors.StructuralError("invalid EC point encoding")
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

func (m *ECPublicMaterial) IsValid() bool {
	if bytes.Equal(m.OID, oidEd25519Legacy) {
		return len(m.Point.Bytes()) == 33 && m.Point.Bytes()[0] == 0x40
	}
	_, err := m.ecdsaKey()
	return err == nil
}

// ECDHPublicMaterial holds an ECDH public key: curve OID, MPI point,
// and the two-octet KDF parameters (hash + symmetric algorithm) RFC
// 6637/9580 binds into the key material itself.
type ECDHPublicMaterial struct {
	OID       []byte
	Point     *encoding.MPI
	KDFHash   gopgp_crypto.Hash
	KDFCipher gopgp_crypto.CipherFunction
}

func (m *ECDHPublicMaterial) IsValid() bool {
	if bytes.Equal(m.OID, oidCurve25519) {
		return len(m.Point.Bytes()) == 33
	}
	curve := curveByOID(m.OID)
	if curve == nil {
		return false
	}
	x, y := elliptic.Unmarshal(curve, m.Point.Bytes())
	return x != nil && y != nil
}

// RawPublicMaterial holds a fixed-length raw octet-string public key,
// as RFC 9580 §5.5.5 specifies for X25519/X448/Ed25519/Ed448.
type RawPublicMaterial struct {
	B []byte
}

// OpaquePublicMaterial preserves an unrecognized algorithm's bytes
// unexamined, per the "Opaque{algo,bytes}" design note (§9).
type OpaquePublicMaterial struct {
	Bytes []byte
}

func (pk *PublicKey) parse(r io.Reader) error {
	var body bytes.Buffer
	tee := io.TeeReader(r, &body)

	var verAndTime [5]byte
	if _, err := io.ReadFull(tee, verAndTime[:]); err != nil {
		return err
	}
	pk.Version = int(verAndTime[0])
	if pk.Version != 4 && pk.Version != 6 {
		return errors.UnsupportedError("public key version")
	}
	pk.CreationTime = time.Unix(int64(be32(verAndTime[1:5])), 0)

	var algoByte [1]byte
	if _, err := io.ReadFull(tee, algoByte[:]); err != nil {
		return err
	}
	pk.Algo = gopgp_crypto.PublicKeyAlgorithm(algoByte[0])

	if pk.Version == 6 {
		// v6 carries an explicit 4-byte material length before the
		// algorithm-specific parameters (RFC 9580 §5.5.2).
		if _, err := readUint32(tee); err != nil {
			return err
		}
	}

	if err := pk.parseMaterial(tee); err != nil {
		return err
	}

	io.Copy(io.Discard, r) //nolint:errcheck // drain any trailer, tolerant of padding

	pk.rawBody = append([]byte(nil), body.Bytes()...)
	pk.computeFingerprintAndKeyID()
	return nil
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func (pk *PublicKey) parseMaterial(r io.Reader) (err error) {
	switch pk.Algo {
	case gopgp_crypto.PubKeyAlgoRSA, gopgp_crypto.PubKeyAlgoRSAEncryptOnly, gopgp_crypto.PubKeyAlgoRSASignOnly:
		m := &RSAPublicMaterial{}
		if m.N, err = readMPI(r); err != nil {
			return err
		}
		if m.E, err = readMPI(r); err != nil {
			return err
		}
		pk.RSA = m
	case gopgp_crypto.PubKeyAlgoDSA:
		m := &DSAPublicMaterial{}
		for _, f := range []**encoding.MPI{&m.P, &m.Q, &m.G, &m.Y} {
			if *f, err = readMPI(r); err != nil {
				return err
			}
		}
		pk.DSA = m
	case gopgp_crypto.PubKeyAlgoElGamal:
		m := &ElGamalPublicMaterial{}
		for _, f := range []**encoding.MPI{&m.P, &m.G, &m.Y} {
			if *f, err = readMPI(r); err != nil {
				return err
			}
		}
		pk.ElGamal = m
	case gopgp_crypto.PubKeyAlgoECDSA:
		m, err := parseECMaterial(r)
		if err != nil {
			return err
		}
		pk.ECDSA = m
	case gopgp_crypto.PubKeyAlgoEdDSALegacy:
		m, err := parseECMaterial(r)
		if err != nil {
			return err
		}
		pk.EdDSA = m
	case gopgp_crypto.PubKeyAlgoECDH:
		m, err := parseECDHMaterial(r)
		if err != nil {
			return err
		}
		pk.ECDH = m
	case gopgp_crypto.PubKeyAlgoX25519:
		o, err := encoding.ReadOctets(r, 32)
		if err != nil {
			return err
		}
		pk.X25519 = &RawPublicMaterial{B: o.Bytes()}
	case gopgp_crypto.PubKeyAlgoEd25519:
		o, err := encoding.ReadOctets(r, 32)
		if err != nil {
			return err
		}
		pk.Ed25519 = &RawPublicMaterial{B: o.Bytes()}
	default:
		b, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		pk.Opaque = &OpaquePublicMaterial{Bytes: b}
	}
	return nil
}

func parseECMaterial(r io.Reader) (*ECPublicMaterial, error) {
	oidLen, err := readByte(r)
	if err != nil {
		return nil, err
	}
	oid, err := encoding.ReadOctets(r, int(oidLen))
	if err != nil {
		return nil, err
	}
	point, err := readMPI(r)
	if err != nil {
		return nil, err
	}
	return &ECPublicMaterial{OID: oid.Bytes(), Point: point}, nil
}

func parseECDHMaterial(r io.Reader) (*ECDHPublicMaterial, error) {
	ec, err := parseECMaterial(r)
	if err != nil {
		return nil, err
	}
	kdfLen, err := readByte(r)
	if err != nil {
		return nil, err
	}
	kdf, err := encoding.ReadOctets(r, int(kdfLen))
	if err != nil {
		return nil, err
	}
	kb := kdf.Bytes()
	if len(kb) != 3 || kb[0] != 1 {
		return nil, errors.StructuralError("malformed ECDH KDF parameters")
	}
	return &ECDHPublicMaterial{
		OID:       ec.OID,
		Point:     ec.Point,
		KDFHash:   gopgp_crypto.Hash(kb[1]),
		KDFCipher: gopgp_crypto.CipherFunction(kb[2]),
	}, nil
}

func readByte(r io.Reader) (byte, error) {
	var b [1]byte
	_, err := io.ReadFull(r, b[:])
	return b[0], err
}

// computeFingerprintAndKeyID derives the fingerprint (and the KeyId
// suffix of it) from rawBody per RFC 4880 §12.2 (v4, SHA-1) or RFC
// 9580 §5.5.4 (v6, SHA-256).
func (pk *PublicKey) computeFingerprintAndKeyID() {
	switch pk.Version {
	case 4:
		h := sha1.New()
		h.Write([]byte{0x99, byte(len(pk.rawBody) >> 8), byte(len(pk.rawBody))})
		h.Write(pk.rawBody)
		pk.Fingerprint = h.Sum(nil)
		pk.KeyId = be64(pk.Fingerprint[12:20])
	case 6:
		h := sha256.New()
		var lenBuf [4]byte
		putUint32(lenBuf[:], uint32(len(pk.rawBody)))
		h.Write([]byte{0x9b})
		h.Write(lenBuf[:])
		h.Write(pk.rawBody)
		pk.Fingerprint = h.Sum(nil)
		pk.KeyId = be64(pk.Fingerprint[0:8])
	}
}

func be64(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

// SignatureTargetBytes returns the "0x99 || len || body" (v4) or
// "0x9b || len4 || body" (v6) prefix a signature hashes when binding
// to this key, matching computeFingerprintAndKeyID's own framing.
func (pk *PublicKey) SignatureTargetBytes() []byte {
	var out bytes.Buffer
	switch pk.Version {
	case 4:
		out.WriteByte(0x99)
		out.WriteByte(byte(len(pk.rawBody) >> 8))
		out.WriteByte(byte(len(pk.rawBody)))
	case 6:
		out.WriteByte(0x9b)
		var lenBuf [4]byte
		putUint32(lenBuf[:], uint32(len(pk.rawBody)))
		out.Write(lenBuf[:])
	}
	out.Write(pk.rawBody)
	return out.Bytes()
}

// Serialize writes the public-key (or public-subkey) packet.
func (pk *PublicKey) Serialize(w io.Writer) error {
	tag := TagPublicKey
	if pk.IsSubkey {
		tag = TagPublicSubkey
	}
	return serializeToBuffer(w, tag, func(buf *bytes.Buffer) error {
		body, err := pk.serializeBody()
		if err != nil {
			return err
		}
		_, err = buf.Write(body)
		return err
	})
}

func (pk *PublicKey) serializeBody() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(pk.Version))
	var t [4]byte
	putUint32(t[:], uint32(pk.CreationTime.Unix()))
	buf.Write(t[:])
	buf.WriteByte(byte(pk.Algo))

	var material bytes.Buffer
	if err := pk.serializeMaterial(&material); err != nil {
		return nil, err
	}

	if pk.Version == 6 {
		var mlen [4]byte
		putUint32(mlen[:], uint32(material.Len()))
		buf.Write(mlen[:])
	}
	buf.Write(material.Bytes())
	pk.rawBody = append([]byte(nil), buf.Bytes()...)
	pk.computeFingerprintAndKeyID()
	return buf.Bytes(), nil
}

func (pk *PublicKey) serializeMaterial(buf *bytes.Buffer) error {
	switch pk.Algo {
	case gopgp_crypto.PubKeyAlgoRSA, gopgp_crypto.PubKeyAlgoRSAEncryptOnly, gopgp_crypto.PubKeyAlgoRSASignOnly:
		buf.Write(pk.RSA.N.EncodedBytes())
		buf.Write(pk.RSA.E.EncodedBytes())
	case gopgp_crypto.PubKeyAlgoDSA:
		buf.Write(pk.DSA.P.EncodedBytes())
		buf.Write(pk.DSA.Q.EncodedBytes())
		buf.Write(pk.DSA.G.EncodedBytes())
		buf.Write(pk.DSA.Y.EncodedBytes())
	case gopgp_crypto.PubKeyAlgoElGamal:
		buf.Write(pk.ElGamal.P.EncodedBytes())
		buf.Write(pk.ElGamal.G.EncodedBytes())
		buf.Write(pk.ElGamal.Y.EncodedBytes())
	case gopgp_crypto.PubKeyAlgoECDSA:
		writeECMaterial(buf, pk.ECDSA)
	case gopgp_crypto.PubKeyAlgoEdDSALegacy:
		writeECMaterial(buf, pk.EdDSA)
	case gopgp_crypto.PubKeyAlgoECDH:
		writeECMaterial(buf, &ECPublicMaterial{OID: pk.ECDH.OID, Point: pk.ECDH.Point})
		buf.WriteByte(3)
		buf.WriteByte(1)
		buf.WriteByte(byte(pk.ECDH.KDFHash))
		buf.WriteByte(byte(pk.ECDH.KDFCipher))
	case gopgp_crypto.PubKeyAlgoX25519:
		buf.Write(pk.X25519.B)
	case gopgp_crypto.PubKeyAlgoEd25519:
		buf.Write(pk.Ed25519.B)
	default:
		if pk.Opaque != nil {
			buf.Write(pk.Opaque.Bytes)
		}
	}
	return nil
}

func writeECMaterial(buf *bytes.Buffer, m *ECPublicMaterial) {
	buf.WriteByte(byte(len(m.OID)))
	buf.Write(m.OID)
	buf.Write(m.Point.EncodedBytes())
}

// IsValid checks the algebraic self-consistency of whichever
// algorithm-specific material is populated (§3's is_valid()
// predicate). Opaque (unrecognized-algorithm) material is always
// considered structurally valid but cannot be used for crypto.
func (pk *PublicKey) IsValid() bool {
	switch pk.Algo {
	case gopgp_crypto.PubKeyAlgoRSA, gopgp_crypto.PubKeyAlgoRSAEncryptOnly, gopgp_crypto.PubKeyAlgoRSASignOnly:
		return pk.RSA != nil && pk.RSA.IsValid()
	case gopgp_crypto.PubKeyAlgoDSA:
		return pk.DSA != nil && pk.DSA.IsValid()
	case gopgp_crypto.PubKeyAlgoElGamal, gopgp_crypto.PubKeyAlgoElGamalSign:
		return pk.ElGamal != nil && pk.ElGamal.IsValid()
	case gopgp_crypto.PubKeyAlgoECDSA:
		return pk.ECDSA != nil && pk.ECDSA.IsValid()
	case gopgp_crypto.PubKeyAlgoEdDSALegacy:
		return pk.EdDSA != nil && pk.EdDSA.IsValid()
	case gopgp_crypto.PubKeyAlgoECDH:
		return pk.ECDH != nil && pk.ECDH.IsValid()
	case gopgp_crypto.PubKeyAlgoX25519:
		return pk.X25519 != nil && len(pk.X25519.B) == 32
	case gopgp_crypto.PubKeyAlgoEd25519:
		return pk.Ed25519 != nil && len(pk.Ed25519.B) == 32
	default:
		return pk.Opaque != nil
	}
}

// CanSign reports whether the algorithm family supports signing at
// all (independent of any key-flags certification, which is a
// separate, higher-level check in the Entity graph).
func (pk *PublicKey) CanSign() bool {
	switch pk.Algo {
	case gopgp_crypto.PubKeyAlgoRSA, gopgp_crypto.PubKeyAlgoRSASignOnly,
		gopgp_crypto.PubKeyAlgoDSA, gopgp_crypto.PubKeyAlgoECDSA,
		gopgp_crypto.PubKeyAlgoEdDSALegacy, gopgp_crypto.PubKeyAlgoEd25519:
		return true
	default:
		return false
	}
}

// CanEncrypt reports whether the algorithm family supports message
// encryption (PKESK wrap).
func (pk *PublicKey) CanEncrypt() bool {
	switch pk.Algo {
	case gopgp_crypto.PubKeyAlgoRSA, gopgp_crypto.PubKeyAlgoRSAEncryptOnly,
		gopgp_crypto.PubKeyAlgoElGamal, gopgp_crypto.PubKeyAlgoECDH,
		gopgp_crypto.PubKeyAlgoX25519:
		return true
	default:
		return false
	}
}

// VerifySignature checks a signature's raw algorithm-specific body
// against digest using the supplied provider. Key-validity, timing,
// and issuer checks live in the signature engine (§4.5); this is the
// C4 "shim over C8" layer only.
func (pk *PublicKey) VerifySignature(provider gopgp_crypto.Provider, hashAlgo gopgp_crypto.Hash, digest []byte, sig *SignatureMaterial) error {
	switch pk.Algo {
	case gopgp_crypto.PubKeyAlgoRSA, gopgp_crypto.PubKeyAlgoRSASignOnly:
		if pk.RSA == nil || sig.RSA == nil {
			return errors.StructuralError("missing RSA material")
		}
		return provider.VerifyRSA(pk.RSA.key(), hashAlgo, digest, sig.RSA.Bytes())
	case gopgp_crypto.PubKeyAlgoDSA:
		if pk.DSA == nil || sig.DSAR == nil {
			return errors.StructuralError("missing DSA material")
		}
		if !provider.VerifyDSA(pk.DSA.key(), digest, sig.DSAR.Bytes(), sig.DSAS.Bytes()) {
			return errors.SignatureError("DSA verification failure")
		}
		return nil
	case gopgp_crypto.PubKeyAlgoECDSA:
		ecdsaKey, err := pk.ECDSA.ecdsaKey()
		if err != nil {
			return err
		}
		if !provider.VerifyECDSA(ecdsaKey, digest, sig.DSAR.Bytes(), sig.DSAS.Bytes()) {
			return errors.SignatureError("ECDSA verification failure")
		}
		return nil
	case gopgp_crypto.PubKeyAlgoEdDSALegacy:
		if pk.EdDSA == nil || len(pk.EdDSA.Point.Bytes()) != 33 {
			return errors.StructuralError("missing/malformed legacy EdDSA material")
		}
		pub := pk.EdDSA.Point.Bytes()[1:]
		sigBytes := append(append([]byte{}, leftPad(sig.DSAR.Bytes(), 32)...), leftPad(sig.DSAS.Bytes(), 32)...)
		if !provider.VerifyEd25519(pub, digest, sigBytes) {
			return errors.SignatureError("EdDSA verification failure")
		}
		return nil
	case gopgp_crypto.PubKeyAlgoEd25519:
		if pk.Ed25519 == nil || sig.Ed25519 == nil {
			return errors.StructuralError("missing Ed25519 material")
		}
		if !provider.VerifyEd25519(pk.Ed25519.B, digest, sig.Ed25519) {
			return errors.SignatureError("Ed25519 verification failure")
		}
		return nil
	case gopgp_crypto.PubKeyAlgoElGamalSign:
		return errors.ErrUnsupportedElGamal
	default:
		return errors.UnsupportedError("signature verification for this public-key algorithm")
	}
}

func leftPad(b []byte, n int) []byte {
	if len(b) >= n {
		return b
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}

// EncryptSessionKey wraps a session key to this public key per §4.7's
// PKESK algorithm-specific rules.
func (pk *PublicKey) EncryptSessionKey(provider gopgp_crypto.Provider, rand io.Reader, keyData []byte) (*PKESKCiphertext, error) {
	switch pk.Algo {
	case gopgp_crypto.PubKeyAlgoRSA, gopgp_crypto.PubKeyAlgoRSAEncryptOnly:
		ct, err := provider.EncryptRSA(rand, pk.RSA.key(), keyData)
		if err != nil {
			return nil, err
		}
		return &PKESKCiphertext{RSA: encoding.NewMPI(ct)}, nil
	case gopgp_crypto.PubKeyAlgoECDH:
		return ecdhEncryptSessionKey(provider, rand, pk.ECDH, keyData)
	case gopgp_crypto.PubKeyAlgoX25519:
		return x25519EncryptSessionKey(provider, rand, pk.X25519, keyData)
	case gopgp_crypto.PubKeyAlgoElGamal:
		elg := &elgamal.PublicKey{P: pk.ElGamal.P.Big(), G: pk.ElGamal.G.Big(), Y: pk.ElGamal.Y.Big()}
		c1, c2, err := provider.EncryptElGamal(rand, elg, keyData)
		if err != nil {
			return nil, err
		}
		return &PKESKCiphertext{ElGamalC1: encoding.NewMPI(c1), ElGamalC2: encoding.NewMPI(c2)}, nil
	default:
		return nil, errors.UnsupportedError("session key encryption for this public-key algorithm")
	}
}
