package packet

import (
	"bytes"
	"io"
	"time"

	gopgp_crypto "github.com/nguyennv/gopg/openpgp/crypto"
	"github.com/nguyennv/gopg/openpgp/errors"
	"github.com/nguyennv/gopg/openpgp/internal/encoding"
)

// SignatureType identifies what a signature asserts, RFC 4880 §5.2.1.
type SignatureType uint8

const (
	SigTypeBinary                SignatureType = 0x00
	SigTypeText                  SignatureType = 0x01
	SigTypeStandalone            SignatureType = 0x02
	SigTypeGenericCert           SignatureType = 0x10
	SigTypePersonaCert           SignatureType = 0x11
	SigTypeCasualCert            SignatureType = 0x12
	SigTypePositiveCert          SignatureType = 0x13
	SigTypeSubkeyBinding         SignatureType = 0x18
	SigTypePrimaryKeyBinding     SignatureType = 0x19
	SigTypeDirectKey             SignatureType = 0x1f
	SigTypeKeyRevocation         SignatureType = 0x20
	SigTypeSubkeyRevocation      SignatureType = 0x28
	SigTypeCertificationRevocation SignatureType = 0x30
	SigTypeTimestamp             SignatureType = 0x40
)

// Subpacket types used by the signature engine (§4.2's subpacket table).
const (
	spSignatureCreationTime   = 2
	spSignatureExpirationTime = 3
	spExportable              = 4
	spRevocable               = 7
	spKeyExpirationTime       = 9
	spPreferredSymmetric      = 11
	spIssuerKeyId             = 16
	spNotationData            = 20
	spPreferredHash           = 21
	spPreferredCompression    = 22
	spKeyServerPrefs          = 23
	spPrimaryUserId           = 25
	spKeyFlags                = 27
	spSignerUserId            = 28
	spRevocationReason        = 29
	spFeatures                = 30
	spSignatureTarget         = 31
	spEmbeddedSignature       = 32
	spIssuerFingerprint       = 33
	spIntendedRecipientFpr    = 35
	spPreferredAEAD           = 39
)

// Key-flag bits (subpacket 27), RFC 4880 §5.2.3.21 / RFC 9580 §5.2.3.29.
const (
	KeyFlagCertify             = 1 << 0
	KeyFlagSignData            = 1 << 1
	KeyFlagEncryptCommunication = 1 << 2
	KeyFlagEncryptStorage      = 1 << 3
	KeyFlagSplit               = 1 << 4
	KeyFlagAuthenticate        = 1 << 5
	KeyFlagShared              = 1 << 7
)

// Features bits (subpacket 30).
const (
	FeatureModificationDetection = 1 << 0
	FeatureAEAD                  = 1 << 1
	FeatureV5Keys                = 1 << 2
)

type subpacket struct {
	subType  uint8
	critical bool
	data     []byte
}

// SignatureMaterial holds the per-algorithm raw signature body, the
// counterpart of the per-algorithm PublicKey material.
type SignatureMaterial struct {
	RSA     *encoding.MPI
	DSAR    *encoding.MPI
	DSAS    *encoding.MPI
	Ed25519 []byte // 64 raw bytes, RFC 9580 §5.2.3
}

// Signature represents an RFC 4880/9580 §5.2 Signature packet.
type Signature struct {
	Version    int
	SigType    SignatureType
	PubKeyAlgo gopgp_crypto.PublicKeyAlgorithm
	Hash       gopgp_crypto.Hash

	hashedSubpackets   []subpacket
	unhashedSubpackets []subpacket
	hashedSubpacketsRaw []byte // exact bytes, needed for the trailer hash

	// v6 carries an explicit random salt hashed before the signed data.
	Salt []byte

	SignedHashPrefix [2]byte
	Material         SignatureMaterial

	// Parsed convenience accessors, populated from subpackets on parse
	// and written back to subpackets on Serialize/build.
	CreationTime       time.Time
	SigExpirationTime  *time.Time
	KeyExpirationSecs  *uint32
	IssuerKeyId        *uint64
	IssuerFingerprint  []byte
	KeyFlags           *byte
	PreferredSymmetric []byte
	PreferredHash      []byte
	PreferredCompress  []byte
	PreferredAEAD      []byte
	Features           *byte
	IsPrimaryUserId    *bool
	Revocable          *bool
	Exportable         *bool
	RevocationReason   *byte
	RevocationText     string
	EmbeddedSignature  *Signature
	NotationName       string
	NotationValue      []byte
}

func (sig *Signature) parse(r io.Reader) error {
	var verByte [1]byte
	if _, err := io.ReadFull(r, verByte[:]); err != nil {
		return err
	}
	sig.Version = int(verByte[0])
	switch sig.Version {
	case 4, 6:
	default:
		return errors.UnsupportedError("signature version")
	}

	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return err
	}
	sig.SigType = SignatureType(head[0])
	sig.PubKeyAlgo = gopgp_crypto.PublicKeyAlgorithm(head[1])
	sig.Hash = gopgp_crypto.Hash(head[2])
	// head[3] is the first byte of the hashed-subpacket length field,
	// which is 2 bytes for v4 and 4 bytes for v6 (RFC 9580 §5.2.3).
	var hashedLen uint32
	if sig.Version == 6 {
		var rest [3]byte
		rest[0] = head[3]
		if _, err := io.ReadFull(r, rest[1:]); err != nil {
			return err
		}
		hashedLen = be32(rest[:])
	} else {
		var low [1]byte
		if _, err := io.ReadFull(r, low[:]); err != nil {
			return err
		}
		hashedLen = uint32(head[3])<<8 | uint32(low[0])
	}

	hashedBuf := make([]byte, hashedLen)
	if _, err := io.ReadFull(r, hashedBuf); err != nil {
		return err
	}
	sig.hashedSubpacketsRaw = hashedBuf
	subs, err := parseSubpackets(hashedBuf)
	if err != nil {
		return err
	}
	sig.hashedSubpackets = subs

	var unhashedLen uint16
	if sig.Version == 6 {
		var l [4]byte
		if _, err := io.ReadFull(r, l[:]); err != nil {
			return err
		}
		unhashedLen = uint16(be32(l[:]))
	} else {
		v, err := readUint16(r)
		if err != nil {
			return err
		}
		unhashedLen = v
	}
	unhashedBuf := make([]byte, unhashedLen)
	if _, err := io.ReadFull(r, unhashedBuf); err != nil {
		return err
	}
	subs, err = parseSubpackets(unhashedBuf)
	if err != nil {
		return err
	}
	sig.unhashedSubpackets = subs

	if _, err := io.ReadFull(r, sig.SignedHashPrefix[:]); err != nil {
		return err
	}

	if sig.Version == 6 {
		saltLen, err := readByte(r)
		if err != nil {
			return err
		}
		o, err := encoding.ReadOctets(r, int(saltLen))
		if err != nil {
			return err
		}
		sig.Salt = o.Bytes()
	}

	if err := sig.parseMaterial(r); err != nil {
		return err
	}

	sig.applySubpackets()
	return nil
}

func (sig *Signature) parseMaterial(r io.Reader) (err error) {
	switch sig.PubKeyAlgo {
	case gopgp_crypto.PubKeyAlgoRSA, gopgp_crypto.PubKeyAlgoRSASignOnly:
		sig.Material.RSA, err = readMPI(r)
	case gopgp_crypto.PubKeyAlgoDSA, gopgp_crypto.PubKeyAlgoECDSA, gopgp_crypto.PubKeyAlgoEdDSALegacy:
		if sig.Material.DSAR, err = readMPI(r); err != nil {
			return err
		}
		sig.Material.DSAS, err = readMPI(r)
	case gopgp_crypto.PubKeyAlgoEd25519:
		o, e := encoding.ReadOctets(r, 64)
		if e != nil {
			return e
		}
		sig.Material.Ed25519 = o.Bytes()
	default:
		return errors.UnsupportedError("signature public-key algorithm")
	}
	return err
}

func parseSubpackets(b []byte) ([]subpacket, error) {
	var out []subpacket
	for len(b) > 0 {
		length, n, err := readSubpacketLength(b)
		if err != nil {
			return nil, err
		}
		b = b[n:]
		if int(length) > len(b) {
			return nil, errors.StructuralError("subpacket length extends past end of subpacket area")
		}
		packet := b[:length]
		b = b[length:]
		if len(packet) == 0 {
			return nil, errors.StructuralError("empty subpacket")
		}
		typeByte := packet[0]
		out = append(out, subpacket{
			subType:  typeByte & 0x7f,
			critical: typeByte&0x80 != 0,
			data:     append([]byte(nil), packet[1:]...),
		})
	}
	return out, nil
}

func readSubpacketLength(b []byte) (length uint32, n int, err error) {
	if len(b) == 0 {
		return 0, 0, errors.StructuralError("truncated subpacket length")
	}
	switch {
	case b[0] < 192:
		return uint32(b[0]), 1, nil
	case b[0] < 255:
		if len(b) < 2 {
			return 0, 0, errors.StructuralError("truncated subpacket length")
		}
		return (uint32(b[0])-192)<<8 + uint32(b[1]) + 192, 2, nil
	default:
		if len(b) < 5 {
			return 0, 0, errors.StructuralError("truncated subpacket length")
		}
		return be32(b[1:5]), 5, nil
	}
}

func encodeSubpacketLength(length int) []byte {
	switch {
	case length < 192:
		return []byte{byte(length)}
	case length < 8384:
		adj := length - 192
		return []byte{byte((adj >> 8) + 192), byte(adj)}
	default:
		var b [5]byte
		b[0] = 255
		putUint32(b[1:], uint32(length))
		return b[:]
	}
}

func (sig *Signature) applySubpackets() {
	for _, all := range [][]subpacket{sig.hashedSubpackets, sig.unhashedSubpackets} {
		for _, sp := range all {
			switch sp.subType {
			case spSignatureCreationTime:
				if len(sp.data) == 4 {
					sig.CreationTime = time.Unix(int64(be32(sp.data)), 0)
				}
			case spSignatureExpirationTime:
				if len(sp.data) == 4 {
					t := sig.CreationTime.Add(time.Duration(be32(sp.data)) * time.Second)
					sig.SigExpirationTime = &t
				}
			case spKeyExpirationTime:
				if len(sp.data) == 4 {
					v := be32(sp.data)
					sig.KeyExpirationSecs = &v
				}
			case spIssuerKeyId:
				if len(sp.data) == 8 {
					v := be64(sp.data)
					sig.IssuerKeyId = &v
				}
			case spIssuerFingerprint:
				if len(sp.data) >= 1 {
					sig.IssuerFingerprint = append([]byte(nil), sp.data[1:]...)
					if len(sp.data[1:]) >= 8 {
						v := be64(sp.data[len(sp.data)-8:])
						sig.IssuerKeyId = &v
					}
				}
			case spKeyFlags:
				if len(sp.data) >= 1 {
					f := sp.data[0]
					sig.KeyFlags = &f
				}
			case spPreferredSymmetric:
				sig.PreferredSymmetric = sp.data
			case spPreferredHash:
				sig.PreferredHash = sp.data
			case spPreferredCompression:
				sig.PreferredCompress = sp.data
			case spPreferredAEAD:
				sig.PreferredAEAD = sp.data
			case spFeatures:
				if len(sp.data) >= 1 {
					f := sp.data[0]
					sig.Features = &f
				}
			case spPrimaryUserId:
				if len(sp.data) >= 1 {
					v := sp.data[0] != 0
					sig.IsPrimaryUserId = &v
				}
			case spRevocable:
				if len(sp.data) >= 1 {
					v := sp.data[0] != 0
					sig.Revocable = &v
				}
			case spExportable:
				if len(sp.data) >= 1 {
					v := sp.data[0] != 0
					sig.Exportable = &v
				}
			case spRevocationReason:
				if len(sp.data) >= 1 {
					c := sp.data[0]
					sig.RevocationReason = &c
					sig.RevocationText = string(sp.data[1:])
				}
			case spEmbeddedSignature:
				embedded := &Signature{}
				if err := embedded.parse(bytes.NewReader(sp.data)); err == nil {
					sig.EmbeddedSignature = embedded
				}
			case spNotationData:
				if len(sp.data) >= 8 {
					nameLen := int(sp.data[4])<<8 | int(sp.data[5])
					valueLen := int(sp.data[6])<<8 | int(sp.data[7])
					if 8+nameLen+valueLen <= len(sp.data) {
						sig.NotationName = string(sp.data[8 : 8+nameLen])
						sig.NotationValue = sp.data[8+nameLen : 8+nameLen+valueLen]
					}
				}
			}
		}
	}
}

// unknownCriticalSubpacket reports whether any critical subpacket in
// the hashed area has a type this engine does not recognize, which
// §4.5's strict-mode policy treats as an automatic verification
// failure.
func (sig *Signature) unknownCriticalSubpacket() bool {
	known := map[uint8]bool{
		spSignatureCreationTime: true, spSignatureExpirationTime: true, spExportable: true,
		spRevocable: true, spKeyExpirationTime: true, spPreferredSymmetric: true,
		spIssuerKeyId: true, spNotationData: true, spPreferredHash: true,
		spPreferredCompression: true, spKeyServerPrefs: true, spPrimaryUserId: true,
		spKeyFlags: true, spSignerUserId: true, spRevocationReason: true, spFeatures: true,
		spSignatureTarget: true, spEmbeddedSignature: true, spIssuerFingerprint: true,
		spIntendedRecipientFpr: true, spPreferredAEAD: true,
	}
	for _, sp := range sig.hashedSubpackets {
		if sp.critical && !known[sp.subType] {
			return true
		}
	}
	return false
}

// signatureMetadata renders "version || type || key_algo || hash_algo
// || hashed_subpackets_with_length" per §4.5.
func (sig *Signature) signatureMetadata() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(sig.Version))
	buf.WriteByte(byte(sig.SigType))
	buf.WriteByte(byte(sig.PubKeyAlgo))
	buf.WriteByte(byte(sig.Hash))
	if sig.Version == 6 {
		var l [4]byte
		putUint32(l[:], uint32(len(sig.hashedSubpacketsRaw)))
		buf.Write(l[:])
	} else {
		var l [2]byte
		putUint16(l[:], uint16(len(sig.hashedSubpacketsRaw)))
		buf.Write(l[:])
	}
	buf.Write(sig.hashedSubpacketsRaw)
	return buf.Bytes()
}

// trailer renders "version(1) || 0xFF || be32(len(metadata))" per §4.5.
func signatureTrailer(version int, metadataLen int) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(version))
	buf.WriteByte(0xff)
	var l [4]byte
	putUint32(l[:], uint32(metadataLen))
	buf.Write(l[:])
	return buf.Bytes()
}

// computeDigest renders H(data || metadata || trailer) exactly as §4.5
// prescribes, including the v6 salt (hashed first, per RFC 9580 §5.2.4)
// and the extra "signature type" framing for text/binary signatures'
// data argument, which callers supply pre-framed.
func (sig *Signature) computeDigest(provider gopgp_crypto.Provider, data []byte) ([]byte, error) {
	h, ok := provider.New(provider_hashFor(sig.Hash))
	if !ok {
		return nil, errors.UnsupportedError("signature hash algorithm")
	}
	if sig.Version == 6 && len(sig.Salt) > 0 {
		h.Write(sig.Salt)
	}
	h.Write(data)
	metadata := sig.signatureMetadata()
	h.Write(metadata)
	h.Write(signatureTrailer(sig.Version, len(metadata)))
	return h.Sum(nil), nil
}

func provider_hashFor(h gopgp_crypto.Hash) gopgp_crypto.Hash { return h }

// Sign builds a v4 or v6 signature over data with signer, mutating and
// returning sig. subpackets supplies additional hashed subpackets
// beyond the always-present creation-time/issuer ones (§4.5's Build).
func Sign(provider gopgp_crypto.Provider, rand io.Reader, signer *PrivateKey, sigType SignatureType, hashAlgo gopgp_crypto.Hash, when time.Time, version int, extra []SubpacketBuilder, data []byte) (*Signature, error) {
	if signer.decrypted == nil {
		return nil, errors.InvalidArgumentError("signing key is locked")
	}
	sig := &Signature{
		Version:    version,
		SigType:    sigType,
		PubKeyAlgo: signer.PublicKey.Algo,
		Hash:       hashAlgo,
	}

	var hashed []SubpacketBuilder
	hashed = append(hashed, spBuilder(spSignatureCreationTime, be32Bytes(uint32(when.Unix()))))
	fpr := append([]byte{byte(signer.PublicKey.Version)}, signer.PublicKey.Fingerprint...)
	hashed = append(hashed, spBuilder(spIssuerFingerprint, fpr))
	hashed = append(hashed, spBuilder(spIssuerKeyId, be64Bytes(signer.PublicKey.KeyId)))
	hashed = append(hashed, extra...)

	var hbuf bytes.Buffer
	for _, b := range hashed {
		hbuf.Write(b.encode())
	}
	sig.hashedSubpacketsRaw = hbuf.Bytes()
	var perr error
	sig.hashedSubpackets, perr = parseSubpackets(sig.hashedSubpacketsRaw)
	if perr != nil {
		return nil, perr
	}

	if version == 6 {
		sig.Salt = make([]byte, 32)
		if _, err := io.ReadFull(rand, sig.Salt); err != nil {
			return nil, err
		}
	}

	digest, err := sig.computeDigest(provider, data)
	if err != nil {
		return nil, err
	}
	copy(sig.SignedHashPrefix[:], digest[:2])

	if err := sig.signDigest(provider, rand, signer, digest); err != nil {
		return nil, err
	}
	sig.applySubpackets()
	return sig, nil
}

func (sig *Signature) signDigest(provider gopgp_crypto.Provider, rand io.Reader, signer *PrivateKey, digest []byte) error {
	if signer.decrypted == nil {
		return errors.InvalidArgumentError("signing key is locked")
	}
	switch signer.PublicKey.Algo {
	case gopgp_crypto.PubKeyAlgoRSA, gopgp_crypto.PubKeyAlgoRSASignOnly:
		s, err := provider.SignRSA(signer.decrypted.RSA, sig.Hash, digest)
		if err != nil {
			return err
		}
		sig.Material.RSA = encoding.NewMPI(s)
	case gopgp_crypto.PubKeyAlgoDSA:
		r, s, err := provider.SignDSA(rand, signer.decrypted.DSA, digest)
		if err != nil {
			return err
		}
		sig.Material.DSAR, sig.Material.DSAS = encoding.NewMPI(r), encoding.NewMPI(s)
	case gopgp_crypto.PubKeyAlgoECDSA:
		r, s, err := provider.SignECDSA(rand, signer.decrypted.ECDSA, digest)
		if err != nil {
			return err
		}
		sig.Material.DSAR, sig.Material.DSAS = encoding.NewMPI(r), encoding.NewMPI(s)
	case gopgp_crypto.PubKeyAlgoEdDSALegacy:
		full := provider.SignEd25519(signer.decrypted.EdDSA, digest)
		sig.Material.DSAR = encoding.NewMPI(full[:32])
		sig.Material.DSAS = encoding.NewMPI(full[32:])
	case gopgp_crypto.PubKeyAlgoEd25519:
		sig.Material.Ed25519 = provider.SignEd25519(signer.decrypted.Ed25519, digest)
	default:
		return errors.UnsupportedError("signing for this public-key algorithm")
	}
	return nil
}

// Verify checks a signature over data against the issuer's public
// key, enforcing §4.5's rejection rules (issuer mismatch, algorithm
// mismatch, timing, unknown-critical-subpacket strict mode) before
// dispatching to algorithm verification.
func (sig *Signature) Verify(provider gopgp_crypto.Provider, issuer *PublicKey, data []byte, at time.Time) error {
	if sig.IssuerKeyId != nil && *sig.IssuerKeyId != issuer.KeyId {
		return errors.SignatureError("issuer key id mismatch")
	}
	if sig.PubKeyAlgo != issuer.Algo {
		return errors.SignatureError("signing key algorithm mismatch")
	}
	if !sig.CreationTime.IsZero() && sig.CreationTime.After(at) {
		return errors.SignatureError("signature creation time is in the future")
	}
	if sig.SigExpirationTime != nil && sig.SigExpirationTime.Before(at) {
		return errors.ErrSignatureExpired
	}
	if sig.unknownCriticalSubpacket() {
		return errors.SignatureError("unknown critical subpacket")
	}

	digest, err := sig.computeDigest(provider, data)
	if err != nil {
		return err
	}
	if digest[0] != sig.SignedHashPrefix[0] || digest[1] != sig.SignedHashPrefix[1] {
		return errors.SignatureError("hash prefix mismatch")
	}
	return issuer.VerifySignature(provider, sig.Hash, digest, &sig.Material)
}

// Serialize writes the signature packet.
func (sig *Signature) Serialize(w io.Writer) error {
	return serializeToBuffer(w, TagSignature, func(buf *bytes.Buffer) error {
		buf.WriteByte(byte(sig.Version))
		buf.WriteByte(byte(sig.SigType))
		buf.WriteByte(byte(sig.PubKeyAlgo))
		buf.WriteByte(byte(sig.Hash))
		if sig.Version == 6 {
			var l [4]byte
			putUint32(l[:], uint32(len(sig.hashedSubpacketsRaw)))
			buf.Write(l[:])
		} else {
			var l [2]byte
			putUint16(l[:], uint16(len(sig.hashedSubpacketsRaw)))
			buf.Write(l[:])
		}
		buf.Write(sig.hashedSubpacketsRaw)

		var ubuf bytes.Buffer
		for _, sp := range sig.unhashedSubpackets {
			ubuf.Write(encodeSubpacket(sp))
		}
		if sig.Version == 6 {
			var l [4]byte
			putUint32(l[:], uint32(ubuf.Len()))
			buf.Write(l[:])
		} else {
			var l [2]byte
			putUint16(l[:], uint16(ubuf.Len()))
			buf.Write(l[:])
		}
		buf.Write(ubuf.Bytes())

		buf.Write(sig.SignedHashPrefix[:])
		if sig.Version == 6 {
			buf.WriteByte(byte(len(sig.Salt)))
			buf.Write(sig.Salt)
		}
		return sig.serializeMaterial(buf)
	})
}

func (sig *Signature) serializeMaterial(buf *bytes.Buffer) error {
	switch sig.PubKeyAlgo {
	case gopgp_crypto.PubKeyAlgoRSA, gopgp_crypto.PubKeyAlgoRSASignOnly:
		buf.Write(sig.Material.RSA.EncodedBytes())
	case gopgp_crypto.PubKeyAlgoDSA, gopgp_crypto.PubKeyAlgoECDSA, gopgp_crypto.PubKeyAlgoEdDSALegacy:
		buf.Write(sig.Material.DSAR.EncodedBytes())
		buf.Write(sig.Material.DSAS.EncodedBytes())
	case gopgp_crypto.PubKeyAlgoEd25519:
		buf.Write(sig.Material.Ed25519)
	default:
		return errors.UnsupportedError("signature serialization for this public-key algorithm")
	}
	return nil
}

func encodeSubpacket(sp subpacket) []byte {
	typeByte := sp.subType
	if sp.critical {
		typeByte |= 0x80
	}
	body := append([]byte{typeByte}, sp.data...)
	return append(encodeSubpacketLength(len(body)), body...)
}

// SubpacketBuilder lazily renders one hashed subpacket, used by Sign's
// callers to describe what goes in the hashed area without hand
// building byte slices at every call site.
type SubpacketBuilder struct {
	subType  uint8
	critical bool
	data     []byte
}

func (b SubpacketBuilder) encode() []byte { return encodeSubpacket(subpacket(b)) }

func spBuilder(t uint8, data []byte) SubpacketBuilder { return SubpacketBuilder{subType: t, data: data} }

func be32Bytes(v uint32) []byte {
	var b [4]byte
	putUint32(b[:], v)
	return b[:]
}

func be64Bytes(v uint64) []byte {
	var b [8]byte
	putUint64(b[:], v)
	return b[:]
}

// KeyFlagsBuilder is a convenience for building a subpacket 27 value.
func KeyFlagsBuilder(flags byte) SubpacketBuilder { return spBuilder(spKeyFlags, []byte{flags}) }

// KeyExpirationBuilder builds a subpacket 9 value.
func KeyExpirationBuilder(secs uint32) SubpacketBuilder { return spBuilder(spKeyExpirationTime, be32Bytes(secs)) }

// FeaturesBuilder builds a subpacket 30 value.
func FeaturesBuilder(flags byte) SubpacketBuilder { return spBuilder(spFeatures, []byte{flags}) }

// PrimaryUserIdBuilder builds a subpacket 25 value.
func PrimaryUserIdBuilder() SubpacketBuilder { return spBuilder(spPrimaryUserId, []byte{1}) }

// PreferredSymmetricBuilder/PreferredHashBuilder/PreferredCompressionBuilder
// build subpackets 11/21/22.
func PreferredSymmetricBuilder(algos []byte) SubpacketBuilder { return spBuilder(spPreferredSymmetric, algos) }
func PreferredHashBuilder(algos []byte) SubpacketBuilder      { return spBuilder(spPreferredHash, algos) }
func PreferredCompressionBuilder(algos []byte) SubpacketBuilder {
	return spBuilder(spPreferredCompression, algos)
}
func PreferredAEADBuilder(algos []byte) SubpacketBuilder { return spBuilder(spPreferredAEAD, algos) }

// EmbeddedSignatureBuilder wraps an already-built signature as an
// embedded-signature subpacket (for reverse primary-key-binding on
// signing-capable subkeys, §4.5's category list).
func EmbeddedSignatureBuilder(embedded *Signature) (SubpacketBuilder, error) {
	var buf bytes.Buffer
	if err := embedded.Serialize(&buf); err != nil {
		return SubpacketBuilder{}, err
	}
	body := buf.Bytes()
	// Strip the outer packet header; subpacket 32's payload is the
	// signature packet body only.
	_, b, err := readHeader(bytes.NewReader(body))
	if err != nil {
		return SubpacketBuilder{}, err
	}
	raw, err := io.ReadAll(b)
	if err != nil {
		return SubpacketBuilder{}, err
	}
	return SubpacketBuilder{subType: spEmbeddedSignature, data: raw}, nil
}

// RevocationReasonBuilder builds a subpacket 29 value.
func RevocationReasonBuilder(code byte, text string) SubpacketBuilder {
	return spBuilder(spRevocationReason, append([]byte{code}, []byte(text)...))
}
