package openpgp

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"io"
	"time"

	"github.com/nguyennv/gopg/openpgp/armor"
	"github.com/nguyennv/gopg/openpgp/clearsign"
	gopgp_crypto "github.com/nguyennv/gopg/openpgp/crypto"
	"github.com/nguyennv/gopg/openpgp/errors"
	"github.com/nguyennv/gopg/openpgp/packet"
	"github.com/nguyennv/gopg/openpgp/s2k"
)

// LiteralMessage is the object form of a signed and/or unencrypted
// message (§4.9): one literal-data packet plus zero or more signatures
// over its content.
type LiteralMessage struct {
	Format   byte
	FileName string
	ModTime  uint32
	Body     []byte

	Signatures []*packet.Signature
}

// NewLiteralMessage wraps body as a binary literal message.
func NewLiteralMessage(body []byte) *LiteralMessage {
	return &LiteralMessage{Format: 'b', Body: body}
}

func (m *LiteralMessage) sigType() packet.SignatureType {
	if m.Format == 't' || m.Format == 'u' {
		return packet.SigTypeText
	}
	return packet.SigTypeBinary
}

// Sign attaches one signature per signer over the literal body, per
// §4.9's "sign" operation. Serialize then interleaves the
// corresponding one-pass-signature packets before the literal data and
// the full signature packets after it.
func (m *LiteralMessage) Sign(cfg *packet.Config, signers ...*packet.PrivateKey) error {
	if len(signers) == 0 {
		return errors.InvalidArgumentError("at least one signer is required")
	}
	version := 4
	if cfg.V6() {
		version = 6
	}
	when := cfg.Time()
	sigType := m.sigType()

	sigs := make([]*packet.Signature, 0, len(signers))
	for _, signer := range signers {
		sig, err := packet.Sign(cfg.Provider(), cfg.Random(), signer, sigType, cfg.Hash(), when, version, nil, m.Body)
		if err != nil {
			return err
		}
		sigs = append(sigs, sig)
	}
	m.Signatures = sigs
	return nil
}

// SignDetached produces signature packets over data without wrapping
// it in a literal-data packet, per §4.9's "signDetached" operation.
func SignDetached(cfg *packet.Config, data []byte, binary bool, signers ...*packet.PrivateKey) ([]*packet.Signature, error) {
	if len(signers) == 0 {
		return nil, errors.InvalidArgumentError("at least one signer is required")
	}
	sigType := packet.SigTypeText
	if binary {
		sigType = packet.SigTypeBinary
	}
	version := 4
	if cfg.V6() {
		version = 6
	}
	when := cfg.Time()

	out := make([]*packet.Signature, 0, len(signers))
	for _, signer := range signers {
		sig, err := packet.Sign(cfg.Provider(), cfg.Random(), signer, sigType, cfg.Hash(), when, version, nil, data)
		if err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, nil
}

// Serialize writes the message's wire form: a one-pass-signature
// packet per attached signature (nesting flag set on all but the one
// closest to the literal data), the literal-data packet, then the full
// signature packets in reverse order, per §4.9.
func (m *LiteralMessage) Serialize(w io.Writer) error {
	n := len(m.Signatures)
	for i, sig := range m.Signatures {
		var keyID uint64
		if sig.IssuerKeyId != nil {
			keyID = *sig.IssuerKeyId
		}
		ops := &packet.OnePassSignature{
			Version:    3,
			SigType:    sig.SigType,
			Hash:       sig.Hash,
			PubKeyAlgo: sig.PubKeyAlgo,
			KeyId:      keyID,
			IsLast:     i == n-1,
		}
		if err := ops.Serialize(w); err != nil {
			return err
		}
	}
	if err := packet.WriteLiteral(w, m.Format, m.FileName, m.ModTime, m.Body); err != nil {
		return err
	}
	for i := n - 1; i >= 0; i-- {
		if err := m.Signatures[i].Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// SerializeArmored writes Serialize's output wrapped in PGP MESSAGE
// ASCII armor.
func (m *LiteralMessage) SerializeArmored(w io.Writer) error {
	var buf bytes.Buffer
	if err := m.Serialize(&buf); err != nil {
		return err
	}
	return armor.Encode(w, armor.TypeMessage, nil, buf.Bytes())
}

// VerifyBy checks every attached signature against the candidate
// entities in keys, returning the first Entity and Signature pair that
// verifies.
func (m *LiteralMessage) VerifyBy(provider gopgp_crypto.Provider, keys EntityList, at time.Time) (*Entity, *packet.Signature, error) {
	for _, sig := range m.Signatures {
		for _, e := range keys {
			for _, pk := range e.signingCandidates() {
				if sig.IssuerKeyId != nil && *sig.IssuerKeyId != pk.KeyId {
					continue
				}
				if err := sig.Verify(provider, pk, m.Body, at); err == nil {
					return e, sig, nil
				}
			}
		}
	}
	return nil, nil, errors.ErrUnknownIssuer
}

// signingCandidates lists every key packet on the Entity capable of
// checking a signature: the primary itself plus any signing subkeys.
func (e *Entity) signingCandidates() []*packet.PublicKey {
	out := []*packet.PublicKey{e.PrimaryKey}
	for _, sub := range e.Subkeys {
		if sub.PublicKey.CanSign() {
			out = append(out, sub.PublicKey)
		}
	}
	return out
}

// EncryptedMessage is the parsed object form of an encrypted message
// (§4.9): the session-key packets (PKESK/SKESK) addressed to each
// recipient or password, and exactly one symmetrically-encrypted data
// packet carrying the (possibly compressed) inner literal message.
type EncryptedMessage struct {
	PKESKs []*packet.EncryptedKey
	SKESKs []*packet.SymmetricKeyEncrypted
	SEIPD  *packet.SymmetricallyEncrypted
}

// EncryptOptions configures EncryptMessage beyond its recipients and
// passwords: the symmetric cipher, whether to use AEAD (SEIPD v2) or
// the legacy CFB+MDC packet (SEIPD v1), and optional compression.
type EncryptOptions struct {
	Cipher      gopgp_crypto.CipherFunction
	AEAD        *packet.AEADParams
	Compression packet.CompressionAlgo
	Config      *packet.Config
}

func (o *EncryptOptions) cipher() gopgp_crypto.CipherFunction {
	if o != nil && o.Cipher != 0 {
		return o.Cipher
	}
	return o.Config.Cipher()
}

func pkeskVersionFor(recipient *packet.PublicKey, cfg *packet.Config) int {
	if cfg.V6() || recipient.Version == 6 {
		return 6
	}
	return 3
}

// checksum16 is the two-byte additive checksum RFC 4880 §5.1 specifies
// for the v3 PKESK/SKESK "algo || session key" payload.
func checksum16(key []byte) []byte {
	var sum uint16
	for _, b := range key {
		sum += uint16(b)
	}
	return []byte{byte(sum >> 8), byte(sum)}
}

// EncryptMessage produces a full encrypted-message packet stream: one
// PKESK per recipient, one SKESK per password, and a single SEIPD
// packet wrapping msg (compressed first if opts requests it), per
// §4.9's "encrypt" operation.
func EncryptMessage(w io.Writer, recipients []*packet.PublicKey, passwords [][]byte, msg *LiteralMessage, opts *EncryptOptions) error {
	if len(recipients) == 0 && len(passwords) == 0 {
		return errors.InvalidArgumentError("at least one recipient or password is required")
	}
	cfg := opts.Config
	provider := cfg.Provider()
	rnd := cfg.Random()
	cipher := opts.cipher()
	useAEAD := opts != nil && opts.AEAD != nil

	sessionKey := make([]byte, cipher.KeySize())
	if _, err := io.ReadFull(rnd, sessionKey); err != nil {
		return err
	}

	var plainBuf bytes.Buffer
	if err := msg.Serialize(&plainBuf); err != nil {
		return err
	}
	plaintext := plainBuf.Bytes()
	if opts != nil && opts.Compression != packet.CompressionNone {
		var cbuf bytes.Buffer
		if err := packet.WriteCompressed(&cbuf, opts.Compression, plaintext); err != nil {
			return err
		}
		plaintext = cbuf.Bytes()
	}

	for _, recipient := range recipients {
		version := pkeskVersionFor(recipient, cfg)
		var keyData []byte
		if version == 3 {
			keyData = append([]byte{byte(cipher)}, sessionKey...)
			keyData = append(keyData, checksum16(sessionKey)...)
		} else {
			keyData = sessionKey
		}
		ct, err := recipient.EncryptSessionKey(provider, rnd, keyData)
		if err != nil {
			return err
		}
		pkesk := &packet.EncryptedKey{Version: version, PubKeyAlgo: recipient.Algo, Ciphertext: *ct, KeyId: recipient.KeyId}
		if version == 6 {
			pkesk.KeyVersion = byte(recipient.Version)
			pkesk.Fingerprint = recipient.Fingerprint
		}
		if err := pkesk.Serialize(w); err != nil {
			return err
		}
	}

	for _, pw := range passwords {
		skesk, err := buildSKESK(provider, rnd, cipher, sessionKey, pw, cfg, useAEAD, opts)
		if err != nil {
			return err
		}
		if err := skesk.Serialize(w); err != nil {
			return err
		}
	}

	var se *packet.SymmetricallyEncrypted
	var err error
	if useAEAD {
		se, err = packet.EncryptAEAD(provider, rnd, cipher, opts.AEAD.Mode, opts.AEAD.ChunkSizeOctet, sessionKey, plaintext)
	} else {
		se, err = packet.EncryptLegacy(provider, rnd, cipher, sessionKey, plaintext)
	}
	if err != nil {
		return err
	}
	return se.Serialize(w)
}

// buildSKESK builds a password-protected session-key packet. When
// useAEAD is requested, the v6 AEAD-wrapped shape is produced with an
// Argon2id-derived key; otherwise the legacy v4 CFB-wrapped shape is
// produced with an Iterated-Salted S2K, matching the engine's secret-key
// locking scheme in packet.PrivateKey.Lock.
func buildSKESK(provider gopgp_crypto.Provider, rnd io.Reader, cipher gopgp_crypto.CipherFunction, sessionKey, passphrase []byte, cfg *packet.Config, useAEAD bool, opts *EncryptOptions) (*packet.SymmetricKeyEncrypted, error) {
	if !useAEAD {
		params, err := s2k.NewIterated(rnd, byte(cfg.Hash()), hashFuncFor(cfg.Hash()), s2k.EncodeCount(65536))
		if err != nil {
			return nil, err
		}
		derived, err := params.Key(passphrase, cipher.KeySize())
		if err != nil {
			return nil, err
		}
		iv := make([]byte, cipher.BlockSize())
		stream, err := provider.NewCFBEncryptStream(cipher, derived, iv)
		if err != nil {
			return nil, err
		}
		payload := append([]byte{byte(cipher)}, sessionKey...)
		wrapped := make([]byte, len(payload))
		stream.XORKeyStream(wrapped, payload)
		return &packet.SymmetricKeyEncrypted{Version: 4, Cipher: cipher, Params: params, EncryptedSessionKey: wrapped}, nil
	}

	mode := opts.AEAD.Mode
	params, err := s2k.NewArgon2(rnd, 3, 4, 21)
	if err != nil {
		return nil, err
	}
	derived, err := params.Key(passphrase, cipher.KeySize())
	if err != nil {
		return nil, err
	}
	iv := make([]byte, aeadNonceSizeFor(mode))
	if _, err := io.ReadFull(rnd, iv); err != nil {
		return nil, err
	}
	aad := []byte{0xc0 | 3, 6, byte(cipher), byte(mode)}
	wrapped, err := provider.Seal(mode, cipher, derived, iv, aad, sessionKey)
	if err != nil {
		return nil, err
	}
	return &packet.SymmetricKeyEncrypted{Version: 6, Cipher: cipher, AEADMode: mode, Params: params, IV: iv, EncryptedSessionKey: wrapped}, nil
}

func aeadNonceSizeFor(mode gopgp_crypto.AEADMode) int {
	switch mode {
	case gopgp_crypto.AEADModeEAX:
		return 16
	case gopgp_crypto.AEADModeOCB:
		return 15
	case gopgp_crypto.AEADModeGCM:
		return 12
	default:
		return 16
	}
}

// hashFuncFor returns a stdlib hash constructor for the S2K hash
// algorithms this engine actually issues (SHA-256/384/512), matching
// the mapping packet.PrivateKey.Lock uses for its own S2K parameters.
func hashFuncFor(h gopgp_crypto.Hash) s2k.HashFunc {
	switch h {
	case gopgp_crypto.HashSHA1:
		return func() hash.Hash { return sha1.New() }
	case gopgp_crypto.HashSHA384:
		return func() hash.Hash { return sha512.New384() }
	case gopgp_crypto.HashSHA512:
		return func() hash.Hash { return sha512.New() }
	default:
		return func() hash.Hash { return sha256.New() }
	}
}

// ReadEncryptedMessage parses a single encrypted message (its leading
// PKESK/SKESK packets and exactly one SEIPD/SED packet) from a binary
// packet stream, per §4.9.
func ReadEncryptedMessage(r io.Reader) (*EncryptedMessage, error) {
	pr := packet.NewReader(r)
	em := &EncryptedMessage{}
	for {
		p, err := pr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch pk := p.(type) {
		case *packet.EncryptedKey:
			em.PKESKs = append(em.PKESKs, pk)
		case *packet.SymmetricKeyEncrypted:
			em.SKESKs = append(em.SKESKs, pk)
		case *packet.SymmetricallyEncrypted:
			if em.SEIPD != nil {
				return nil, errors.ErrMalformedEncryptedMessage
			}
			em.SEIPD = pk
		default:
			// Marker/padding packets preceding the encrypted data are ignored.
		}
	}
	if em.SEIPD == nil {
		return nil, errors.ErrMalformedEncryptedMessage
	}
	return em, nil
}

// Decrypt recovers the session key using the first matching private
// key in keys or the first password in passwords that succeeds, then
// decrypts and parses the inner literal message, per §4.9's "decrypt"
// operation.
func (em *EncryptedMessage) Decrypt(provider gopgp_crypto.Provider, keys []*packet.PrivateKey, passwords [][]byte) (*LiteralMessage, error) {
	sessionKey, cipher, err := em.recoverSessionKey(provider, keys, passwords)
	if err != nil {
		return nil, err
	}

	var plaintext []byte
	switch em.SEIPD.Version {
	case 0, 1:
		plaintext, err = em.SEIPD.DecryptLegacy(provider, sessionKey, cipher)
	case 2:
		plaintext, err = em.SEIPD.DecryptAEAD(provider, sessionKey)
	default:
		return nil, errors.UnsupportedError("symmetrically encrypted data version")
	}
	if err != nil {
		return nil, err
	}

	return parseLiteralStream(plaintext)
}

func (em *EncryptedMessage) recoverSessionKey(provider gopgp_crypto.Provider, keys []*packet.PrivateKey, passwords [][]byte) ([]byte, gopgp_crypto.CipherFunction, error) {
	for _, priv := range keys {
		for _, pkesk := range em.PKESKs {
			if pkesk.KeyId != 0 && pkesk.KeyId != priv.PublicKey.KeyId {
				continue
			}
			keyData, err := pkesk.DecryptSessionKey(provider, priv)
			if err != nil {
				continue
			}
			if pkesk.Version == 3 {
				if len(keyData) < 3 {
					continue
				}
				cipher := gopgp_crypto.CipherFunction(keyData[0])
				key := keyData[1 : len(keyData)-2]
				if !bytes.Equal(checksum16(key), keyData[len(keyData)-2:]) {
					continue
				}
				return key, cipher, nil
			}
			return keyData, em.SEIPD.Cipher, nil
		}
	}
	for _, pw := range passwords {
		for _, skesk := range em.SKESKs {
			key, cipher, err := skesk.DeriveSessionKey(provider, pw)
			if err != nil {
				continue
			}
			return key, cipher, nil
		}
	}
	return nil, 0, errors.ErrSessionKeyDecryptionFailed
}

// parseLiteralStream walks a (possibly compressed) decrypted packet
// stream looking for the literal-data packet and any one-pass-signed
// trailing signatures, reassembling a LiteralMessage.
func parseLiteralStream(plaintext []byte) (*LiteralMessage, error) {
	pr := packet.NewReader(bytes.NewReader(plaintext))
	var m *LiteralMessage
	var pendingOPS int
	for {
		p, err := pr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch pk := p.(type) {
		case *packet.CompressedData:
			inner, err := io.ReadAll(pk.Body)
			if err != nil {
				return nil, err
			}
			return parseLiteralStream(inner)
		case *packet.OnePassSignature:
			pendingOPS++
		case *packet.LiteralData:
			body, err := pk.Bytes()
			if err != nil {
				return nil, err
			}
			m = &LiteralMessage{Format: pk.Format, FileName: pk.FileName, ModTime: pk.Time, Body: body}
		case *packet.Signature:
			if m == nil {
				return nil, errors.StructuralError("signature packet with no preceding literal data")
			}
			m.Signatures = append(m.Signatures, pk)
		}
	}
	if m == nil {
		return nil, errors.StructuralError("encrypted message carried no literal data")
	}
	if len(m.Signatures) != pendingOPS {
		return nil, errors.StructuralError("one-pass-signature count does not match trailing signature count")
	}
	return m, nil
}

// SignedMessage is the Cleartext Signature Framework object form
// (§4.9, §7): normalized text plus a detached signature over it. It
// delegates to the clearsign package for the wire-level encoding
// details (dash-escaping, canonical line endings, armor).
type SignedMessage struct {
	Text      []byte
	Signature *packet.Signature
}

// SignCleartext produces the cleartext-signed wire form directly,
// mirroring clearsign.Sign.
func SignCleartext(w io.Writer, signer *packet.PrivateKey, text []byte, cfg *packet.Config) error {
	return clearsign.Sign(w, signer, text, cfg)
}

// ReadSignedMessage parses a cleartext-signed message into its object
// form without verifying it.
func ReadSignedMessage(data []byte) (*SignedMessage, error) {
	decoded, err := clearsign.Decode(data)
	if err != nil {
		return nil, err
	}
	return &SignedMessage{Text: decoded.Text, Signature: decoded.Signature}, nil
}

// Verify checks the cleartext signature against the candidate entities
// in keys, per §4.9's "verify" operation, returning the first Entity
// whose key verifies it.
func (sm *SignedMessage) Verify(provider gopgp_crypto.Provider, keys EntityList, at time.Time) (*Entity, error) {
	for _, e := range keys {
		for _, pk := range e.signingCandidates() {
			if sm.Signature.IssuerKeyId != nil && *sm.Signature.IssuerKeyId != pk.KeyId {
				continue
			}
			if err := sm.Signature.Verify(provider, pk, sm.Text, at); err == nil {
				return e, nil
			}
		}
	}
	return nil, errors.ErrUnknownIssuer
}
