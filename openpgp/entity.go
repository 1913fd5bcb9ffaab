// Package openpgp ties the packet layer into the higher-level object
// graph RFC 4880/9580 describe informally: keys bundled with their
// identities and subkeys (this file), and messages built or consumed
// as a whole (message.go).
package openpgp

import (
	"crypto/ecdh"
	"crypto/rsa"
	"time"

	"golang.org/x/crypto/ed25519"

	gopgp_crypto "github.com/nguyennv/gopg/openpgp/crypto"
	"github.com/nguyennv/gopg/openpgp/errors"
	"github.com/nguyennv/gopg/openpgp/packet"
)

// Identity binds a user-id to an Entity's primary key: the self-issued
// certification, any third-party certifications gathered for it, and
// a revocation of that binding if one has been issued.
type Identity struct {
	Name          string // the raw user-id string, e.g. "Jane Doe <jane@example.com>"
	UserId        *packet.UserId
	SelfSignature *packet.Signature
	Signatures    []*packet.Signature
	Revocation    *packet.Signature
}

// Subkey is a secondary key bound to an Entity's primary key by a
// subkey-binding signature.
type Subkey struct {
	PublicKey  *packet.PublicKey
	PrivateKey *packet.PrivateKey // nil for a public-key-only Entity
	Sig        *packet.Signature
	Revocation *packet.Signature

	// Err explains why this Subkey was filed under Entity.BadSubkeys
	// instead of Entity.Subkeys; nil for every subkey in Subkeys itself.
	Err error
}

// Entity is the key object graph of §4.8: a primary key, the
// identities certified against it, and any subkeys bound to it.
// BadSubkeys holds subkeys whose key material was rejected when read
// (a deprecated algorithm, or material that fails IsValid), preserved
// for inspection rather than silently discarded. Binding signatures are
// not checked when a subkey is filed here or in Subkeys.
type Entity struct {
	PrimaryKey  *packet.PublicKey
	PrivateKey  *packet.PrivateKey // nil for a public-key-only Entity
	Identities  map[string]*Identity
	Revocations []*packet.Signature
	Subkeys     []*Subkey
	BadSubkeys  []*Subkey
}

// NewEntity generates a new primary key, a first identity with
// name/comment/email, and one encryption-capable subkey, per §4.8's
// "Generate" operation. v4 configurations (the default) generate
// RSA-2048 primary and subkey material, matching the algorithm the
// teacher's own key-generation defaults to; v6 configurations
// (cfg.V6Keys) generate Ed25519 (signing) and X25519 (encryption)
// instead, RFC 9580's recommended algorithms.
func NewEntity(name, comment, email string, cfg *packet.Config) (*Entity, error) {
	creationTime := cfg.Time()
	version := 4
	if cfg.V6() {
		version = 6
	}

	primary, err := generateSigningKey(cfg, creationTime, version)
	if err != nil {
		return nil, err
	}

	e := &Entity{
		PrimaryKey: &primary.PublicKey,
		PrivateKey: primary,
		Identities: make(map[string]*Identity),
	}

	uid := packet.NewUserId(name, comment, email)
	if uid == nil {
		return nil, errors.InvalidArgumentError("user id contains invalid characters")
	}
	if err := e.addUserId(uid, cfg, creationTime, true); err != nil {
		return nil, err
	}

	encKey, err := generateEncryptionKey(cfg, creationTime, version)
	if err != nil {
		return nil, err
	}
	if err := e.bindSubkey(encKey, packet.KeyFlagEncryptCommunication|packet.KeyFlagEncryptStorage, cfg, creationTime); err != nil {
		return nil, err
	}

	return e, nil
}

func generateSigningKey(cfg *packet.Config, creationTime time.Time, version int) (*packet.PrivateKey, error) {
	rnd := cfg.Random()
	if version == 6 {
		_, priv, err := ed25519.GenerateKey(rnd)
		if err != nil {
			return nil, err
		}
		return packet.NewEd25519PrivateKey(creationTime, version, priv)
	}
	priv, err := rsa.GenerateKey(rnd, 2048)
	if err != nil {
		return nil, err
	}
	return packet.NewRSAPrivateKey(creationTime, version, priv)
}

func generateEncryptionKey(cfg *packet.Config, creationTime time.Time, version int) (*packet.PrivateKey, error) {
	rnd := cfg.Random()
	if version == 6 {
		priv, err := cfg.Provider().GenerateECDH(rnd, ecdh.X25519())
		if err != nil {
			return nil, err
		}
		return packet.NewX25519PrivateKey(creationTime, version, priv)
	}
	priv, err := rsa.GenerateKey(rnd, 2048)
	if err != nil {
		return nil, err
	}
	return packet.NewRSAPrivateKey(creationTime, version, priv)
}

// preferenceSubpackets returns the preferred-algorithm and features
// subpackets a self-certification carries, per §4.8's generate spec:
// AES-128/192/256, SHA-256/SHA-512, uncompressed/zip/zlib/bzip2, and
// the modification-detection feature (plus AEAD for v6 keys).
func preferenceSubpackets(version int) []packet.SubpacketBuilder {
	out := []packet.SubpacketBuilder{
		packet.PreferredSymmetricBuilder([]byte{
			byte(gopgp_crypto.CipherAES256), byte(gopgp_crypto.CipherAES192), byte(gopgp_crypto.CipherAES128),
		}),
		packet.PreferredHashBuilder([]byte{
			byte(gopgp_crypto.HashSHA512), byte(gopgp_crypto.HashSHA256),
		}),
		packet.PreferredCompressionBuilder([]byte{
			byte(packet.CompressionNone), byte(packet.CompressionZIP), byte(packet.CompressionZLIB), byte(packet.CompressionBZIP2),
		}),
	}
	features := byte(packet.FeatureModificationDetection)
	if version == 6 {
		features |= packet.FeatureAEAD
		out = append(out, packet.PreferredAEADBuilder([]byte{
			byte(gopgp_crypto.CipherAES256), byte(gopgp_crypto.AEADModeOCB),
			byte(gopgp_crypto.CipherAES128), byte(gopgp_crypto.AEADModeOCB),
		}))
	}
	out = append(out, packet.FeaturesBuilder(features))
	return out
}

// addUserId builds and attaches the self-certification for uid,
// marking it primary (and setting key_expiration_time on the binding,
// per §4.8) when requested.
func (e *Entity) addUserId(uid *packet.UserId, cfg *packet.Config, creationTime time.Time, primary bool) error {
	if e.PrivateKey == nil {
		return errors.InvalidArgumentError("entity has no private key to certify with")
	}
	builders := []packet.SubpacketBuilder{
		packet.KeyFlagsBuilder(packet.KeyFlagCertify | packet.KeyFlagSignData),
	}
	builders = append(builders, preferenceSubpackets(e.PrimaryKey.Version)...)
	if primary {
		builders = append(builders, packet.PrimaryUserIdBuilder())
	}
	if lifetime := cfg.KeyLifetime(); lifetime > 0 {
		builders = append(builders, packet.KeyExpirationBuilder(lifetime))
	}

	target := append(append([]byte{}, e.PrimaryKey.SignatureTargetBytes()...), uid.SignatureTargetBytes()...)
	sig, err := packet.Sign(cfg.Provider(), cfg.Random(), e.PrivateKey, packet.SigTypePositiveCert, cfg.Hash(), creationTime, e.PrimaryKey.Version, builders, target)
	if err != nil {
		return err
	}

	e.Identities[uid.Id] = &Identity{Name: uid.Id, UserId: uid, SelfSignature: sig}
	return nil
}

// AddUserId certifies an additional identity on an already-generated
// Entity; the new identity is never marked primary.
func (e *Entity) AddUserId(name, comment, email string, cfg *packet.Config) error {
	uid := packet.NewUserId(name, comment, email)
	if uid == nil {
		return errors.InvalidArgumentError("user id contains invalid characters")
	}
	return e.addUserId(uid, cfg, cfg.Time(), false)
}

// bindSubkey signs a subkey-binding signature over primary||sub and
// appends the Subkey, carrying key_expiration_time (§4.8) when cfg
// requests one. A signing-capable subkey (KeyFlagSignData or
// KeyFlagAuthenticate) additionally carries an embedded
// primary-key-binding signature proving the subkey consents to being
// bound, matching what verification of a signing subkey requires.
func (e *Entity) bindSubkey(sub *packet.PrivateKey, flags byte, cfg *packet.Config, creationTime time.Time) error {
	builders := []packet.SubpacketBuilder{packet.KeyFlagsBuilder(flags)}
	if lifetime := cfg.KeyLifetime(); lifetime > 0 {
		builders = append(builders, packet.KeyExpirationBuilder(lifetime))
	}

	target := append(append([]byte{}, e.PrimaryKey.SignatureTargetBytes()...), sub.PublicKey.SignatureTargetBytes()...)

	if flags&(packet.KeyFlagSignData|packet.KeyFlagAuthenticate) != 0 {
		backTarget := append(append([]byte{}, e.PrimaryKey.SignatureTargetBytes()...), sub.PublicKey.SignatureTargetBytes()...)
		backSig, err := packet.Sign(cfg.Provider(), cfg.Random(), sub, packet.SigTypePrimaryKeyBinding, cfg.Hash(), creationTime, sub.PublicKey.Version, nil, backTarget)
		if err != nil {
			return err
		}
		embedded, err := packet.EmbeddedSignatureBuilder(backSig)
		if err != nil {
			return err
		}
		builders = append(builders, embedded)
	}

	sig, err := packet.Sign(cfg.Provider(), cfg.Random(), e.PrivateKey, packet.SigTypeSubkeyBinding, cfg.Hash(), creationTime, e.PrimaryKey.Version, builders, target)
	if err != nil {
		return err
	}

	e.Subkeys = append(e.Subkeys, &Subkey{PublicKey: &sub.PublicKey, PrivateKey: sub, Sig: sig})
	return nil
}

// AddSubkey generates and binds a new subkey for the capability flags
// requested (packet.KeyFlagSignData, EncryptCommunication,
// EncryptStorage, or Authenticate), using the same algorithm choice as
// NewEntity's generate step for the Entity's key version.
func (e *Entity) AddSubkey(flags byte, cfg *packet.Config) error {
	if e.PrivateKey == nil {
		return errors.InvalidArgumentError("entity has no private key to bind a subkey with")
	}
	creationTime := cfg.Time()
	version := e.PrimaryKey.Version

	var sub *packet.PrivateKey
	var err error
	if flags&(packet.KeyFlagSignData|packet.KeyFlagAuthenticate|packet.KeyFlagCertify) != 0 {
		sub, err = generateSigningKey(cfg, creationTime, version)
	} else {
		sub, err = generateEncryptionKey(cfg, creationTime, version)
	}
	if err != nil {
		return err
	}
	return e.bindSubkey(sub, flags, cfg, creationTime)
}

// revocationSig builds a standalone or target-bound revocation
// signature of sigType over target, carrying a revocation-reason
// subpacket (§5.2.3.23).
func (e *Entity) revocationSig(sigType packet.SignatureType, target []byte, reason byte, text string, cfg *packet.Config) (*packet.Signature, error) {
	if e.PrivateKey == nil {
		return nil, errors.InvalidArgumentError("entity has no private key to revoke with")
	}
	builders := []packet.SubpacketBuilder{packet.RevocationReasonBuilder(reason, text)}
	return packet.Sign(cfg.Provider(), cfg.Random(), e.PrivateKey, sigType, cfg.Hash(), cfg.Time(), e.PrimaryKey.Version, builders, target)
}

// RevokeKey issues a key-revocation signature (SigTypeKeyRevocation)
// for the primary key and records it in Revocations.
func (e *Entity) RevokeKey(reason byte, text string, cfg *packet.Config) error {
	sig, err := e.revocationSig(packet.SigTypeKeyRevocation, e.PrimaryKey.SignatureTargetBytes(), reason, text, cfg)
	if err != nil {
		return err
	}
	e.Revocations = append(e.Revocations, sig)
	return nil
}

// RevokeSubkey issues a subkey-revocation signature (§4.8) for sub.
func (e *Entity) RevokeSubkey(sub *Subkey, reason byte, text string, cfg *packet.Config) error {
	target := append(append([]byte{}, e.PrimaryKey.SignatureTargetBytes()...), sub.PublicKey.SignatureTargetBytes()...)
	sig, err := e.revocationSig(packet.SigTypeSubkeyRevocation, target, reason, text, cfg)
	if err != nil {
		return err
	}
	sub.Revocation = sig
	return nil
}

// RevokeUserId issues a certification-revocation signature for the
// identity matching id.
func (e *Entity) RevokeUserId(id string, reason byte, text string, cfg *packet.Config) error {
	ident, ok := e.Identities[id]
	if !ok {
		return errors.InvalidArgumentError("no such user id on this entity")
	}
	target := append(append([]byte{}, e.PrimaryKey.SignatureTargetBytes()...), ident.UserId.SignatureTargetBytes()...)
	sig, err := e.revocationSig(packet.SigTypeCertificationRevocation, target, reason, text, cfg)
	if err != nil {
		return err
	}
	ident.Revocation = sig
	return nil
}

// Certify has this Entity's primary key countersign target's identity
// id as a third-party certification, appending the resulting
// signature to that Identity's Signatures.
func (e *Entity) Certify(target *Entity, id string, cfg *packet.Config) error {
	ident, ok := target.Identities[id]
	if !ok {
		return errors.InvalidArgumentError("no such user id on target entity")
	}
	certTarget := append(append([]byte{}, target.PrimaryKey.SignatureTargetBytes()...), ident.UserId.SignatureTargetBytes()...)
	sig, err := e.certificationSig(packet.SigTypeGenericCert, certTarget, cfg)
	if err != nil {
		return err
	}
	ident.Signatures = append(ident.Signatures, sig)
	return nil
}

func (e *Entity) certificationSig(sigType packet.SignatureType, target []byte, cfg *packet.Config) (*packet.Signature, error) {
	if e.PrivateKey == nil {
		return nil, errors.InvalidArgumentError("entity has no private key to certify with")
	}
	return packet.Sign(cfg.Provider(), cfg.Random(), e.PrivateKey, sigType, cfg.Hash(), cfg.Time(), e.PrimaryKey.Version, nil, target)
}

// primaryRevoked reports whether any recorded key-revocation signature
// verifies against the primary key.
func (e *Entity) primaryRevoked(provider gopgp_crypto.Provider) bool {
	for _, rev := range e.Revocations {
		if rev.Verify(provider, e.PrimaryKey, e.PrimaryKey.SignatureTargetBytes(), rev.CreationTime) == nil {
			return true
		}
	}
	return false
}

// Verify reports whether the Entity is valid at time at, per §4.8's
// "Verify" operation: some self-certification verifies and is not
// revoked, the primary itself carries no valid revocation covering at,
// created <= at, and (if an expiration applies) at is still within it.
func (e *Entity) Verify(provider gopgp_crypto.Provider, at time.Time) bool {
	if e.PrimaryKey.CreationTime.After(at) {
		return false
	}
	if e.primaryRevoked(provider) {
		return false
	}
	for id, ident := range e.Identities {
		if e.verifyIdentity(provider, id, ident, at) {
			return true
		}
	}
	return false
}

func (e *Entity) verifyIdentity(provider gopgp_crypto.Provider, id string, ident *Identity, at time.Time) bool {
	if ident.Revocation != nil {
		target := append(append([]byte{}, e.PrimaryKey.SignatureTargetBytes()...), ident.UserId.SignatureTargetBytes()...)
		if ident.Revocation.Verify(provider, e.PrimaryKey, target, at) == nil {
			return false
		}
	}
	target := append(append([]byte{}, e.PrimaryKey.SignatureTargetBytes()...), ident.UserId.SignatureTargetBytes()...)
	if ident.SelfSignature.Verify(provider, e.PrimaryKey, target, at) != nil {
		return false
	}
	if exp := keyExpiration(ident.SelfSignature, e.PrimaryKey.CreationTime); exp != nil && !at.Before(*exp) {
		return false
	}
	return true
}

func keyExpiration(sig *packet.Signature, created time.Time) *time.Time {
	if sig == nil || sig.KeyExpirationSecs == nil || *sig.KeyExpirationSecs == 0 {
		return nil
	}
	t := created.Add(time.Duration(*sig.KeyExpirationSecs) * time.Second)
	return &t
}

// usable reports whether sub carries a verifying, unrevoked binding
// signature that grants capability flag at time at.
func (e *Entity) usable(provider gopgp_crypto.Provider, sub *Subkey, flag byte, at time.Time) bool {
	if sub.Sig == nil || sub.Sig.KeyFlags == nil || *sub.Sig.KeyFlags&flag == 0 {
		return false
	}
	if sub.Revocation != nil {
		target := append(append([]byte{}, e.PrimaryKey.SignatureTargetBytes()...), sub.PublicKey.SignatureTargetBytes()...)
		if sub.Revocation.Verify(provider, e.PrimaryKey, target, at) == nil {
			return false
		}
	}
	target := append(append([]byte{}, e.PrimaryKey.SignatureTargetBytes()...), sub.PublicKey.SignatureTargetBytes()...)
	if sub.Sig.Verify(provider, e.PrimaryKey, target, at) != nil {
		return false
	}
	if exp := keyExpiration(sub.Sig, sub.PublicKey.CreationTime); exp != nil && !at.Before(*exp) {
		return false
	}
	return true
}

// DecryptionKeys returns the encryption-capable key packets usable for
// decryption at time at, newest-first, appending the primary key last
// if it is itself encryption-capable — §4.8's "Selection for
// decryption". If keyID is non-nil, only keys matching it are returned.
func (e *Entity) DecryptionKeys(provider gopgp_crypto.Provider, keyID *uint64, at time.Time) []*packet.PrivateKey {
	var candidates []*Subkey
	for _, sub := range e.Subkeys {
		if e.usable(provider, sub, packet.KeyFlagEncryptCommunication, at) || e.usable(provider, sub, packet.KeyFlagEncryptStorage, at) {
			candidates = append(candidates, sub)
		}
	}
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if candidates[j].PublicKey.CreationTime.After(candidates[i].PublicKey.CreationTime) {
				candidates[i], candidates[j] = candidates[j], candidates[i]
			}
		}
	}

	var out []*packet.PrivateKey
	for _, sub := range candidates {
		if sub.PrivateKey == nil {
			continue
		}
		if keyID != nil && sub.PublicKey.KeyId != *keyID {
			continue
		}
		out = append(out, sub.PrivateKey)
	}
	if e.PrimaryKey.CanEncrypt() && e.PrivateKey != nil && (keyID == nil || e.PrimaryKey.KeyId == *keyID) {
		out = append(out, e.PrivateKey)
	}
	return out
}

// SigningKey returns the key packet to sign new data with at time at,
// per §4.8's "Selection for signing": a signing-capable subkey with a
// valid binding is preferred, falling back to the primary key.
func (e *Entity) SigningKey(provider gopgp_crypto.Provider, at time.Time) (*packet.PrivateKey, error) {
	for _, sub := range e.Subkeys {
		if sub.PrivateKey == nil {
			continue
		}
		if e.usable(provider, sub, packet.KeyFlagSignData, at) {
			return sub.PrivateKey, nil
		}
	}
	if e.PrivateKey != nil && e.PrimaryKey.CanSign() {
		return e.PrivateKey, nil
	}
	return nil, errors.InvalidArgumentError("entity has no usable signing key")
}
