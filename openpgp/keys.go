package openpgp

import (
	"bytes"
	"io"

	"github.com/nguyennv/gopg/openpgp/armor"
	gopgp_crypto "github.com/nguyennv/gopg/openpgp/crypto"
	"github.com/nguyennv/gopg/openpgp/errors"
	"github.com/nguyennv/gopg/openpgp/packet"
)

// packetSource is a packet.Reader with one-packet pushback, so a
// packet read while scanning one entity (and found to belong to the
// next) can be replayed as that entity's first packet.
type packetSource struct {
	r       *packet.Reader
	pending packet.Packet
}

func (s *packetSource) next() (packet.Packet, error) {
	if s.pending != nil {
		p := s.pending
		s.pending = nil
		return p, nil
	}
	return s.r.Next()
}

func (s *packetSource) pushBack(p packet.Packet) { s.pending = p }

// ReadEntity parses one transferable key (RFC 4880 §11.1/11.2: a
// primary key, optional revocations, one or more certified user-ids,
// and zero or more bound subkeys) from a packet stream.
func ReadEntity(packets *packetSource) (*Entity, error) {
	p, err := packets.next()
	if err != nil {
		return nil, err
	}

	e := &Entity{Identities: make(map[string]*Identity)}
	switch pk := p.(type) {
	case *packet.PublicKey:
		if pk.IsSubkey {
			return nil, errors.StructuralError("expected primary public key, got subkey")
		}
		e.PrimaryKey = pk
	case *packet.PrivateKey:
		if pk.PublicKey.IsSubkey {
			return nil, errors.StructuralError("expected primary private key, got subkey")
		}
		e.PrivateKey = pk
		e.PrimaryKey = &pk.PublicKey
	default:
		return nil, errors.StructuralError("expected a public or private key packet first")
	}

	var curIdentity *Identity
	var curSubkey *Subkey

	for {
		p, err := packets.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch pk := p.(type) {
		case *packet.UserId:
			curSubkey = nil
			curIdentity = &Identity{Name: pk.Id, UserId: pk}
			e.Identities[pk.Id] = curIdentity

		case *packet.UserAttribute:
			// User attributes (RFC 4880 §5.12) are accepted on the wire
			// but not modeled as a distinct identity kind here; any
			// certification that follows is simply dropped along with
			// the attribute packet itself, consuming the bytes in place.
			curIdentity = nil
			curSubkey = nil

		case *packet.PublicKey:
			if !pk.IsSubkey {
				packets.pushBack(pk)
				return e, nil
			}
			curIdentity = nil
			curSubkey = &Subkey{PublicKey: pk}
			e.appendSubkey(curSubkey)

		case *packet.PrivateKey:
			if !pk.PublicKey.IsSubkey {
				packets.pushBack(pk)
				return e, nil
			}
			curIdentity = nil
			curSubkey = &Subkey{PublicKey: &pk.PublicKey, PrivateKey: pk}
			e.appendSubkey(curSubkey)

		case *packet.Signature:
			switch {
			case curSubkey != nil:
				switch pk.SigType {
				case packet.SigTypeSubkeyRevocation:
					curSubkey.Revocation = pk
				default:
					curSubkey.Sig = pk
				}
			case curIdentity != nil:
				switch pk.SigType {
				case packet.SigTypeCertificationRevocation:
					curIdentity.Revocation = pk
				case packet.SigTypeGenericCert, packet.SigTypePersonaCert, packet.SigTypeCasualCert, packet.SigTypePositiveCert:
					if pk.IssuerKeyId != nil && *pk.IssuerKeyId == e.PrimaryKey.KeyId {
						curIdentity.SelfSignature = pk
					} else {
						curIdentity.Signatures = append(curIdentity.Signatures, pk)
					}
				}
			case pk.SigType == packet.SigTypeKeyRevocation:
				e.Revocations = append(e.Revocations, pk)
			}

		default:
			// Trust packets, marker packets, and the like: ignored.
		}
	}

	return e, nil
}

func (e *Entity) appendSubkey(sub *Subkey) {
	if sub.PublicKey.Algo == gopgp_crypto.PubKeyAlgoElGamalSign {
		sub.Err = errors.ErrUnsupportedElGamal
		e.BadSubkeys = append(e.BadSubkeys, sub)
		return
	}
	if !sub.PublicKey.IsValid() {
		sub.Err = errors.StructuralError("invalid subkey material")
		e.BadSubkeys = append(e.BadSubkeys, sub)
		return
	}
	e.Subkeys = append(e.Subkeys, sub)
}

// ReadSingleEntity parses exactly one transferable key from a binary
// packet stream, the single-entity counterpart of ReadKeyRing.
func ReadSingleEntity(r io.Reader) (*Entity, error) {
	return ReadEntity(&packetSource{r: packet.NewReader(r)})
}

// EntityList is a keyring: a sequence of independently parsed Entities.
type EntityList []*Entity

// ReadKeyRing parses a sequence of transferable keys (RFC 4880 §11.3)
// from a binary packet stream.
func ReadKeyRing(r io.Reader) (EntityList, error) {
	var list EntityList
	src := &packetSource{r: packet.NewReader(r)}
	for {
		e, err := ReadEntity(src)
		if err == io.EOF {
			return list, nil
		}
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
}

// KeysById returns every primary or subkey packet across the ring
// whose key id matches id.
func (el EntityList) KeysById(id uint64) []*packet.PublicKey {
	var out []*packet.PublicKey
	for _, e := range el {
		if e.PrimaryKey.KeyId == id {
			out = append(out, e.PrimaryKey)
		}
		for _, sub := range e.Subkeys {
			if sub.PublicKey.KeyId == id {
				out = append(out, sub.PublicKey)
			}
		}
	}
	return out
}

// ReadArmoredKeyRing parses an ASCII-armored transferable key or
// keyring (PUBLIC/PRIVATE KEY BLOCK).
func ReadArmoredKeyRing(r io.Reader) (EntityList, error) {
	block, err := armor.Decode(r)
	if err != nil {
		return nil, err
	}
	if block.Type != armor.TypePublicKey && block.Type != armor.TypePrivateKey {
		return nil, errors.StructuralError("armor block is not a key")
	}
	return ReadKeyRing(bytes.NewReader(block.Body))
}

// Serialize writes the Entity's public form: primary public key,
// revocations, identities with their certifications, and subkeys with
// their bindings, per RFC 4880 §11.1.
func (e *Entity) Serialize(w io.Writer) error {
	if err := e.PrimaryKey.Serialize(w); err != nil {
		return err
	}
	for _, rev := range e.Revocations {
		if err := rev.Serialize(w); err != nil {
			return err
		}
	}
	for _, ident := range e.Identities {
		if err := ident.UserId.Serialize(w); err != nil {
			return err
		}
		if ident.SelfSignature != nil {
			if err := ident.SelfSignature.Serialize(w); err != nil {
				return err
			}
		}
		for _, sig := range ident.Signatures {
			if err := sig.Serialize(w); err != nil {
				return err
			}
		}
		if ident.Revocation != nil {
			if err := ident.Revocation.Serialize(w); err != nil {
				return err
			}
		}
	}
	for _, sub := range e.Subkeys {
		if err := sub.PublicKey.Serialize(w); err != nil {
			return err
		}
		if sub.Sig != nil {
			if err := sub.Sig.Serialize(w); err != nil {
				return err
			}
		}
		if sub.Revocation != nil {
			if err := sub.Revocation.Serialize(w); err != nil {
				return err
			}
		}
	}
	return nil
}

// SerializePrivate writes the Entity's private form: the same
// structure as Serialize, but with secret-key packets in place of
// public ones wherever private material is held.
func (e *Entity) SerializePrivate(w io.Writer) error {
	if e.PrivateKey == nil {
		return errors.InvalidArgumentError("entity has no private key")
	}
	if err := e.PrivateKey.Serialize(w); err != nil {
		return err
	}
	for _, rev := range e.Revocations {
		if err := rev.Serialize(w); err != nil {
			return err
		}
	}
	for _, ident := range e.Identities {
		if err := ident.UserId.Serialize(w); err != nil {
			return err
		}
		if ident.SelfSignature != nil {
			if err := ident.SelfSignature.Serialize(w); err != nil {
				return err
			}
		}
		for _, sig := range ident.Signatures {
			if err := sig.Serialize(w); err != nil {
				return err
			}
		}
	}
	for _, sub := range e.Subkeys {
		var err error
		if sub.PrivateKey != nil {
			err = sub.PrivateKey.Serialize(w)
		} else {
			err = sub.PublicKey.Serialize(w)
		}
		if err != nil {
			return err
		}
		if sub.Sig != nil {
			if err := sub.Sig.Serialize(w); err != nil {
				return err
			}
		}
	}
	return nil
}

// SerializeArmored writes the Entity wrapped in ASCII armor of the
// given block type (armor.TypePublicKey or armor.TypePrivateKey).
func (e *Entity) SerializeArmored(w io.Writer, private bool) error {
	var buf bytes.Buffer
	var err error
	t := armor.TypePublicKey
	if private {
		t = armor.TypePrivateKey
		err = e.SerializePrivate(&buf)
	} else {
		err = e.Serialize(&buf)
	}
	if err != nil {
		return err
	}
	return armor.Encode(w, t, nil, buf.Bytes())
}
