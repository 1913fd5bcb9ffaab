package openpgp

import (
	"bytes"
	"testing"
	"time"

	gopgp_crypto "github.com/nguyennv/gopg/openpgp/crypto"
	"github.com/nguyennv/gopg/openpgp/packet"
)

func newTestEntity(t *testing.T, v6 bool) *Entity {
	t.Helper()
	cfg := &packet.Config{V6Keys: v6}
	e, err := NewEntity("Test User", "", "test@example.com", cfg)
	if err != nil {
		t.Fatalf("NewEntity: %v", err)
	}
	return e
}

func TestSignAndVerifyLiteralMessage(t *testing.T) {
	signer := newTestEntity(t, false)
	cfg := &packet.Config{}

	msg := NewLiteralMessage([]byte("hello, world"))
	if err := msg.Sign(cfg, signer.PrivateKey); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	var buf bytes.Buffer
	if err := msg.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	plaintext, err := parseLiteralStream(buf.Bytes())
	if err != nil {
		t.Fatalf("parseLiteralStream: %v", err)
	}
	if string(plaintext.Body) != "hello, world" {
		t.Fatalf("got body %q", plaintext.Body)
	}
	if len(plaintext.Signatures) != 1 {
		t.Fatalf("expected 1 signature, got %d", len(plaintext.Signatures))
	}

	keys := EntityList{signer}
	_, _, err = plaintext.VerifyBy(cfg.Provider(), keys, time.Now())
	if err != nil {
		t.Fatalf("VerifyBy: %v", err)
	}
}

func TestSignAndVerifyMultipleSigners(t *testing.T) {
	first := newTestEntity(t, false)
	second := newTestEntity(t, false)
	cfg := &packet.Config{}

	msg := NewLiteralMessage([]byte("multi-signed"))
	if err := msg.Sign(cfg, first.PrivateKey, second.PrivateKey); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(msg.Signatures) != 2 {
		t.Fatalf("expected 2 signatures, got %d", len(msg.Signatures))
	}

	var buf bytes.Buffer
	if err := msg.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	parsed, err := parseLiteralStream(buf.Bytes())
	if err != nil {
		t.Fatalf("parseLiteralStream: %v", err)
	}
	if len(parsed.Signatures) != 2 {
		t.Fatalf("expected 2 trailing signatures, got %d", len(parsed.Signatures))
	}

	keys := EntityList{first, second}
	for _, sig := range parsed.Signatures {
		single := &LiteralMessage{Body: parsed.Body, Signatures: []*packet.Signature{sig}}
		if _, _, err := single.VerifyBy(cfg.Provider(), keys, time.Now()); err != nil {
			t.Fatalf("VerifyBy: %v", err)
		}
	}
}

func TestSignDetached(t *testing.T) {
	signer := newTestEntity(t, false)
	cfg := &packet.Config{}
	data := []byte("detached content")

	sigs, err := SignDetached(cfg, data, true, signer.PrivateKey)
	if err != nil {
		t.Fatalf("SignDetached: %v", err)
	}
	if len(sigs) != 1 {
		t.Fatalf("expected 1 signature, got %d", len(sigs))
	}
	if err := sigs[0].Verify(cfg.Provider(), signer.PrimaryKey, data, time.Now()); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := sigs[0].Verify(cfg.Provider(), signer.PrimaryKey, append(data, 'X'), time.Now()); err == nil {
		t.Fatal("expected verification of tampered data to fail")
	}
}

func TestEncryptDecryptWithRecipientKey(t *testing.T) {
	recipient := newTestEntity(t, false)
	cfg := &packet.Config{}

	decKeys := recipient.DecryptionKeys(cfg.Provider(), nil, time.Now())
	if len(decKeys) == 0 {
		t.Fatal("expected a usable encryption subkey")
	}

	msg := NewLiteralMessage([]byte("secret payload"))
	opts := &EncryptOptions{Config: cfg}

	var buf bytes.Buffer
	recipientPubKeys := []*packet.PublicKey{&decKeys[0].PublicKey}
	if err := EncryptMessage(&buf, recipientPubKeys, nil, msg, opts); err != nil {
		t.Fatalf("EncryptMessage: %v", err)
	}

	em, err := ReadEncryptedMessage(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadEncryptedMessage: %v", err)
	}
	if len(em.PKESKs) != 1 {
		t.Fatalf("expected 1 PKESK, got %d", len(em.PKESKs))
	}

	out, err := em.Decrypt(cfg.Provider(), decKeys, nil)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(out.Body) != "secret payload" {
		t.Fatalf("got body %q", out.Body)
	}
}

func TestEncryptDecryptWithPassword(t *testing.T) {
	cfg := &packet.Config{}
	opts := &EncryptOptions{Config: cfg}
	msg := NewLiteralMessage([]byte("password protected"))
	password := []byte("correct horse battery staple")

	var buf bytes.Buffer
	if err := EncryptMessage(&buf, nil, [][]byte{password}, msg, opts); err != nil {
		t.Fatalf("EncryptMessage: %v", err)
	}

	em, err := ReadEncryptedMessage(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadEncryptedMessage: %v", err)
	}
	if len(em.SKESKs) != 1 {
		t.Fatalf("expected 1 SKESK, got %d", len(em.SKESKs))
	}

	out, err := em.Decrypt(cfg.Provider(), nil, [][]byte{password})
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(out.Body) != "password protected" {
		t.Fatalf("got body %q", out.Body)
	}

	if _, err := em.Decrypt(cfg.Provider(), nil, [][]byte{[]byte("wrong password")}); err == nil {
		t.Fatal("expected decryption with the wrong password to fail")
	}
}

func TestEncryptDecryptWithCompression(t *testing.T) {
	recipient := newTestEntity(t, false)
	cfg := &packet.Config{}
	decKeys := recipient.DecryptionKeys(cfg.Provider(), nil, time.Now())

	msg := NewLiteralMessage(bytes.Repeat([]byte("compress me "), 64))
	opts := &EncryptOptions{Config: cfg, Compression: packet.CompressionZLIB}

	var buf bytes.Buffer
	recipientPubKeys := []*packet.PublicKey{&decKeys[0].PublicKey}
	if err := EncryptMessage(&buf, recipientPubKeys, nil, msg, opts); err != nil {
		t.Fatalf("EncryptMessage: %v", err)
	}

	em, err := ReadEncryptedMessage(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadEncryptedMessage: %v", err)
	}
	out, err := em.Decrypt(cfg.Provider(), decKeys, nil)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(out.Body, msg.Body) {
		t.Fatalf("round-tripped body mismatch")
	}
}

func TestEncryptDecryptWithAEAD(t *testing.T) {
	recipient := newTestEntity(t, true)
	cfg := &packet.Config{V6Keys: true}
	decKeys := recipient.DecryptionKeys(cfg.Provider(), nil, time.Now())
	if len(decKeys) == 0 {
		t.Fatal("expected a usable encryption subkey")
	}

	msg := NewLiteralMessage([]byte("AEAD protected payload"))
	opts := &EncryptOptions{
		Config: cfg,
		AEAD:   &packet.AEADParams{Mode: gopgp_crypto.AEADModeOCB, ChunkSizeOctet: 6},
	}

	var buf bytes.Buffer
	recipientPubKeys := []*packet.PublicKey{&decKeys[0].PublicKey}
	if err := EncryptMessage(&buf, recipientPubKeys, nil, msg, opts); err != nil {
		t.Fatalf("EncryptMessage: %v", err)
	}

	em, err := ReadEncryptedMessage(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadEncryptedMessage: %v", err)
	}
	if em.SEIPD.Version != 2 {
		t.Fatalf("expected SEIPD version 2, got %d", em.SEIPD.Version)
	}

	out, err := em.Decrypt(cfg.Provider(), decKeys, nil)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(out.Body) != "AEAD protected payload" {
		t.Fatalf("got body %q", out.Body)
	}
}

// Scenario 1: generate an RSA-2048 v4 key, lock it with a passphrase,
// armor the private form, parse the armor back, and confirm the
// self-certification verifies and the key id is stable across the
// round trip.
func TestGenerateLockArmorRoundTripRSA(t *testing.T) {
	cfg := &packet.Config{}
	e, err := NewEntity("Alice", "", "a@x", cfg)
	if err != nil {
		t.Fatalf("NewEntity: %v", err)
	}
	if e.PrimaryKey.Algo != gopgp_crypto.PubKeyAlgoRSA {
		t.Fatalf("expected RSA primary key, got %v", e.PrimaryKey.Algo)
	}
	wantKeyID := e.PrimaryKey.KeyId

	if err := e.PrivateKey.Lock(cfg.Provider(), cfg.Random(), []byte("pw"), cfg); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	for _, sub := range e.Subkeys {
		if sub.PrivateKey != nil {
			if err := sub.PrivateKey.Lock(cfg.Provider(), cfg.Random(), []byte("pw"), cfg); err != nil {
				t.Fatalf("Lock subkey: %v", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := e.SerializeArmored(&buf, true); err != nil {
		t.Fatalf("SerializeArmored: %v", err)
	}

	parsed, err := ReadArmoredKeyRing(&buf)
	if err != nil {
		t.Fatalf("ReadArmoredKeyRing: %v", err)
	}
	if len(parsed) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(parsed))
	}
	got := parsed[0]
	if got.PrimaryKey.KeyId != wantKeyID {
		t.Fatalf("key id changed across round trip: got %x, want %x", got.PrimaryKey.KeyId, wantKeyID)
	}
	ident, ok := got.Identities["Alice <a@x>"]
	if !ok || ident.SelfSignature == nil {
		t.Fatal("expected a self-certified identity to survive the round trip")
	}
	target := append(append([]byte{}, got.PrimaryKey.SignatureTargetBytes()...), ident.UserId.SignatureTargetBytes()...)
	if err := ident.SelfSignature.Verify(cfg.Provider(), got.PrimaryKey, target, time.Now()); err != nil {
		t.Fatalf("Verify self-certification: %v", err)
	}
	if !got.PrivateKey.Locked() {
		t.Fatal("expected the parsed private key to still be locked")
	}
}

// Scenario 6: a PKESK stream addressed to two recipients, one of them
// a decoy whose private key is never supplied. Decrypting with only
// the real recipient's key must still succeed and return the right
// plaintext, which it can only do by matching the PKESK's key id
// rather than attempting every PKESK against every key.
func TestDecryptSkipsNonMatchingPKESK(t *testing.T) {
	real := newTestEntity(t, false)
	decoy := newTestEntity(t, false)
	cfg := &packet.Config{}

	realDecKeys := real.DecryptionKeys(cfg.Provider(), nil, time.Now())
	decoyDecKeys := decoy.DecryptionKeys(cfg.Provider(), nil, time.Now())
	if len(realDecKeys) == 0 || len(decoyDecKeys) == 0 {
		t.Fatal("expected both entities to have a usable encryption subkey")
	}

	msg := NewLiteralMessage([]byte("for the real recipient only"))
	opts := &EncryptOptions{Config: cfg}
	recipientPubKeys := []*packet.PublicKey{&realDecKeys[0].PublicKey, &decoyDecKeys[0].PublicKey}

	var buf bytes.Buffer
	if err := EncryptMessage(&buf, recipientPubKeys, nil, msg, opts); err != nil {
		t.Fatalf("EncryptMessage: %v", err)
	}

	em, err := ReadEncryptedMessage(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadEncryptedMessage: %v", err)
	}
	if len(em.PKESKs) != 2 {
		t.Fatalf("expected 2 PKESKs, got %d", len(em.PKESKs))
	}

	// Only the real recipient's key is handed to Decrypt; the decoy's
	// private key is never constructed at all, so success here proves
	// the decoy's PKESK was never the one unwrapped.
	out, err := em.Decrypt(cfg.Provider(), realDecKeys, nil)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(out.Body) != "for the real recipient only" {
		t.Fatalf("got body %q", out.Body)
	}
}

func TestCleartextSignRoundTrip(t *testing.T) {
	signer := newTestEntity(t, false)
	cfg := &packet.Config{}
	text := []byte("This is a cleartext signed message.\nWith multiple lines.")

	var buf bytes.Buffer
	if err := SignCleartext(&buf, signer.PrivateKey, text, cfg); err != nil {
		t.Fatalf("SignCleartext: %v", err)
	}

	sm, err := ReadSignedMessage(buf.Bytes())
	if err != nil {
		t.Fatalf("ReadSignedMessage: %v", err)
	}

	keys := EntityList{signer}
	if _, err := sm.Verify(cfg.Provider(), keys, time.Now()); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}
