package packet

import (
	"bytes"
	"crypto/rand"
	"testing"
	"time"

	"golang.org/x/crypto/ed25519"

	gopgp_crypto "github.com/nguyennv/gopg/openpgp/crypto"
	"github.com/nguyennv/gopg/openpgp/errors"
	"github.com/nguyennv/gopg/openpgp/s2k"
)

func newEd25519TestKey(t *testing.T, version int) *PrivateKey {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("ed25519.GenerateKey: %v", err)
	}
	pk, err := NewEd25519PrivateKey(time.Now(), version, priv)
	if err != nil {
		t.Fatalf("NewEd25519PrivateKey: %v", err)
	}
	return pk
}

// A v6 key that Locks normally only ever produces AEAD (usage 253)
// protection; round-tripping it through Serialize/Read must parse
// cleanly and stay Locked.
func TestV6AEADKeyRoundTrip(t *testing.T) {
	pk := newEd25519TestKey(t, 6)
	if err := pk.Lock(gopgp_crypto.DefaultProvider{}, rand.Reader, []byte("pw"), &Config{}); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	var buf bytes.Buffer
	if err := pk.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	p, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	parsed, ok := p.(*PrivateKey)
	if !ok {
		t.Fatalf("got %T, want *PrivateKey", p)
	}
	if !parsed.Locked() {
		t.Fatal("expected parsed key to still be locked")
	}
	if err := parsed.Decrypt(gopgp_crypto.DefaultProvider{}, []byte("pw")); err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
}

// A v6 secret key using usage 255 (the legacy malleable S2K-plus-CFB-
// plus-checksum scheme) is never produced by Lock, but wire data can
// still claim it. parse must reject the combination immediately
// rather than only failing later inside Decrypt.
func TestV6MalleableCfbRejectedAtParse(t *testing.T) {
	pk := newEd25519TestKey(t, 6)

	params, err := s2k.NewIterated(rand.Reader, byte(gopgp_crypto.HashSHA256), sha256Hash, s2k.EncodeCount(65536))
	if err != nil {
		t.Fatalf("NewIterated: %v", err)
	}
	pk.s2kUsage = s2kUsageChecksummed
	pk.cipher = gopgp_crypto.CipherAES128
	pk.s2kParams = params
	pk.iv = make([]byte, pk.cipher.BlockSize())
	if _, err := rand.Read(pk.iv); err != nil {
		t.Fatalf("rand: %v", err)
	}
	pk.encrypted = make([]byte, 32)
	if _, err := rand.Read(pk.encrypted); err != nil {
		t.Fatalf("rand: %v", err)
	}
	pk.checksum = []byte{0x00, 0x00}

	var buf bytes.Buffer
	if err := pk.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	_, err = Read(&buf)
	if err == nil {
		t.Fatal("expected a v6 key using Checksummed (malleable CFB) usage to be rejected at parse")
	}
	if _, ok := err.(errors.InvalidArgumentError); !ok {
		t.Fatalf("got %T, want errors.InvalidArgumentError: %v", err, err)
	}
}

// Argon2 string-to-key without AEAD protection is rejected at parse
// regardless of key version.
func TestArgon2WithoutAEADRejectedAtParse(t *testing.T) {
	pk := newEd25519TestKey(t, 4)

	params, err := s2k.NewArgon2(rand.Reader, 3, 4, 21)
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	pk.s2kUsage = s2kUsageSHA1
	pk.cipher = gopgp_crypto.CipherAES128
	pk.s2kParams = params
	pk.iv = make([]byte, pk.cipher.BlockSize())
	if _, err := rand.Read(pk.iv); err != nil {
		t.Fatalf("rand: %v", err)
	}
	pk.encrypted = make([]byte, 32)
	if _, err := rand.Read(pk.encrypted); err != nil {
		t.Fatalf("rand: %v", err)
	}

	var buf bytes.Buffer
	if err := pk.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	_, err = Read(&buf)
	if err == nil {
		t.Fatal("expected Argon2 without AEAD protection to be rejected at parse")
	}
	if _, ok := err.(errors.InvalidArgumentError); !ok {
		t.Fatalf("got %T, want errors.InvalidArgumentError: %v", err, err)
	}
}
