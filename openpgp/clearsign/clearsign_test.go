package clearsign

import (
	"bytes"
	"crypto/rand"
	"testing"
	"time"

	"golang.org/x/crypto/ed25519"

	gopgp_crypto "github.com/nguyennv/gopg/openpgp/crypto"
	"github.com/nguyennv/gopg/openpgp/packet"
)

func newTestSigner(t *testing.T) *packet.PrivateKey {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("ed25519.GenerateKey: %v", err)
	}
	_ = pub
	key, err := packet.NewEd25519PrivateKey(time.Now(), 6, priv)
	if err != nil {
		t.Fatalf("NewEd25519PrivateKey: %v", err)
	}
	return key
}

func TestSignDecodeVerifyRoundTrip(t *testing.T) {
	signer := newTestSigner(t)
	cfg := &packet.Config{V6Keys: true}
	text := []byte("Line 1   \r\nLine 2\r\n")

	var buf bytes.Buffer
	if err := Sign(&buf, signer, text, cfg); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	decoded, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	// Trailing spaces on "Line 1" must be stripped before hashing, per
	// §7.1's canonicalization rule.
	want := hashCanonicalText(text)
	if !bytes.Equal(hashCanonicalText(decoded.Text), want) {
		t.Fatalf("got canonicalized text %q, want %q", hashCanonicalText(decoded.Text), want)
	}

	err = decoded.Signature.Verify(gopgp_crypto.DefaultProvider{}, &signer.PublicKey, want, decoded.Signature.CreationTime)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestDecodeRejectsMissingHeader(t *testing.T) {
	_, err := Decode([]byte("not a cleartext signed message\n"))
	if err == nil {
		t.Fatal("expected Decode to reject input with no cleartext signature header")
	}
}

func TestDashEscape(t *testing.T) {
	text := []byte("-hyphen line\r\nFrom the start\r\nordinary line")

	var buf bytes.Buffer
	if err := dashEscape(&buf, text); err != nil {
		t.Fatalf("dashEscape: %v", err)
	}
	escaped := buf.String()
	if !bytes.Contains([]byte(escaped), []byte("- -hyphen line")) {
		t.Fatalf("expected a leading '-' line to be dash-escaped, got %q", escaped)
	}
	if !bytes.Contains([]byte(escaped), []byte("- From the start")) {
		t.Fatalf("expected a 'From ' line to be dash-escaped, got %q", escaped)
	}
}
