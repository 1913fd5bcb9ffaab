package s2k

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"hash"
	"testing"
)

func sha256Hash() hash.Hash { return sha256.New() }

func TestIteratedKeyDerivationIsDeterministic(t *testing.T) {
	params, err := NewIterated(rand.Reader, 8, sha256Hash, EncodeCount(65536))
	if err != nil {
		t.Fatalf("NewIterated: %v", err)
	}
	k1, err := params.Key([]byte("passphrase"), 16)
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	k2, err := params.Key([]byte("passphrase"), 16)
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if !bytes.Equal(k1, k2) {
		t.Fatal("expected deriving twice from the same Params to be deterministic")
	}
	k3, err := params.Key([]byte("different"), 16)
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if bytes.Equal(k1, k3) {
		t.Fatal("expected different passphrases to derive different keys")
	}
}

func TestSerializeParseRoundTrip(t *testing.T) {
	params, err := NewIterated(rand.Reader, 8, sha256Hash, EncodeCount(65536))
	if err != nil {
		t.Fatalf("NewIterated: %v", err)
	}
	var buf bytes.Buffer
	if err := params.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if buf.Len() != params.EncodedLength() {
		t.Fatalf("EncodedLength mismatch: wrote %d, reported %d", buf.Len(), params.EncodedLength())
	}

	hashByID := func(id byte) HashFunc {
		if id == 8 {
			return sha256Hash
		}
		return nil
	}
	parsed, err := Parse(&buf, hashByID)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Mode != ModeIterated || parsed.CountLog != params.CountLog || !bytes.Equal(parsed.Salt, params.Salt) {
		t.Fatalf("round-tripped params mismatch: got %#v, want %#v", parsed, params)
	}
}

func TestArgon2KeyDerivation(t *testing.T) {
	params, err := NewArgon2(rand.Reader, 3, 4, 21)
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	key, err := params.Key([]byte("passphrase"), 32)
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if len(key) != 32 {
		t.Fatalf("got key length %d, want 32", len(key))
	}

	var buf bytes.Buffer
	if err := params.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	parsed, err := Parse(&buf, func(byte) HashFunc { return nil })
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Mode != ModeArgon2 || !bytes.Equal(parsed.Argon2Salt, params.Argon2Salt) {
		t.Fatalf("round-tripped Argon2 params mismatch")
	}
}

func TestEncodeCountRoundsUp(t *testing.T) {
	for _, want := range []int{1024, 65536, 1 << 20} {
		c := EncodeCount(want)
		if DecodedCount(c) < want {
			t.Fatalf("EncodeCount(%d) decoded back to %d, want >= %d", want, DecodedCount(c), want)
		}
	}
}
