package crypto

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestCFBStreamRoundTrip(t *testing.T) {
	p := DefaultProvider{}
	key := make([]byte, CipherAES128.KeySize())
	iv := make([]byte, CipherAES128.BlockSize())
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("rand: %v", err)
	}
	plaintext := []byte("the quick brown fox jumps over the lazy dog")

	enc, err := p.NewCFBEncryptStream(CipherAES128, key, iv)
	if err != nil {
		t.Fatalf("NewCFBEncryptStream: %v", err)
	}
	ciphertext := make([]byte, len(plaintext))
	enc.XORKeyStream(ciphertext, plaintext)

	dec, err := p.NewCFBDecryptStream(CipherAES128, key, iv)
	if err != nil {
		t.Fatalf("NewCFBDecryptStream: %v", err)
	}
	recovered := make([]byte, len(ciphertext))
	dec.XORKeyStream(recovered, ciphertext)

	if !bytes.Equal(recovered, plaintext) {
		t.Fatalf("got %q, want %q", recovered, plaintext)
	}
}

func TestAEADSealOpenRoundTrip(t *testing.T) {
	for _, mode := range []AEADMode{AEADModeEAX, AEADModeOCB, AEADModeGCM} {
		p := DefaultProvider{}
		key := make([]byte, CipherAES128.KeySize())
		nonce := make([]byte, p.NonceSize(mode))
		if _, err := rand.Read(key); err != nil {
			t.Fatalf("rand: %v", err)
		}
		if _, err := rand.Read(nonce); err != nil {
			t.Fatalf("rand: %v", err)
		}
		aad := []byte("associated data")
		plaintext := []byte("secret payload")

		ct, err := p.Seal(mode, CipherAES128, key, nonce, aad, plaintext)
		if err != nil {
			t.Fatalf("mode %d: Seal: %v", mode, err)
		}
		pt, err := p.Open(mode, CipherAES128, key, nonce, aad, ct)
		if err != nil {
			t.Fatalf("mode %d: Open: %v", mode, err)
		}
		if !bytes.Equal(pt, plaintext) {
			t.Fatalf("mode %d: got %q, want %q", mode, pt, plaintext)
		}

		// Tampering with a single ciphertext byte must be caught by
		// the authentication tag.
		tampered := append([]byte(nil), ct...)
		tampered[0] ^= 0xff
		if _, err := p.Open(mode, CipherAES128, key, nonce, aad, tampered); err == nil {
			t.Fatalf("mode %d: expected Open to reject tampered ciphertext", mode)
		}
	}
}

func TestHKDFIsDeterministic(t *testing.T) {
	p := DefaultProvider{}
	ikm := []byte("input key material")
	salt := []byte("salt")
	info := []byte("info")

	out1, err := p.HKDF(HashSHA256, ikm, salt, info, 32)
	if err != nil {
		t.Fatalf("HKDF: %v", err)
	}
	out2, err := p.HKDF(HashSHA256, ikm, salt, info, 32)
	if err != nil {
		t.Fatalf("HKDF: %v", err)
	}
	if !bytes.Equal(out1, out2) {
		t.Fatal("expected HKDF to be deterministic for identical inputs")
	}
	if len(out1) != 32 {
		t.Fatalf("got length %d, want 32", len(out1))
	}
}

func TestDigest(t *testing.T) {
	p := DefaultProvider{}
	sum, ok := p.Digest(HashSHA256, []byte("hello"))
	if !ok {
		t.Fatal("expected SHA-256 to be a supported digest")
	}
	if len(sum) != 32 {
		t.Fatalf("got digest length %d, want 32", len(sum))
	}
}
