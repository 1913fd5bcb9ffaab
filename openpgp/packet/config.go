package packet

import (
	"io"
	"time"

	gopgp_crypto "github.com/nguyennv/gopg/openpgp/crypto"
)

// Logger is the minimal logging seam the core exposes (§5: a logger
// sink, set once at initialization, read-only thereafter). A nil
// Logger is valid and silently discards everything.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{})  {}

// Argon2Params carries the Argon2id cost parameters a Config chooses
// for secret-key S2K when AEAD protection is requested (§4.6).
type Argon2Params struct {
	Passes      byte
	Parallelism byte
	MemExpOctet byte // memory = 1 << MemExpOctet KiB
}

// AEADParams carries the AEAD mode/cipher and chunk-size exponent a
// Config chooses for SEIPD v2 and AEAD secret-key protection.
type AEADParams struct {
	Mode           gopgp_crypto.AEADMode
	Cipher         gopgp_crypto.CipherFunction
	ChunkSizeOctet byte // chunk length = 1 << (ChunkSizeOctet + 6)
}

// Config is the single process-wide configuration surface the core
// reads (§5): defaults for hash/cipher/AEAD, whether to emit v6 keys,
// Argon2 availability, and the crypto Provider + Logger to use. It is
// read-only once constructed; like the teacher's packet.Config, a nil
// *Config is valid everywhere and falls back to sane defaults.
type Config struct {
	// Rand overrides the CSPRNG source; nil means the Provider's RNG.
	Rand io.Reader

	Provider gopgp_crypto.Provider
	Logger   Logger

	DefaultHash            gopgp_crypto.Hash
	DefaultCipher          gopgp_crypto.CipherFunction
	DefaultCompressionAlgo CompressionAlgo

	// V6Keys switches generation to RFC 9580 v6 primary/subkeys with
	// v6 signatures and (if AEADConfig is set) AEAD secret-key
	// protection; otherwise v4 keys/signatures are produced.
	V6Keys bool

	AEADConfig   *AEADParams
	Argon2Params *Argon2Params

	// S2KCount is the coded Iterated S2K byte-cost (§4.3); zero means
	// a conservative engine default is chosen.
	S2KCount byte

	KeyLifetimeSecs uint32
	SigLifetimeSecs uint32

	// NowFunc, if set, overrides time.Now (for deterministic tests).
	NowFunc func() time.Time
}

func (c *Config) logger() Logger {
	if c == nil || c.Logger == nil {
		return nopLogger{}
	}
	return c.Logger
}

func (c *Config) provider() gopgp_crypto.Provider {
	if c == nil || c.Provider == nil {
		return gopgp_crypto.DefaultProvider{}
	}
	return c.Provider
}

func (c *Config) random() io.Reader {
	if c != nil && c.Rand != nil {
		return c.Rand
	}
	return providerRandReader{c.provider()}
}

// Provider returns the effective crypto Provider, for callers outside
// this package (e.g. clearsign) that need it alongside a Config.
func (c *Config) Provider() gopgp_crypto.Provider { return c.provider() }

// Random returns the effective CSPRNG source.
func (c *Config) Random() io.Reader { return c.random() }

// V6 reports whether this Config selects RFC 9580 v6 keys/signatures.
func (c *Config) V6() bool { return c.v6() }

// Hash returns the effective default signing/certification hash.
func (c *Config) Hash() gopgp_crypto.Hash { return c.hash() }

// Cipher returns the effective default symmetric cipher.
func (c *Config) Cipher() gopgp_crypto.CipherFunction { return c.cipher() }

// Compression returns the effective default compression algorithm.
func (c *Config) Compression() CompressionAlgo { return c.compression() }

// KeyLifetime returns the configured key validity period in seconds,
// or 0 for "does not expire".
func (c *Config) KeyLifetime() uint32 { return c.keyLifetime() }

// SigLifetime returns the configured signature validity period in
// seconds, or 0 for "does not expire".
func (c *Config) SigLifetime() uint32 { return c.sigLifetime() }

type providerRandReader struct{ p gopgp_crypto.Provider }

func (r providerRandReader) Read(p []byte) (int, error) {
	b, err := r.p.Random(len(p))
	if err != nil {
		return 0, err
	}
	copy(p, b)
	return len(p), nil
}

func (c *Config) hash() gopgp_crypto.Hash {
	if c == nil || c.DefaultHash == 0 {
		return gopgp_crypto.HashSHA256
	}
	return c.DefaultHash
}

func (c *Config) cipher() gopgp_crypto.CipherFunction {
	if c == nil || c.DefaultCipher == 0 {
		return gopgp_crypto.CipherAES128
	}
	return c.DefaultCipher
}

func (c *Config) compression() CompressionAlgo {
	if c == nil {
		return CompressionNone
	}
	return c.DefaultCompressionAlgo
}

// Time returns the effective "current time" for signature/key
// generation and verification.
func (c *Config) Time() time.Time {
	if c != nil && c.NowFunc != nil {
		return c.NowFunc()
	}
	return time.Now()
}

func (c *Config) v6() bool {
	return c != nil && c.V6Keys
}

func (c *Config) s2kCount() byte {
	if c == nil || c.S2KCount == 0 {
		return 224 // a moderate-cost default, matching common GnuPG-compatible choices
	}
	return c.S2KCount
}

func (c *Config) keyLifetime() uint32 {
	if c == nil {
		return 0
	}
	return c.KeyLifetimeSecs
}

func (c *Config) sigLifetime() uint32 {
	if c == nil {
		return 0
	}
	return c.SigLifetimeSecs
}
