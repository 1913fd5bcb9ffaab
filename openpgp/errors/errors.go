// Package errors contains common error types for the openpgp packages.
package errors

import "strconv"

// A StructuralError is returned when OpenPGP data is found to be
// syntactically invalid: wrong lengths, reserved fields that aren't zero,
// partial-length chunks that are never terminated, and the like.
type StructuralError string

func (s StructuralError) Error() string {
	return "openpgp: invalid data: " + string(s)
}

// UnsupportedError indicates that, although the OpenPGP data is valid,
// it makes use of a feature that this package does not implement.
type UnsupportedError string

func (s UnsupportedError) Error() string {
	return "openpgp: unsupported feature: " + string(s)
}

// InvalidArgumentError indicates that the caller passed an incorrect
// argument to a function, e.g. an empty passphrase or a key that is
// unsuitable for the requested version.
type InvalidArgumentError string

func (i InvalidArgumentError) Error() string {
	return "openpgp: invalid argument: " + string(i)
}

// SignatureError is returned when a signature check fails or produces an
// ambiguous result; it carries the diagnostic reason.
type SignatureError string

func (b SignatureError) Error() string {
	return "openpgp: invalid signature: " + string(b)
}

// KeyInvalidError is returned when a key's material fails its own
// algebraic self-consistency check, or a key graph fails self-verification.
type KeyInvalidError string

func (k KeyInvalidError) Error() string {
	return "openpgp: invalid key: " + string(k)
}

// ChecksumError indicates that the v4 plaintext secret-key checksum (or
// the S2K usage octet's implied check) did not match.
type ChecksumError string

func (c ChecksumError) Error() string {
	return "openpgp: checksum error: " + string(c)
}

// CryptoProviderError wraps a failure surfaced by the crypto provider
// (§6.2) rather than by packet parsing or protocol logic.
type CryptoProviderError struct {
	Err error
}

func (c CryptoProviderError) Error() string {
	return "openpgp: crypto provider error: " + c.Err.Error()
}

func (c CryptoProviderError) Unwrap() error { return c.Err }

// UnknownIssuerError is returned when a signature was produced by a key
// not present in the keyring used for verification.
type UnknownIssuerError struct{}

func (UnknownIssuerError) Error() string {
	return "openpgp: signature made by unknown entity"
}

// ErrUnknownIssuer is the standard value signature verification returns
// when no key in the keyring matches the signature's issuer.
var ErrUnknownIssuer = UnknownIssuerError{}

// UnknownPacketTypeError is used to convey that the body of an unknown
// packet type has been read, but that it is being ignored due to an
// unknown type.
type UnknownPacketTypeError uint8

func (u UnknownPacketTypeError) Error() string {
	return "openpgp: unknown packet type: " + strconv.Itoa(int(u))
}

// ErrKeyIncorrect is returned when a secret key cannot be unlocked
// because the wrong passphrase was supplied: the SHA-1 trailer (CFB
// protection) or the AEAD tag (AEAD protection) failed to validate.
var ErrKeyIncorrect = StructuralError("private key checksum failure, incorrect passphrase?")

// ErrMDCMissing is returned by SEIPD v1 decryption when a modification
// detection code packet was expected but absent.
var ErrMDCMissing = SignatureError("MDC packet not found")

// ErrMDCHashMismatch is returned when the MDC trailer does not match.
var ErrMDCHashMismatch = SignatureError("MDC hash mismatch")

// ErrSignatureExpired indicates that a signature's validity window does
// not cover the time being checked.
var ErrSignatureExpired = SignatureError("signature expired")

// ErrKeyExpired indicates that a key's validity window does not cover
// the time being checked.
var ErrKeyExpired = SignatureError("key expired")

// ErrSessionKeyDecryptionFailed is returned when every PKESK/SKESK
// candidate in a message failed to recover a session key.
var ErrSessionKeyDecryptionFailed = StructuralError("no session key candidate succeeded")

// ErrMalformedEncryptedMessage indicates a packet stream intended for
// decryption did not contain exactly one SEIPD/SED packet.
var ErrMalformedEncryptedMessage = StructuralError("expected exactly one encrypted data packet")

// ErrUnknownPrivateKeyMaterial is returned if a private key's format is
// unknown.
var ErrUnknownPrivateKeyMaterial = InvalidArgumentError("unknown private key algorithm")

// ErrWriteAfterClose is returned by calls to Write on packets that have
// already had Close called on them.
var ErrWriteAfterClose = StructuralError("write after close")

// ErrEarlyEOF is returned by packet parsers when an underlying reader
// did not supply the expected number of bytes.
var ErrEarlyEOF = StructuralError("unexpected EOF")

// ErrUnsupportedElGamal is returned for ElGamal-signing keys: RFC 4880
// says ElGamal Sign+Encrypt (algorithm 20) is deprecated and must not be
// used for new signatures, but existing keys of this type may still be
// present in keyrings to allow verification and decryption.
var ErrUnsupportedElGamal = DeprecatedKeyError("ElGamal sign+encrypt keys are deprecated")

// DeprecatedKeyError indicates that a key algorithm has been deprecated
// and parsing/use of keys with it is intentionally limited; a key of
// this type may still be parsed (so the rest of an Entity is usable)
// but is quarantined as a BadSubkey rather than a usable Subkey.
type DeprecatedKeyError string

func (e DeprecatedKeyError) Error() string {
	return "openpgp: deprecated key type: " + string(e)
}
