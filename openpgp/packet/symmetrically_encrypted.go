package packet

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"io"

	gopgp_crypto "github.com/nguyennv/gopg/openpgp/crypto"
	"github.com/nguyennv/gopg/openpgp/errors"
)

// SymmetricallyEncrypted represents the three wire shapes of bulk
// message encryption the engine supports (§4.8): the legacy
// integrity-free packet (tag 9), the v1 CFB+MDC packet (tag 18,
// version 1), and the v2 AEAD-chunked packet (tag 18, version 2,
// RFC 9580 §5.13).
type SymmetricallyEncrypted struct {
	Tag     Tag
	Version int // 0 for tag 9 (no version octet on the wire), 1, or 2

	// v2 only.
	Cipher         gopgp_crypto.CipherFunction
	AEADMode       gopgp_crypto.AEADMode
	ChunkSizeOctet byte
	Salt           []byte // 32 bytes

	ciphertext []byte
}

func (se *SymmetricallyEncrypted) parse(r io.Reader) error {
	if se.Tag == TagSymmetricallyEncrypted {
		se.Version = 0
		rest, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		se.ciphertext = rest
		return nil
	}

	verByte, err := readByte(r)
	if err != nil {
		return err
	}
	se.Version = int(verByte)
	switch se.Version {
	case 1:
		rest, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		se.ciphertext = rest
		return nil
	case 2:
		cipherByte, err := readByte(r)
		if err != nil {
			return err
		}
		se.Cipher = gopgp_crypto.CipherFunction(cipherByte)
		aeadByte, err := readByte(r)
		if err != nil {
			return err
		}
		se.AEADMode = gopgp_crypto.AEADMode(aeadByte)
		chunkByte, err := readByte(r)
		if err != nil {
			return err
		}
		se.ChunkSizeOctet = chunkByte
		se.Salt = make([]byte, 32)
		if _, err := io.ReadFull(r, se.Salt); err != nil {
			return err
		}
		rest, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		se.ciphertext = rest
		return nil
	default:
		return errors.UnsupportedError("symmetrically encrypted data version")
	}
}

// Serialize writes the packet in whichever shape Version/Tag select.
func (se *SymmetricallyEncrypted) Serialize(w io.Writer) error {
	return serializeToBuffer(w, se.Tag, func(buf *bytes.Buffer) error {
		if se.Tag == TagSymmetricallyEncrypted {
			buf.Write(se.ciphertext)
			return nil
		}
		buf.WriteByte(byte(se.Version))
		if se.Version == 2 {
			buf.WriteByte(byte(se.Cipher))
			buf.WriteByte(byte(se.AEADMode))
			buf.WriteByte(se.ChunkSizeOctet)
			buf.Write(se.Salt)
		}
		buf.Write(se.ciphertext)
		return nil
	})
}

// DecryptLegacy decrypts a tag-9 or v1 (CFB+MDC) packet, verifying the
// MDC's SHA-1 digest for v1 and returning the literal-data plaintext
// with the random prefix and MDC trailer stripped.
func (se *SymmetricallyEncrypted) DecryptLegacy(provider gopgp_crypto.Provider, sessionKey []byte, cipher gopgp_crypto.CipherFunction) ([]byte, error) {
	blockSize := cipher.BlockSize()
	iv := make([]byte, blockSize)
	stream, err := provider.NewCFBDecryptStream(cipher, sessionKey, iv)
	if err != nil {
		return nil, err
	}
	plain := make([]byte, len(se.ciphertext))
	stream.XORKeyStream(plain, se.ciphertext)
	if len(plain) < blockSize+2 {
		return nil, errors.StructuralError("truncated symmetrically encrypted data")
	}
	if plain[blockSize-2] != plain[blockSize] || plain[blockSize-1] != plain[blockSize+1] {
		return nil, errors.ErrMalformedEncryptedMessage
	}
	body := plain[blockSize+2:]

	if se.Version != 1 {
		return body, nil
	}
	if len(body) < 22 || body[len(body)-22] != byte(TagModificationDetectionCode|0xc0) {
		return nil, errors.ErrMDCMissing
	}
	mdcPacket := body[len(body)-22:]
	literal := body[:len(body)-22]
	if mdcPacket[1] != 20 {
		return nil, errors.StructuralError("malformed MDC packet length")
	}
	h := sha1.New()
	h.Write(plain[:blockSize+2])
	h.Write(literal)
	h.Write(mdcPacket[:2])
	if !bytes.Equal(h.Sum(nil), mdcPacket[2:]) {
		return nil, errors.ErrMDCHashMismatch
	}
	return literal, nil
}

// aeadInfo renders the 5-byte AAD prefix RFC 9580 §5.13 hashes into
// the HKDF info and every chunk's additional data: the packet tag as
// a new-format header byte (0xc0 | tag), version, cipher, AEAD mode,
// and chunk-size octet.
func (se *SymmetricallyEncrypted) aeadInfo() []byte {
	return []byte{0xc0 | byte(TagSymmetricallyEncryptedIntegrityProtected), byte(se.Version), byte(se.Cipher), byte(se.AEADMode), se.ChunkSizeOctet}
}

// DecryptAEAD decrypts a v2 packet, deriving the per-message key and
// nonce from sessionKey and Salt via HKDF-SHA256 and authenticating
// each fixed-size chunk plus a final zero-length chunk carrying the
// total plaintext length, per RFC 9580 §5.13.
func (se *SymmetricallyEncrypted) DecryptAEAD(provider gopgp_crypto.Provider, sessionKey []byte) ([]byte, error) {
	info := se.aeadInfo()
	nonceSize := aeadNonceSize(se.AEADMode)
	keySize := se.Cipher.KeySize()
	okm, err := provider.HKDF(gopgp_crypto.HashSHA256, sessionKey, se.Salt, info, keySize+nonceSize-8)
	if err != nil {
		return nil, err
	}
	msgKey := okm[:keySize]
	baseNonce := okm[keySize:]

	chunkSize := 1 << (uint(se.ChunkSizeOctet) + 6)
	tagSize := provider.TagSize(se.AEADMode)

	ciphertext := se.ciphertext
	if len(ciphertext) < tagSize {
		return nil, errors.StructuralError("truncated AEAD-encrypted data")
	}
	// The trailing tagSize bytes are always the final, zero-length
	// chunk's authentication tag (over an AAD that also binds the
	// total plaintext length); everything before it is whole data
	// chunks, each chunkSize plaintext bytes except possibly the last.
	dataChunks := ciphertext[:len(ciphertext)-tagSize]
	finalTag := ciphertext[len(ciphertext)-tagSize:]

	var plaintext bytes.Buffer
	var total int64
	chunkIndex := uint64(0)
	for len(dataChunks) > 0 {
		n := chunkSize + tagSize
		if n > len(dataChunks) {
			n = len(dataChunks)
		}
		nonce := chunkNonce(baseNonce, chunkIndex)
		pt, err := provider.Open(se.AEADMode, se.Cipher, msgKey, nonce, info, dataChunks[:n])
		if err != nil {
			return nil, errors.ErrSessionKeyDecryptionFailed
		}
		plaintext.Write(pt)
		total += int64(len(pt))
		dataChunks = dataChunks[n:]
		chunkIndex++
	}

	finalAAD := append(append([]byte{}, info...), beLen(total)...)
	nonce := chunkNonce(baseNonce, chunkIndex)
	if _, err := provider.Open(se.AEADMode, se.Cipher, msgKey, nonce, finalAAD, finalTag); err != nil {
		return nil, errors.ErrSessionKeyDecryptionFailed
	}
	return plaintext.Bytes(), nil
}

func chunkNonce(base []byte, index uint64) []byte {
	nonce := append([]byte(nil), base...)
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], index)
	for i := 0; i < 8; i++ {
		nonce[len(nonce)-8+i] ^= idx[i]
	}
	return nonce
}

func beLen(n int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(n))
	return b[:]
}

// EncryptLegacy produces a v1 (CFB+MDC) packet's ciphertext given the
// literal-data plaintext to protect.
func EncryptLegacy(provider gopgp_crypto.Provider, rand io.Reader, cipher gopgp_crypto.CipherFunction, sessionKey, plaintext []byte) (*SymmetricallyEncrypted, error) {
	blockSize := cipher.BlockSize()
	prefix := make([]byte, blockSize+2)
	if _, err := io.ReadFull(rand, prefix[:blockSize]); err != nil {
		return nil, err
	}
	prefix[blockSize] = prefix[blockSize-2]
	prefix[blockSize+1] = prefix[blockSize-1]

	var body bytes.Buffer
	body.Write(prefix)
	body.Write(plaintext)
	h := sha1.New()
	h.Write(body.Bytes())
	body.WriteByte(0xc0 | byte(TagModificationDetectionCode))
	body.WriteByte(20)
	h.Write(body.Bytes()[body.Len()-2:])
	body.Write(h.Sum(nil))

	iv := make([]byte, blockSize)
	stream, err := provider.NewCFBEncryptStream(cipher, sessionKey, iv)
	if err != nil {
		return nil, err
	}
	out := make([]byte, body.Len())
	stream.XORKeyStream(out, body.Bytes())

	return &SymmetricallyEncrypted{Tag: TagSymmetricallyEncryptedIntegrityProtected, Version: 1, ciphertext: out}, nil
}

// EncryptAEAD produces a v2 (AEAD-chunked) packet's ciphertext.
func EncryptAEAD(provider gopgp_crypto.Provider, rand io.Reader, cipher gopgp_crypto.CipherFunction, mode gopgp_crypto.AEADMode, chunkSizeOctet byte, sessionKey, plaintext []byte) (*SymmetricallyEncrypted, error) {
	se := &SymmetricallyEncrypted{
		Tag: TagSymmetricallyEncryptedIntegrityProtected, Version: 2,
		Cipher: cipher, AEADMode: mode, ChunkSizeOctet: chunkSizeOctet,
	}
	se.Salt = make([]byte, 32)
	if _, err := io.ReadFull(rand, se.Salt); err != nil {
		return nil, err
	}

	info := se.aeadInfo()
	nonceSize := aeadNonceSize(mode)
	keySize := cipher.KeySize()
	okm, err := provider.HKDF(gopgp_crypto.HashSHA256, sessionKey, se.Salt, info, keySize+nonceSize-8)
	if err != nil {
		return nil, err
	}
	msgKey := okm[:keySize]
	baseNonce := okm[keySize:]

	chunkSize := 1 << (uint(chunkSizeOctet) + 6)
	var out bytes.Buffer
	var total int64
	chunkIndex := uint64(0)
	for off := 0; off < len(plaintext); off += chunkSize {
		end := off + chunkSize
		if end > len(plaintext) {
			end = len(plaintext)
		}
		chunk := plaintext[off:end]
		nonce := chunkNonce(baseNonce, chunkIndex)
		ct, err := provider.Seal(mode, cipher, msgKey, nonce, info, chunk)
		if err != nil {
			return nil, err
		}
		out.Write(ct)
		total += int64(len(chunk))
		chunkIndex++
	}
	finalAAD := append(append([]byte{}, info...), beLen(total)...)
	nonce := chunkNonce(baseNonce, chunkIndex)
	finalTag, err := provider.Seal(mode, cipher, msgKey, nonce, finalAAD, nil)
	if err != nil {
		return nil, err
	}
	out.Write(finalTag)
	se.ciphertext = out.Bytes()
	return se, nil
}
