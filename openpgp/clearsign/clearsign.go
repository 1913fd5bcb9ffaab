// Package clearsign implements the OpenPGP Cleartext Signature
// Framework, RFC 4880 §7: a human-readable text body, dash-escaped and
// line-trimmed before hashing, followed by an armored detached
// signature.
package clearsign

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/nguyennv/gopg/openpgp/armor"
	gopgp_crypto "github.com/nguyennv/gopg/openpgp/crypto"
	"github.com/nguyennv/gopg/openpgp/errors"
	"github.com/nguyennv/gopg/openpgp/packet"
)

const header = "-----BEGIN PGP SIGNED MESSAGE-----"
const sigHeader = "-----BEGIN PGP SIGNATURE-----"

var hashNames = map[gopgp_crypto.Hash]string{
	gopgp_crypto.HashMD5:    "MD5",
	gopgp_crypto.HashSHA1:   "SHA1",
	gopgp_crypto.HashSHA256: "SHA256",
	gopgp_crypto.HashSHA384: "SHA384",
	gopgp_crypto.HashSHA512: "SHA512",
	gopgp_crypto.HashSHA224: "SHA224",
}

// dashEscape prefixes any line beginning with '-' (or the literal text
// "From ") with "- ", per §7.1's escaping rule, and strips trailing
// whitespace from every line before it is hashed or transmitted.
func dashEscape(w io.Writer, text []byte) error {
	sc := bufio.NewScanner(bytes.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	first := true
	for sc.Scan() {
		if !first {
			if _, err := io.WriteString(w, "\r\n"); err != nil {
				return err
			}
		}
		first = false
		line := strings.TrimRight(sc.Text(), " \t")
		if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "From ") {
			line = "- " + line
		}
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return sc.Err()
}

// hashCanonicalText renders the hash input: the dash-unescaped,
// trailing-whitespace-trimmed text with CRLF line endings, exactly as
// it is transmitted (minus the dash-escaping itself), per §7.1.
func hashCanonicalText(text []byte) []byte {
	var buf bytes.Buffer
	sc := bufio.NewScanner(bytes.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	first := true
	for sc.Scan() {
		if !first {
			buf.WriteString("\r\n")
		}
		first = false
		buf.WriteString(strings.TrimRight(sc.Text(), " \t"))
	}
	return buf.Bytes()
}

// Sign writes a cleartext-signed message: the dash-escaped text
// followed by an armored detached signature over the canonicalized
// text, using cfg's default signing hash (SHA-256 if cfg is nil or
// leaves it unset).
func Sign(w io.Writer, signer *packet.PrivateKey, text []byte, cfg *packet.Config) error {
	hashAlgo := cfg.Hash()
	name, ok := hashNames[hashAlgo]
	if !ok {
		return errors.UnsupportedError("cleartext signature hash")
	}

	if _, err := io.WriteString(w, header+"\n"); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "Hash: "+name+"\n\n"); err != nil {
		return err
	}
	if err := dashEscape(w, text); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}

	version := 4
	if cfg.V6() {
		version = 6
	}
	sig, err := packet.Sign(cfg.Provider(), cfg.Random(), signer, packet.SigTypeText, hashAlgo, cfg.Time(), version, nil, hashCanonicalText(text))
	if err != nil {
		return err
	}

	var sigBuf bytes.Buffer
	if err := sig.Serialize(&sigBuf); err != nil {
		return err
	}
	return armor.Encode(w, armor.TypeSignature, nil, sigBuf.Bytes())
}

// Decoded holds a parsed cleartext-signed message: the original text
// (with dash-escaping undone) and the detached signature over it.
type Decoded struct {
	Text      []byte
	Signature *packet.Signature
}

// Decode parses data as a cleartext-signed message. It does not verify
// the signature; call Signature.Verify against the issuer's key with
// the canonicalized text.
func Decode(data []byte) (*Decoded, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !sc.Scan() || strings.TrimRight(sc.Text(), "\r") != header {
		return nil, errors.StructuralError("missing cleartext signature header")
	}
	for sc.Scan() {
		if strings.TrimRight(sc.Text(), "\r") == "" {
			break
		}
		// "Hash: ..." headers are informational; the hash algorithm
		// actually used is read back from the signature packet itself.
	}

	var textBuf bytes.Buffer
	first := true
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == sigHeader {
			break
		}
		if !first {
			textBuf.WriteString("\n")
		}
		first = false
		if strings.HasPrefix(line, "- ") {
			line = line[2:]
		}
		textBuf.WriteString(line)
	}

	var armorBuf bytes.Buffer
	armorBuf.WriteString(sigHeader + "\n")
	for sc.Scan() {
		armorBuf.WriteString(sc.Text())
		armorBuf.WriteString("\n")
	}

	block, err := armor.Decode(&armorBuf)
	if err != nil {
		return nil, err
	}
	p, err := packet.Read(bytes.NewReader(block.Body))
	if err != nil {
		return nil, err
	}
	sig, ok := p.(*packet.Signature)
	if !ok {
		return nil, errors.StructuralError("cleartext trailer is not a signature packet")
	}
	return &Decoded{Text: textBuf.Bytes(), Signature: sig}, nil
}
