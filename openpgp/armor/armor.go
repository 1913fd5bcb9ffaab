// Package armor implements OpenPGP ASCII Armor, RFC 4880 §6 / RFC 9580
// §6: a base64 envelope with a type header, optional headers, and a
// CRC-24 checksum trailer.
package armor

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"io"
	"strings"

	"github.com/nguyennv/gopg/openpgp/errors"
)

// Type identifies the kind of data an armor block wraps, selecting its
// "BEGIN/END PGP ..." banner text.
type Type string

const (
	TypeMessage       Type = "MESSAGE"
	TypePublicKey     Type = "PUBLIC KEY BLOCK"
	TypePrivateKey    Type = "PRIVATE KEY BLOCK"
	TypeSignature     Type = "SIGNATURE"
	TypeCleartext     Type = "SIGNED MESSAGE" // used only inside clearsign's own banner
)

const crc24Init = 0xb704ce
const crc24Poly = 0x1864cfb

// crc24 computes the RFC 4880 §6.1 checksum over b.
func crc24(b []byte) uint32 {
	crc := uint32(crc24Init)
	for _, octet := range b {
		crc ^= uint32(octet) << 16
		for i := 0; i < 8; i++ {
			crc <<= 1
			if crc&0x1000000 != 0 {
				crc ^= crc24Poly
			}
		}
	}
	return crc & 0xffffff
}

// Block is a decoded armor envelope: its type, any headers (e.g.
// "Version", "Hash"), and the decoded binary body.
type Block struct {
	Type    Type
	Headers map[string]string
	Body    []byte
}

// Encode writes data as an ASCII-armored block of the given type to w,
// with optional headers rendered in map-iteration order (callers who
// need a stable header order should pass a single-entry map per call
// and control ordering externally, matching most peers' lenient
// parsing of armor headers).
func Encode(w io.Writer, t Type, headers map[string]string, data []byte) error {
	if _, err := io.WriteString(w, "-----BEGIN PGP "+string(t)+"-----\n"); err != nil {
		return err
	}
	for k, v := range headers {
		if _, err := io.WriteString(w, k+": "+v+"\n"); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}

	enc := base64.StdEncoding
	lineLen := 0
	var lineBuf bytes.Buffer
	flush := func() error {
		if lineBuf.Len() == 0 {
			return nil
		}
		if _, err := w.Write(lineBuf.Bytes()); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
		lineBuf.Reset()
		lineLen = 0
		return nil
	}

	encoded := make([]byte, enc.EncodedLen(len(data)))
	enc.Encode(encoded, data)
	const maxLineLen = 64
	for len(encoded) > 0 {
		n := maxLineLen - lineLen
		if n > len(encoded) {
			n = len(encoded)
		}
		lineBuf.Write(encoded[:n])
		lineLen += n
		encoded = encoded[n:]
		if lineLen >= maxLineLen {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	crc := crc24(data)
	crcBytes := []byte{byte(crc >> 16), byte(crc >> 8), byte(crc)}
	crcEncoded := make([]byte, enc.EncodedLen(len(crcBytes)))
	enc.Encode(crcEncoded, crcBytes)
	if _, err := io.WriteString(w, "="+string(crcEncoded)+"\n"); err != nil {
		return err
	}
	_, err := io.WriteString(w, "-----END PGP "+string(t)+"-----\n")
	return err
}

// Decode parses one ASCII-armored block from r, verifying its CRC-24
// checksum (if present — RFC 9580 §6.1 makes the checksum optional and
// several peers omit it; its absence is not itself an error, but a
// present-and-wrong checksum is).
func Decode(r io.Reader) (*Block, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var t Type
	found := false
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.HasPrefix(line, "-----BEGIN PGP ") && strings.HasSuffix(line, "-----") {
			t = Type(strings.TrimSuffix(strings.TrimPrefix(line, "-----BEGIN PGP "), "-----"))
			found = true
			break
		}
	}
	if !found {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, errors.StructuralError("no armor header found")
	}

	headers := map[string]string{}
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			break
		}
		if idx := strings.Index(line, ":"); idx >= 0 {
			headers[strings.TrimSpace(line[:idx])] = strings.TrimSpace(line[idx+1:])
		}
	}

	var b64 strings.Builder
	var crcLine string
	endPrefix := "-----END PGP " + string(t) + "-----"
	closed := false
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == endPrefix {
			closed = true
			break
		}
		if strings.HasPrefix(line, "=") && len(line) == 5 {
			crcLine = line[1:]
			continue
		}
		b64.WriteString(line)
	}
	if !closed {
		return nil, errors.StructuralError("armor block not terminated")
	}

	data, err := base64.StdEncoding.DecodeString(b64.String())
	if err != nil {
		return nil, errors.StructuralError("malformed armor base64: " + err.Error())
	}

	if crcLine != "" {
		crcBytes, err := base64.StdEncoding.DecodeString(crcLine)
		if err != nil || len(crcBytes) != 3 {
			return nil, errors.StructuralError("malformed armor checksum")
		}
		want := uint32(crcBytes[0])<<16 | uint32(crcBytes[1])<<8 | uint32(crcBytes[2])
		if crc24(data) != want {
			return nil, errors.ChecksumError("armor CRC-24 mismatch")
		}
	}

	return &Block{Type: t, Headers: headers, Body: data}, nil
}
