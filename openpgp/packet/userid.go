package packet

import (
	"bytes"
	"io"
	"regexp"
)

// UserId represents an RFC 4880 §5.11 User ID packet: a UTF-8 string
// conventionally formatted as "Name (Comment) <email>".
type UserId struct {
	Id string

	Name, Comment, Email string
}

var userIDRegexp = regexp.MustCompile(`^([^(<]*[^(< ]) ?(\([^)]+\) ?)?(<[^>]+>)?$`)

// NewUserId composes a conventional user-id string, matching the
// teacher's packet.NewUserId convenience constructor. Returns nil if
// any component is implausible (matching the "invalid characters"
// rejection the cert-manager kmspgp example relies on).
func NewUserId(name, comment, email string) *UserId {
	if strContainsNewline(name) || strContainsNewline(comment) || strContainsNewline(email) {
		return nil
	}
	id := name
	if comment != "" {
		id += " (" + comment + ")"
	}
	if email != "" {
		id += " <" + email + ">"
	}
	u := &UserId{Id: id, Name: name, Comment: comment, Email: email}
	return u
}

func strContainsNewline(s string) bool {
	for _, r := range s {
		if r == '\n' || r == '\r' || r == 0 {
			return true
		}
	}
	return false
}

func parseUserID(id string) (name, comment, email string) {
	m := userIDRegexp.FindStringSubmatch(id)
	if m == nil {
		return id, "", ""
	}
	name = m[1]
	comment = trimParens(m[2])
	email = trimAngle(m[3])
	return
}

func trimParens(s string) string {
	if len(s) < 2 {
		return ""
	}
	// drop the trailing space, if any, that the regex group captures
	if len(s) > 0 && s[len(s)-1] == ' ' {
		s = s[:len(s)-1]
	}
	if len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		return s[1 : len(s)-1]
	}
	return s
}

func trimAngle(s string) string {
	if len(s) >= 2 && s[0] == '<' && s[len(s)-1] == '>' {
		return s[1 : len(s)-1]
	}
	return s
}

func (uid *UserId) parse(r io.Reader) (err error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	uid.Id = string(b)
	uid.Name, uid.Comment, uid.Email = parseUserID(uid.Id)
	return nil
}

// Serialize writes the user-id packet.
func (uid *UserId) Serialize(w io.Writer) error {
	return serializeToBuffer(w, TagUserId, func(buf *bytes.Buffer) error {
		buf.WriteString(uid.Id)
		return nil
	})
}

// SignatureTargetBytes returns the canonical bytes a signature hashes
// over this user-id packet, per §4.5's certification construction:
// 0xb4 || 4-byte length || utf8 bytes (v4 certifications; v6 uses the
// same payload, only the surrounding primary-key prefix differs).
func (uid *UserId) SignatureTargetBytes() []byte {
	var out bytes.Buffer
	out.WriteByte(0xb4)
	var lenBuf [4]byte
	id := []byte(uid.Id)
	putUint32(lenBuf[:], uint32(len(id)))
	out.Write(lenBuf[:])
	out.Write(id)
	return out.Bytes()
}
