package smtpclient

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// attachmentMIMETable maps a file extension (no dot, lowercase) to its
// attachment Content-Type, per spec.md §4.4.
var attachmentMIMETable = map[string]string{
	"epub": "application/epub+zip",
	"mobi": "application/x-mobipocket-ebook",
	"azw":  "application/vnd.amazon.ebook",
	"azw3": "application/vnd.amazon.ebook",
	"pdf":  "application/pdf",
}

// AttachmentMIMEType returns the Content-Type for filename's extension,
// defaulting to application/octet-stream.
func AttachmentMIMEType(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if mt, ok := attachmentMIMETable[ext]; ok {
		return mt
	}
	return "application/octet-stream"
}

// newBoundary generates a fresh random multipart boundary per message
// (spec.md §4.4).
func newBoundary() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "folio-" + hex.EncodeToString(b), nil
}

// escapeQuotedString escapes '"' and '\' per RFC 2047 basic quoting
// rules, for use inside a quoted filename parameter.
func escapeQuotedString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

// buildMessage composes a multipart/mixed message with a short
// plain-text body and a base64 attachment, per spec.md §4.4.
func buildMessage(subject, body, filename string, attachment []byte) (string, error) {
	boundary, err := newBoundary()
	if err != nil {
		return "", err
	}

	attachmentType := AttachmentMIMEType(filename)
	quotedName := escapeQuotedString(filename)

	var sb strings.Builder

	fmt.Fprintf(&sb, "Subject: %s\r\n", subject)
	fmt.Fprintf(&sb, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&sb, "Content-Type: multipart/mixed; boundary=\"%s\"\r\n", boundary)
	sb.WriteString("\r\n")

	fmt.Fprintf(&sb, "--%s\r\n", boundary)
	sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	sb.WriteString("Content-Transfer-Encoding: 7bit\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	sb.WriteString("\r\n")

	fmt.Fprintf(&sb, "--%s\r\n", boundary)
	fmt.Fprintf(&sb, "Content-Type: %s; name=\"%s\"\r\n", attachmentType, quotedName)
	sb.WriteString("Content-Transfer-Encoding: base64\r\n")
	fmt.Fprintf(&sb, "Content-Disposition: attachment; filename=\"%s\"\r\n", quotedName)
	sb.WriteString("\r\n")
	sb.WriteString(wrapBase64(attachment))
	sb.WriteString("\r\n")

	fmt.Fprintf(&sb, "--%s--\r\n", boundary)

	return sb.String(), nil
}

// wrapBase64 encodes data and wraps it to 76-character lines, per
// spec.md §4.4.
func wrapBase64(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)

	var sb strings.Builder
	for i := 0; i < len(encoded); i += 76 {
		end := i + 76
		if end > len(encoded) {
			end = len(encoded)
		}
		sb.WriteString(encoded[i:end])
		sb.WriteString("\r\n")
	}
	return sb.String()
}

// dotStuff escapes any line beginning with '.' by doubling the leading
// dot, per RFC 5321's transparency rule for the DATA command.
func dotStuff(message string) string {
	lines := strings.Split(message, "\r\n")
	for i, line := range lines {
		if strings.HasPrefix(line, ".") {
			lines[i] = "." + line
		}
	}
	return strings.Join(lines, "\r\n")
}
