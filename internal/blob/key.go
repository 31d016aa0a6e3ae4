package blob

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"
)

const maxNameLen = 128

// ObjectKey builds the storage key for an attachment.
func ObjectKey(ownerID, complaintID, fileName string, now time.Time) string {
	return fmt.Sprintf("%s/%s/%d-%s", ownerID, complaintID, now.UnixNano(), SanitizeName(fileName))
}

// OwnerOf returns the first segment of key.
func OwnerOf(key string) string {
	owner, _, _ := strings.Cut(key, "/")
	return owner
}

// SanitizeName keeps the base name and replaces anything outside
// [A-Za-z0-9._-] with an underscore.
func SanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if len(out) > maxNameLen {
		out = out[len(out)-maxNameLen:]
	}
	if out == "" {
		return "file"
	}
	return out
}

// ValidateKey rejects empty, absolute and traversing keys.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}
