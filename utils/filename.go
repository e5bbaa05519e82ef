package utils

import (
	"path/filepath"
	"strings"
)

const maxStoredNameLength = 200

// SafeFilename reduces a client supplied file name to a single path element
// made of letters, digits, dot, dash and underscore.
func SafeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	safe := strings.TrimLeft(b.String(), ".")
	if safe == "" {
		return "upload"
	}
	if len(safe) > maxStoredNameLength {
		ext := filepath.Ext(safe)
		if len(ext) > 16 {
			ext = ""
		}
		safe = safe[:maxStoredNameLength-len(ext)] + ext
	}
	return safe
}
