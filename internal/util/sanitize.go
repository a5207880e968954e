package util

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

var unsafeNameChars = regexp.MustCompile(`[<>:"/\\|?*;]`)

// DisplayName turns a client supplied filename into something safe to echo
// back in a Content-Disposition header. It never fails; unusable input
// becomes fallback + ext.
func DisplayName(name string, fallback string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))

	var b strings.Builder
	b.Grow(len(base))
	for _, r := range base {
		if unicode.IsControl(r) || isInvisibleUnicode(r) || r > unicode.MaxASCII {
			continue
		}
		b.WriteRune(r)
	}

	cleaned := strings.TrimSpace(unsafeNameChars.ReplaceAllString(b.String(), "_"))
	cleaned = strings.TrimLeft(cleaned, ".")

	if len(cleaned) > 120 {
		ext := filepath.Ext(cleaned)
		if len(ext) > 10 {
			ext = ""
		}
		cleaned = cleaned[:120-len(ext)] + ext
	}

	if cleaned == "" || cleaned == "/" {
		return fallback + strings.ToLower(filepath.Ext(name))
	}

	return cleaned
}

// isInvisibleUnicode reports zero-width and other format characters.
func isInvisibleUnicode(r rune) bool {
	switch r {
	case '\u200B', '\u200C', '\u200D', '\u200E', '\u200F', '\u2060', '\uFEFF':
		return true
	}

	return unicode.Is(unicode.Cf, r)
}
