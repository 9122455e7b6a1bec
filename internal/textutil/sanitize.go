package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxBaseLength caps the sanitized core of an artifact filename, excluding
// any suffix appended by the caller.
const maxBaseLength = 50

// SanitizeTitle converts an arbitrary video title into a stable filesystem
// base name: accents folded away, non-alphanumerics stripped, whitespace
// collapsed to single underscores, at most 50 characters. Returns "audio"
// when nothing survives.
func SanitizeTitle(title string) string {
	folded := foldMarks(title)

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r) && r < 128:
			if pendingSpace && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSpace = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			pendingSpace = true
		}
	}

	out := b.String()
	if len(out) > maxBaseLength {
		out = strings.TrimRight(out[:maxBaseLength], "_")
	}
	if out == "" {
		return "audio"
	}
	return out
}

// foldMarks decomposes the input and drops combining marks, so "Café" folds
// to "Cafe" instead of losing the rune entirely.
func foldMarks(value string) string {
	decomposed := norm.NFKD.String(value)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
