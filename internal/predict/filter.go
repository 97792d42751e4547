package predict

import (
	"strings"
	"unicode/utf8"
)

// maxWordLen bounds the length of a decoded candidate shown to users.
const maxWordLen = 50

// punctDenylist: a token consisting solely of these characters is noise.
const punctDenylist = "<>{}[]\\|`~@#$%^&*+="

// CleanToken normalizes a decoded token and reports whether it is worth
// presenting. Dropped tokens are skipped, never failed on.
func CleanToken(raw string) (string, bool) {
	s := stripTokenControl(raw)
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > maxWordLen {
		return "", false
	}
	if isAllDenylisted(s) {
		return "", false
	}
	if isEllipsis(s) {
		return "", false
	}
	return s, true
}

func stripTokenControl(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || (r >= 0x7F && r <= 0x9F) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isAllDenylisted(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune(punctDenylist, r) {
			return false
		}
	}
	return true
}

// isEllipsis catches dot-only artifacts: "...", "…", ". . .", "..". These
// rank high on many models and carry no information for the user. A single
// period is a legitimate prediction and stays.
func isEllipsis(s string) bool {
	dots := 0
	for _, r := range s {
		switch r {
		case '.', '…':
			dots++
		case ' ':
		default:
			return false
		}
	}
	return dots >= 2 || strings.ContainsRune(s, '…')
}
