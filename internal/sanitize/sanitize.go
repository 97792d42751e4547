package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxLen is the maximum accepted phrase length after cleanup.
const MaxLen = 200

// validationError names the rule an input violated.
type validationError struct{ rule, msg string }

func (e validationError) Error() string { return e.msg }

// Rule returns the identifier of the violated rule (empty, too_long,
// injection, repetition).
func (e validationError) Rule() string { return e.rule }

// IsValidation reports whether err came from input validation.
func IsValidation(err error) bool {
	_, ok := err.(validationError)
	return ok
}

// injectionPatterns is a fixed denylist of markup/script shapes. Matched
// case-insensitively against the cleaned phrase.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*script`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)vbscript\s*:`),
	regexp.MustCompile(`(?i)data\s*:`),
	regexp.MustCompile(`(?i)\bon\w+\s*=`),
	regexp.MustCompile(`(?i)\b(?:eval|expression)\s*\(`),
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Clean validates and normalizes a raw input phrase. The returned string is
// the only form that may propagate downstream; on error no partial value is
// returned. Clean is idempotent over its own accepted output.
func Clean(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", validationError{rule: "empty", msg: "input phrase cannot be empty"}
	}

	s := stripControl(raw)
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if s == "" {
		return "", validationError{rule: "empty", msg: "input phrase cannot be empty"}
	}
	// Length is counted in characters, not bytes.
	if utf8.RuneCountInString(s) > MaxLen {
		return "", validationError{rule: "too_long", msg: "input phrase exceeds 200 characters"}
	}
	for _, p := range injectionPatterns {
		if p.MatchString(s) {
			return "", validationError{rule: "injection", msg: "input phrase contains disallowed content"}
		}
	}
	if hasExcessiveRepetition(s) {
		return "", validationError{rule: "repetition", msg: "input phrase contains excessive repetition"}
	}
	return s, nil
}

// stripControl removes ASCII control characters (0x00-0x1F, 0x7F-0x9F).
// Tab, newline and CR survive here so the whitespace collapse can turn them
// into single spaces instead of gluing words together.
func stripControl(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			continue
		}
		if r >= 0x7F && r <= 0x9F {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// hasExcessiveRepetition reports whether a block of length >= 10 repeats
// at least 4 times consecutively anywhere in s.
func hasExcessiveRepetition(s string) bool {
	const minBlock = 10
	const minRepeats = 4
	n := len(s)
	if n < minBlock*minRepeats {
		return false
	}
	for size := minBlock; size <= n/minRepeats; size++ {
		for start := 0; start+size*minRepeats <= n; start++ {
			block := s[start : start+size]
			count := 1
			for off := start + size; off+size <= n && s[off:off+size] == block; off += size {
				count++
				if count >= minRepeats {
					return true
				}
			}
		}
	}
	return false
}
