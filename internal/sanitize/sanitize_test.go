package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestCleanAcceptsPlainPhrase(t *testing.T) {
	out, err := Clean("The capital of France is")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "The capital of France is" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"hello world",
		"  spaced \t out \n phrase  ",
		"punctuation, stays! right?",
	}
	for _, in := range inputs {
		once, err := Clean(in)
		if err != nil {
			t.Fatalf("Clean(%q): %v", in, err)
		}
		twice, err := Clean(once)
		if err != nil {
			t.Fatalf("Clean(Clean(%q)): %v", in, err)
		}
		if once != twice {
			t.Fatalf("not idempotent: %q vs %q", once, twice)
		}
	}
}

func TestCleanCollapsesWhitespace(t *testing.T) {
	out, err := Clean("a\t\tb\n\nc   d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "a b c d" {
		t.Fatalf("got %q", out)
	}
}

func TestCleanStripsControlCharacters(t *testing.T) {
	out, err := Clean("he\x00llo\x1b wor\x7fld")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hello world" {
		t.Fatalf("got %q", out)
	}
}

func TestCleanRejectsEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\n", "\x00\x01"} {
		if _, err := Clean(in); err == nil {
			t.Fatalf("expected error for %q", in)
		} else if !IsValidation(err) {
			t.Fatalf("expected validation error for %q, got %v", in, err)
		}
	}
}

func TestCleanLengthBound(t *testing.T) {
	ok := strings.Repeat("a b ", 50) // 200 chars, trims to 199
	out, err := Clean(ok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) < 1 || len(out) > MaxLen {
		t.Fatalf("length %d out of bounds", len(out))
	}

	long := strings.Repeat("z y x w v u t s r q p o n m l k j i h g ", 6)
	if _, err := Clean(long); err == nil {
		t.Fatalf("expected too-long rejection for %d chars", len(long))
	}
}

func TestCleanLengthCountsCharactersNotBytes(t *testing.T) {
	// 150 characters but 300 bytes: under the limit.
	in := strings.Repeat("é", 150)
	out, err := Clean(in)
	if err != nil {
		t.Fatalf("unexpected error for %d-rune phrase: %v", utf8.RuneCountInString(in), err)
	}
	if out != in {
		t.Fatalf("got %q", out)
	}

	// 201 characters of multibyte text: over the limit.
	if _, err := Clean(strings.Repeat("日", 201)); err == nil {
		t.Fatalf("expected too-long rejection for 201 runes")
	} else if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCleanRejectsInjectionPatterns(t *testing.T) {
	cases := []string{
		"<script>alert(1)</script>",
		"click javascript:alert(1)",
		"vbscript: msgbox",
		"data:text/html;base64,xxx",
		"<img onerror=alert(1)>",
		"eval(document.cookie)",
		"width:expression(alert(1))",
		"<SCRIPT SRC=x>",
	}
	for _, in := range cases {
		if _, err := Clean(in); err == nil {
			t.Fatalf("expected rejection for %q", in)
		} else if !IsValidation(err) {
			t.Fatalf("expected validation error for %q, got %v", in, err)
		}
	}
}

func TestCleanRejectsExcessiveRepetition(t *testing.T) {
	if _, err := Clean(strings.Repeat("abcdefghij", 5)); err == nil {
		t.Fatalf("expected repetition rejection")
	}
	// 2-char block repeated 50 times: caught because the 10-char window
	// "ababababab" itself repeats more than 4 times.
	if _, err := Clean(strings.Repeat("ab", 50)); err == nil {
		t.Fatalf("expected repetition rejection for ab*50")
	}
	// Below the threshold: 3 repeats only.
	if _, err := Clean(strings.Repeat("abcdefghij", 3)); err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
}

func TestValidationErrorRule(t *testing.T) {
	_, err := Clean("")
	ve, ok := err.(interface{ Rule() string })
	if !ok {
		t.Fatalf("error does not expose rule: %T", err)
	}
	if ve.Rule() != "empty" {
		t.Fatalf("rule=%q", ve.Rule())
	}
}
