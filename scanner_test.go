package config

import (
	"bufio"
	"strings"
	"testing"
)

func scanAll(t *testing.T, text string) []Token {
	t.Helper()
	tz := newTokenizer(newSource(bufio.NewReader(strings.NewReader(text))))
	var toks []Token
	for {
		tok, err := tz.nextToken()
		if err != nil {
			t.Fatalf("scanning %q: %v", text, err)
		}
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks
		}
	}
}

func scanOne(t *testing.T, text string) Token {
	t.Helper()
	toks := scanAll(t, text)
	if len(toks) != 2 {
		t.Fatalf("scanning %q: expected one token before EOF, got %d", text, len(toks)-1)
	}
	return toks[0]
}

func TestScanNumbers(t *testing.T) {
	cases := []struct {
		text string
		kind TokenKind
		want any
	}{
		{"123", IntegerNumber, int64(123)},
		{"0x1F", IntegerNumber, int64(31)},
		{"0o17", IntegerNumber, int64(15)},
		{"0b101", IntegerNumber, int64(5)},
		{"0123", IntegerNumber, int64(83)},
		{"1_000", IntegerNumber, int64(1000)},
		{"1.5", FloatNumber, 1.5},
		{"1.5e2", FloatNumber, 150.0},
		{"3j", Complex, complex(0, 3)},
	}
	for _, c := range cases {
		tok := scanOne(t, c.text)
		if tok.Kind != c.kind {
			t.Errorf("%q: kind = %s, want %s", c.text, tok.Kind, c.kind)
		}
		if tok.Value != c.want {
			t.Errorf("%q: value = %v, want %v", c.text, tok.Value, c.want)
		}
	}
}

func TestScanBadlyFormedOctal(t *testing.T) {
	tz := newTokenizer(newSource(bufio.NewReader(strings.NewReader("0179"))))
	_, err := tz.nextToken()
	if err == nil {
		t.Fatalf("expected an error scanning 0179")
	}
	if !strings.Contains(err.Error(), "badly formed octal constant") {
		t.Errorf("error = %v, want mention of badly formed octal constant", err)
	}
}

func TestScanStrings(t *testing.T) {
	tok := scanOne(t, `"hello\nworld"`)
	if tok.Kind != StringToken {
		t.Fatalf("kind = %s, want %s", tok.Kind, StringToken)
	}
	if tok.Value != "hello\nworld" {
		t.Errorf("value = %q, want %q", tok.Value, "hello\nworld")
	}

	tok = scanOne(t, `'''multi
line'''`)
	if tok.Value != "multi\nline" {
		t.Errorf("triple-quoted value = %q", tok.Value)
	}
}

func TestScanUnterminatedString(t *testing.T) {
	tz := newTokenizer(newSource(bufio.NewReader(strings.NewReader(`"open`))))
	_, err := tz.nextToken()
	if err == nil || !strings.Contains(err.Error(), "unterminated quoted string") {
		t.Fatalf("err = %v, want unterminated quoted string", err)
	}
}

func TestScanCommentBecomesNewline(t *testing.T) {
	toks := scanAll(t, "a # a comment\nb")
	kinds := make([]TokenKind, len(toks))
	for i, tok := range toks {
		kinds[i] = tok.Kind
	}
	want := []TokenKind{Word, Newline, Word, EOF}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("kinds[%d] = %s, want %s", i, kinds[i], want[i])
		}
	}
}

func TestScanOperators(t *testing.T) {
	cases := map[string]TokenKind{
		"==": Equal, "!=": Unequal, "<>": AltUnequal,
		"<=": LessThanOrEqual, ">=": GreaterThanOrEqual,
		"<<": LeftShift, ">>": RightShift, "**": Power,
	}
	for text, kind := range cases {
		tok := scanOne(t, text)
		if tok.Kind != kind {
			t.Errorf("%q: kind = %s, want %s", text, tok.Kind, kind)
		}
	}
}
