package hll_test

import (
	"testing"

	"toolchain.dev/hllc/pkg/hll"
)

func TestLexKeywordsAndSymbols(t *testing.T) {
	tokens, err := hll.Lex("class Main { field int x; }")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []hll.Token{
		{Kind: hll.KeywordTok, Lexeme: "class"},
		{Kind: hll.IdentifierTok, Lexeme: "Main"},
		{Kind: hll.SymbolTok, Lexeme: "{"},
		{Kind: hll.KeywordTok, Lexeme: "field"},
		{Kind: hll.KeywordTok, Lexeme: "int"},
		{Kind: hll.IdentifierTok, Lexeme: "x"},
		{Kind: hll.SymbolTok, Lexeme: ";"},
		{Kind: hll.SymbolTok, Lexeme: "}"},
	}

	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d: %+v", len(expected), len(tokens), tokens)
	}
	for i, want := range expected {
		if tokens[i] != want {
			t.Errorf("token %d: expected %+v, got %+v", i, want, tokens[i])
		}
	}
}

func TestLexIntegerAndStringConstants(t *testing.T) {
	tokens, err := hll.Lex(`let s = "hello, world"; let n = 42;`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantKinds := []hll.TokenKind{
		hll.KeywordTok, hll.IdentifierTok, hll.SymbolTok, hll.StringConstantTok, hll.SymbolTok,
		hll.KeywordTok, hll.IdentifierTok, hll.SymbolTok, hll.IntegerConstantTok, hll.SymbolTok,
	}
	if len(tokens) != len(wantKinds) {
		t.Fatalf("expected %d tokens, got %d: %+v", len(wantKinds), len(tokens), tokens)
	}
	for i, kind := range wantKinds {
		if tokens[i].Kind != kind {
			t.Errorf("token %d: expected kind %s, got %s (%q)", i, kind, tokens[i].Kind, tokens[i].Lexeme)
		}
	}

	if tokens[3].Lexeme != `"hello, world"` {
		t.Errorf("expected string constant to retain quotes, got %q", tokens[3].Lexeme)
	}
}

func TestLexUnterminatedString(t *testing.T) {
	if _, err := hll.Lex(`let s = "oops`); err == nil {
		t.Fatalf("expected an error for an unterminated string literal")
	}
}

func TestStripLineComment(t *testing.T) {
	tokens, err := hll.Lex("let x = 1; // assign the answer\nlet y = 2;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, tok := range tokens {
		if tok.Lexeme == "assign" || tok.Lexeme == "the" || tok.Lexeme == "answer" {
			t.Fatalf("line comment text leaked into tokens: %+v", tokens)
		}
	}
}

func TestStripBlockComment(t *testing.T) {
	tokens, err := hll.Lex("let x /* a block\nspanning lines */ = 1;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, tok := range tokens {
		if tok.Lexeme == "block" || tok.Lexeme == "spanning" {
			t.Fatalf("block comment text leaked into tokens: %+v", tokens)
		}
	}
}

func TestCommentMarkersInsideStringSurvive(t *testing.T) {
	tokens, err := hll.Lex(`let s = "this // is not a comment /* at all */";`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found := false
	for _, tok := range tokens {
		if tok.Kind == hll.StringConstantTok {
			found = true
			if tok.Lexeme != `"this // is not a comment /* at all */"` {
				t.Errorf("expected the string literal to survive intact, got %q", tok.Lexeme)
			}
		}
	}
	if !found {
		t.Fatalf("expected to find a string constant token")
	}
}
