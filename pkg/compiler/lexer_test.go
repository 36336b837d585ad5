package compiler

import (
	"errors"
	"reflect"
	"testing"
)

func TestLex(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
	}{
		{
			name:  "Declaration",
			input: "float x = 1.5;",
			expected: []Token{
				{Type: FLOAT_TYPE, Lexeme: "float", Line: 1},
				{Type: IDENTIFIER, Lexeme: "x", Literal: "x", Line: 1},
				{Type: EQUAL, Lexeme: "=", Line: 1},
				{Type: NUMBER, Lexeme: "1.5", Literal: 1.5, Line: 1},
				{Type: SEMICOLON, Lexeme: ";", Line: 1},
				{Type: EOF, Line: 1},
			},
		},
		{
			name:  "TwoCharOperators",
			input: "! != = == < <= > >=",
			expected: []Token{
				{Type: BANG, Lexeme: "!", Line: 1},
				{Type: BANG_EQUAL, Lexeme: "!=", Line: 1},
				{Type: EQUAL, Lexeme: "=", Line: 1},
				{Type: EQUAL_EQUAL, Lexeme: "==", Line: 1},
				{Type: LESS, Lexeme: "<", Line: 1},
				{Type: LESS_EQUAL, Lexeme: "<=", Line: 1},
				{Type: GREATER, Lexeme: ">", Line: 1},
				{Type: GREATER_EQUAL, Lexeme: ">=", Line: 1},
				{Type: EOF, Line: 1},
			},
		},
		{
			name:  "Punctuation",
			input: "(){},.-+;*/%",
			expected: []Token{
				{Type: LEFT_PAREN, Lexeme: "(", Line: 1},
				{Type: RIGHT_PAREN, Lexeme: ")", Line: 1},
				{Type: LEFT_BRACE, Lexeme: "{", Line: 1},
				{Type: RIGHT_BRACE, Lexeme: "}", Line: 1},
				{Type: COMMA, Lexeme: ",", Line: 1},
				{Type: DOT, Lexeme: ".", Line: 1},
				{Type: MINUS, Lexeme: "-", Line: 1},
				{Type: PLUS, Lexeme: "+", Line: 1},
				{Type: SEMICOLON, Lexeme: ";", Line: 1},
				{Type: STAR, Lexeme: "*", Line: 1},
				{Type: SLASH, Lexeme: "/", Line: 1},
				{Type: PERCENT, Lexeme: "%", Line: 1},
				{Type: EOF, Line: 1},
			},
		},
		{
			name:  "CommentProducesNothing",
			input: "a // ignored ( ) \"\nb",
			expected: []Token{
				{Type: IDENTIFIER, Lexeme: "a", Literal: "a", Line: 1},
				{Type: IDENTIFIER, Lexeme: "b", Literal: "b", Line: 2},
				{Type: EOF, Line: 2},
			},
		},
		{
			name:  "String",
			input: `print("hi there");`,
			expected: []Token{
				{Type: PRINT, Lexeme: "print", Line: 1},
				{Type: LEFT_PAREN, Lexeme: "(", Line: 1},
				{Type: STRING, Lexeme: `"hi there"`, Literal: "hi there", Line: 1},
				{Type: RIGHT_PAREN, Lexeme: ")", Line: 1},
				{Type: SEMICOLON, Lexeme: ";", Line: 1},
				{Type: EOF, Line: 1},
			},
		},
		{
			name:  "TrailingDotIsNotPartOfNumber",
			input: "12.",
			expected: []Token{
				{Type: NUMBER, Lexeme: "12", Literal: 12.0, Line: 1},
				{Type: DOT, Lexeme: ".", Line: 1},
				{Type: EOF, Line: 1},
			},
		},
		{
			name:  "UnderscoreIdentifier",
			input: "_tmp2 whiles",
			expected: []Token{
				{Type: IDENTIFIER, Lexeme: "_tmp2", Literal: "_tmp2", Line: 1},
				{Type: IDENTIFIER, Lexeme: "whiles", Literal: "whiles", Line: 1},
				{Type: EOF, Line: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Lex(tt.input)
			if err != nil {
				t.Fatalf("Lex() error = %v", err)
			}
			if !reflect.DeepEqual(tokens, tt.expected) {
				t.Errorf("Lex() mismatch\n got: %v\nwant: %v", tokens, tt.expected)
			}
		})
	}
}

func TestLexKeywords(t *testing.T) {
	for word, want := range keywords {
		tokens, err := Lex(word)
		if err != nil {
			t.Fatalf("Lex(%q) error = %v", word, err)
		}
		if tokens[0].Type != want {
			t.Errorf("Lex(%q): expected %s, got %s", word, want, tokens[0].Type)
		}
		if tokens[0].Literal != nil {
			t.Errorf("Lex(%q): keyword should carry no literal, got %v", word, tokens[0].Literal)
		}
	}
}

func TestLexLineNumbers(t *testing.T) {
	src := "a\n\nb\n\"two\nlines\" c\n// note\nd"
	tokens, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex() error = %v", err)
	}
	want := map[string]int{"a": 1, "b": 3, `"two` + "\n" + `lines"`: 5, "c": 5, "d": 7}
	for _, tok := range tokens {
		if tok.Type == EOF {
			continue
		}
		if line, ok := want[tok.Lexeme]; !ok || line != tok.Line {
			t.Errorf("token %q: expected line %d, got %d", tok.Lexeme, line, tok.Line)
		}
	}

	prev := 0
	for _, tok := range tokens {
		if tok.Line < prev {
			t.Errorf("line numbers went backwards at %v", tok)
		}
		prev = tok.Line
	}
}

func TestLexUnterminatedString(t *testing.T) {
	lx := NewLexer(`float x = 1; "abc`)
	tokens, err := lx.Scan()
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	for _, tok := range tokens {
		if tok.Type == STRING {
			t.Errorf("unexpected STRING token %v", tok)
		}
	}
	if last := tokens[len(tokens)-1]; last.Type != EOF {
		t.Errorf("expected EOF last, got %v", last)
	}
	diags := lx.Diagnostics()
	if len(diags) != 1 || diags[0].Message != "Unterminated String" || diags[0].Line != 1 {
		t.Errorf("unexpected diagnostics %v", diags)
	}
}

func TestLexUnknownCharacter(t *testing.T) {
	_, err := Lex("float x = 1;\nx = @;")
	var lexErr *LexError
	if !errors.As(err, &lexErr) {
		t.Fatalf("expected *LexError, got %v", err)
	}
	if lexErr.Line != 2 || lexErr.Char != '@' {
		t.Errorf("expected '@' on line 2, got %q on line %d", lexErr.Char, lexErr.Line)
	}
}
