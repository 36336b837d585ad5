package compiler

import (
	"reflect"
	"testing"
)

func ident(name string, line int) Token {
	return Token{Type: IDENTIFIER, Lexeme: name, Literal: name, Line: line}
}

func TestParse_ForLoop(t *testing.T) {
	lessTok := Token{Type: LESS, Lexeme: "<", Line: 1}
	plusTok := Token{Type: PLUS, Lexeme: "+", Line: 1}

	tests := []struct {
		name     string
		input    string
		expected []Stmt
	}{
		{
			name:  "For loop with declaration",
			input: "for (float i = 0; i < 3; i = i + 1) { print(i); }",
			expected: []Stmt{
				&Block{Stmts: []Stmt{
					&Var{
						Name:        ident("i", 1),
						Type:        FLOAT_TYPE,
						Initializer: &Literal{Value: NumberValue(0), Line: 1},
					},
					&While{
						Condition: &Binary{
							Left:     &Variable{Name: ident("i", 1)},
							Operator: lessTok,
							Right:    &Literal{Value: NumberValue(3), Line: 1},
						},
						Body: &Block{Stmts: []Stmt{
							&Print{Expr: &Variable{Name: ident("i", 1)}},
							&Expression{Expr: &Assign{
								Name: ident("i", 1),
								Value: &Binary{
									Left:     &Variable{Name: ident("i", 1)},
									Operator: plusTok,
									Right:    &Literal{Value: NumberValue(1), Line: 1},
								},
							}},
						}},
						Increment: true,
					},
				}},
			},
		},
		{
			name:  "For loop with assignment init",
			input: "for (i = 0; i < 3;) { }",
			expected: []Stmt{
				&Block{Stmts: []Stmt{
					&Expression{Expr: &Assign{Name: ident("i", 1), Value: &Literal{Value: NumberValue(0), Line: 1}}},
					&While{
						Condition: &Binary{
							Left:     &Variable{Name: ident("i", 1)},
							Operator: lessTok,
							Right:    &Literal{Value: NumberValue(3), Line: 1},
						},
						Body: &Block{},
					},
				}},
			},
		},
		{
			name:  "Infinite for loop",
			input: "for (;;) { break; }",
			expected: []Stmt{
				&While{
					Condition: &Literal{Value: BoolValue(true), Line: 1},
					Body: &Block{Stmts: []Stmt{
						&Break{Keyword: Token{Type: BREAK, Lexeme: "break", Line: 1}},
					}},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmts := parseSource(t, tt.input)
			if !reflect.DeepEqual(stmts, tt.expected) {
				t.Errorf("Parse() mismatch\n got: %s\nwant: %s", DumpStmts(stmts), DumpStmts(tt.expected))
			}
		})
	}
}

func TestParse_ForLoopStringInit(t *testing.T) {
	stmts := parseSource(t, `for (string s = "a"; false; ) { }`)
	outer, ok := stmts[0].(*Block)
	if !ok || len(outer.Stmts) != 2 {
		t.Fatalf("expected Block{init, while}, got %v", stmts)
	}
	if v, ok := outer.Stmts[0].(*Var); !ok || v.Type != STRING_TYPE {
		t.Errorf("expected string Var init, got %v", outer.Stmts[0])
	}
}
