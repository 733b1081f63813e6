package compiler

import (
	"testing"
)

func TestLexerBasicTokens(t *testing.T) {
	input := `( ) [ ] { } : :: ; , . ... + - * / % = < >`
	expected := []struct {
		typ TokenType
		lit string
	}{
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenLBracket, "["},
		{TokenRBracket, "]"},
		{TokenLBrace, "{"},
		{TokenRBrace, "}"},
		{TokenColon, ":"},
		{TokenDoubleColon, "::"},
		{TokenSemicolon, ";"},
		{TokenComma, ","},
		{TokenDot, "."},
		{TokenEllipsis, "..."},
		{TokenPlus, "+"},
		{TokenMinus, "-"},
		{TokenStar, "*"},
		{TokenSlash, "/"},
		{TokenPercent, "%"},
		{TokenAssign, "="},
		{TokenLess, "<"},
		{TokenGreater, ">"},
		{TokenEOF, ""},
	}

	l := NewLexer("test", input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, exp.typ)
		}
		if tok.Literal != exp.lit {
			t.Errorf("token[%d] literal = %q, want %q", i, tok.Literal, exp.lit)
		}
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
		want  string
	}{
		{"42", TokenInteger, "42"},
		{"0x1F", TokenInteger, "0x1F"},
		{"3.5", TokenFloat, "3.5"},
		{".25", TokenFloat, ".25"},
		{"1e3", TokenFloat, "1e3"},
		{"2SHT", TokenIdentifier, "2SHT"},
	}

	for _, tc := range tests {
		tok := NewLexer("", tc.input).NextToken()
		if tok.Type != tc.typ {
			t.Errorf("Lexer(%q): type = %v, want %v", tc.input, tok.Type, tc.typ)
		}
		if tok.Literal != tc.want {
			t.Errorf("Lexer(%q): literal = %q, want %q", tc.input, tok.Literal, tc.want)
		}
	}
}

func TestLexerStringsAndNames(t *testing.T) {
	l := NewLexer("", `"say \"hi\"" 'Fire'`)
	tok := l.NextToken()
	if tok.Type != TokenString || tok.Literal != `say "hi"` {
		t.Errorf("string = %v", tok)
	}
	tok = l.NextToken()
	if tok.Type != TokenName || tok.Literal != "Fire" {
		t.Errorf("name = %v", tok)
	}
}

func TestLexerUnterminatedString(t *testing.T) {
	tok := NewLexer("", `"oops`).NextToken()
	if tok.Type != TokenError {
		t.Errorf("type = %v, want ERROR", tok.Type)
	}
}

func TestLexerComments(t *testing.T) {
	l := NewLexer("", "// line comment\nactor /* block\ncomment */ Imp")
	toks := l.Tokenize()
	if len(toks) != 3 {
		t.Fatalf("got %d tokens, want 3: %v", len(toks), toks)
	}
	if toks[0].Literal != "actor" || toks[1].Literal != "Imp" {
		t.Errorf("tokens = %v", toks)
	}
}

func TestLexerPositions(t *testing.T) {
	l := NewLexer("imp.txt", "actor Imp\n  {")
	toks := l.Tokenize()
	if toks[0].Pos.Line != 1 || toks[0].Pos.Column != 1 {
		t.Errorf("actor at %v, want 1:1", toks[0].Pos)
	}
	if toks[1].Pos.Line != 1 || toks[1].Pos.Column != 7 {
		t.Errorf("Imp at %v, want 1:7", toks[1].Pos)
	}
	if toks[2].Pos.Line != 2 || toks[2].Pos.Column != 3 {
		t.Errorf("{ at %v, want 2:3", toks[2].Pos)
	}
	if toks[2].Pos.String() != "imp.txt:2:3" {
		t.Errorf("Pos.String() = %q", toks[2].Pos.String())
	}
}
