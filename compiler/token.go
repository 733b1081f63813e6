package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the DECORATE lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenInteger    // 42, 0x2A
	TokenFloat      // 3.14, .5, 1e3
	TokenString     // "hello"
	TokenName       // 'hello'
	TokenIdentifier // foo, A_Look, TROO

	// Delimiters and operators
	TokenLParen      // (
	TokenRParen      // )
	TokenLBracket    // [
	TokenRBracket    // ]
	TokenLBrace      // {
	TokenRBrace      // }
	TokenColon       // :
	TokenDoubleColon // ::
	TokenSemicolon   // ;
	TokenComma       // ,
	TokenDot         // .
	TokenEllipsis    // ...
	TokenPlus        // +
	TokenMinus       // -
	TokenStar        // *
	TokenSlash       // /
	TokenPercent     // %
	TokenAssign      // =
	TokenLess        // <
	TokenGreater     // >
)

var tokenNames = map[TokenType]string{
	TokenEOF:         "EOF",
	TokenError:       "ERROR",
	TokenInteger:     "INTEGER",
	TokenFloat:       "FLOAT",
	TokenString:      "STRING",
	TokenName:        "NAME",
	TokenIdentifier:  "IDENTIFIER",
	TokenLParen:      "(",
	TokenRParen:      ")",
	TokenLBracket:    "[",
	TokenRBracket:    "]",
	TokenLBrace:      "{",
	TokenRBrace:      "}",
	TokenColon:       ":",
	TokenDoubleColon: "::",
	TokenSemicolon:   ";",
	TokenComma:       ",",
	TokenDot:         ".",
	TokenEllipsis:    "...",
	TokenPlus:        "+",
	TokenMinus:       "-",
	TokenStar:        "*",
	TokenSlash:       "/",
	TokenPercent:     "%",
	TokenAssign:      "=",
	TokenLess:        "<",
	TokenGreater:     ">",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token. Keywords are contextual in DECORATE, so
// they arrive as identifiers and the parser compares them case-insensitively.
type Token struct {
	Type    TokenType
	Literal string   // the raw text, or the decoded value for strings and names
	Pos     Position // start position
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Describe renders the token for error messages.
func (t Token) Describe() string {
	switch t.Type {
	case TokenEOF:
		return "end of file"
	case TokenString:
		return fmt.Sprintf("%q", t.Literal)
	case TokenName:
		return fmt.Sprintf("'%s'", t.Literal)
	default:
		return fmt.Sprintf("'%s'", t.Literal)
	}
}
