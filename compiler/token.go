package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for stack programs
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// TokenLiteral is pushed onto the stack as a String or Number.
	TokenLiteral TokenType = iota
	// TokenWord names a word to invoke (":dup").
	TokenWord
	// TokenLParen opens an unevaluated list literal.
	TokenLParen
	// TokenRParen closes a list literal.
	TokenRParen
)

// Program syntax characters.
const (
	Delimiter  = ','
	WordMarker = ':'
)

var tokenNames = map[TokenType]string{
	TokenLiteral: "LITERAL",
	TokenWord:    "WORD",
	TokenLParen:  "(",
	TokenRParen:  ")",
}

// String returns the name of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Position is the byte span of a token in its source program.
type Position struct {
	Offset int // byte offset of the first character
	End    int // byte offset just past the last character
	Index  int // ordinal of the token within the program
}

// Token is a single lexical unit of a program.
type Token struct {
	Type    TokenType
	Literal string // trimmed source text, including the word marker
	Pos     Position
}

// Name returns the referenced word name for TokenWord, or the literal text.
func (t Token) Name() string {
	if t.Type == TokenWord {
		return t.Literal[1:]
	}
	return t.Literal
}

func (t Token) String() string {
	return t.Literal
}

// Word builds a word-reference token for name.
func Word(name string) Token {
	return Token{Type: TokenWord, Literal: string(WordMarker) + name}
}

// Literal builds a literal token.
func Literal(text string) Token {
	return Token{Type: TokenLiteral, Literal: text}
}
