package compiler

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for comma-delimited stack programs
// ---------------------------------------------------------------------------

// SyntaxError reports a program that cannot be tokenized.
type SyntaxError struct {
	Pos     Position
	Token   string
	Message string
}

func (e *SyntaxError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("syntax error at token %d: %s", e.Pos.Index, e.Message)
	}
	return fmt.Sprintf("syntax error at token %d (%q): %s", e.Pos.Index, e.Token, e.Message)
}

// Lexer splits a program into tokens.
type Lexer struct {
	input string
	pos   int // current byte offset
	index int // number of tokens produced so far
	depth int // open list literals
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// NextToken returns the next token. ok is false once the input is exhausted.
// Empty segments between delimiters are skipped.
func (l *Lexer) NextToken() (tok Token, ok bool, err error) {
	for l.pos <= len(l.input) {
		start := l.pos
		end := strings.IndexByte(l.input[start:], Delimiter)
		if end < 0 {
			end = len(l.input)
		} else {
			end += start
		}
		l.pos = end + 1

		raw := l.input[start:end]
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		lead := len(raw) - len(strings.TrimLeftFunc(raw, unicode.IsSpace))
		pos := Position{Offset: start + lead, End: start + lead + len(text), Index: l.index}
		l.index++

		tok, err := l.classify(text, pos)
		return tok, err == nil, err
	}
	if l.depth > 0 {
		return Token{}, false, &SyntaxError{
			Pos:     Position{Offset: len(l.input), End: len(l.input), Index: l.index},
			Message: fmt.Sprintf("%d unclosed list literal(s)", l.depth),
		}
	}
	return Token{}, false, nil
}

func (l *Lexer) classify(text string, pos Position) (Token, error) {
	switch {
	case text == "(":
		l.depth++
		return Token{Type: TokenLParen, Literal: text, Pos: pos}, nil

	case text == ")":
		if l.depth == 0 {
			return Token{}, &SyntaxError{Pos: pos, Token: text, Message: "unmatched closing parenthesis"}
		}
		l.depth--
		return Token{Type: TokenRParen, Literal: text, Pos: pos}, nil

	case text[0] == WordMarker:
		name := text[1:]
		if name == "" {
			return Token{}, &SyntaxError{Pos: pos, Token: text, Message: "missing word name"}
		}
		if !IsWordName(name) {
			return Token{}, &SyntaxError{Pos: pos, Token: text, Message: "invalid word name"}
		}
		return Token{Type: TokenWord, Literal: text, Pos: pos}, nil

	default:
		return Token{Type: TokenLiteral, Literal: text, Pos: pos}, nil
	}
}

// IsWordName reports whether name can be referenced with the word marker.
func IsWordName(name string) bool {
	if name == "" || !utf8.ValidString(name) {
		return false
	}
	for _, r := range name {
		if unicode.IsSpace(r) || r == Delimiter || r == WordMarker || r == '(' || r == ')' {
			return false
		}
	}
	return true
}

// Tokenize splits a whole program into tokens.
func Tokenize(program string) ([]Token, error) {
	l := NewLexer(program)
	var tokens []Token
	for {
		tok, ok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		if !ok {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}

// Join renders tokens back into program text.
func Join(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.Literal
	}
	return strings.Join(parts, string(Delimiter))
}
