package vm

import (
	"github.com/chazu/stackviz/compiler"
)

// Word is a named unit of behavior in a Vocabulary. The concrete variants
// are *Primitive and *Macro.
type Word interface {
	Name() string
	// Summary is a one-line description for documentation and editors.
	Summary() string
	// Examples are sample programs that leave the word's inputs on the
	// stack. They are advisory and never run during evaluation.
	Examples() []string
}

// PrimitiveFunc applies a primitive to the context. Depth has already been
// checked against Primitive.Depth. Implementations must validate operands
// before mutating the stack.
type PrimitiveFunc func(p *Primitive, c *Context) error

// SpliceFunc is a primitive that, instead of (or in addition to) touching
// the stack, returns tokens to evaluate next.
type SpliceFunc func(p *Primitive, c *Context) ([]compiler.Token, error)

// Primitive is a word implemented in Go.
type Primitive struct {
	name     string
	summary  string
	examples []string

	// Depth is the minimum stack depth required before Fn or Splice runs.
	Depth int

	Fn     PrimitiveFunc
	Splice SpliceFunc
}

// NewPrimitive defines a stack primitive.
func NewPrimitive(name string, depth int, summary string, fn PrimitiveFunc, examples ...string) *Primitive {
	return &Primitive{name: name, summary: summary, examples: examples, Depth: depth, Fn: fn}
}

// NewSplicePrimitive defines a primitive that feeds tokens back to the
// interpreter.
func NewSplicePrimitive(name string, depth int, summary string, fn SpliceFunc, examples ...string) *Primitive {
	return &Primitive{name: name, summary: summary, examples: examples, Depth: depth, Splice: fn}
}

func (p *Primitive) Name() string       { return p.name }
func (p *Primitive) Summary() string    { return p.summary }
func (p *Primitive) Examples() []string { return p.examples }

// Macro is a word whose body is spliced into the token stream at the point
// of invocation. The body is tokenized once at definition but never
// resolved or evaluated until invoked, so forward references are legal.
type Macro struct {
	name     string
	summary  string
	body     []compiler.Token
	examples []string
}

// NewMacro tokenizes body and returns the macro word.
func NewMacro(name, body, summary string, examples ...string) (*Macro, error) {
	tokens, err := compiler.Tokenize(body)
	if err != nil {
		return nil, err
	}
	return &Macro{name: name, summary: summary, body: tokens, examples: examples}, nil
}

// mustMacro is used for the built-in macros, whose bodies are constants.
func mustMacro(name, body, summary string, examples ...string) *Macro {
	m, err := NewMacro(name, body, summary, examples...)
	if err != nil {
		panic("vm: bad built-in macro " + name + ": " + err.Error())
	}
	return m
}

func (m *Macro) Name() string       { return m.name }
func (m *Macro) Summary() string    { return m.summary }
func (m *Macro) Examples() []string { return m.examples }

// Body returns the macro body as program text.
func (m *Macro) Body() string { return compiler.Join(m.body) }

// Tokens returns a copy of the body tokens.
func (m *Macro) Tokens() []compiler.Token {
	out := make([]compiler.Token, len(m.body))
	copy(out, m.body)
	return out
}

// WordDef is a configuration record for a custom word.
type WordDef struct {
	Name     string
	Body     string
	Summary  string
	Examples []string
}
