package vm

import (
	"github.com/chazu/stackviz/compiler"
)

// DefaultMaxExpansions bounds macro and splice expansions per Execute call.
const DefaultMaxExpansions = 10000

// DefaultMaxValues bounds the list items, spliced tokens and string bytes
// words may allocate per Execute call, and the weight of any one value.
const DefaultMaxValues = 1000000

// Interpreter evaluates programs against a fixed vocabulary. It holds no
// per-evaluation state, so one Interpreter may serve concurrent Execute
// calls.
type Interpreter struct {
	vocab         *Vocabulary
	maxExpansions int
	maxValues     int
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithMaxExpansions sets the expansion bound. Values below 1 keep the
// default.
func WithMaxExpansions(n int) Option {
	return func(in *Interpreter) {
		if n > 0 {
			in.maxExpansions = n
		}
	}
}

// WithMaxValues sets the value budget. Values below 1 keep the default.
func WithMaxValues(n int) Option {
	return func(in *Interpreter) {
		if n > 0 {
			in.maxValues = n
		}
	}
}

// NewInterpreter binds an interpreter to vocab.
func NewInterpreter(vocab *Vocabulary, opts ...Option) *Interpreter {
	in := &Interpreter{vocab: vocab, maxExpansions: DefaultMaxExpansions, maxValues: DefaultMaxValues}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Vocabulary returns the bound vocabulary.
func (in *Interpreter) Vocabulary() *Vocabulary { return in.vocab }

// MaxExpansions returns the configured expansion bound.
func (in *Interpreter) MaxExpansions() int { return in.maxExpansions }

// MaxValues returns the configured value budget.
func (in *Interpreter) MaxValues() int { return in.maxValues }

func (in *Interpreter) newContext() *Context {
	c := NewContext()
	c.budget = in.maxValues
	return c
}

// Result is the outcome of a successful evaluation.
type Result struct {
	stack []Value
	vars  map[string]Value
}

// Stack returns a copy of the final stack, bottom first.
func (r *Result) Stack() []Value {
	out := make([]Value, len(r.stack))
	copy(out, r.stack)
	return out
}

// Vars returns a copy of the final variable bindings.
func (r *Result) Vars() map[string]Value {
	out := make(map[string]Value, len(r.vars))
	for k, v := range r.vars {
		out[k] = v
	}
	return out
}

// Len returns the final stack depth.
func (r *Result) Len() int { return len(r.stack) }

// Top returns the top of the final stack.
func (r *Result) Top() (Value, bool) {
	if len(r.stack) == 0 {
		return Value{}, false
	}
	return r.stack[len(r.stack)-1], true
}

// Strings renders the final stack, bottom first.
func (r *Result) Strings() []string { return Strings(r.stack) }

// Step records the stack after one token was processed.
type Step struct {
	Token string
	Stack []Value
}

// Execute evaluates program in a fresh context.
func (in *Interpreter) Execute(program string) (*Result, error) {
	tokens, err := compiler.Tokenize(program)
	if err != nil {
		return nil, err
	}
	return in.ExecuteTokens(tokens)
}

// ExecuteTokens evaluates an already tokenized program in a fresh context.
func (in *Interpreter) ExecuteTokens(tokens []compiler.Token) (*Result, error) {
	c := in.newContext()
	if err := in.run(c, tokens, nil); err != nil {
		return nil, err
	}
	return &Result{stack: c.stack, vars: c.vars}, nil
}

// Debug evaluates program and returns the stack after every processed
// token, up to and including the failing one when evaluation fails.
func (in *Interpreter) Debug(program string) ([]Step, error) {
	tokens, err := compiler.Tokenize(program)
	if err != nil {
		return nil, err
	}
	var steps []Step
	err = in.run(in.newContext(), tokens, func(tok compiler.Token, c *Context) {
		steps = append(steps, Step{Token: tok.Literal, Stack: c.Stack()})
	})
	return steps, err
}

// queue holds pending tokens in reverse so both popping the next token and
// splicing an expansion in front of it are appends/truncations at the tail.
type queue []compiler.Token

func newQueue(tokens []compiler.Token) queue {
	q := make(queue, 0, len(tokens))
	return q.prepend(tokens)
}

func (q queue) prepend(tokens []compiler.Token) queue {
	for i := len(tokens) - 1; i >= 0; i-- {
		q = append(q, tokens[i])
	}
	return q
}

func (q queue) next() (compiler.Token, queue) {
	tok := q[len(q)-1]
	return tok, q[:len(q)-1]
}

func (in *Interpreter) run(c *Context, tokens []compiler.Token, trace func(compiler.Token, *Context)) error {
	pending := newQueue(tokens)
	expansions := 0

	for len(pending) > 0 {
		var tok compiler.Token
		tok, pending = pending.next()

		var err error
		switch tok.Type {
		case compiler.TokenLiteral:
			c.Push(ParseLiteral(tok.Literal))

		case compiler.TokenLParen:
			var list Value
			list, pending, err = collectList(tok, pending)
			if err == nil {
				c.Push(list)
			}

		case compiler.TokenRParen:
			err = &compiler.SyntaxError{Pos: tok.Pos, Token: tok.Literal, Message: "unmatched closing parenthesis"}

		case compiler.TokenWord:
			var expansion []compiler.Token
			expansion, err = in.invoke(tok.Name(), c)
			if err == nil && expansion != nil {
				expansions++
				if expansions > in.maxExpansions {
					err = &ExpansionLimitExceededError{Word: tok.Name(), Limit: in.maxExpansions}
				} else {
					pending = pending.prepend(expansion)
				}
			}
		}

		if err == nil {
			if top, perr := c.Peek(0); perr == nil && top.Weight() > in.maxValues {
				err = &ValueLimitExceededError{Word: tok.Name(), Limit: in.maxValues}
			}
		}

		if trace != nil {
			trace(tok, c)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// invoke applies a word. A non-nil expansion must be evaluated next.
func (in *Interpreter) invoke(name string, c *Context) ([]compiler.Token, error) {
	w, ok := in.vocab.Lookup(name)
	if !ok {
		return nil, &UnknownWordError{Name: name}
	}

	switch w := w.(type) {
	case *Macro:
		if len(w.body) == 0 {
			return []compiler.Token{}, nil
		}
		return w.body, nil

	case *Primitive:
		if c.Depth() < w.Depth {
			return nil, &StackUnderflowError{Word: w.name, Required: w.Depth, Actual: c.Depth()}
		}
		if w.Splice != nil {
			tokens, err := w.Splice(w, c)
			if err != nil {
				return nil, err
			}
			if tokens == nil {
				tokens = []compiler.Token{}
			}
			return tokens, nil
		}
		return nil, w.Fn(w, c)
	}
	return nil, &UnknownWordError{Name: name}
}

// collectList consumes tokens up to the parenthesis matching open and
// returns them as a List of raw token strings; nested parentheses produce
// nested lists.
func collectList(open compiler.Token, pending queue) (Value, queue, error) {
	var items []Value
	for len(pending) > 0 {
		var tok compiler.Token
		tok, pending = pending.next()
		switch tok.Type {
		case compiler.TokenRParen:
			return FromList(items), pending, nil
		case compiler.TokenLParen:
			var nested Value
			var err error
			nested, pending, err = collectList(tok, pending)
			if err != nil {
				return Value{}, pending, err
			}
			items = append(items, nested)
		default:
			items = append(items, FromString(tok.Literal))
		}
	}
	return Value{}, pending, &compiler.SyntaxError{Pos: open.Pos, Token: open.Literal, Message: "unclosed list literal"}
}
