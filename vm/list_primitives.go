package vm

import (
	"strings"

	"github.com/chazu/stackviz/compiler"
)

// ---------------------------------------------------------------------------
// Lists and list-driven control
// ---------------------------------------------------------------------------

func listPrimitives() []Word {
	return []Word{
		NewPrimitive("list", 0, "Replace the whole stack with a single list of its items.", func(p *Primitive, c *Context) error {
			items := c.Stack()
			if err := p.alloc(c, len(items)); err != nil {
				return err
			}
			c.Clear()
			c.Push(FromList(items))
			return nil
		}, "a,b,c"),

		NewPrimitive("nlist", 1, "Pop N, then collect the top N items into a list.", func(p *Primitive, c *Context) error {
			n, err := p.count(c, 0)
			if err != nil {
				return err
			}
			if c.Depth() < n+1 {
				return p.underflow(n+1, c)
			}
			if err := p.alloc(c, n); err != nil {
				return err
			}
			top, _ := c.Top(n + 1)
			return c.Replace(n+1, FromList(top[:n]))
		}, "a,b,c,2"),

		NewPrimitive("collect", 1, "Pop a depth D, then collect every item above the bottom D into a list.", func(p *Primitive, c *Context) error {
			d, err := p.count(c, 0)
			if err != nil {
				return err
			}
			n := c.Depth() - 1 - d
			if n < 0 {
				return p.underflow(d+1, c)
			}
			if err := p.alloc(c, n); err != nil {
				return err
			}
			top, _ := c.Top(n + 1)
			return c.Replace(n+1, FromList(top[:n]))
		}, "a,b,c,1"),

		NewPrimitive("concat", 2, "Join the top two lists.", func(p *Primitive, c *Context) error {
			b, err := p.list(c, 0)
			if err != nil {
				return err
			}
			a, err := p.list(c, 1)
			if err != nil {
				return err
			}
			if err := p.alloc(c, len(a)+len(b)); err != nil {
				return err
			}
			joined := make([]Value, 0, len(a)+len(b))
			joined = append(joined, a...)
			joined = append(joined, b...)
			return c.Replace(2, FromList(joined))
		}, "(,a,),(,b,)"),

		NewPrimitive("reverse", 1, "Reverse the list on top.", func(p *Primitive, c *Context) error {
			l, err := p.list(c, 0)
			if err != nil {
				return err
			}
			if err := p.alloc(c, len(l)); err != nil {
				return err
			}
			out := make([]Value, len(l))
			for i, v := range l {
				out[len(l)-1-i] = v
			}
			return c.Replace(1, FromList(out))
		}, "(,a,b,)"),

		NewPrimitive("size", 1, "Replace a list with its length.", func(p *Primitive, c *Context) error {
			l, err := p.list(c, 0)
			if err != nil {
				return err
			}
			return c.Replace(1, FromNumber(float64(len(l))))
		}, "(,a,b,)"),

		NewPrimitive("format", 2, "Substitute list items for each %s in a format string.", func(p *Primitive, c *Context) error {
			args, err := p.list(c, 0)
			if err != nil {
				return err
			}
			pattern, err := p.str(c, 1)
			if err != nil {
				return err
			}
			var b strings.Builder
			next := 0
			for {
				i := strings.Index(pattern, "%s")
				if i < 0 || next >= len(args) {
					b.WriteString(pattern)
					break
				}
				b.WriteString(pattern[:i])
				b.WriteString(args[next].String())
				next++
				pattern = pattern[i+2:]
			}
			if err := p.alloc(c, b.Len()); err != nil {
				return err
			}
			return c.Replace(2, FromString(b.String()))
		}, "%s-%s,(,a,b,)"),

		NewSplicePrimitive("call", 1, "Evaluate the items of the list on top as a program.", func(p *Primitive, c *Context) ([]compiler.Token, error) {
			l, err := p.list(c, 0)
			if err != nil {
				return nil, err
			}
			tokens, err := tokensOf(l)
			if err != nil {
				return nil, err
			}
			if err := p.alloc(c, len(tokens)); err != nil {
				return nil, err
			}
			return tokens, c.Drop(1)
		}, "a,(,:dup,)"),

		NewSplicePrimitive("each", 2, "For every item of a list, push it and evaluate a body list.", func(p *Primitive, c *Context) ([]compiler.Token, error) {
			body, err := p.list(c, 0)
			if err != nil {
				return nil, err
			}
			items, err := p.list(c, 1)
			if err != nil {
				return nil, err
			}
			tokens, err := iterate(p, c, items, body)
			if err != nil {
				return nil, err
			}
			return tokens, c.Drop(2)
		}, "(,a,b,),(,:dup,)"),

		NewSplicePrimitive("map", 2, "Like each, but collect everything the body leaves into one list.", func(p *Primitive, c *Context) ([]compiler.Token, error) {
			body, err := p.list(c, 0)
			if err != nil {
				return nil, err
			}
			items, err := p.list(c, 1)
			if err != nil {
				return nil, err
			}
			tokens, err := iterate(p, c, items, body)
			if err != nil {
				return nil, err
			}
			depth := c.Depth() - 2
			tokens = append(tokens,
				compiler.Literal(FormatNumber(float64(depth))),
				compiler.Word("collect"))
			return tokens, c.Drop(2)
		}, "(,a,b,),(,:dup,)"),
	}
}

// iterate splices each item followed by the body. The splice is charged
// before it is built.
func iterate(p *Primitive, c *Context, items, body []Value) ([]compiler.Token, error) {
	bodyTokens, err := tokensOf(body)
	if err != nil {
		return nil, err
	}
	if err := p.alloc(c, len(items)*len(bodyTokens)+2*totalWeight(items)); err != nil {
		return nil, err
	}
	var tokens []compiler.Token
	for _, item := range items {
		itemTokens, err := tokensOf([]Value{item})
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, itemTokens...)
		tokens = append(tokens, bodyTokens...)
	}
	return tokens, nil
}

// tokensOf re-tokenizes the canonical rendering of values.
func tokensOf(values []Value) ([]compiler.Token, error) {
	var tokens []compiler.Token
	for _, v := range values {
		t, err := compiler.Tokenize(v.String())
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t...)
	}
	return tokens, nil
}
