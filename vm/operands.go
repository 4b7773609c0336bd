package vm

import (
	"strconv"
)

// ---------------------------------------------------------------------------
// Operand access for primitives
//
// Each helper peeks at the value i positions below the top and checks its
// variant; none of them mutate the stack.
// ---------------------------------------------------------------------------

func (p *Primitive) typeError(expected string, v Value) error {
	return &TypeError{Word: p.name, Expected: expected, Actual: describe(v)}
}

func (p *Primitive) underflow(required int, c *Context) error {
	return &StackUnderflowError{Word: p.name, Required: required, Actual: c.Depth()}
}

// alloc charges n new values against the evaluation budget.
func (p *Primitive) alloc(c *Context, n int) error {
	if !c.charge(n) {
		return &ValueLimitExceededError{Word: p.name, Limit: c.budget}
	}
	return nil
}

func (p *Primitive) peek(c *Context, i int) (Value, error) {
	v, err := c.Peek(i)
	if err != nil {
		return Value{}, p.underflow(i+1, c)
	}
	return v, nil
}

// number accepts a Number or a String holding a decimal numeral.
func (p *Primitive) number(c *Context, i int) (float64, error) {
	v, err := p.peek(c, i)
	if err != nil {
		return 0, err
	}
	switch v.kind {
	case KindNumber:
		return v.num, nil
	case KindString:
		if isDecimal(v.str) {
			if f, err := strconv.ParseFloat(v.str, 64); err == nil {
				return f, nil
			}
		}
	}
	return 0, p.typeError("Number", v)
}

// count is a non-negative integral number, used for N-ary words.
func (p *Primitive) count(c *Context, i int) (int, error) {
	f, err := p.number(c, i)
	if err != nil {
		return 0, err
	}
	n := int(f)
	if f < 0 || float64(n) != f {
		v, _ := c.Peek(i)
		return 0, p.typeError("non-negative integer", v)
	}
	return n, nil
}

// str accepts a String, or a Number in its literal spelling.
func (p *Primitive) str(c *Context, i int) (string, error) {
	v, err := p.peek(c, i)
	if err != nil {
		return "", err
	}
	switch v.kind {
	case KindString:
		return v.str, nil
	case KindNumber:
		return v.String(), nil
	}
	return "", p.typeError("String", v)
}

func (p *Primitive) boolean(c *Context, i int) (bool, error) {
	v, err := p.peek(c, i)
	if err != nil {
		return false, err
	}
	if v.kind != KindBool {
		return false, p.typeError("Boolean", v)
	}
	return v.b, nil
}

func (p *Primitive) list(c *Context, i int) ([]Value, error) {
	v, err := p.peek(c, i)
	if err != nil {
		return nil, err
	}
	if v.kind != KindList {
		return nil, p.typeError("List", v)
	}
	return v.list, nil
}

// strings accepts a List whose items are all Strings or Numbers.
func (p *Primitive) strings(c *Context, i int) ([]string, error) {
	v, err := p.peek(c, i)
	if err != nil {
		return nil, err
	}
	if v.kind != KindList {
		return nil, p.typeError("List of String", v)
	}
	out := make([]string, len(v.list))
	for j, item := range v.list {
		switch item.kind {
		case KindString:
			out[j] = item.str
		case KindNumber:
			out[j] = item.String()
		default:
			return nil, p.typeError("List of String", v)
		}
	}
	return out, nil
}

func (p *Primitive) query(c *Context, i int) (Query, error) {
	v, err := p.peek(c, i)
	if err != nil {
		return nil, err
	}
	if q, ok := v.expr.(Query); ok && v.kind == KindExpr {
		return q, nil
	}
	return nil, p.typeError("Query", v)
}

// data accepts a DataExpr, or a Query which is implicitly summed.
func (p *Primitive) data(c *Context, i int) (DataExpr, error) {
	v, err := p.peek(c, i)
	if err != nil {
		return nil, err
	}
	if v.kind == KindExpr {
		switch e := v.expr.(type) {
		case DataExpr:
			return e, nil
		case Query:
			return AggregateExpr{Fn: AggSum, Q: e}, nil
		}
	}
	return nil, p.typeError("DataExpr", v)
}

// aggregate accepts an AggregateExpr, or a Query which is implicitly summed.
func (p *Primitive) aggregate(c *Context, i int) (AggregateExpr, error) {
	v, err := p.peek(c, i)
	if err != nil {
		return AggregateExpr{}, err
	}
	if v.kind == KindExpr {
		switch e := v.expr.(type) {
		case AggregateExpr:
			return e, nil
		case Query:
			return AggregateExpr{Fn: AggSum, Q: e}, nil
		}
	}
	return AggregateExpr{}, p.typeError("aggregate expression", v)
}

// style accepts a StyleExpr, DataExpr or Query.
func (p *Primitive) style(c *Context, i int) (StyleExpr, error) {
	v, err := p.peek(c, i)
	if err != nil {
		return StyleExpr{}, err
	}
	if v.kind == KindExpr {
		if s, ok := v.expr.(StyleExpr); ok {
			return s, nil
		}
	}
	d, err := p.data(c, i)
	if err != nil {
		return StyleExpr{}, p.typeError("StyleExpr", v)
	}
	return NewStyleExpr(d), nil
}

// AsStyle converts an Expression value into a StyleExpr the way style
// words do: queries are summed, data expressions get default settings.
func AsStyle(v Value) (StyleExpr, bool) {
	if v.kind != KindExpr {
		return StyleExpr{}, false
	}
	switch e := v.expr.(type) {
	case StyleExpr:
		return e, true
	case DataExpr:
		return NewStyleExpr(e), true
	case Query:
		return NewStyleExpr(AggregateExpr{Fn: AggSum, Q: e}), true
	}
	return StyleExpr{}, false
}
