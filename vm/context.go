package vm

// Context is the mutable state of one evaluation: an operand stack whose
// tail is the top, and named variable bindings. A Context is created per
// Execute call and never shared.
type Context struct {
	stack []Value
	vars  map[string]Value

	// budget caps the values words may allocate; 0 is unlimited.
	budget int
	used   int
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{vars: make(map[string]Value)}
}

// Depth returns the number of values on the stack.
func (c *Context) Depth() int { return len(c.stack) }

// Push appends values to the top of the stack, in order.
func (c *Context) Push(vs ...Value) {
	c.stack = append(c.stack, vs...)
}

// Pop removes and returns the top value.
func (c *Context) Pop() (Value, error) {
	if len(c.stack) == 0 {
		return Value{}, &StackUnderflowError{Required: 1}
	}
	v := c.stack[len(c.stack)-1]
	c.stack[len(c.stack)-1] = Value{}
	c.stack = c.stack[:len(c.stack)-1]
	return v, nil
}

// Peek returns the value i positions below the top (0 is the top) without
// removing it.
func (c *Context) Peek(i int) (Value, error) {
	if i < 0 || i >= len(c.stack) {
		return Value{}, &StackUnderflowError{Required: i + 1, Actual: len(c.stack)}
	}
	return c.stack[len(c.stack)-1-i], nil
}

// Drop removes the top n values. It fails without modifying the stack when
// fewer than n are present.
func (c *Context) Drop(n int) error {
	if n < 0 || n > len(c.stack) {
		return &StackUnderflowError{Required: n, Actual: len(c.stack)}
	}
	for i := len(c.stack) - n; i < len(c.stack); i++ {
		c.stack[i] = Value{}
	}
	c.stack = c.stack[:len(c.stack)-n]
	return nil
}

// Top returns a copy of the top n values, bottom first.
func (c *Context) Top(n int) ([]Value, error) {
	if n < 0 || n > len(c.stack) {
		return nil, &StackUnderflowError{Required: n, Actual: len(c.stack)}
	}
	out := make([]Value, n)
	copy(out, c.stack[len(c.stack)-n:])
	return out, nil
}

// Replace drops the top n values and pushes vs in their place. Expressions
// in vs are weighed as built from the dropped values.
func (c *Context) Replace(n int, vs ...Value) error {
	if n < 0 || n > len(c.stack) {
		return &StackUnderflowError{Required: n, Actual: len(c.stack)}
	}
	w := 1 + totalWeight(c.stack[len(c.stack)-n:])
	for i := range vs {
		if vs[i].kind == KindExpr && vs[i].weight == 0 {
			vs[i].weight = w
		}
	}
	if err := c.Drop(n); err != nil {
		return err
	}
	c.Push(vs...)
	return nil
}

// charge accounts for n newly allocated values and reports whether the
// budget still holds.
func (c *Context) charge(n int) bool {
	if c.budget <= 0 {
		return true
	}
	c.used += n
	return c.used <= c.budget
}

// Clear empties the stack. Variables are kept.
func (c *Context) Clear() {
	c.stack = nil
}

// Stack returns a copy of the stack, bottom first.
func (c *Context) Stack() []Value {
	out := make([]Value, len(c.stack))
	copy(out, c.stack)
	return out
}

// Get returns the value bound to name.
func (c *Context) Get(name string) (Value, bool) {
	v, ok := c.vars[name]
	return v, ok
}

// Set binds name to v.
func (c *Context) Set(name string, v Value) {
	c.vars[name] = v
}

// Vars returns a copy of the variable bindings.
func (c *Context) Vars() map[string]Value {
	out := make(map[string]Value, len(c.vars))
	for k, v := range c.vars {
		out[k] = v
	}
	return out
}
