package vm

// ---------------------------------------------------------------------------
// Stack manipulation and variables
// ---------------------------------------------------------------------------

func stackPrimitives() []Word {
	return []Word{
		NewPrimitive("dup", 1, "Duplicate the top item.", func(p *Primitive, c *Context) error {
			a, _ := c.Peek(0)
			c.Push(a)
			return nil
		}, "a"),

		NewPrimitive("drop", 1, "Remove the top item.", func(p *Primitive, c *Context) error {
			return c.Drop(1)
		}, "a,b"),

		NewPrimitive("swap", 2, "Swap the top two items.", func(p *Primitive, c *Context) error {
			top, _ := c.Top(2)
			return c.Replace(2, top[1], top[0])
		}, "a,b"),

		NewPrimitive("over", 2, "Copy the second item to the top.", func(p *Primitive, c *Context) error {
			a, _ := c.Peek(1)
			c.Push(a)
			return nil
		}, "a,b"),

		NewPrimitive("2over", 4, "Copy the third and fourth items to the top.", func(p *Primitive, c *Context) error {
			top, _ := c.Top(4)
			c.Push(top[0], top[1])
			return nil
		}, "a,b,c,d"),

		NewPrimitive("rot", 3, "Move the third item to the top.", func(p *Primitive, c *Context) error {
			top, _ := c.Top(3)
			return c.Replace(3, top[1], top[2], top[0])
		}, "a,b,c"),

		NewPrimitive("-rot", 3, "Move the top item below the next two.", func(p *Primitive, c *Context) error {
			top, _ := c.Top(3)
			return c.Replace(3, top[2], top[0], top[1])
		}, "a,b,c"),

		NewPrimitive("nip", 2, "Remove the second item.", func(p *Primitive, c *Context) error {
			top, _ := c.Top(2)
			return c.Replace(2, top[1])
		}, "a,b"),

		NewPrimitive("tuck", 2, "Copy the top item below the second.", func(p *Primitive, c *Context) error {
			top, _ := c.Top(2)
			return c.Replace(2, top[1], top[0], top[1])
		}, "a,b"),

		NewPrimitive("clear", 0, "Remove every item.", func(p *Primitive, c *Context) error {
			c.Clear()
			return nil
		}, "a,b"),

		NewPrimitive("depth", 0, "Push the number of items on the stack.", func(p *Primitive, c *Context) error {
			c.Push(FromNumber(float64(c.Depth())))
			return nil
		}, "a,b"),

		NewPrimitive("ndrop", 1, "Pop N, then remove N more items.", func(p *Primitive, c *Context) error {
			n, err := p.count(c, 0)
			if err != nil {
				return err
			}
			if c.Depth() < n+1 {
				return p.underflow(n+1, c)
			}
			return c.Drop(n + 1)
		}, "a,b,c,2"),

		NewPrimitive("pick", 1, "Pop N, then copy the item N below the top to the top.", func(p *Primitive, c *Context) error {
			n, err := p.count(c, 0)
			if err != nil {
				return err
			}
			if c.Depth() < n+2 {
				return p.underflow(n+2, c)
			}
			v, _ := c.Peek(n + 1)
			return c.Replace(1, v)
		}, "a,b,c,2"),

		NewPrimitive("roll", 1, "Pop N, then move the item N below the top to the top.", func(p *Primitive, c *Context) error {
			n, err := p.count(c, 0)
			if err != nil {
				return err
			}
			if c.Depth() < n+2 {
				return p.underflow(n+2, c)
			}
			top, _ := c.Top(n + 2)
			rolled := append(top[1:n+1:n+1], top[0])
			return c.Replace(n+2, rolled...)
		}, "a,b,c,2"),

		NewPrimitive("set", 2, "Bind the top item to the name below it.", func(p *Primitive, c *Context) error {
			name, err := p.str(c, 1)
			if err != nil {
				return err
			}
			v, _ := c.Peek(0)
			c.Set(name, v)
			return c.Drop(2)
		}, "k,v"),

		NewPrimitive("sset", 2, "Bind the item below the top to the name on top.", func(p *Primitive, c *Context) error {
			name, err := p.str(c, 0)
			if err != nil {
				return err
			}
			v, _ := c.Peek(1)
			c.Set(name, v)
			return c.Drop(2)
		}, "v,k"),

		NewPrimitive("get", 1, "Replace a name with the value bound to it.", func(p *Primitive, c *Context) error {
			name, err := p.str(c, 0)
			if err != nil {
				return err
			}
			v, ok := c.Get(name)
			if !ok {
				return &UndefinedVariableError{Name: name}
			}
			return c.Replace(1, v)
		}, "k,v,:set,k"),

		NewPrimitive("bool", 1, "Convert the string true or false into a Boolean.", func(p *Primitive, c *Context) error {
			s, err := p.str(c, 0)
			if err != nil {
				return err
			}
			switch s {
			case "true":
				return c.Replace(1, FromBool(true))
			case "false":
				return c.Replace(1, FromBool(false))
			}
			v, _ := c.Peek(0)
			return p.typeError("true or false", v)
		}, "true"),

		mustMacro("2dup", ":over,:over", "Duplicate the top two items.", "a,b"),
	}
}
