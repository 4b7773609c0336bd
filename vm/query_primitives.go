package vm

// ---------------------------------------------------------------------------
// Query, data and style expression words
// ---------------------------------------------------------------------------

func keyValueQuery(name, summary string, build func(key, value string) Query) *Primitive {
	return NewPrimitive(name, 2, summary, func(p *Primitive, c *Context) error {
		value, err := p.str(c, 0)
		if err != nil {
			return err
		}
		key, err := p.str(c, 1)
		if err != nil {
			return err
		}
		return c.Replace(2, FromExpr(build(key, value)))
	}, "name,cpu")
}

func binaryQuery(name, summary string, build func(a, b Query) Query) *Primitive {
	return NewPrimitive(name, 2, summary, func(p *Primitive, c *Context) error {
		b, err := p.query(c, 0)
		if err != nil {
			return err
		}
		a, err := p.query(c, 1)
		if err != nil {
			return err
		}
		return c.Replace(2, FromExpr(build(a, b)))
	}, "name,cpu,:eq,app,www,:eq")
}

func compareQuery(op string) *Primitive {
	return keyValueQuery(op, "Match series whose tag value compares "+op+" to the given value.",
		func(key, value string) Query { return CompareQuery{Op: op, Key: key, Value: value} })
}

func queryPrimitives() []Word {
	return []Word{
		NewPrimitive("true", 0, "Push a query matching every series.", func(p *Primitive, c *Context) error {
			c.Push(FromExpr(TrueQuery{}))
			return nil
		}),

		NewPrimitive("false", 0, "Push a query matching no series.", func(p *Primitive, c *Context) error {
			c.Push(FromExpr(FalseQuery{}))
			return nil
		}),

		keyValueQuery("eq", "Match series whose tag equals the given value.",
			func(key, value string) Query { return EqualQuery{Key: key, Value: value} }),

		mustMacro("ne", ":eq,:not", "Match series whose tag is absent or differs from the given value.", "name,cpu"),

		compareQuery("gt"),
		compareQuery("ge"),
		compareQuery("lt"),
		compareQuery("le"),

		NewPrimitive("re", 2, "Match series whose tag value matches a regular expression anchored at the start.", func(p *Primitive, c *Context) error {
			pattern, err := p.str(c, 0)
			if err != nil {
				return err
			}
			key, err := p.str(c, 1)
			if err != nil {
				return err
			}
			q, err := NewRegexQuery(key, pattern)
			if err != nil {
				v, _ := c.Peek(0)
				return p.typeError("regular expression", v)
			}
			return c.Replace(2, FromExpr(q))
		}, "name,^cpu"),

		NewPrimitive("has", 1, "Match series carrying the given tag key.", func(p *Primitive, c *Context) error {
			key, err := p.str(c, 0)
			if err != nil {
				return err
			}
			return c.Replace(1, FromExpr(HasKeyQuery{Key: key}))
		}, "name"),

		NewPrimitive("in", 2, "Match series whose tag value is one of a list.", func(p *Primitive, c *Context) error {
			values, err := p.strings(c, 0)
			if err != nil {
				return err
			}
			key, err := p.str(c, 1)
			if err != nil {
				return err
			}
			return c.Replace(2, FromExpr(InQuery{Key: key, Values: values}))
		}, "name,(,cpu,disk,)"),

		binaryQuery("and", "Match series matching both queries.",
			func(a, b Query) Query { return AndQuery{Left: a, Right: b} }),

		binaryQuery("or", "Match series matching either query.",
			func(a, b Query) Query { return OrQuery{Left: a, Right: b} }),

		NewPrimitive("not", 1, "Invert a query.", func(p *Primitive, c *Context) error {
			q, err := p.query(c, 0)
			if err != nil {
				return err
			}
			return c.Replace(1, FromExpr(NotQuery{Query: q}))
		}, "name,cpu,:eq"),
	}
}

func aggregate(fn string) *Primitive {
	return NewPrimitive(fn, 1, "Aggregate every series matching a query using "+fn+".", func(p *Primitive, c *Context) error {
		q, err := p.query(c, 0)
		if err != nil {
			return err
		}
		return c.Replace(1, FromExpr(AggregateExpr{Fn: fn, Q: q}))
	}, "name,cpu,:eq")
}

func dataPrimitives() []Word {
	return []Word{
		NewPrimitive("all", 1, "Select every series matching a query without aggregating.", func(p *Primitive, c *Context) error {
			q, err := p.query(c, 0)
			if err != nil {
				return err
			}
			return c.Replace(1, FromExpr(AllExpr{Q: q}))
		}, "name,cpu,:eq"),

		aggregate(AggSum),
		aggregate(AggCount),
		aggregate(AggMin),
		aggregate(AggMax),
		aggregate(AggAvg),

		NewPrimitive("by", 2, "Group an aggregate by a list of tag keys.", func(p *Primitive, c *Context) error {
			keys, err := p.strings(c, 0)
			if err != nil {
				return err
			}
			af, err := p.aggregate(c, 1)
			if err != nil {
				return err
			}
			return c.Replace(2, FromExpr(GroupByExpr{Agg: af, Keys: keys}))
		}, "name,cpu,:eq,:sum,(,node,)"),
	}
}

func styleSetting(name, summary string, validate func(p *Primitive, c *Context) (string, error), example string) *Primitive {
	return NewPrimitive(name, 2, summary, func(p *Primitive, c *Context) error {
		value, err := validate(p, c)
		if err != nil {
			return err
		}
		s, err := p.style(c, 1)
		if err != nil {
			return err
		}
		return c.Replace(2, FromExpr(s.With(name, value)))
	}, example)
}

func lineStyle(style string) *Primitive {
	return NewPrimitive(style, 1, "Draw the series as "+style+".", func(p *Primitive, c *Context) error {
		s, err := p.style(c, 0)
		if err != nil {
			return err
		}
		return c.Replace(1, FromExpr(s.With(SettingStyle, style)))
	}, "name,cpu,:eq")
}

func stylePrimitives() []Word {
	return []Word{
		styleSetting(SettingLegend, "Set the legend text.", func(p *Primitive, c *Context) (string, error) {
			return p.str(c, 0)
		}, "name,cpu,:eq,CPU"),

		styleSetting(SettingColor, "Set the line color as RRGGBB or AARRGGBB hex.", func(p *Primitive, c *Context) (string, error) {
			s, err := p.str(c, 0)
			if err != nil {
				return "", err
			}
			if !isHex(s) || (len(s) != 6 && len(s) != 8) {
				v, _ := c.Peek(0)
				return "", p.typeError("hex color", v)
			}
			return s, nil
		}, "name,cpu,:eq,ff0000"),

		styleSetting(SettingAlpha, "Set the opacity as two hex digits.", func(p *Primitive, c *Context) (string, error) {
			s, err := p.str(c, 0)
			if err != nil {
				return "", err
			}
			if !isHex(s) || len(s) != 2 {
				v, _ := c.Peek(0)
				return "", p.typeError("two hex digits", v)
			}
			return s, nil
		}, "name,cpu,:eq,40"),

		styleSetting(SettingWidth, "Set the line width in pixels.", func(p *Primitive, c *Context) (string, error) {
			n, err := p.count(c, 0)
			if err != nil {
				return "", err
			}
			if n < 1 {
				v, _ := c.Peek(0)
				return "", p.typeError("positive integer", v)
			}
			return FormatNumber(float64(n)), nil
		}, "name,cpu,:eq,2"),

		styleSetting(SettingAxis, "Select the Y axis, 0 (left) or 1 (right).", func(p *Primitive, c *Context) (string, error) {
			n, err := p.count(c, 0)
			if err != nil {
				return "", err
			}
			if n > 1 {
				v, _ := c.Peek(0)
				return "", p.typeError("axis 0 or 1", v)
			}
			return FormatNumber(float64(n)), nil
		}, "name,cpu,:eq,1"),

		lineStyle(StyleLine),
		lineStyle(StyleArea),
		lineStyle(StyleStack),
	}
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if !(ch >= '0' && ch <= '9' || ch >= 'a' && ch <= 'f' || ch >= 'A' && ch <= 'F') {
			return false
		}
	}
	return true
}
