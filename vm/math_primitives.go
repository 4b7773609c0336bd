package vm

import "math"

// ---------------------------------------------------------------------------
// Arithmetic and numeric comparison
//
// Operands are Numbers; String operands are accepted only when they hold a
// decimal numeral. Anything else is a TypeError.
// ---------------------------------------------------------------------------

func binaryMath(name, summary string, op func(a, b float64) float64) *Primitive {
	return NewPrimitive(name, 2, summary, func(p *Primitive, c *Context) error {
		b, err := p.number(c, 0)
		if err != nil {
			return err
		}
		a, err := p.number(c, 1)
		if err != nil {
			return err
		}
		return c.Replace(2, FromNumber(op(a, b)))
	}, "6,3")
}

func unaryMath(name, summary string, op func(a float64) float64) *Primitive {
	return NewPrimitive(name, 1, summary, func(p *Primitive, c *Context) error {
		a, err := p.number(c, 0)
		if err != nil {
			return err
		}
		return c.Replace(1, FromNumber(op(a)))
	}, "-2")
}

func compareMath(name, summary string, op func(a, b float64) bool) *Primitive {
	return NewPrimitive(name, 2, summary, func(p *Primitive, c *Context) error {
		b, err := p.number(c, 0)
		if err != nil {
			return err
		}
		a, err := p.number(c, 1)
		if err != nil {
			return err
		}
		return c.Replace(2, FromBool(op(a, b)))
	}, "1,2")
}

func mathPrimitives() []Word {
	return []Word{
		binaryMath("add", "Add the top two numbers.", func(a, b float64) float64 { return a + b }),
		binaryMath("sub", "Subtract the top number from the one below it.", func(a, b float64) float64 { return a - b }),
		binaryMath("mul", "Multiply the top two numbers.", func(a, b float64) float64 { return a * b }),
		binaryMath("div", "Divide the second number by the top number.", func(a, b float64) float64 { return a / b }),
		binaryMath("pow", "Raise the second number to the power of the top number.", math.Pow),
		binaryMath("fmin", "Keep the smaller of the top two numbers.", math.Min),
		binaryMath("fmax", "Keep the larger of the top two numbers.", math.Max),

		unaryMath("neg", "Negate the top number.", func(a float64) float64 { return -a }),
		unaryMath("abs", "Absolute value of the top number.", math.Abs),

		compareMath("num-eq", "True if the top two numbers are equal.", func(a, b float64) bool { return a == b }),
		compareMath("num-lt", "True if the second number is less than the top number.", func(a, b float64) bool { return a < b }),
		compareMath("num-gt", "True if the second number is greater than the top number.", func(a, b float64) bool { return a > b }),

		NewPrimitive("cond", 3, "Keep the second item if the Boolean below it is true, else the top item.", func(p *Primitive, c *Context) error {
			ok, err := p.boolean(c, 2)
			if err != nil {
				return err
			}
			top, _ := c.Top(2)
			if ok {
				return c.Replace(3, top[0])
			}
			return c.Replace(3, top[1])
		}, "1,2,:num-lt,a,b"),
	}
}
