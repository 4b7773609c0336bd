package vm

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindList
	KindExpr
)

var kindNames = [...]string{
	KindString: "String",
	KindNumber: "Number",
	KindBool:   "Boolean",
	KindList:   "List",
	KindExpr:   "Expression",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Value is a stack value. It is a closed tagged union: exactly one of the
// payload fields is meaningful, selected by kind. Values are immutable;
// List payloads are never modified after construction.
type Value struct {
	kind Kind
	str  string
	num  float64
	text string // literal spelling of a parsed Number, if any
	b    bool
	list []Value
	expr Expr

	// weight counts the values reachable from a List or Expression,
	// shared parts counted every time they occur. Zero means 1.
	weight int
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// FromString creates a String value.
func FromString(s string) Value { return Value{kind: KindString, str: s} }

// FromNumber creates a Number value.
func FromNumber(f float64) Value { return Value{kind: KindNumber, num: f} }

// FromBool creates a Boolean value.
func FromBool(b bool) Value { return Value{kind: KindBool, b: b} }

// FromList creates a List value. The slice is copied.
func FromList(items []Value) Value {
	l := make([]Value, len(items))
	copy(l, items)
	return Value{kind: KindList, list: l, weight: 1 + totalWeight(l)}
}

// FromStrings creates a List of String values.
func FromStrings(items ...string) Value {
	l := make([]Value, len(items))
	for i, s := range items {
		l[i] = FromString(s)
	}
	return Value{kind: KindList, list: l, weight: 1 + len(l)}
}

// FromExpr creates an Expression value.
func FromExpr(e Expr) Value { return Value{kind: KindExpr, expr: e} }

// ParseLiteral converts literal token text into a Value. Decimal text
// becomes a Number; anything else stays a String.
func ParseLiteral(text string) Value {
	if isDecimal(text) {
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return Value{kind: KindNumber, num: f, text: text}
		}
	}
	return FromString(text)
}

// isDecimal accepts optional sign, digits, an optional fraction and an
// optional exponent. strconv.ParseFloat alone would also admit "inf",
// "NaN" and hex floats, which are ordinary strings here.
func isDecimal(s string) bool {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		exp := 0
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			exp++
		}
		if exp == 0 {
			return false
		}
	}
	return i == len(s)
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Kind returns the variant of v.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsString() bool { return v.kind == KindString }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsList() bool   { return v.kind == KindList }
func (v Value) IsExpr() bool   { return v.kind == KindExpr }

// Str returns the string payload. Only meaningful for KindString.
func (v Value) Str() string { return v.str }

// Number returns the numeric payload. Only meaningful for KindNumber.
func (v Value) Number() float64 { return v.num }

// Bool returns the boolean payload. Only meaningful for KindBool.
func (v Value) Bool() bool { return v.b }

// List returns a copy of the list payload.
func (v Value) List() []Value {
	l := make([]Value, len(v.list))
	copy(l, v.list)
	return l
}

// Len returns the number of list items, or 0 for non-lists.
func (v Value) Len() int { return len(v.list) }

// Expr returns the expression payload, or nil.
func (v Value) Expr() Expr { return v.expr }

// Weight bounds the size of v's rendering: 1 for scalars, and for Lists
// and Expressions the number of values they were built from.
func (v Value) Weight() int {
	if v.weight == 0 {
		return 1
	}
	return v.weight
}

func totalWeight(vs []Value) int {
	n := 0
	for _, v := range vs {
		n += v.Weight()
	}
	return n
}

// ---------------------------------------------------------------------------
// Equality and rendering
// ---------------------------------------------------------------------------

// Equal reports structural equality. Expressions compare by their canonical
// program text.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindString:
		return a.str == b.str
	case KindNumber:
		return a.num == b.num || (math.IsNaN(a.num) && math.IsNaN(b.num))
	case KindBool:
		return a.b == b.b
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindExpr:
		return a.expr.String() == b.expr.String()
	}
	return false
}

// String renders v as program text that rebuilds it when evaluated.
// Numbers parsed from a literal keep their original spelling.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		if v.text != "" {
			return v.text
		}
		return numberProgram(v.num)
	case KindBool:
		if v.b {
			return "true,:bool"
		}
		return "false,:bool"
	case KindList:
		var b strings.Builder
		b.WriteString("(")
		for _, item := range v.list {
			b.WriteString(",")
			b.WriteString(item.String())
		}
		b.WriteString(",)")
		return b.String()
	case KindExpr:
		return v.expr.String()
	}
	return ""
}

// FormatNumber renders f in its shortest round-tripping decimal form.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// numberProgram renders non-finite numbers as the division that yields
// them, since no literal spells NaN or an infinity.
func numberProgram(f float64) string {
	switch {
	case math.IsNaN(f):
		return "0,0,:div"
	case math.IsInf(f, 1):
		return "1,0,:div"
	case math.IsInf(f, -1):
		return "-1,0,:div"
	}
	return FormatNumber(f)
}

// Strings renders each value with String.
func Strings(vs []Value) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.String()
	}
	return out
}
