package vm

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical mode for deterministic encoding, so equal
// results always encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// wireValue is the serialized form of a Value. Expressions travel as their
// canonical program text.
type wireValue struct {
	Kind string      `cbor:"k"`
	Str  string      `cbor:"s,omitempty"`
	Num  float64     `cbor:"n,omitempty"`
	Text string      `cbor:"t,omitempty"`
	Bool bool        `cbor:"b,omitempty"`
	List []wireValue `cbor:"l,omitempty"`
	Expr string      `cbor:"e,omitempty"`
}

type wireResult struct {
	Stack []wireValue          `cbor:"stack"`
	Vars  map[string]wireValue `cbor:"vars"`
}

func toWire(v Value) wireValue {
	w := wireValue{Kind: v.kind.String()}
	switch v.kind {
	case KindString:
		w.Str = v.str
	case KindNumber:
		w.Num = v.num
		w.Text = v.text
	case KindBool:
		w.Bool = v.b
	case KindList:
		w.List = make([]wireValue, len(v.list))
		for i, item := range v.list {
			w.List[i] = toWire(item)
		}
	case KindExpr:
		w.Expr = v.expr.String()
	}
	return w
}

func fromWire(w wireValue, in *Interpreter) (Value, error) {
	switch w.Kind {
	case "String":
		return FromString(w.Str), nil
	case "Number":
		return Value{kind: KindNumber, num: w.Num, text: w.Text}, nil
	case "Boolean":
		return FromBool(w.Bool), nil
	case "List":
		items := make([]Value, len(w.List))
		for i, item := range w.List {
			v, err := fromWire(item, in)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return FromList(items), nil
	case "Expression":
		r, err := in.Execute(w.Expr)
		if err != nil {
			return Value{}, fmt.Errorf("vm: rebuild expression %q: %w", w.Expr, err)
		}
		top, ok := r.Top()
		if !ok || r.Len() != 1 || !top.IsExpr() {
			return Value{}, fmt.Errorf("vm: %q does not evaluate to a single expression", w.Expr)
		}
		return top, nil
	}
	return Value{}, fmt.Errorf("vm: unknown value kind %q", w.Kind)
}

// MarshalResult serializes a Result to canonical CBOR bytes.
func MarshalResult(r *Result) ([]byte, error) {
	wr := wireResult{
		Stack: make([]wireValue, len(r.stack)),
		Vars:  make(map[string]wireValue, len(r.vars)),
	}
	for i, v := range r.stack {
		wr.Stack[i] = toWire(v)
	}
	for k, v := range r.vars {
		wr.Vars[k] = toWire(v)
	}
	return cborEncMode.Marshal(wr)
}

// UnmarshalResult deserializes a Result. Expressions are rebuilt by
// evaluating their program text with in.
func UnmarshalResult(data []byte, in *Interpreter) (*Result, error) {
	var wr wireResult
	if err := cbor.Unmarshal(data, &wr); err != nil {
		return nil, fmt.Errorf("vm: unmarshal result: %w", err)
	}
	r := &Result{
		stack: make([]Value, len(wr.Stack)),
		vars:  make(map[string]Value, len(wr.Vars)),
	}
	for i, w := range wr.Stack {
		v, err := fromWire(w, in)
		if err != nil {
			return nil, err
		}
		r.stack[i] = v
	}
	for k, w := range wr.Vars {
		v, err := fromWire(w, in)
		if err != nil {
			return nil, err
		}
		r.vars[k] = v
	}
	return r, nil
}
