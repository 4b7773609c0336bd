package vm

import (
	"math"
	"testing"
)

// ---------------------------------------------------------------------------
// Literal parsing
// ---------------------------------------------------------------------------

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		text   string
		kind   Kind
		number float64
	}{
		{"2", KindNumber, 2},
		{"-3.5", KindNumber, -3.5},
		{"+7", KindNumber, 7},
		{".5", KindNumber, 0.5},
		{"1e3", KindNumber, 1000},
		{"000000", KindNumber, 0},
		{"abc", KindString, 0},
		{"NaN", KindString, 0},
		{"inf", KindString, 0},
		{"0x10", KindString, 0},
		{"1e", KindString, 0},
		{"-", KindString, 0},
		{"1.2.3", KindString, 0},
	}

	for _, tc := range tests {
		v := ParseLiteral(tc.text)
		if v.Kind() != tc.kind {
			t.Errorf("ParseLiteral(%q).Kind() = %v, want %v", tc.text, v.Kind(), tc.kind)
			continue
		}
		if tc.kind == KindNumber && v.Number() != tc.number {
			t.Errorf("ParseLiteral(%q).Number() = %v, want %v", tc.text, v.Number(), tc.number)
		}
	}
}

func TestParseLiteralKeepsSpelling(t *testing.T) {
	for _, text := range []string{"000000", "1.50", "+7", "1e3", "ff0000"} {
		if got := ParseLiteral(text).String(); got != text {
			t.Errorf("ParseLiteral(%q).String() = %q", text, got)
		}
	}
}

// ---------------------------------------------------------------------------
// Rendering
// ---------------------------------------------------------------------------

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{FromString("cpu"), "cpu"},
		{FromNumber(2), "2"},
		{FromNumber(0.25), "0.25"},
		{FromNumber(-1e21), "-1000000000000000000000"},
		{FromNumber(math.NaN()), "0,0,:div"},
		{FromNumber(math.Inf(1)), "1,0,:div"},
		{FromNumber(math.Inf(-1)), "-1,0,:div"},
		{FromBool(true), "true,:bool"},
		{FromBool(false), "false,:bool"},
		{FromStrings(), "(,)"},
		{FromStrings("a", "b"), "(,a,b,)"},
		{FromList([]Value{FromString("a"), FromStrings("b")}), "(,a,(,b,),)"},
		{FromExpr(EqualQuery{Key: "name", Value: "cpu"}), "name,cpu,:eq"},
	}

	for _, tc := range tests {
		if got := tc.v.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestRenderingReevaluates(t *testing.T) {
	in := newStandardInterpreter(t)

	programs := []string{
		"true,:bool",
		"(,a,(,b,:dup,),)",
		"name,cpu,:eq,:not",
		"name,cpu,:eq,app,(,a,b,),:in,:and",
		"name,^cpu,:re,node,:has,:or",
		"name,cpu,:eq,:max,(,node,app,),:by",
		"name,cpu,:eq,:all",
		"name,cpu,:eq,000000,:color,CPU,:legend,:area,2,:lw",
		"0,0,:div",
		"1,0,:div",
		"-1,0,:div",
	}
	for _, program := range programs {
		first := mustExecute(t, in, program)
		top, _ := first.Top()
		second := mustExecute(t, in, top.String())
		if second.Len() != 1 {
			t.Errorf("re-evaluating %q left %d items", top.String(), second.Len())
			continue
		}
		again, _ := second.Top()
		if !Equal(top, again) {
			t.Errorf("%q rendered as %q, which evaluates to %q", program, top.String(), again.String())
		}
	}
}

func TestStyleRendersSortedSettings(t *testing.T) {
	s := NewStyleExpr(AggregateExpr{Fn: AggSum, Q: TrueQuery{}}).
		With(SettingWidth, "2").
		With(SettingStyle, StyleStack).
		With(SettingColor, "ff0000")

	want := ":true,:sum,ff0000,:color,2,:lw,:stack"
	if got := s.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := s.Setting(SettingLegend, "dflt"); got != "dflt" {
		t.Errorf("Setting(legend) = %q, want default", got)
	}
}

func TestWeight(t *testing.T) {
	in := newStandardInterpreter(t)

	tests := []struct {
		program string
		want    int
	}{
		{"a", 1},
		{"(,)", 1},
		{"(,a,b,)", 3},
		{"(,a,(,b,c,),)", 5},
		{"name,cpu,:eq", 3},
		{"name,cpu,:eq,:dup,:and", 7},
		{"(,a,),:dup,2,:nlist", 5},
	}
	for _, tc := range tests {
		top, _ := mustExecute(t, in, tc.program).Top()
		if got := top.Weight(); got != tc.want {
			t.Errorf("%q weight = %d, want %d", tc.program, got, tc.want)
		}
	}
}

func TestFromListCopies(t *testing.T) {
	items := []Value{FromString("a")}
	v := FromList(items)
	items[0] = FromString("b")
	if v.List()[0].Str() != "a" {
		t.Error("FromList should copy its input")
	}
}

// ---------------------------------------------------------------------------
// Query matching
// ---------------------------------------------------------------------------

func TestQueryMatches(t *testing.T) {
	tags := map[string]string{"name": "cpu.user", "node": "i-02", "app": "www"}
	re, err := NewRegexQuery("name", "cpu")
	if err != nil {
		t.Fatalf("NewRegexQuery: %v", err)
	}
	reMid, _ := NewRegexQuery("name", "user")

	tests := []struct {
		q    Query
		want bool
	}{
		{TrueQuery{}, true},
		{FalseQuery{}, false},
		{EqualQuery{Key: "app", Value: "www"}, true},
		{EqualQuery{Key: "app", Value: "db"}, false},
		{EqualQuery{Key: "zone", Value: "www"}, false},
		{CompareQuery{Op: "gt", Key: "node", Value: "i-01"}, true},
		{CompareQuery{Op: "le", Key: "node", Value: "i-01"}, false},
		{CompareQuery{Op: "ge", Key: "node", Value: "i-02"}, true},
		{CompareQuery{Op: "lt", Key: "zone", Value: "z"}, false},
		{re, true},
		{reMid, false},
		{HasKeyQuery{Key: "node"}, true},
		{HasKeyQuery{Key: "zone"}, false},
		{InQuery{Key: "app", Values: []string{"db", "www"}}, true},
		{InQuery{Key: "app", Values: nil}, false},
		{AndQuery{Left: TrueQuery{}, Right: FalseQuery{}}, false},
		{OrQuery{Left: TrueQuery{}, Right: FalseQuery{}}, true},
		{NotQuery{Query: HasKeyQuery{Key: "zone"}}, true},
	}

	for _, tc := range tests {
		if got := tc.q.Matches(tags); got != tc.want {
			t.Errorf("%s matches = %v, want %v", tc.q, got, tc.want)
		}
	}
}

func TestNewRegexQueryInvalid(t *testing.T) {
	if _, err := NewRegexQuery("name", "("); err == nil {
		t.Error("NewRegexQuery should reject an invalid pattern")
	}
}
