package vm

import (
	"regexp"
	"sort"
	"strings"
)

// Expr is a structured value built by expression words: a tag query, a data
// expression selecting and aggregating series, or a styled presentation of
// one. String returns the canonical program that rebuilds the expression.
type Expr interface {
	String() string
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// Query matches series by their tags.
type Query interface {
	Expr
	Matches(tags map[string]string) bool
}

// TrueQuery matches every series.
type TrueQuery struct{}

func (TrueQuery) Matches(map[string]string) bool { return true }
func (TrueQuery) String() string                 { return ":true" }

// FalseQuery matches nothing.
type FalseQuery struct{}

func (FalseQuery) Matches(map[string]string) bool { return false }
func (FalseQuery) String() string                 { return ":false" }

// EqualQuery matches series whose tag Key equals Value.
type EqualQuery struct {
	Key   string
	Value string
}

func (q EqualQuery) Matches(tags map[string]string) bool {
	v, ok := tags[q.Key]
	return ok && v == q.Value
}

func (q EqualQuery) String() string { return q.Key + "," + q.Value + ",:eq" }

// CompareQuery is a lexical comparison of a tag value: gt, ge, lt or le.
type CompareQuery struct {
	Op    string
	Key   string
	Value string
}

func (q CompareQuery) Matches(tags map[string]string) bool {
	v, ok := tags[q.Key]
	if !ok {
		return false
	}
	c := strings.Compare(v, q.Value)
	switch q.Op {
	case "gt":
		return c > 0
	case "ge":
		return c >= 0
	case "lt":
		return c < 0
	case "le":
		return c <= 0
	}
	return false
}

func (q CompareQuery) String() string { return q.Key + "," + q.Value + ",:" + q.Op }

// RegexQuery matches a tag value against a pattern anchored at the start.
type RegexQuery struct {
	Key     string
	Pattern string
	re      *regexp.Regexp
}

// NewRegexQuery compiles pattern, anchored at the start of the tag value.
func NewRegexQuery(key, pattern string) (RegexQuery, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")")
	if err != nil {
		return RegexQuery{}, err
	}
	return RegexQuery{Key: key, Pattern: pattern, re: re}, nil
}

func (q RegexQuery) Matches(tags map[string]string) bool {
	v, ok := tags[q.Key]
	return ok && q.re != nil && q.re.MatchString(v)
}

func (q RegexQuery) String() string { return q.Key + "," + q.Pattern + ",:re" }

// HasKeyQuery matches series carrying the tag Key.
type HasKeyQuery struct {
	Key string
}

func (q HasKeyQuery) Matches(tags map[string]string) bool {
	_, ok := tags[q.Key]
	return ok
}

func (q HasKeyQuery) String() string { return q.Key + ",:has" }

// InQuery matches series whose tag Key is one of Values.
type InQuery struct {
	Key    string
	Values []string
}

func (q InQuery) Matches(tags map[string]string) bool {
	v, ok := tags[q.Key]
	if !ok {
		return false
	}
	for _, candidate := range q.Values {
		if v == candidate {
			return true
		}
	}
	return false
}

func (q InQuery) String() string {
	return q.Key + "," + FromStrings(q.Values...).String() + ",:in"
}

// AndQuery matches when both operands match.
type AndQuery struct {
	Left, Right Query
}

func (q AndQuery) Matches(tags map[string]string) bool {
	return q.Left.Matches(tags) && q.Right.Matches(tags)
}

func (q AndQuery) String() string { return q.Left.String() + "," + q.Right.String() + ",:and" }

// OrQuery matches when either operand matches.
type OrQuery struct {
	Left, Right Query
}

func (q OrQuery) Matches(tags map[string]string) bool {
	return q.Left.Matches(tags) || q.Right.Matches(tags)
}

func (q OrQuery) String() string { return q.Left.String() + "," + q.Right.String() + ",:or" }

// NotQuery inverts its operand.
type NotQuery struct {
	Query Query
}

func (q NotQuery) Matches(tags map[string]string) bool { return !q.Query.Matches(tags) }
func (q NotQuery) String() string                      { return q.Query.String() + ",:not" }

// ---------------------------------------------------------------------------
// Data expressions
// ---------------------------------------------------------------------------

// Aggregation names accepted by AggregateExpr.
const (
	AggSum   = "sum"
	AggCount = "count"
	AggMin   = "min"
	AggMax   = "max"
	AggAvg   = "avg"
)

// DataExpr selects series from a backend and optionally aggregates them.
type DataExpr interface {
	Expr
	Query() Query
}

// AllExpr returns every matching series without aggregation.
type AllExpr struct {
	Q Query
}

func (e AllExpr) Query() Query   { return e.Q }
func (e AllExpr) String() string { return e.Q.String() + ",:all" }

// AggregateExpr folds all matching series into one using Fn.
type AggregateExpr struct {
	Fn string
	Q  Query
}

func (e AggregateExpr) Query() Query   { return e.Q }
func (e AggregateExpr) String() string { return e.Q.String() + ",:" + e.Fn }

// GroupByExpr aggregates matching series per distinct combination of Keys.
// Series missing any of the keys are dropped.
type GroupByExpr struct {
	Agg  AggregateExpr
	Keys []string
}

func (e GroupByExpr) Query() Query { return e.Agg.Q }

func (e GroupByExpr) String() string {
	return e.Agg.String() + "," + FromStrings(e.Keys...).String() + ",:by"
}

// ---------------------------------------------------------------------------
// Style expressions
// ---------------------------------------------------------------------------

// Line styles.
const (
	StyleLine  = "line"
	StyleArea  = "area"
	StyleStack = "stack"
)

// Setting keys carried by a StyleExpr.
const (
	SettingLegend = "legend"
	SettingColor  = "color"
	SettingAlpha  = "alpha"
	SettingWidth  = "lw"
	SettingAxis   = "axis"
	SettingStyle  = "style"
)

// StyleExpr attaches presentation settings to a data expression.
type StyleExpr struct {
	Data     DataExpr
	Settings map[string]string
}

// NewStyleExpr wraps data with no settings.
func NewStyleExpr(data DataExpr) StyleExpr {
	return StyleExpr{Data: data, Settings: map[string]string{}}
}

// With returns a copy of s with key set to value.
func (s StyleExpr) With(key, value string) StyleExpr {
	settings := make(map[string]string, len(s.Settings)+1)
	for k, v := range s.Settings {
		settings[k] = v
	}
	settings[key] = value
	return StyleExpr{Data: s.Data, Settings: settings}
}

// Setting returns the value of key, or def when unset.
func (s StyleExpr) Setting(key, def string) string {
	if v, ok := s.Settings[key]; ok {
		return v
	}
	return def
}

func (s StyleExpr) String() string {
	keys := make([]string, 0, len(s.Settings))
	for k := range s.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(s.Data.String())
	for _, k := range keys {
		if k == SettingStyle {
			b.WriteString(",:" + s.Settings[k])
			continue
		}
		b.WriteString("," + s.Settings[k] + ",:" + k)
	}
	return b.String()
}
