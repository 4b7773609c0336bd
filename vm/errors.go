package vm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/stackviz/compiler"
)

// ---------------------------------------------------------------------------
// Evaluation errors
//
// Every failure aborts the current Execute call. Callers discriminate with
// errors.As; no partial Result accompanies an error.
// ---------------------------------------------------------------------------

// UnknownWordError is returned when a word reference names no entry in the
// bound vocabulary.
type UnknownWordError struct {
	Name string
}

func (e *UnknownWordError) Error() string {
	return fmt.Sprintf("unknown word ':%s'", e.Name)
}

// StackUnderflowError is returned when a word needs more operands than the
// stack holds.
type StackUnderflowError struct {
	Word     string
	Required int
	Actual   int
}

func (e *StackUnderflowError) Error() string {
	return fmt.Sprintf("stack underflow: ':%s' requires %d operand(s), stack has %d",
		e.Word, e.Required, e.Actual)
}

// TypeError is returned when an operand has the wrong variant.
type TypeError struct {
	Word     string
	Expected string
	Actual   string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type error: ':%s' expected %s, got %s", e.Word, e.Expected, e.Actual)
}

// ExpansionLimitExceededError guards runaway or self-referential macros.
type ExpansionLimitExceededError struct {
	Word  string
	Limit int
}

func (e *ExpansionLimitExceededError) Error() string {
	return fmt.Sprintf("expansion limit of %d exceeded while expanding ':%s'", e.Limit, e.Word)
}

// ValueLimitExceededError is returned when one evaluation builds more
// values than its budget allows, or a single value grows past it.
type ValueLimitExceededError struct {
	Word  string
	Limit int
}

func (e *ValueLimitExceededError) Error() string {
	return fmt.Sprintf("value limit of %d exceeded in ':%s'", e.Limit, e.Word)
}

// UndefinedVariableError is returned by :get for an unbound name.
type UndefinedVariableError struct {
	Name string
}

func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("undefined variable %q", e.Name)
}

// ConfigurationError reports a malformed custom word definition. It is raised
// while building a vocabulary, before any evaluation.
type ConfigurationError struct {
	Word   string
	Index  int
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid word definition #%d", e.Index)
	if e.Word != "" {
		fmt.Fprintf(&b, " (%q)", e.Word)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// describe names the variant of v for TypeError messages.
func describe(v Value) string {
	if v.kind == KindExpr {
		switch v.expr.(type) {
		case Query:
			return "Query"
		case DataExpr:
			return "DataExpr"
		case StyleExpr:
			return "StyleExpr"
		}
	}
	return v.kind.String()
}

// ErrorKind names the kind of evaluation error err is, for reporting over
// the wire: UnknownWord, StackUnderflow, TypeError, ExpansionLimitExceeded,
// ValueLimitExceeded, UndefinedVariable, SyntaxError or Configuration. Other errors are named
// by their Go type.
func ErrorKind(err error) string {
	var (
		uw *UnknownWordError
		su *StackUnderflowError
		te *TypeError
		el *ExpansionLimitExceededError
		vl *ValueLimitExceededError
		uv *UndefinedVariableError
		ce *ConfigurationError
		se *compiler.SyntaxError
	)
	switch {
	case err == nil:
		return "none"
	case errors.As(err, &uw):
		return "UnknownWord"
	case errors.As(err, &su):
		return "StackUnderflow"
	case errors.As(err, &te):
		return "TypeError"
	case errors.As(err, &el):
		return "ExpansionLimitExceeded"
	case errors.As(err, &vl):
		return "ValueLimitExceeded"
	case errors.As(err, &uv):
		return "UndefinedVariable"
	case errors.As(err, &ce):
		return "Configuration"
	case errors.As(err, &se):
		return "SyntaxError"
	}
	return fmt.Sprintf("%T", err)
}

// IsEvalError reports whether err is one of the interpreter's own errors,
// as opposed to an infrastructure failure.
func IsEvalError(err error) bool {
	switch ErrorKind(err) {
	case "UnknownWord", "StackUnderflow", "TypeError", "ExpansionLimitExceeded",
		"ValueLimitExceeded", "UndefinedVariable", "Configuration", "SyntaxError":
		return true
	}
	return false
}
