package vm

import "github.com/chazu/stackviz/compiler"

// ExampleResult is the outcome of running one word example.
type ExampleResult struct {
	Word    string
	Example string
	Input   []string // stack before the word runs
	Output  []string // stack after the word runs
	Err     error
}

// Passed reports whether the example evaluated without error.
func (r ExampleResult) Passed() bool { return r.Err == nil }

// CheckExamples evaluates every example of every word in the interpreter's
// vocabulary, followed by an invocation of the word itself. Examples are
// documentation; this is the only place they are executed.
func CheckExamples(in *Interpreter) []ExampleResult {
	var results []ExampleResult
	for _, w := range in.Vocabulary().Words() {
		results = append(results, CheckWordExamples(in, w)...)
	}
	return results
}

// CheckWordExamples evaluates the examples of a single word.
func CheckWordExamples(in *Interpreter, w Word) []ExampleResult {
	var results []ExampleResult
	for _, example := range w.Examples() {
		r := ExampleResult{Word: w.Name(), Example: example}

		before, err := in.Execute(example)
		if err != nil {
			r.Err = err
			results = append(results, r)
			continue
		}
		r.Input = before.Strings()

		tokens, err := compiler.Tokenize(example)
		if err != nil {
			r.Err = err
			results = append(results, r)
			continue
		}
		after, err := in.ExecuteTokens(append(tokens, compiler.Word(w.Name())))
		if err != nil {
			r.Err = err
		} else {
			r.Output = after.Strings()
		}
		results = append(results, r)
	}
	return results
}
