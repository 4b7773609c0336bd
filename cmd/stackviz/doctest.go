package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chazu/stackviz/vm"
)

const (
	dtColorReset = "\033[0m"
	dtColorRed   = "\033[31m"
	dtColorGreen = "\033[32m"
	dtColorDim   = "\033[2m"
	dtColorBold  = "\033[1m"
)

// doctestCommand runs every word example, or those of the words named on
// the command line, and fails when any of them errors.
func doctestCommand(args []string, stdout io.Writer) error {
	fs, g := newFlagSet("doctest")
	verbose := fs.Bool("verbose", false, "show passing examples too")
	color := fs.Bool("color", false, "colorize output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	m, err := g.load()
	if err != nil {
		return err
	}
	in, err := m.NewInterpreter()
	if err != nil {
		return err
	}

	var results []vm.ExampleResult
	if fs.NArg() == 0 {
		results = vm.CheckExamples(in)
	} else {
		for _, name := range fs.Args() {
			w, ok := in.Vocabulary().Lookup(strings.TrimPrefix(name, ":"))
			if !ok {
				return &vm.UnknownWordError{Name: name}
			}
			results = append(results, vm.CheckWordExamples(in, w)...)
		}
	}

	paint := func(c, s string) string {
		if !*color {
			return s
		}
		return c + s + dtColorReset
	}

	passed, failed := 0, 0
	lastWord := ""
	for _, r := range results {
		if r.Passed() {
			passed++
			if !*verbose {
				continue
			}
		} else {
			failed++
		}
		if r.Word != lastWord {
			fmt.Fprintln(stdout, paint(dtColorBold, ":"+r.Word))
			lastWord = r.Word
		}
		if r.Passed() {
			fmt.Fprintf(stdout, "  %s %s,:%s %s\n", paint(dtColorGreen, "✓"), r.Example, r.Word,
				paint(dtColorDim, "→ "+strings.Join(r.Output, ",")))
			continue
		}
		fmt.Fprintf(stdout, "  %s %s,:%s\n", paint(dtColorRed, "✗"), r.Example, r.Word)
		fmt.Fprintf(stdout, "    %s\n", paint(dtColorRed, "Error: "+r.Err.Error()))
	}

	fmt.Fprintf(stdout, "%d examples, %d passed, %d failed\n", passed+failed, passed, failed)
	if failed > 0 {
		return errSilent
	}
	return nil
}
