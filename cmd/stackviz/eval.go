package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chazu/stackviz/vm"
)

func evalCommand(args []string, stdout io.Writer) error {
	fs, g := newFlagSet("eval")
	format := fs.String("format", "text", "output format: text, json or cbor")
	debug := fs.Bool("debug", false, "print the stack after every token")
	decode := fs.String("decode", "", "print a result saved with -format cbor instead of evaluating")
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

	if *decode != "" {
		data, err := os.ReadFile(*decode)
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", *decode, err)
		}
		r, err := vm.UnmarshalResult(data, in)
		if err != nil {
			return fmt.Errorf("%s: %w", *decode, err)
		}
		return writeResult(stdout, r, *format)
	}

	program, err := programArg(fs)
	if err != nil {
		return err
	}

	if *debug {
		steps, err := in.Debug(program)
		for _, st := range steps {
			fmt.Fprintf(stdout, "%-16s %s\n", st.Token, strings.Join(vm.Strings(st.Stack), " | "))
		}
		return err
	}

	r, err := in.Execute(program)
	if err != nil {
		return err
	}
	return writeResult(stdout, r, *format)
}

func writeResult(stdout io.Writer, r *vm.Result, format string) error {
	switch format {
	case "text":
		for _, s := range r.Strings() {
			fmt.Fprintln(stdout, s)
		}
	case "json":
		out := struct {
			Stack []string          `json:"stack"`
			Vars  map[string]string `json:"vars,omitempty"`
		}{Stack: r.Strings()}
		if vars := r.Vars(); len(vars) > 0 {
			out.Vars = make(map[string]string, len(vars))
			for k, v := range vars {
				out.Vars[k] = v.String()
			}
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "cbor":
		data, err := vm.MarshalResult(r)
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err
	default:
		return fmt.Errorf("eval: unknown format %q", format)
	}
	return nil
}

func wordsCommand(args []string, stdout io.Writer) error {
	fs, g := newFlagSet("words")
	long := fs.Bool("l", false, "include macro bodies and examples")
	if err := fs.Parse(args); err != nil {
		return err
	}
	m, err := g.load()
	if err != nil {
		return err
	}
	vocab, err := m.Vocabulary()
	if err != nil {
		return err
	}

	prefix := fs.Arg(0)
	for _, w := range vocab.Words() {
		if !strings.HasPrefix(w.Name(), prefix) {
			continue
		}
		fmt.Fprintf(stdout, ":%-12s %s\n", w.Name(), w.Summary())
		if !*long {
			continue
		}
		if mac, ok := w.(*vm.Macro); ok {
			fmt.Fprintf(stdout, "    = %s\n", mac.Body())
		}
		for _, ex := range w.Examples() {
			fmt.Fprintf(stdout, "    e.g. %s,:%s\n", ex, w.Name())
		}
	}
	return nil
}
