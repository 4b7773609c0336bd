package vm

import (
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"
)

// Golden programs live in testdata/*.txtar. Each archive holds a "program"
// file, an optional "words" file of "name = body" lines, and either a
// "stack" file (one rendered item per line, bottom first) or an "error"
// file naming the expected error type.
func TestGoldenPrograms(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no golden files in testdata")
	}

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".txtar")
		t.Run(name, func(t *testing.T) {
			ar, err := txtar.ParseFile(file)
			if err != nil {
				t.Fatalf("parse %s: %v", file, err)
			}
			sections := make(map[string]string, len(ar.Files))
			for _, f := range ar.Files {
				sections[f.Name] = string(f.Data)
			}

			var defs []WordDef
			for _, line := range lines(sections["words"]) {
				name, body, ok := strings.Cut(line, " = ")
				if !ok {
					name, body = strings.TrimSuffix(line, " ="), ""
				}
				defs = append(defs, WordDef{Name: name, Body: body})
			}
			in := newStandardInterpreter(t, defs...)

			program := strings.TrimSpace(sections["program"])
			r, err := in.Execute(program)

			if want, ok := sections["error"]; ok {
				want = strings.TrimSpace(want)
				if got := ErrorKind(err); got != want {
					t.Fatalf("Execute(%q) error = %v (%s), want %s", program, err, got, want)
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute(%q) error: %v", program, err)
			}
			want := lines(sections["stack"])
			got := r.Strings()
			if strings.Join(got, "\n") != strings.Join(want, "\n") {
				t.Errorf("Execute(%q)\n got: %q\nwant: %q", program, got, want)
			}
		})
	}
}

func lines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
