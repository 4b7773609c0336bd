package manifest

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/stackviz/vm"
)

func TestLoadVocabularyFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.yaml")
	writeFile(t, path, `
words:
  - name: mem
    body: "name,mem,:eq"
    summary: Memory series
  - name: quiet
    body: ""
`)

	words, err := LoadVocabularyFile(path)
	if err != nil {
		t.Fatalf("LoadVocabularyFile: %v", err)
	}
	if len(words) != 2 {
		t.Fatalf("got %d words, want 2", len(words))
	}
	if words[0].Name != "mem" || *words[0].Body != "name,mem,:eq" || words[0].Summary != "Memory series" {
		t.Errorf("words[0] = %+v", words[0])
	}
	if words[1].Body == nil || *words[1].Body != "" {
		t.Error("quiet should have an empty body")
	}
}

func TestLoadVocabularyFileTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.toml")
	writeFile(t, path, "[[words]]\nname = \"disk\"\nbody = \"name,disk,:eq\"\n")

	words, err := LoadVocabularyFile(path)
	if err != nil {
		t.Fatalf("LoadVocabularyFile: %v", err)
	}
	if len(words) != 1 || words[0].Name != "disk" {
		t.Errorf("words = %+v", words)
	}
}

func TestLoadVocabularyFileErrors(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "missing.yaml")
	writeFile(t, missing, "words:\n  - name: cpu\n")
	_, err := LoadVocabularyFile(missing)
	var ce *vm.ConfigurationError
	if !errors.As(err, &ce) {
		t.Errorf("missing body error = %v, want *vm.ConfigurationError", err)
	}

	odd := filepath.Join(dir, "words.json")
	writeFile(t, odd, "{}")
	if _, err := LoadVocabularyFile(odd); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("json file error = %v", err)
	}

	broken := filepath.Join(dir, "broken.yaml")
	writeFile(t, broken, "words: [unterminated\n")
	if _, err := LoadVocabularyFile(broken); err == nil {
		t.Error("malformed YAML should fail")
	}
}

func TestWordDefsOrderAndOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "vocab", "a.yaml"), "words:\n  - name: cpu\n    body: \"name,cpu,:eq\"\n")
	writeFile(t, filepath.Join(dir, "vocab", "b.yaml"), "words:\n  - name: mem\n    body: \"name,mem,:eq\"\n")
	writeFile(t, filepath.Join(dir, FileName), `
vocabulary-files = ["vocab/*.yaml", "vocab/a.yaml"]

[[words]]
name = "cpu"
body = "name,cpu.user,:eq"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	paths, err := m.VocabularyPaths()
	if err != nil {
		t.Fatalf("VocabularyPaths: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("paths = %q, want two unique files", paths)
	}

	defs, err := m.WordDefs()
	if err != nil {
		t.Fatalf("WordDefs: %v", err)
	}
	if len(defs) != 3 || defs[2].Body != "name,cpu.user,:eq" {
		t.Fatalf("defs = %+v", defs)
	}

	in, err := m.NewInterpreter()
	if err != nil {
		t.Fatalf("NewInterpreter: %v", err)
	}
	r, err := in.Execute(":cpu,:mem,:or")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := r.Strings(); len(got) != 1 || got[0] != "name,cpu.user,:eq,name,mem,:eq,:or" {
		t.Errorf("stack = %q", got)
	}
}

func TestVocabularyPathsMissingFile(t *testing.T) {
	m := &Manifest{Dir: t.TempDir(), VocabularyFiles: []string{"nope.yaml"}}
	if _, err := m.VocabularyPaths(); err == nil {
		t.Error("a missing plain path should fail")
	}

	m.VocabularyFiles = []string{"none/*.yaml"}
	paths, err := m.VocabularyPaths()
	if err != nil || len(paths) != 0 {
		t.Errorf("empty glob = %q, %v", paths, err)
	}
}

func TestNewInterpreterHonorsLimit(t *testing.T) {
	m := Default()
	m.Interpreter.MaxExpansions = 3
	body := ":again"
	m.Words = []WordEntry{{Name: "again", Body: &body}}

	in, err := m.NewInterpreter()
	if err != nil {
		t.Fatal(err)
	}
	if in.MaxExpansions() != 3 {
		t.Errorf("MaxExpansions() = %d", in.MaxExpansions())
	}
	_, err = in.Execute(":again")
	var el *vm.ExpansionLimitExceededError
	if !errors.As(err, &el) {
		t.Errorf("error = %v, want expansion limit", err)
	}
}
