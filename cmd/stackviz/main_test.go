package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/stackviz/pkg/pngimage"
	"github.com/chazu/stackviz/vm"
)

const testConfig = `
[server]
log-level = "error"

[backend]
name = "sqlite"
dsn = "metrics.db"

[graph]
width = 200
height = 100

[[words]]
name = "cpu"
body = "name,cpu,:eq,:sum"
summary = "Total CPU."
examples = ["x"]
`

const testSeries = `[
  {"tags": {"name": "cpu", "node": "a"},
   "points": [{"t": "2024-03-01T12:00:00Z", "v": 1}, {"t": "2024-03-01T12:01:00Z", "v": 2}]},
  {"tags": {"name": "cpu", "node": "b"},
   "points": [{"t": "2024-03-01T12:00:00Z", "v": 10}, {"t": "2024-03-01T12:01:00Z", "v": 20}]}
]`

const testWindow = "-s=2024-03-01T12:00:00Z -e=2024-03-01T12:05:00Z"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// setup returns a config directory with a sqlite backend.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "stackviz.toml"), testConfig)
	return dir
}

// run invokes the CLI with -config dir inserted after the command name.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	full := []string{"stackviz", args[0], "-config", dir}
	for _, a := range args[1:] {
		full = append(full, strings.Fields(a)...)
	}
	var out bytes.Buffer
	err := runCLI(full, &out)
	return out.String(), err
}

func TestUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	err := runCLI([]string{"stackviz", "frobnicate"}, &out)
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("err = %v", err)
	}
}

func TestHelp(t *testing.T) {
	var out bytes.Buffer
	if err := runCLI([]string{"stackviz", "help"}, &out); err != nil {
		t.Fatal(err)
	}
	for _, c := range commands {
		if !strings.Contains(out.String(), c.name) {
			t.Errorf("usage does not mention %q", c.name)
		}
	}
}

func TestEval(t *testing.T) {
	dir := setup(t)

	out, err := run(t, dir, "eval", "1,2,:add")
	if err != nil {
		t.Fatal(err)
	}
	if out != "3\n" {
		t.Errorf("output = %q", out)
	}

	out, err = run(t, dir, "eval", "name cpu :eq")
	if err != nil {
		t.Fatal(err)
	}
	if out != "name,cpu,:eq\n" {
		t.Errorf("arguments should be joined into one program, got %q", out)
	}

	out, err = run(t, dir, "eval", ":cpu")
	if err != nil {
		t.Fatal(err)
	}
	if out != "name,cpu,:eq,:sum\n" {
		t.Errorf("custom word output = %q", out)
	}
}

func TestEval_ProgramFile(t *testing.T) {
	dir := setup(t)
	path := filepath.Join(dir, "program.txt")
	writeFile(t, path, "a,\nb,\n:swap\n")

	out, err := run(t, dir, "eval", "@"+path)
	if err != nil {
		t.Fatal(err)
	}
	if out != "b\na\n" {
		t.Errorf("output = %q", out)
	}
}

func TestEval_Formats(t *testing.T) {
	dir := setup(t)

	out, err := run(t, dir, "eval", "-format=json", "x,1,:set,a")
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Stack []string          `json:"stack"`
		Vars  map[string]string `json:"vars"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("json output %q: %v", out, err)
	}
	if len(decoded.Stack) != 1 || decoded.Stack[0] != "a" || decoded.Vars["x"] != "1" {
		t.Errorf("decoded = %+v", decoded)
	}

	out, err = run(t, dir, "eval", "-format=cbor", "name,cpu,:eq,(,a,b,)")
	if err != nil {
		t.Fatal(err)
	}
	in := vm.NewInterpreter(vm.StandardVocabulary())
	r, err := vm.UnmarshalResult([]byte(out), in)
	if err != nil {
		t.Fatalf("UnmarshalResult: %v", err)
	}
	if got := strings.Join(r.Strings(), " "); got != "name,cpu,:eq (,a,b,)" {
		t.Errorf("cbor stack = %q", got)
	}

	if _, err := run(t, dir, "eval", "-format=xml", "a"); err == nil {
		t.Error("unknown format should fail")
	}
}

func TestEval_DecodeSavedResult(t *testing.T) {
	dir := setup(t)

	saved, err := run(t, dir, "eval", "-format=cbor", "x,1,0,:div,:set,:cpu,(,a,b,)")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "result.cbor")
	writeFile(t, path, saved)

	out, err := run(t, dir, "eval", "-decode="+path)
	if err != nil {
		t.Fatal(err)
	}
	if out != "name,cpu,:eq,:sum\n(,a,b,)\n" {
		t.Errorf("decoded stack = %q", out)
	}

	out, err = run(t, dir, "eval", "-decode="+path, "-format=json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"x": "1,0,:div"`) {
		t.Errorf("decoded vars = %q", out)
	}

	writeFile(t, path, "not cbor")
	if _, err := run(t, dir, "eval", "-decode="+path); err == nil {
		t.Error("decoding garbage should fail")
	}
}

func TestEval_Errors(t *testing.T) {
	dir := setup(t)

	_, err := run(t, dir, "eval", "1,:nope")
	var uw *vm.UnknownWordError
	if !errors.As(err, &uw) || uw.Name != "nope" {
		t.Errorf("err = %v, want UnknownWordError", err)
	}

	out, err := run(t, dir, "eval", "-debug", "1,:dup,:add,:drop,:drop")
	var su *vm.StackUnderflowError
	if !errors.As(err, &su) {
		t.Errorf("err = %v, want StackUnderflowError", err)
	}
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 5 {
		t.Errorf("debug trace has %d lines, want 5:\n%s", len(lines), out)
	}

	if _, err := run(t, dir, "eval"); err == nil {
		t.Error("eval without a program should fail")
	}
}

func TestWords(t *testing.T) {
	dir := setup(t)

	out, err := run(t, dir, "words", "-l", "cp")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, ":cpu") || !strings.Contains(out, "= name,cpu,:eq,:sum") {
		t.Errorf("output = %q", out)
	}
}

func TestIngestAndRender(t *testing.T) {
	dir := setup(t)
	data := filepath.Join(dir, "series.json")
	writeFile(t, data, testSeries)

	out, err := run(t, dir, "ingest", data)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "2 series, 4 points") {
		t.Errorf("ingest output = %q", out)
	}

	png := filepath.Join(dir, "cpu.png")
	out, err = run(t, dir, "render", "-o="+png, testWindow, ":cpu,CPU,:legend")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "200x100, 1 series") {
		t.Errorf("render output = %q", out)
	}
	img := readPNG(t, png)
	if img.Metadata["program"] != ":cpu,CPU,:legend" || img.Metadata["legend.0"] != "CPU" {
		t.Errorf("metadata = %v", img.Metadata)
	}

	byNode := filepath.Join(dir, "bynode.png")
	out, err = run(t, dir, "render", "-o="+byNode, "-width=300", testWindow, "name,cpu,:eq,(,node,),:by")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "300x100, 2 series") {
		t.Errorf("render output = %q", out)
	}
}

func TestIngest_BadFile(t *testing.T) {
	dir := setup(t)
	bad := filepath.Join(dir, "bad.json")
	writeFile(t, bad, `[{"points": []}]`)

	if _, err := run(t, dir, "ingest", bad); err == nil || !strings.Contains(err.Error(), "no tags") {
		t.Errorf("err = %v", err)
	}
	if _, err := run(t, dir, "ingest", filepath.Join(dir, "missing.json")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestRender_ErrorImage(t *testing.T) {
	dir := setup(t)
	png := filepath.Join(dir, "err.png")

	_, err := run(t, dir, "render", "-o="+png, testWindow, "name,cpu,:eq,:nope")
	if err == nil {
		t.Fatal("render of a failing program should fail")
	}
	img := readPNG(t, png)
	if !strings.Contains(img.Metadata[pngimage.KeyError], "nope") {
		t.Errorf("error metadata = %q", img.Metadata[pngimage.KeyError])
	}
}

func TestDiff(t *testing.T) {
	dir := setup(t)
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	c := filepath.Join(dir, "c.png")
	for path, program := range map[string]string{a: "name,cpu,:eq", b: "name,cpu,:eq", c: "name,cpu,:eq,:nope"} {
		run(t, dir, "render", "-o="+path, testWindow, program)
	}

	out, err := run(t, dir, "diff", a, b)
	if err != nil {
		t.Fatalf("identical images: %v", err)
	}
	if !strings.Contains(out, "identical: true") || !strings.Contains(out, "diff-pixel-count: 0") {
		t.Errorf("output = %q", out)
	}

	d := filepath.Join(dir, "d.png")
	out, err = run(t, dir, "diff", "-o="+d, a, c)
	if !errors.Is(err, errSilent) {
		t.Errorf("differing images: err = %v", err)
	}
	if !strings.Contains(out, "identical: false") {
		t.Errorf("output = %q", out)
	}
	if img := readPNG(t, d); img.Metadata[pngimage.KeyIdentical] != "false" {
		t.Errorf("diff image metadata = %v", img.Metadata)
	}
}

func TestDoctest(t *testing.T) {
	dir := setup(t)

	out, err := run(t, dir, "doctest")
	if err != nil {
		t.Fatalf("doctest: %v\n%s", err, out)
	}
	if !strings.Contains(out, " 0 failed") {
		t.Errorf("output = %q", out)
	}

	out, err = run(t, dir, "doctest", "-verbose", ":swap", "cpu")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, ":swap") || !strings.Contains(out, ":cpu") {
		t.Errorf("output = %q", out)
	}
}

func TestDoctest_Failure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "stackviz.toml"), `
[[words]]
name = "broken"
body = ":add"
examples = ["1"]
`)
	out, err := run(t, dir, "doctest", "broken")
	if !errors.Is(err, errSilent) {
		t.Errorf("err = %v, want a failing run", err)
	}
	if !strings.Contains(out, "1 failed") || !strings.Contains(out, "Error:") {
		t.Errorf("output = %q", out)
	}
}

func readPNG(t *testing.T, path string) *pngimage.Image {
	t.Helper()
	img, err := readImage(path)
	if err != nil {
		t.Fatal(err)
	}
	return img
}
