package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chazu/stackviz/vm"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), `
vocabulary-files = ["words/*.yaml"]

[server]
addr = "127.0.0.1:9000"
grpc-addr = ":9001"
workers = 8
log-level = "debug"

[interpreter]
max-expansions = 500

[backend]
name = "sqlite"
dsn = "data/series.db"

[graph]
width = 800
height = 200
step = "5m"
range = "1h"

[[words]]
name = "cpu"
body = "name,cpu,:eq"
summary = "CPU series"
examples = [""]

[[words]]
name = "noop"
body = ""
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("server addr = %q", m.Server.Addr)
	}
	if m.Server.GRPCAddr != ":9001" {
		t.Errorf("grpc addr = %q", m.Server.GRPCAddr)
	}
	if m.Server.Workers != 8 {
		t.Errorf("workers = %d, want 8", m.Server.Workers)
	}
	if m.Interpreter.MaxExpansions != 500 {
		t.Errorf("max-expansions = %d, want 500", m.Interpreter.MaxExpansions)
	}
	if m.Backend.Name != "sqlite" {
		t.Errorf("backend = %q, want sqlite", m.Backend.Name)
	}
	if want := filepath.Join(m.Dir, "data", "series.db"); m.BackendDSN() != want {
		t.Errorf("BackendDSN() = %q, want %q", m.BackendDSN(), want)
	}
	if m.GraphStep() != 5*time.Minute || m.GraphRange() != time.Hour {
		t.Errorf("graph step/range = %v/%v", m.GraphStep(), m.GraphRange())
	}
	if len(m.Words) != 2 {
		t.Fatalf("words count = %d, want 2", len(m.Words))
	}
	if m.Words[1].Body == nil || *m.Words[1].Body != "" {
		t.Error("an empty body should decode as a present, empty string")
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), "")

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Server.Addr != ":8080" {
		t.Errorf("default addr = %q", m.Server.Addr)
	}
	if m.Interpreter.MaxExpansions != vm.DefaultMaxExpansions {
		t.Errorf("default max-expansions = %d", m.Interpreter.MaxExpansions)
	}
	if m.Interpreter.MaxValues != vm.DefaultMaxValues {
		t.Errorf("default max-values = %d", m.Interpreter.MaxValues)
	}
	if m.Backend.Name != "memory" {
		t.Errorf("default backend = %q", m.Backend.Name)
	}
	if m.Graph.Width != 700 || m.Graph.Height != 300 {
		t.Errorf("default graph size = %dx%d", m.Graph.Width, m.Graph.Height)
	}
	if m.GraphStep() != time.Minute || m.GraphRange() != 3*time.Hour {
		t.Errorf("default step/range = %v/%v", m.GraphStep(), m.GraphRange())
	}

	d := Default()
	if d.Server.Addr != m.Server.Addr || d.Backend.Name != m.Backend.Name {
		t.Error("Default() should match an empty configuration file")
	}
}

func TestLoadRejectsInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad backend", "[backend]\nname = \"oracle\"\n", "backend"},
		{"tiny graph", "[graph]\nwidth = 2\n", "width"},
		{"bad step", "[graph]\nstep = \"soon\"\n", "step"},
		{"bad log level", "[server]\nlog-level = \"loud\"\n", "log-level"},
		{"negative expansions", "[interpreter]\nmax-expansions = -1\n", "max-expansions"},
		{"negative values", "[interpreter]\nmax-values = -5\n", "max-values"},
		{"bad word name", "[[words]]\nname = \"a,b\"\nbody = \"x\"\n", "name"},
		{"not toml", "[server\n", "parse error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, FileName), tc.content)
			_, err := Load(dir)
			if err == nil {
				t.Fatal("Load should fail")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q should mention %q", err, tc.want)
			}
		})
	}
}

func TestNewInterpreterUsesLimits(t *testing.T) {
	m, err := Parse([]byte("[interpreter]\nmax-expansions = 7\nmax-values = 10\n"), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	in, err := m.NewInterpreter()
	if err != nil {
		t.Fatal(err)
	}
	if in.MaxExpansions() != 7 || in.MaxValues() != 10 {
		t.Errorf("limits = %d/%d, want 7/10", in.MaxExpansions(), in.MaxValues())
	}
}

func TestLoadRejectsInvalidWords(t *testing.T) {
	tests := []struct {
		name    string
		content string
		index   int
		reason  string
	}{
		{"empty name", "[[words]]\nname = \"\"\nbody = \"x\"\n", 0, "name is required"},
		{"missing name", "[[words]]\nbody = \"x\"\n", 0, "name is required"},
		{"blank name", "[[words]]\nname = \"ok\"\nbody = \"x\"\n[[words]]\nname = \"  \"\nbody = \"y\"\n", 1, "name is required"},
		{"delimiter in name", "[[words]]\nname = \"a,b\"\nbody = \"x\"\n", 0, "name cannot be referenced"},
		{"unbalanced body", "[[words]]\nname = \"w\"\nbody = \"a,)\"\n", 0, "body does not tokenize"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, FileName), tc.content)
			_, err := Load(dir)
			var ce *vm.ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("error = %v, want *vm.ConfigurationError", err)
			}
			if ce.Index != tc.index || !strings.HasPrefix(ce.Reason, tc.reason) {
				t.Errorf("ConfigurationError = %+v", ce)
			}
		})
	}
}

func TestLoadRejectsMissingBody(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), "[[words]]\nname = \"cpu\"\n")

	_, err := Load(dir)
	var ce *vm.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want *vm.ConfigurationError", err)
	}
	if ce.Word != "cpu" || ce.Index != 0 {
		t.Errorf("ConfigurationError = %+v", ce)
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, FileName), "[server]\naddr = \":7000\"\n")

	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Server.Addr != ":7000" {
		t.Errorf("addr = %q, want :7000", m.Server.Addr)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no stackviz.toml exists")
	}
}

func TestBackendDSNPassThrough(t *testing.T) {
	m := &Manifest{Dir: "/srv", Backend: Backend{Name: "sqlite", DSN: ":memory:"}}
	if m.BackendDSN() != ":memory:" {
		t.Errorf("BackendDSN() = %q", m.BackendDSN())
	}
	m.Backend = Backend{Name: "duckdb", DSN: "/abs/x.duckdb"}
	if m.BackendDSN() != "/abs/x.duckdb" {
		t.Errorf("BackendDSN() = %q", m.BackendDSN())
	}
}
