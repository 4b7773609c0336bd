// Package manifest handles stackviz.toml server configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/chazu/stackviz/vm"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "stackviz.toml"

// Manifest represents a stackviz.toml configuration.
type Manifest struct {
	Server          Server      `toml:"server" json:"server"`
	Interpreter     Interpreter `toml:"interpreter" json:"interpreter"`
	Backend         Backend     `toml:"backend" json:"backend"`
	Graph           Graph       `toml:"graph" json:"graph"`
	Words           []WordEntry `toml:"words" json:"words,omitempty"`
	VocabularyFiles []string    `toml:"vocabulary-files" json:"vocabulary-files,omitempty"`

	// Dir is the directory containing the stackviz.toml file (set at load time).
	Dir string `toml:"-" json:"-"`
}

// Server configures the network listeners.
type Server struct {
	Addr     string `toml:"addr" json:"addr"`
	GRPCAddr string `toml:"grpc-addr" json:"grpc-addr,omitempty"`
	Workers  int    `toml:"workers" json:"workers"`
	LogLevel string `toml:"log-level" json:"log-level"`
}

// Interpreter configures evaluation limits.
type Interpreter struct {
	MaxExpansions int `toml:"max-expansions" json:"max-expansions"`
	MaxValues     int `toml:"max-values" json:"max-values"`
}

// Backend selects the time series store.
type Backend struct {
	Name string `toml:"name" json:"name"`
	DSN  string `toml:"dsn" json:"dsn,omitempty"`
}

// Graph holds the defaults applied to graph requests.
type Graph struct {
	Width  int    `toml:"width" json:"width"`
	Height int    `toml:"height" json:"height"`
	Step   string `toml:"step" json:"step"`
	Range  string `toml:"range" json:"range"`
}

// WordEntry is one custom word definition. Body is a pointer so that a
// missing body can be told apart from an empty one.
type WordEntry struct {
	Name     string   `toml:"name" yaml:"name" json:"name"`
	Body     *string  `toml:"body" yaml:"body" json:"body"`
	Summary  string   `toml:"summary" yaml:"summary" json:"summary,omitempty"`
	Examples []string `toml:"examples" yaml:"examples" json:"examples,omitempty"`
}

// Load parses a stackviz.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses the configuration file at path.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	m, err := Parse(data, dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes TOML configuration text, applies defaults and validates the
// result. Relative paths resolve against dir.
func Parse(data []byte, dir string) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	m.Dir = dir
	m.applyDefaults()

	if err := checkWords(m.Words); err != nil {
		return nil, err
	}
	if _, err := vm.NewCustomVocabulary(wordDefs(m.Words)); err != nil {
		return nil, err
	}
	if err := Validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Default returns the configuration used when no stackviz.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	if wd, err := os.Getwd(); err == nil {
		m.Dir = wd
	}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Server.Addr == "" {
		m.Server.Addr = ":8080"
	}
	if m.Server.Workers == 0 {
		m.Server.Workers = 4
	}
	if m.Server.LogLevel == "" {
		m.Server.LogLevel = "info"
	}
	if m.Interpreter.MaxExpansions == 0 {
		m.Interpreter.MaxExpansions = vm.DefaultMaxExpansions
	}
	if m.Interpreter.MaxValues == 0 {
		m.Interpreter.MaxValues = vm.DefaultMaxValues
	}
	if m.Backend.Name == "" {
		m.Backend.Name = "memory"
	}
	if m.Graph.Width == 0 {
		m.Graph.Width = 700
	}
	if m.Graph.Height == 0 {
		m.Graph.Height = 300
	}
	if m.Graph.Step == "" {
		m.Graph.Step = "1m"
	}
	if m.Graph.Range == "" {
		m.Graph.Range = "3h"
	}
}

// FindAndLoad walks up from startDir to find a stackviz.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// ResolvePath makes p absolute relative to the manifest directory.
func (m *Manifest) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// BackendDSN returns the backend data source name. File paths are resolved
// against the manifest directory; in-memory DSNs pass through.
func (m *Manifest) BackendDSN() string {
	dsn := m.Backend.DSN
	if dsn == "" || dsn == ":memory:" || m.Backend.Name == "memory" {
		return dsn
	}
	return m.ResolvePath(dsn)
}

// GraphStep returns the default graph step.
func (m *Manifest) GraphStep() time.Duration {
	d, _ := time.ParseDuration(m.Graph.Step)
	return d
}

// GraphRange returns the default time span shown when a request gives no
// start time.
func (m *Manifest) GraphRange() time.Duration {
	d, _ := time.ParseDuration(m.Graph.Range)
	return d
}

// NewInterpreter builds an interpreter over the standard vocabulary merged
// with every custom word the configuration defines.
func (m *Manifest) NewInterpreter() (*vm.Interpreter, error) {
	vocab, err := m.Vocabulary()
	if err != nil {
		return nil, err
	}
	return vm.NewInterpreter(vocab,
		vm.WithMaxExpansions(m.Interpreter.MaxExpansions),
		vm.WithMaxValues(m.Interpreter.MaxValues)), nil
}

// Vocabulary returns the standard vocabulary overridden by custom words.
func (m *Manifest) Vocabulary() (*vm.Vocabulary, error) {
	defs, err := m.WordDefs()
	if err != nil {
		return nil, err
	}
	custom, err := vm.NewCustomVocabulary(defs)
	if err != nil {
		return nil, err
	}
	return vm.Merge(vm.StandardVocabulary(), custom), nil
}
