package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/chazu/stackviz/vm"
)

// vocabularyFile is the shape of a standalone vocabulary file, in TOML
// ([[words]] tables) or YAML (a words: sequence).
type vocabularyFile struct {
	Words []WordEntry `toml:"words" yaml:"words"`
}

// checkWords rejects entries without a body field. An empty body is a
// valid no-op word; an absent one is a configuration mistake.
func checkWords(words []WordEntry) error {
	for i, w := range words {
		if w.Body == nil {
			return &vm.ConfigurationError{Index: i, Word: w.Name, Reason: "body is required"}
		}
	}
	return nil
}

// LoadVocabularyFile reads custom words from a .toml, .yaml or .yml file.
func LoadVocabularyFile(path string) ([]WordEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var vf vocabularyFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &vf); err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &vf); err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported vocabulary file %s: want .toml, .yaml or .yml", path)
	}

	if err := checkWords(vf.Words); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vf.Words, nil
}

// VocabularyPaths expands the configured vocabulary-files entries. Entries
// may be glob patterns; paths are relative to the manifest directory and
// returned in configuration order without duplicates. A plain path that
// does not exist is an error, a glob matching nothing is not.
func (m *Manifest) VocabularyPaths() ([]string, error) {
	seen := make(map[string]bool)
	var paths []string

	for _, entry := range m.VocabularyFiles {
		pattern := m.ResolvePath(entry)

		var matches []string
		if strings.ContainsAny(entry, "*?[") {
			var err error
			matches, err = filepath.Glob(pattern)
			if err != nil {
				return nil, fmt.Errorf("bad vocabulary pattern %q: %w", entry, err)
			}
		} else {
			if _, err := os.Stat(pattern); err != nil {
				return nil, fmt.Errorf("vocabulary file %q: %w", entry, err)
			}
			matches = []string{pattern}
		}

		for _, p := range matches {
			if seen[p] {
				continue
			}
			seen[p] = true
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// WordDefs returns every custom word: vocabulary files first, in order,
// then the inline [[words]] entries. Later definitions replace earlier
// ones of the same name, so inline words win.
func (m *Manifest) WordDefs() ([]vm.WordDef, error) {
	paths, err := m.VocabularyPaths()
	if err != nil {
		return nil, err
	}

	var entries []WordEntry
	for _, p := range paths {
		words, err := LoadVocabularyFile(p)
		if err != nil {
			return nil, err
		}
		entries = append(entries, words...)
	}
	entries = append(entries, m.Words...)

	if err := checkWords(entries); err != nil {
		return nil, err
	}

	return wordDefs(entries), nil
}

// wordDefs converts entries that passed checkWords.
func wordDefs(entries []WordEntry) []vm.WordDef {
	defs := make([]vm.WordDef, len(entries))
	for i, e := range entries {
		defs[i] = vm.WordDef{
			Name:     e.Name,
			Body:     *e.Body,
			Summary:  e.Summary,
			Examples: e.Examples,
		}
	}
	return defs
}
