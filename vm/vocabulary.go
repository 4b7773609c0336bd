package vm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chazu/stackviz/compiler"
)

// Vocabulary is an immutable name -> Word registry. It is safe for
// concurrent lookup by any number of interpreters.
type Vocabulary struct {
	words map[string]Word
}

// NewVocabulary builds a vocabulary from words. Later words replace earlier
// ones with the same name.
func NewVocabulary(words ...Word) *Vocabulary {
	m := make(map[string]Word, len(words))
	for _, w := range words {
		m[w.Name()] = w
	}
	return &Vocabulary{words: m}
}

// Merge returns a vocabulary holding every word of base, overridden by the
// words of custom where names collide. Neither input is modified.
func Merge(base, custom *Vocabulary) *Vocabulary {
	m := make(map[string]Word, base.Len()+custom.Len())
	if base != nil {
		for name, w := range base.words {
			m[name] = w
		}
	}
	if custom != nil {
		for name, w := range custom.words {
			m[name] = w
		}
	}
	return &Vocabulary{words: m}
}

// NewCustomVocabulary builds a vocabulary of macros from configuration
// records. It fails with a *ConfigurationError on the first record with an
// empty or unreferenceable name or a body that does not tokenize.
func NewCustomVocabulary(defs []WordDef) (*Vocabulary, error) {
	words := make([]Word, 0, len(defs))
	for i, def := range defs {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			return nil, &ConfigurationError{Index: i, Reason: "name is required"}
		}
		if !compiler.IsWordName(name) {
			return nil, &ConfigurationError{Index: i, Word: name, Reason: "name cannot be referenced as a word"}
		}
		summary := def.Summary
		if summary == "" {
			summary = fmt.Sprintf("Custom word: %s", def.Body)
		}
		m, err := NewMacro(name, def.Body, summary, def.Examples...)
		if err != nil {
			return nil, &ConfigurationError{Index: i, Word: name, Reason: "body does not tokenize", Err: err}
		}
		words = append(words, m)
	}
	return NewVocabulary(words...), nil
}

// Lookup returns the word registered under name.
func (v *Vocabulary) Lookup(name string) (Word, bool) {
	if v == nil {
		return nil, false
	}
	w, ok := v.words[name]
	return w, ok
}

// Len returns the number of words.
func (v *Vocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.words)
}

// Words returns all words sorted by name.
func (v *Vocabulary) Words() []Word {
	if v == nil {
		return nil
	}
	out := make([]Word, 0, len(v.words))
	for _, w := range v.words {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Names returns all word names, sorted.
func (v *Vocabulary) Names() []string {
	words := v.Words()
	names := make([]string, len(words))
	for i, w := range words {
		names[i] = w.Name()
	}
	return names
}
