// Package analysis turns field values into the terms the in-memory index
// stores postings for.
package analysis

import (
	"strings"
	"sync"
	"unicode"

	"github.com/cockroachdb/errors"
)

// Built-in analyzer names.
const (
	Standard   = "standard"
	Whitespace = "whitespace"
	Keyword    = "keyword"
)

var (
	ErrUnknownAnalyzer   = errors.New("unknown analyzer")
	ErrDuplicateAnalyzer = errors.New("analyzer already registered")
)

// Analyzer splits a field value into indexed terms, in order of appearance.
// Implementations must be safe for concurrent use.
type Analyzer interface {
	Analyze(text string) []string
}

// Func adapts a plain function to the Analyzer interface.
type Func func(text string) []string

func (f Func) Analyze(text string) []string { return f(text) }

// standard splits on anything that is not a letter, digit or underscore and
// lowercases each term.
func standard(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	return fields
}

// keyword indexes the whole value as a single term.
func keyword(text string) []string {
	if text == "" {
		return nil
	}
	return []string{text}
}

// TermFreqs analyzes text and counts occurrences of each term.
func TermFreqs(a Analyzer, text string) map[string]uint32 {
	terms := a.Analyze(text)
	freqs := make(map[string]uint32, len(terms))
	for _, term := range terms {
		freqs[term]++
	}
	return freqs
}

// Registry resolves analyzers by name.
type Registry struct {
	mu        sync.RWMutex
	analyzers map[string]Analyzer
}

// NewRegistry creates a Registry with the built-in analyzers registered.
func NewRegistry() *Registry {
	return &Registry{
		analyzers: map[string]Analyzer{
			Standard:   Func(standard),
			Whitespace: Func(strings.Fields),
			Keyword:    Func(keyword),
		},
	}
}

// Get returns the analyzer registered under name.
func (r *Registry) Get(name string) (Analyzer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.analyzers[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownAnalyzer, "%q", name)
	}
	return a, nil
}

// Register adds a custom analyzer.
func (r *Registry) Register(name string, a Analyzer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.analyzers[name]; exists {
		return errors.Wrapf(ErrDuplicateAnalyzer, "%q", name)
	}
	r.analyzers[name] = a
	return nil
}
