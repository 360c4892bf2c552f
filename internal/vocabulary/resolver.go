// Package vocabulary resolves skill spellings to canonical identifiers and
// matches skill sets through them.
package vocabulary

import (
	"fmt"
	"sort"

	"github.com/spigell/hh-matcher/internal/apperr"
	"github.com/spigell/hh-matcher/internal/textnorm"
)

// Resolver maps raw terms to canonical skills. It is immutable after New and
// safe for concurrent use.
type Resolver struct {
	forms        map[string]string
	translations map[string]string
}

// MatchSet is the outcome of comparing a candidate's skills with the wanted ones.
type MatchSet struct {
	Matched    []string `json:"matched"`
	Missing    []string `json:"missing"`
	Percentage float64  `json:"percentage"`
}

// New builds a Resolver from table. Conflicting surface forms and blank
// entries are reported as configuration errors.
func New(table *Table) (*Resolver, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: vocabulary table is required", apperr.ErrConfiguration)
	}

	r := &Resolver{
		forms:        make(map[string]string),
		translations: make(map[string]string, len(table.Translations)),
	}

	for i, entry := range table.Synonyms {
		canonical := textnorm.Normalize(entry.Canonical)
		if canonical == "" {
			return nil, fmt.Errorf("%w: synonym entry %d has an empty canonical name", apperr.ErrConfiguration, i)
		}

		for _, form := range append([]string{entry.Canonical}, entry.Forms...) {
			key := textnorm.Normalize(form)
			if key == "" {
				continue
			}
			if existing, ok := r.forms[key]; ok && existing != canonical {
				return nil, fmt.Errorf("%w: form %q maps to both %q and %q", apperr.ErrConfiguration, key, existing, canonical)
			}
			r.forms[key] = canonical
		}
	}

	for term, target := range table.Translations {
		key := textnorm.Normalize(term)
		value := textnorm.Normalize(target)
		if key == "" || value == "" {
			return nil, fmt.Errorf("%w: translation %q -> %q is incomplete", apperr.ErrConfiguration, term, target)
		}
		if existing, ok := r.translations[key]; ok && existing != value {
			return nil, fmt.Errorf("%w: translation %q maps to both %q and %q", apperr.ErrConfiguration, key, existing, value)
		}
		r.translations[key] = value
	}

	return r, nil
}

// NewDefault builds a Resolver over the embedded vocabulary.
func NewDefault() (*Resolver, error) {
	table, err := DefaultTable()
	if err != nil {
		return nil, err
	}
	return New(table)
}

// Resolve returns the canonical identifier for term. Unknown terms resolve to
// their normalized spelling, so resolution never fails.
func (r *Resolver) Resolve(term string) string {
	key := textnorm.Normalize(term)
	if key == "" {
		return ""
	}

	if textnorm.HasNonLatinLetters(key) {
		if translated, ok := r.translations[key]; ok {
			key = translated
		}
	}

	if canonical, ok := r.forms[key]; ok {
		return canonical
	}

	return key
}

// ResolveAll resolves every term, skipping blanks and keeping the first occurrence of each canonical.
func (r *Resolver) ResolveAll(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		canonical := r.Resolve(term)
		if canonical == "" {
			continue
		}
		if _, ok := seen[canonical]; ok {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	return out
}

// Forms returns every known surface form of term, including its canonical spelling.
func (r *Resolver) Forms(term string) []string {
	canonical := r.Resolve(term)
	if canonical == "" {
		return nil
	}

	var aliases []string
	for form, c := range r.forms {
		if c == canonical && form != canonical {
			aliases = append(aliases, form)
		}
	}
	sort.Strings(aliases)

	return append([]string{canonical}, aliases...)
}

// MatchSets compares have against want through canonical identifiers.
// Matched and Missing follow the order of first appearance in want.
func (r *Resolver) MatchSets(have, want []string) MatchSet {
	wanted := r.ResolveAll(want)
	result := MatchSet{Matched: []string{}, Missing: []string{}}
	if len(wanted) == 0 {
		return result
	}

	owned := make(map[string]struct{}, len(have))
	for _, canonical := range r.ResolveAll(have) {
		owned[canonical] = struct{}{}
	}

	for _, canonical := range wanted {
		if _, ok := owned[canonical]; ok {
			result.Matched = append(result.Matched, canonical)
			continue
		}
		result.Missing = append(result.Missing, canonical)
	}

	result.Percentage = float64(len(result.Matched)) / float64(len(wanted)) * 100

	return result
}

// Size reports the number of known surface forms and translations.
func (r *Resolver) Size() (forms, translations int) {
	return len(r.forms), len(r.translations)
}

