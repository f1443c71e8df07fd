// Package curation edits the keyword list of a generated result before export.
//
// A Set splits the generated keywords into a "top" list (the first TopSize
// keywords, which is what gets exported) and the remainder, which can be
// promoted into the top list one at a time.
package curation

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jackzampolin/stockmeta/internal/keywords"
	"github.com/jackzampolin/stockmeta/internal/metadata"
)

// TopSize is how many generated keywords start in the top list.
const TopSize = 45

// ErrIndex is returned for an out-of-range keyword index.
var ErrIndex = errors.New("keyword index out of range")

// Set is the curation state for one result. Not safe for concurrent use.
type Set struct {
	all []string
	top []string
}

// NewSet starts curation from the generated keywords.
func NewSet(generated []string) *Set {
	all := slices.Clone(generated)
	n := min(len(all), TopSize)
	return &Set{all: all, top: slices.Clone(all[:n])}
}

// Restore resumes curation with a previously saved top list. A nil top
// starts fresh.
func Restore(generated, top []string) *Set {
	s := NewSet(generated)
	if top != nil {
		s.top = slices.Clone(top)
	}
	return s
}

// FromResult starts curation from a result's keywords.
func FromResult(r *metadata.Result) *Set {
	return NewSet(r.Keywords)
}

// Top returns a copy of the top list.
func (s *Set) Top() []string {
	return slices.Clone(s.top)
}

// Remaining returns the generated keywords beyond TopSize. Promoted keywords
// stay listed here.
func (s *Set) Remaining() []string {
	if len(s.all) <= TopSize {
		return nil
	}
	return slices.Clone(s.all[TopSize:])
}

// Reset restores the top list to the first TopSize generated keywords.
func (s *Set) Reset() {
	n := min(len(s.all), TopSize)
	s.top = slices.Clone(s.all[:n])
}

// Promote appends keyword to the top list unless it is already there.
func (s *Set) Promote(keyword string) bool {
	if slices.Contains(s.top, keyword) {
		return false
	}
	s.top = append(s.top, keyword)
	return true
}

// AddCustom splits a comma-separated input, trims it, and appends the
// entries not already in the top list. Returns how many were added.
func (s *Set) AddCustom(input string) int {
	added := 0
	for _, k := range keywords.SplitList(input) {
		if slices.Contains(s.top, k) {
			continue
		}
		s.top = append(s.top, k)
		added++
	}
	return added
}

// Edit replaces the keyword at index. A value containing commas expands into
// several keywords in place. A blank value leaves the list unchanged.
// Returns the number of keywords inserted.
func (s *Set) Edit(index int, value string) (int, error) {
	if index < 0 || index >= len(s.top) {
		return 0, fmt.Errorf("%w: %d", ErrIndex, index)
	}
	parts := keywords.SplitList(value)
	if len(parts) == 0 {
		return 0, nil
	}
	s.top = slices.Replace(s.top, index, index+1, parts...)
	return len(parts), nil
}

// Delete removes the keyword at index.
func (s *Set) Delete(index int) error {
	if index < 0 || index >= len(s.top) {
		return fmt.Errorf("%w: %d", ErrIndex, index)
	}
	s.top = slices.Delete(s.top, index, index+1)
	return nil
}

// Move shifts the keyword at from to position to.
func (s *Set) Move(from, to int) error {
	if from < 0 || from >= len(s.top) {
		return fmt.Errorf("%w: %d", ErrIndex, from)
	}
	if to < 0 || to >= len(s.top) {
		return fmt.Errorf("%w: %d", ErrIndex, to)
	}
	k := s.top[from]
	s.top = slices.Delete(s.top, from, from+1)
	s.top = slices.Insert(s.top, to, k)
	return nil
}

// Index returns the position of keyword in the top list, or -1.
func (s *Set) Index(keyword string) int {
	return slices.Index(s.top, keyword)
}

// Apply returns a copy of r whose keywords are the curated top list.
func (s *Set) Apply(r *metadata.Result) *metadata.Result {
	out := r.Clone()
	out.Keywords = s.Top()
	return out
}
