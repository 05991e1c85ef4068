package check

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Named collection of stage results for a run.
//
// Safe for concurrent use. Insertion order does not matter; results are
// always listed by name.
type Set struct {
	mu      sync.RWMutex
	results map[string]*StageResult
}

// Creates an empty set.
func NewSet() *Set {
	return &Set{results: make(map[string]*StageResult)}
}

// Aggregates results into a new set.
//
// Fails with [ErrDuplicateCheck] when two results share a name.
func Aggregate(results ...*StageResult) (*Set, error) {
	s := NewSet()
	for _, r := range results {
		if err := s.Add(r); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Adds a result. Fails with [ErrDuplicateCheck] if its name is taken.
func (s *Set) Add(r *StageResult) error {
	name := r.Name()
	copied := *r

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCheck, name)
	}
	s.results[name] = &copied
	return nil
}

// Adds every result of other. Fails on the first duplicate name, leaving
// the results added before it in place.
func (s *Set) Merge(other *Set) error {
	for _, r := range other.Results() {
		if err := s.Add(r); err != nil {
			return err
		}
	}
	return nil
}

// Returns a copy of the named result.
func (s *Set) Get(name string) (*StageResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[name]
	if !ok {
		return nil, false
	}
	copied := *r
	return &copied, true
}

// Returns the check names, sorted.
func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.results))
}

// Returns copies of all results, sorted by name.
func (s *Set) Results() []*StageResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*StageResult, 0, len(s.results))
	for _, name := range slices.Sorted(maps.Keys(s.results)) {
		copied := *s.results[name]
		out = append(out, &copied)
	}
	return out
}

// Returns the number of results.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// Reports whether every result passed. An empty set passes.
func (s *Set) Passed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.results {
		if r.Status != Passed {
			return false
		}
	}
	return true
}

// Returns the names of results that did not pass, sorted.
func (s *Set) Failed() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []string
	for name, r := range s.results {
		if r.Status != Passed {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Returns the number of results per status.
func (s *Set) Counts() map[Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Status]int, 3)
	for _, r := range s.results {
		counts[r.Status]++
	}
	return counts
}
