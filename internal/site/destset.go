package site

import "sort"

// DestSet tracks the output-relative paths present before a build started.
// The walk claims each path still backed by a source; whatever remains when
// the walk ends is orphaned and gets deleted.
type DestSet struct {
	paths map[string]struct{}
}

func newDestSet() *DestSet {
	return &DestSet{paths: make(map[string]struct{})}
}

func (s *DestSet) add(rel string) {
	s.paths[rel] = struct{}{}
}

// Claim marks a destination as still owned by a source. Claiming a path not
// in the set is a no-op; staleness-skipped files claim like any other.
func (s *DestSet) Claim(rel string) {
	delete(s.paths, rel)
}

// Len returns the number of unclaimed paths.
func (s *DestSet) Len() int { return len(s.paths) }

// Remaining returns the unclaimed paths in sorted order.
func (s *DestSet) Remaining() []string {
	out := make([]string, 0, len(s.paths))
	for p := range s.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
