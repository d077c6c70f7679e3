package artifact

import (
	"fmt"
	"sort"
)

// Framework is one dependency entry in the dependencies artifact.
type Framework struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Dependencies is the on-disk shape of the dependencies artifact. Frameworks
// are kept sorted by name; downstream consumers diff this file.
type Dependencies struct {
	Frameworks []Framework `json:"frameworks"`
}

// UpdateDependencies merges new occurrence counts into the named dependencies
// artifact: counts for existing names are incremented, new names appended, and
// the result re-sorted by name before writing.
func (s *Store) UpdateDependencies(counts map[string]int, name string) (Dependencies, error) {
	var current Dependencies
	if s.Exists(name) {
		if err := s.LoadJSON(name, &current); err != nil {
			return Dependencies{}, fmt.Errorf("artifact: load existing dependencies: %w", err)
		}
	}

	merged := make(map[string]int, len(current.Frameworks)+len(counts))
	for _, f := range current.Frameworks {
		merged[f.Name] = f.Count
	}
	for n, c := range counts {
		merged[n] += c
	}

	out := Dependencies{Frameworks: make([]Framework, 0, len(merged))}
	for n, c := range merged {
		out.Frameworks = append(out.Frameworks, Framework{Name: n, Count: c})
	}
	sort.Slice(out.Frameworks, func(i, j int) bool {
		return out.Frameworks[i].Name < out.Frameworks[j].Name
	})

	if err := s.SaveJSON(name, out); err != nil {
		return Dependencies{}, err
	}
	return out, nil
}
