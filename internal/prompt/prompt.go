// Package prompt loads prompt template files and renders their placeholders.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Set names the template files used by the pipeline stages, relative to the
// prompts directory.
type Set struct {
	IdeasInitial string
	IdeasExpand  string
	IdeasList    string
	IdeasMore    string
	WrongFormat  string
	Requirements string
	CodeInitial  string
	CodeWriter   string
	Dependencies string
}

// DefaultSet returns the stock file names shipped under prompts/.
func DefaultSet() Set {
	return Set{
		IdeasInitial: "1-initial_ideas.txt",
		IdeasExpand:  "2-expand_ideas.txt",
		IdeasList:    "3-list_ideas.txt",
		IdeasMore:    "4-more_items.txt",
		WrongFormat:  "e1-wrong_format.txt",
		Requirements: "5-requirements.txt",
		CodeInitial:  "6-code_initial.txt",
		CodeWriter:   "7-code_writer.txt",
		Dependencies: "8-dependencies.txt",
	}
}

// Store reads template files from a directory. Loads are cached; templates do
// not change while a run is in flight.
type Store struct {
	dir   string
	cache *lru.Cache[string, string]
}

// NewStore creates a store rooted at dir. The directory must exist.
func NewStore(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("prompt: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("prompt: %s is not a directory", dir)
	}
	cache, err := lru.New[string, string](64)
	if err != nil {
		return nil, err
	}
	return &Store{dir: dir, cache: cache}, nil
}

// Load returns the contents of the named template file. A missing template is
// a hard error; retrying cannot fix a missing file.
func (s *Store) Load(name string) (string, error) {
	if v, ok := s.cache.Get(name); ok {
		return v, nil
	}
	b, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("prompt: read %s: %w", name, err)
	}
	text := string(b)
	s.cache.Add(name, text)
	return text, nil
}

// Render substitutes {KEY} placeholders with their values via literal string
// replacement. A placeholder absent from the template leaves it verbatim.
func Render(tmpl string, vars map[string]string) string {
	for k, v := range vars {
		tmpl = strings.ReplaceAll(tmpl, "{"+k+"}", v)
	}
	return tmpl
}
