// Package pipeline implements the four generation stages: ideas,
// requirements, code, and dependencies. Each stage is a struct holding its
// collaborators and a Run method, so stages can be rerun independently from a
// chosen starting step.
package pipeline

import (
	"fmt"
	"regexp"
	"strings"
)

// Step identifies a pipeline stage. Later steps consume the artifacts of
// earlier ones.
type Step int

const (
	StepIdeas Step = iota + 1
	StepRequirements
	StepCode
	StepDependencies
)

func (s Step) String() string {
	switch s {
	case StepIdeas:
		return "ideas"
	case StepRequirements:
		return "requirements"
	case StepCode:
		return "code"
	case StepDependencies:
		return "dependencies"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// ParseStep accepts either the step number or its name.
func ParseStep(s string) (Step, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "ideas":
		return StepIdeas, nil
	case "2", "requirements":
		return StepRequirements, nil
	case "3", "code":
		return StepCode, nil
	case "4", "dependencies":
		return StepDependencies, nil
	}
	return 0, fmt.Errorf("pipeline: invalid step %q (valid: 1/ideas, 2/requirements, 3/code, 4/dependencies)", s)
}

// Default artifact locations inside the working directory.
const (
	IdeasFile        = "ideas.json"
	DependenciesFile = "dependencies.json"
	RequirementsDir  = "requirements"
	CodeDir          = "code"
)

var reNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeName lowercases s and collapses non-alphanumeric runs to
// underscores, for use in artifact file names and cross-stage matching.
func normalizeName(s string) string {
	s = strings.ToLower(s)
	s = reNonAlnum.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}
