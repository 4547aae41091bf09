package matrix

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/systemstart/gridrun/pkg/api"
)

// Event describes what happened in the repository, as reported by the
// invoking host. The runner only consumes it; it never produces one.
type Event struct {
	Type    string   // e.g. "push"
	Ref     string   // e.g. "refs/heads/main"
	Changed []string // repository-relative paths touched by the event
}

// Branch extracts the branch name from a refs/heads/ ref. Other refs are
// returned as-is so tag patterns can still be matched explicitly.
func (e Event) Branch() string {
	return strings.TrimPrefix(e.Ref, "refs/heads/")
}

// TriggerMatches reports whether the workflow's declared trigger accepts
// the event. A workflow without a trigger accepts everything.
func TriggerMatches(w *api.Workflow, ev Event) (bool, error) {
	if w.On == nil {
		return true, nil
	}
	if w.On.Push == nil || ev.Type != api.EventPush {
		return false, nil
	}

	ok, err := matchAny(w.On.Push.Branches, []string{ev.Branch()})
	if err != nil {
		return false, fmt.Errorf("matching branches: %w", err)
	}
	if !ok {
		return false, nil
	}

	ok, err = matchAny(w.On.Push.Paths, ev.Changed)
	if err != nil {
		return false, fmt.Errorf("matching paths: %w", err)
	}
	return ok, nil
}

// matchAny reports whether any candidate matches any pattern. An empty
// pattern list matches everything.
func matchAny(patterns, candidates []string) (bool, error) {
	if len(patterns) == 0 {
		return true, nil
	}
	for _, pattern := range patterns {
		for _, candidate := range candidates {
			ok, err := doublestar.Match(pattern, path.Clean(candidate))
			if err != nil {
				return false, fmt.Errorf("pattern %q: %w", pattern, err)
			}
			if ok {
				return true, nil
			}
		}
	}
	return false, nil
}
