package template

import (
	"os"
	"path/filepath"
	"strings"
)

// OpResult records what happened to one operation in a FilePlan.
type OpResult struct {
	Path   string
	Action string // "wrote" | "skipped" | "appended" | "injected" | "copied" | "dry-run"
	Reason string
}

// ApplyResult is the outcome of executing a FilePlan.
type ApplyResult struct {
	Results []OpResult
	Err     error
}

// Apply executes a FilePlan's operations in order. With dryRun set, no
// filesystem mutation occurs; results describe what would happen.
func Apply(plan *FilePlan, dryRun bool) ApplyResult {
	var res ApplyResult
	if plan.Skipped {
		res.Results = append(res.Results, OpResult{Action: "skipped", Reason: plan.SkipReason})
		return res
	}

	for _, w := range plan.Writes {
		r, err := applyWrite(w, dryRun)
		res.Results = append(res.Results, r)
		if err != nil {
			res.Err = err
			return res
		}
	}
	for _, inj := range plan.Injects {
		r, err := applyInject(inj, dryRun)
		res.Results = append(res.Results, r)
		if err != nil {
			res.Err = err
			return res
		}
	}
	for _, cp := range plan.Copies {
		r, err := applyCopy(cp, dryRun)
		res.Results = append(res.Results, r)
		if err != nil {
			res.Err = err
			return res
		}
	}
	return res
}

func applyWrite(w WriteOp, dryRun bool) (OpResult, error) {
	exists := fileExists(w.Path)

	switch w.Force {
	case "error":
		if exists {
			return OpResult{Path: w.Path}, &ExistsError{Path: w.Path}
		}
	case "skipIfExists":
		if exists {
			return OpResult{Path: w.Path, Action: "skipped", Reason: "already exists"}, nil
		}
	case "append":
		if dryRun {
			return OpResult{Path: w.Path, Action: "dry-run", Reason: "would append"}, nil
		}
		if exists {
			existing, err := os.ReadFile(w.Path)
			if err == nil && containsSnippet(string(existing), w.Content) {
				return OpResult{Path: w.Path, Action: "skipped", Reason: "content already appended"}, nil
			}
		}
		if err := appendToFile(w.Path, w.Content); err != nil {
			return OpResult{Path: w.Path}, err
		}
		return OpResult{Path: w.Path, Action: "appended"}, nil
	case "overwrite":
		// falls through to plain write below
	}

	if dryRun {
		return OpResult{Path: w.Path, Action: "dry-run", Reason: "would write"}, nil
	}
	if err := writeFile(w.Path, w.Content); err != nil {
		return OpResult{Path: w.Path}, err
	}
	return OpResult{Path: w.Path, Action: "wrote"}, nil
}

func applyInject(inj InjectOp, dryRun bool) (OpResult, error) {
	existing, err := os.ReadFile(inj.Into)
	if err != nil {
		return OpResult{Path: inj.Into}, err
	}
	lines := strings.Split(string(existing), "\n")

	anchorIdx := -1
	for i, line := range lines {
		if line == inj.Find {
			anchorIdx = i
			break
		}
	}
	if anchorIdx < 0 {
		return OpResult{Path: inj.Into}, &AnchorNotFoundError{Path: inj.Into, Find: inj.Find}
	}

	if inj.Once && injectionAlreadyPresent(lines, anchorIdx, inj) {
		return OpResult{Path: inj.Into, Action: "skipped", Reason: "snippet already adjacent to anchor"}, nil
	}

	var out []string
	switch inj.Where {
	case "before":
		out = append(out, lines[:anchorIdx]...)
		out = append(out, inj.Snippet)
		out = append(out, lines[anchorIdx:]...)
	case "replace":
		out = append(out, lines[:anchorIdx]...)
		out = append(out, inj.Snippet)
		out = append(out, lines[anchorIdx+1:]...)
	default: // "after"
		out = append(out, lines[:anchorIdx+1]...)
		out = append(out, inj.Snippet)
		out = append(out, lines[anchorIdx+1:]...)
	}

	if dryRun {
		return OpResult{Path: inj.Into, Action: "dry-run", Reason: "would inject " + inj.Where}, nil
	}
	if err := writeFile(inj.Into, strings.Join(out, "\n")); err != nil {
		return OpResult{Path: inj.Into}, err
	}
	return OpResult{Path: inj.Into, Action: "injected"}, nil
}

// injectionAlreadyPresent checks whether the snippet already sits in
// the position `where` would place it, so `once: true` re-applications
// are a no-op rather than a duplicate.
func injectionAlreadyPresent(lines []string, anchorIdx int, inj InjectOp) bool {
	switch inj.Where {
	case "before":
		return anchorIdx > 0 && lines[anchorIdx-1] == inj.Snippet
	case "replace":
		return lines[anchorIdx] == inj.Snippet
	default: // "after"
		return anchorIdx+1 < len(lines) && lines[anchorIdx+1] == inj.Snippet
	}
}

func applyCopy(cp CopyOp, dryRun bool) (OpResult, error) {
	if dryRun {
		return OpResult{Path: cp.To, Action: "dry-run", Reason: "would copy from " + cp.From}, nil
	}
	data, err := os.ReadFile(cp.From)
	if err != nil {
		return OpResult{Path: cp.To}, err
	}
	if err := writeFile(cp.To, string(data)); err != nil {
		return OpResult{Path: cp.To}, err
	}
	return OpResult{Path: cp.To, Action: "copied"}, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func appendToFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(content)
	return err
}

// containsSnippet treats the snippet's exact text as its own identity
// hash: an append is a no-op once that text is already present anywhere
// in the file.
func containsSnippet(haystack, snippet string) bool {
	return strings.Contains(haystack, snippet)
}
