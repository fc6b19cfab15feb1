package template

import (
	"path/filepath"
	"strings"
)

// WriteOp writes rendered content to a path.
type WriteOp struct {
	Path  string
	Content string
	Force string // error | overwrite | append | skipIfExists
}

// InjectOp inserts or replaces a line adjacent to an anchor.
type InjectOp struct {
	Into    string
	Snippet string
	Find    string
	Where   string // before | after | replace
	Once    bool
}

// CopyOp copies a file from one path to another relative to the
// project root.
type CopyOp struct {
	From string
	To   string
}

// FilePlan is the pure, side-effect-free result of planning a
// template against a variable context. Apply executes it.
type FilePlan struct {
	Skipped     bool
	SkipReason  string
	Writes      []WriteOp
	Injects     []InjectOp
	Copies      []CopyOp
	ShellBefore []string
	ShellAfter  []string
}

// Plan renders a raw template source (front-matter plus body) against
// vars and produces a FilePlan. It performs no filesystem I/O.
func Plan(rawSrc string, vars Vars, projectRoot string) (*FilePlan, error) {
	fm, body, err := SplitFrontMatter(rawSrc)
	if err != nil {
		return nil, err
	}
	if fm != nil && fm.When != "" {
		cond, err := parseCondition(fm.When)
		if err != nil {
			return nil, err
		}
		ok, err := evalCondition(cond, vars)
		if err != nil {
			return nil, err
		}
		if !ok {
			return &FilePlan{Skipped: true, SkipReason: "when evaluated false"}, nil
		}
	}

	tpl, err := ParseTemplate(body)
	if err != nil {
		return nil, err
	}
	content, err := Render(tpl, vars)
	if err != nil {
		return nil, err
	}

	if fm == nil {
		return &FilePlan{}, nil
	}

	plan := &FilePlan{
		ShellBefore: fm.Sh.Before,
		ShellAfter:  fm.Sh.After,
	}

	for _, to := range fm.To {
		resolvedPath, err := renderPathExpr(to, vars)
		if err != nil {
			return nil, err
		}
		absPath, err := sandboxPath(projectRoot, resolvedPath)
		if err != nil {
			return nil, err
		}
		plan.Writes = append(plan.Writes, WriteOp{Path: absPath, Content: content, Force: fm.Force})
	}

	for _, inj := range fm.Inject {
		into, err := renderPathExpr(inj.Into, vars)
		if err != nil {
			return nil, err
		}
		absInto, err := sandboxPath(projectRoot, into)
		if err != nil {
			return nil, err
		}
		snippet, err := renderPathExpr(inj.Snippet, vars)
		if err != nil {
			return nil, err
		}
		find, err := renderPathExpr(inj.Find, vars)
		if err != nil {
			return nil, err
		}
		once := true
		if inj.Once != nil {
			once = *inj.Once
		}
		plan.Injects = append(plan.Injects, InjectOp{
			Into:    absInto,
			Snippet: snippet,
			Find:    find,
			Where:   inj.Where,
			Once:    once,
		})
	}

	for _, cp := range fm.Copy {
		from, err := renderPathExpr(cp.From, vars)
		if err != nil {
			return nil, err
		}
		to, err := renderPathExpr(cp.To, vars)
		if err != nil {
			return nil, err
		}
		absFrom, err := sandboxPath(projectRoot, from)
		if err != nil {
			return nil, err
		}
		absTo, err := sandboxPath(projectRoot, to)
		if err != nil {
			return nil, err
		}
		plan.Copies = append(plan.Copies, CopyOp{From: absFrom, To: absTo})
	}

	return plan, nil
}

// renderPathExpr renders a front-matter string field (path, snippet,
// find anchor) as a template fragment, since these "permit template
// variables" per spec.
func renderPathExpr(s string, vars Vars) (string, error) {
	if s == "" || !strings.Contains(s, "{{") {
		return s, nil
	}
	tpl, err := ParseTemplate(s)
	if err != nil {
		return "", err
	}
	return Render(tpl, vars)
}

func sandboxPath(projectRoot, rel string) (string, error) {
	abs := filepath.Join(projectRoot, rel)
	cleanRoot := filepath.Clean(projectRoot)
	cleanAbs := filepath.Clean(abs)
	if cleanAbs != cleanRoot && !strings.HasPrefix(cleanAbs, cleanRoot+string(filepath.Separator)) {
		return "", &PathEscapeError{Path: rel}
	}
	return cleanAbs, nil
}
