package gitbackend

import (
	"bytes"
	"os/exec"
	"strings"
)

// run invokes `git <args...>` in the backend's working tree with a
// deterministic environment (TZ=UTC, LANG=C merged with the scoped
// execution context), capturing stdout/stderr.
func (b *Backend) run(args ...string) (string, error) {
	cmd := exec.Command("git", append([]string{"-C", b.root}, args...)...)
	cmd.Env = b.buildEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Printf("git %s", strings.Join(args, " "))
	err := cmd.Run()
	if err != nil && stderr.Len() > 0 {
		return "", &GitError{Args: args, Stderr: stderr.String()}
	}
	if err != nil {
		return "", &GitError{Args: args, Stderr: err.Error()}
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (b *Backend) buildEnv() []string {
	env := []string{"TZ=UTC", "LANG=C"}
	for k, v := range b.env {
		env = append(env, k+"="+v)
	}
	return env
}

// Add stages the given paths.
func (b *Backend) Add(paths []string) error {
	_, err := b.run(append([]string{"add"}, paths...)...)
	return err
}

// CommitOptions configures a commit's authorship and environment.
type CommitOptions struct {
	Author string
	Email  string
	Env    map[string]string
}

// Commit records a commit with the given message.
func (b *Backend) Commit(message string, opts CommitOptions) (string, error) {
	args := []string{"commit", "-m", message}
	if opts.Author != "" {
		args = append(args, "--author", opts.Author+" <"+opts.Email+">")
	}
	if _, err := b.run(args...); err != nil {
		return "", err
	}
	return b.Head()
}

// Tag creates a tag, annotated if msg is non-empty.
func (b *Backend) Tag(name, msg string) error {
	args := []string{"tag"}
	if msg != "" {
		args = append(args, "-a", name, "-m", msg)
	} else {
		args = append(args, name)
	}
	_, err := b.run(args...)
	return err
}

// Checkout switches the working tree to ref.
func (b *Backend) Checkout(ref string) error {
	_, err := b.run("checkout", ref)
	return err
}

// BranchCreate creates a new branch at HEAD.
func (b *Backend) BranchCreate(name string) error {
	_, err := b.run("branch", name)
	return err
}

// BranchDelete deletes a branch, forcing if requested.
func (b *Backend) BranchDelete(name string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	_, err := b.run("branch", flag, name)
	return err
}

// NotesAppend records payload as a note on ref, keyed under the note
// object attached to key (typically a commit SHA).
func (b *Backend) NotesAppend(ref, key, payload string) error {
	_, err := b.run("notes", "--ref", ref, "append", "-m", payload, key)
	return err
}

// NotesList returns every note entry under ref.
func (b *Backend) NotesList(ref string) ([]NoteEntry, error) {
	out, err := b.run("notes", "--ref", ref, "list")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	var entries []NoteEntry
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		noteSHA, objSHA := fields[0], fields[1]
		payload, err := b.run("notes", "--ref", ref, "show", objSHA)
		if err != nil {
			continue
		}
		_ = noteSHA
		entries = append(entries, NoteEntry{ObjectSHA: objSHA, Payload: payload})
	}
	return entries, nil
}

// WorktreeList returns every registered worktree's absolute path.
func (b *Backend) WorktreeList() ([]string, error) {
	out, err := b.run("worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "worktree ") {
			paths = append(paths, strings.TrimPrefix(line, "worktree "))
		}
	}
	return paths, nil
}

// WorktreeAdd registers a new worktree at path for branch.
func (b *Backend) WorktreeAdd(path, branch string) error {
	_, err := b.run("worktree", "add", path, branch)
	return err
}

// WorktreeCurrent returns the absolute path of the worktree this
// Backend is scoped to.
func (b *Backend) WorktreeCurrent() (string, error) {
	return b.run("rev-parse", "--show-toplevel")
}

// WorktreeKey returns a stable identifier for the current worktree,
// used to scope receipts and locks per worktree.
func (b *Backend) WorktreeKey() (string, error) {
	gitDir, err := b.run("rev-parse", "--git-dir")
	if err != nil {
		return "", err
	}
	return gitDir, nil
}
