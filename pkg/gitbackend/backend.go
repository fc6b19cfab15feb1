package gitbackend

import (
	"errors"
	"sort"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/gitvan-dev/gitvan/pkg/logger"
)

// errStopIteration breaks out of a commit walk once MaxCount is hit.
var errStopIteration = errors.New("gitbackend: stop log iteration")

var log = logger.New("gitbackend:backend")

// Commit is one entry from Log.
type Commit struct {
	SHA     string
	Author  string
	Email   string
	When    time.Time
	Message string
}

// LogOptions filters Log.
type LogOptions struct {
	MaxCount int
	Author   string
	Since    time.Time
}

// NoteEntry is one decoded entry from NotesList.
type NoteEntry struct {
	ObjectSHA string
	Payload   string
}

// Backend scopes every operation to a single working tree.
type Backend struct {
	root string
	env  map[string]string
}

// New opens the git repository rooted at dir. dir must contain (or be
// inside) a `.git` directory; worktrees and bare repos are both
// supported since go-git follows gitdir files transparently.
func New(dir string, env map[string]string) (*Backend, error) {
	if _, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true}); err != nil {
		return nil, &GitError{Args: []string{"open", dir}, Stderr: err.Error()}
	}
	return &Backend{root: dir, env: env}, nil
}

// Root returns the configured working tree root.
func (b *Backend) Root() string { return b.root }

func (b *Backend) open() (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(b.root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, &GitError{Args: []string{"open", b.root}, Stderr: err.Error()}
	}
	return repo, nil
}

// Head returns the current commit SHA.
func (b *Backend) Head() (string, error) {
	repo, err := b.open()
	if err != nil {
		return "", err
	}
	ref, err := repo.Head()
	if err != nil {
		return "", &GitError{Args: []string{"rev-parse", "HEAD"}, Stderr: err.Error()}
	}
	return ref.Hash().String(), nil
}

// Branch returns the current branch's short name.
func (b *Backend) Branch() (string, error) {
	repo, err := b.open()
	if err != nil {
		return "", err
	}
	ref, err := repo.Head()
	if err != nil {
		return "", &GitError{Args: []string{"branch", "--show-current"}, Stderr: err.Error()}
	}
	return ref.Name().Short(), nil
}

// Log returns up to opts.MaxCount commits reachable from HEAD,
// optionally filtered by author substring and earliest timestamp.
func (b *Backend) Log(opts LogOptions) ([]Commit, error) {
	repo, err := b.open()
	if err != nil {
		return nil, err
	}
	head, err := repo.Head()
	if err != nil {
		return nil, &GitError{Args: []string{"log"}, Stderr: err.Error()}
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, &GitError{Args: []string{"log"}, Stderr: err.Error()}
	}
	defer iter.Close()

	var out []Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if opts.MaxCount > 0 && len(out) >= opts.MaxCount {
			return errStopIteration
		}
		if opts.Author != "" && c.Author.Name != opts.Author && c.Author.Email != opts.Author {
			return nil
		}
		if !opts.Since.IsZero() && c.Author.When.Before(opts.Since) {
			return nil
		}
		out = append(out, Commit{
			SHA:     c.Hash.String(),
			Author:  c.Author.Name,
			Email:   c.Author.Email,
			When:    c.Author.When,
			Message: c.Message,
		})
		return nil
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		return nil, &GitError{Args: []string{"log"}, Stderr: err.Error()}
	}
	return out, nil
}

// StatusPorcelain returns the working tree status in `git status
// --porcelain` form.
func (b *Backend) StatusPorcelain() (string, error) {
	repo, err := b.open()
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", &GitError{Args: []string{"status"}, Stderr: err.Error()}
	}
	status, err := wt.Status()
	if err != nil {
		return "", &GitError{Args: []string{"status"}, Stderr: err.Error()}
	}
	paths := make([]string, 0, len(status))
	for p := range status {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	var out string
	for _, p := range paths {
		fs := status[p]
		out += string(fs.Staging) + string(fs.Worktree) + " " + p + "\n"
	}
	return out, nil
}

// IsClean reports whether the working tree has no pending changes.
func (b *Backend) IsClean() (bool, error) {
	repo, err := b.open()
	if err != nil {
		return false, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return false, &GitError{Args: []string{"status"}, Stderr: err.Error()}
	}
	status, err := wt.Status()
	if err != nil {
		return false, &GitError{Args: []string{"status"}, Stderr: err.Error()}
	}
	return status.IsClean(), nil
}
