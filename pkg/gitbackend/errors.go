// Package gitbackend abstracts the external Git process used for
// content addressing, receipt notes, and ref-locking (spec §4.6). Read
// operations go through go-git against the on-disk repository; writes,
// notes, and locks shell out to the `git` binary the way the teacher's
// CLI wrapper shells out to `gh`, since go-git has no atomic ref-CAS or
// notes primitive.
package gitbackend

import (
	"errors"
	"fmt"
	"strings"
)

// GitError reports a failed git invocation: non-zero exit with
// non-empty stderr.
type GitError struct {
	Args   []string
	Stderr string
}

func (e *GitError) Error() string {
	return fmt.Sprintf("git %s: %s", strings.Join(e.Args, " "), strings.TrimSpace(e.Stderr))
}

// ErrLockContended is returned by RefLock when another process or
// worktree already holds the named ref lock.
var ErrLockContended = errors.New("gitbackend: ref lock contended")
