package gitbackend

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/gitvan-dev/gitvan/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func initTestRepo(t *testing.T) string {
	t.Helper()
	dir := testutil.TempDir(t, "gitbackend-*")

	run := func(args ...string) {
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		require.NoError(t, cmd.Run(), "git %v", args)
	}
	gitInit := exec.Command("git", "init")
	gitInit.Dir = dir
	require.NoError(t, gitInit.Run())

	run("config", "user.name", "Test User")
	run("config", "user.email", "test@example.com")

	readme := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(readme, []byte("# test\n"), 0o644))
	run("add", ".")
	run("commit", "-m", "initial commit")

	return dir
}

func TestBackendHeadAndBranch(t *testing.T) {
	dir := initTestRepo(t)
	b, err := New(dir, nil)
	require.NoError(t, err)

	head, err := b.Head()
	require.NoError(t, err)
	require.Len(t, head, 40)

	branch, err := b.Branch()
	require.NoError(t, err)
	require.NotEmpty(t, branch)
}

func TestBackendIsCleanAfterCommit(t *testing.T) {
	dir := initTestRepo(t)
	b, err := New(dir, nil)
	require.NoError(t, err)

	clean, err := b.IsClean()
	require.NoError(t, err)
	require.True(t, clean)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x"), 0o644))
	clean, err = b.IsClean()
	require.NoError(t, err)
	require.False(t, clean)
}

func TestBackendAddAndCommit(t *testing.T) {
	dir := initTestRepo(t)
	b, err := New(dir, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x"), 0o644))
	require.NoError(t, b.Add([]string{"new.txt"}))
	sha, err := b.Commit("add new.txt", CommitOptions{})
	require.NoError(t, err)
	require.Len(t, sha, 40)
}

func TestBackendLogReturnsCommits(t *testing.T) {
	dir := initTestRepo(t)
	b, err := New(dir, nil)
	require.NoError(t, err)

	commits, err := b.Log(LogOptions{})
	require.NoError(t, err)
	require.Len(t, commits, 1)
	require.Equal(t, "initial commit\n", commits[0].Message)
}

func TestBackendNotesAppendAndList(t *testing.T) {
	dir := initTestRepo(t)
	b, err := New(dir, nil)
	require.NoError(t, err)

	head, err := b.Head()
	require.NoError(t, err)

	require.NoError(t, b.NotesAppend("refs/notes/gitvan/receipts", head, `{"hookId":"ex:h1"}`))

	entries, err := b.NotesList("refs/notes/gitvan/receipts")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Contains(t, entries[0].Payload, "ex:h1")
}

func TestBackendRefLockAndReleaseRoundTrip(t *testing.T) {
	dir := initTestRepo(t)
	b, err := New(dir, nil)
	require.NoError(t, err)

	lease, err := b.RefLock("refs/gitvan/lock/test")
	require.NoError(t, err)
	require.NoError(t, b.RefRelease(lease))

	// Should be acquirable again after release.
	lease2, err := b.RefLock("refs/gitvan/lock/test")
	require.NoError(t, err)
	require.NoError(t, b.RefRelease(lease2))
}

func TestBackendRefLockContentionFailsFast(t *testing.T) {
	dir := initTestRepo(t)
	b, err := New(dir, nil)
	require.NoError(t, err)

	lease, err := b.RefLock("refs/gitvan/lock/contended")
	require.NoError(t, err)
	defer b.RefRelease(lease)

	_, err = b.RefLock("refs/gitvan/lock/contended")
	require.ErrorIs(t, err, ErrLockContended)
}
