package execctx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gitvan-dev/gitvan/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "gitvan.config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaultsWhenFileMissing(t *testing.T) {
	dir := testutil.TempDir(t, "execctx-config")
	cfg, err := Load(filepath.Join(dir, "does-not-exist.yaml"))
	require.NoError(t, err)
	require.Equal(t, ".", cfg.ProjectRoot)
	require.Equal(t, "refs/notes/gitvan/receipts", cfg.NotesRef)
	require.Equal(t, 4, cfg.WorkerCount)
	require.Equal(t, 10000, cfg.QueueMax)
	require.Equal(t, 5000, cfg.DefaultTimeoutMs)
}

func TestLoadParsesYAMLFields(t *testing.T) {
	dir := testutil.TempDir(t, "execctx-config")
	path := writeConfig(t, dir, "projectRoot: /repo\nworkerCount: 8\nshellAllowList:\n  - git\n  - echo\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/repo", cfg.ProjectRoot)
	require.Equal(t, 8, cfg.WorkerCount)
	require.Equal(t, []string{"git", "echo"}, cfg.ShellAllowList)
}

func TestLoadWarnsOnUnrecognizedKey(t *testing.T) {
	dir := testutil.TempDir(t, "execctx-config")
	path := writeConfig(t, dir, "projectRoot: /repo\nbogusKey: 1\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Warnings, 1)
}

func TestLoadEnvOverridesFileValue(t *testing.T) {
	dir := testutil.TempDir(t, "execctx-config")
	path := writeConfig(t, dir, "workerCount: 2\n")
	t.Setenv("GITVAN_WORKER_COUNT", "16")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 16, cfg.WorkerCount)
}

func TestLoadRejectsWrongTypeViaSchema(t *testing.T) {
	dir := testutil.TempDir(t, "execctx-config")
	path := writeConfig(t, dir, "workerCount: \"not-a-number\"\n")
	_, err := Load(path)
	require.Error(t, err)
}
