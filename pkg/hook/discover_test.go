package hook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gitvan-dev/gitvan/pkg/quad"
	"github.com/gitvan-dev/gitvan/pkg/store"
	"github.com/gitvan-dev/gitvan/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDiscoverIngestsTurtleIntoHooksGraph(t *testing.T) {
	dir := testutil.TempDir(t, "hook-discover")
	writeFile(t, filepath.Join(dir, "onCommit.ttl"), `
@prefix hook: <`+OntologyNS+`> .
@prefix gh: <`+GraphHookNS+`> .
<hook:onCommit> a hook:Hook ;
    gh:pipeline <pipeline:build> ;
    gh:on "post-commit" .
`)

	st := store.New()
	n, err := Discover(st, dir, testHooksGraph)
	require.NoError(t, err)
	require.Greater(t, n, 0)

	hooks, err := Load(st.Snapshot(), testHooksGraph)
	require.NoError(t, err)
	require.Len(t, hooks, 1)
	require.Equal(t, "hook:onCommit", hooks[0].IRI)
	require.Equal(t, "pipeline:build", hooks[0].PipelineIRI)
}

func TestDiscoverGraphsPreservesExplicitGraphTerm(t *testing.T) {
	dir := testutil.TempDir(t, "hook-discover-graphs")
	writeFile(t, filepath.Join(dir, "pipeline.nq"), `
<step:one> <`+quad.RDFType+`> <https://gitvan.dev/ns#FileStep> <https://example.org/pipelines/p1> .
`)

	st := store.New()
	n, err := DiscoverGraphs(st, dir)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	snap := st.Snapshot()
	graph := "https://example.org/pipelines/p1"
	quads := snap.Match(nil, nil, nil, &graph)
	require.Len(t, quads, 1)
}

func TestDiscoverSkipsNonTurtleFiles(t *testing.T) {
	dir := testutil.TempDir(t, "hook-discover-empty")
	writeFile(t, filepath.Join(dir, "notes.txt"), "not turtle")

	st := store.New()
	n, err := Discover(st, dir, testHooksGraph)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}
