package hook

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/gitvan-dev/gitvan/pkg/gitbackend"
	"github.com/gitvan-dev/gitvan/pkg/predicate"
	"github.com/gitvan-dev/gitvan/pkg/quad"
	"github.com/gitvan-dev/gitvan/pkg/store"
	"github.com/gitvan-dev/gitvan/pkg/testutil"
	"github.com/gitvan-dev/gitvan/pkg/workflow"
	"github.com/stretchr/testify/require"
)

func initEvalRepo(t *testing.T) string {
	t.Helper()
	dir := testutil.TempDir(t, "hook-evaluate")

	run := func(args ...string) {
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		require.NoError(t, cmd.Run(), "git %v", args)
	}
	gitInit := exec.Command("git", "init")
	gitInit.Dir = dir
	require.NoError(t, gitInit.Run())
	run("config", "user.name", "Test User")
	run("config", "user.email", "test@example.com")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# test\n"), 0o644))
	run("add", ".")
	run("commit", "-m", "initial commit")
	return dir
}

func TestEvaluateWritesReceiptWhenPredicateFires(t *testing.T) {
	dir := initEvalRepo(t)
	backend, err := gitbackend.New(dir, nil)
	require.NoError(t, err)

	const pipelineIRI = "https://example.org/pipelines/onFire"
	st := store.New()
	st.Commit([]quad.Quad{
		{Subject: quad.IRITerm("ex:thing"), Predicate: quad.IRITerm(quad.RDFType), Object: quad.IRITerm("ex:Thing"), Graph: "ex:data"},

		{Subject: quad.IRITerm("step:render"), Predicate: quad.IRITerm(quad.RDFType), Object: quad.IRITerm(workflow.NS + "TemplateStep"), Graph: pipelineIRI},
		{Subject: quad.IRITerm("step:render"), Predicate: quad.IRITerm(workflow.NS + "template"), Object: quad.PlainLiteral("fired"), Graph: pipelineIRI},
	})

	h := &Hook{
		IRI:         "hook:onFire",
		PipelineIRI: pipelineIRI,
		Predicate: predicate.Definition{
			Kind:  predicate.KindAsk,
			Query: `PREFIX ex: <ex:> ASK { ?s a ex:Thing }`,
		},
	}

	dataDir := testutil.TempDir(t, "hook-evaluate-handlers")
	opts := EvalOptions{
		Snapshot: st.Snapshot(),
		Backend:  backend,
		HandlerOpts: workflow.HandlerOptions{
			Snapshot:    st.Snapshot(),
			ProjectRoot: dataDir,
		},
	}

	receipt, update, err := Evaluate(context.Background(), h, opts)
	require.NoError(t, err)
	require.Nil(t, update)
	require.True(t, receipt.Predicate.Verdict)
	require.Equal(t, "ask", receipt.Predicate.Kind)
	require.Len(t, receipt.Pipeline, 1)
	require.Equal(t, "ok", receipt.Pipeline[0].Status)
	require.NotEmpty(t, receipt.Commit)

	require.NoError(t, EmitReceipt(backend, "refs/notes/gitvan/receipts", receipt))

	notes, err := backend.NotesList("refs/notes/gitvan/receipts")
	require.NoError(t, err)
	require.Len(t, notes, 1)

	var decoded Receipt
	require.NoError(t, json.Unmarshal([]byte(notes[0].Payload), &decoded))
	require.Equal(t, h.IRI, decoded.HookID)
}

func TestEvaluateSkipsPipelineWhenPredicateDoesNotFire(t *testing.T) {
	dir := initEvalRepo(t)
	backend, err := gitbackend.New(dir, nil)
	require.NoError(t, err)

	st := store.New()
	snap := st.Snapshot()

	h := &Hook{
		IRI:         "hook:quiet",
		PipelineIRI: "https://example.org/pipelines/never",
		Predicate: predicate.Definition{
			Kind:  predicate.KindAsk,
			Query: `ASK { ?s ?p ?o }`,
		},
	}

	receipt, update, err := Evaluate(context.Background(), h, EvalOptions{
		Snapshot: snap,
		Backend:  backend,
	})
	require.NoError(t, err)
	require.Nil(t, update)
	require.False(t, receipt.Predicate.Verdict)
	require.Empty(t, receipt.Pipeline)
}

func TestEvaluateResultDeltaReturnsBaselineUpdate(t *testing.T) {
	dir := initEvalRepo(t)
	backend, err := gitbackend.New(dir, nil)
	require.NoError(t, err)

	st := store.New()
	st.Commit([]quad.Quad{
		{Subject: quad.IRITerm("ex:a"), Predicate: quad.IRITerm("ex:tag"), Object: quad.PlainLiteral("v1"), Graph: "ex:data"},
	})

	h := &Hook{
		IRI:         "hook:delta",
		PipelineIRI: "https://example.org/pipelines/ondelta",
		Predicate: predicate.Definition{
			Kind:         predicate.KindResultDelta,
			Query:        `PREFIX ex: <ex:> SELECT ?s ?t WHERE { ?s ex:tag ?t }`,
			KeyVariables: []string{"s", "t"},
			BaselineID:   "delta-test",
		},
	}

	receipt, update, err := Evaluate(context.Background(), h, EvalOptions{
		Snapshot:  st.Snapshot(),
		Backend:   backend,
		Baselines: fakeEmptyBaselines{},
	})
	require.NoError(t, err)
	require.True(t, receipt.Predicate.Verdict, "first evaluation with no baseline must fire")
	require.NotNil(t, update)
	require.Equal(t, "delta-test", update.BaselineID)
	require.NotEmpty(t, update.Hash)
}

type fakeEmptyBaselines struct{}

func (fakeEmptyBaselines) Get(string) (string, bool) { return "", false }
