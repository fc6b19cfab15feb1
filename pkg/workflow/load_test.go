package workflow

import (
	"testing"

	"github.com/gitvan-dev/gitvan/pkg/quad"
	"github.com/gitvan-dev/gitvan/pkg/store"
	"github.com/stretchr/testify/require"
)

func iri(v string) quad.Term { return quad.IRITerm(v) }

const testPipeline = "https://example.org/pipelines/onCommit"

func buildLinearPipeline(t *testing.T) *store.Snapshot {
	t.Helper()
	st := store.New()
	g := testPipeline
	st.Commit([]quad.Quad{
		{Subject: iri("step:find"), Predicate: iri(quad.RDFType), Object: iri(NS + "SparqlStep"), Graph: g},
		{Subject: iri("step:find"), Predicate: iri(NS + "text"), Object: quad.PlainLiteral("SELECT ?s WHERE { ?s a ex:Thing }"), Graph: g},

		{Subject: iri("step:render"), Predicate: iri(quad.RDFType), Object: iri(NS + "TemplateStep"), Graph: g},
		{Subject: iri("step:render"), Predicate: iri(NS + "dependsOn"), Object: iri("step:find"), Graph: g},
		{Subject: iri("step:render"), Predicate: iri(NS + "template"), Object: quad.PlainLiteral("hello {{ name }}"), Graph: g},
	})
	return st.Snapshot()
}

func TestLoadGroupsPropertiesByStepAndRenamesSparqlText(t *testing.T) {
	snap := buildLinearPipeline(t)
	p, err := Load(snap, testPipeline)
	require.NoError(t, err)
	require.Len(t, p.Steps, 2)

	find := p.Steps["step:find"]
	require.Equal(t, StepSparql, find.Type)
	require.Equal(t, "SELECT ?s WHERE { ?s a ex:Thing }", find.Config["query"])
	require.Equal(t, "abort", find.OnError.Mode)

	render := p.Steps["step:render"]
	require.Equal(t, StepTemplate, render.Type)
	require.Equal(t, []string{"step:find"}, render.DependsOn)
}

func TestLoadRenamesHTTPProperties(t *testing.T) {
	st := store.New()
	g := testPipeline
	st.Commit([]quad.Quad{
		{Subject: iri("step:call"), Predicate: iri(quad.RDFType), Object: iri(NS + "HttpStep"), Graph: g},
		{Subject: iri("step:call"), Predicate: iri(NS + "httpUrl"), Object: quad.PlainLiteral("https://example.org/hook"), Graph: g},
		{Subject: iri("step:call"), Predicate: iri(NS + "httpMethod"), Object: quad.PlainLiteral("POST"), Graph: g},
	})
	p, err := Load(st.Snapshot(), testPipeline)
	require.NoError(t, err)
	call := p.Steps["step:call"]
	require.Equal(t, "https://example.org/hook", call.Config["url"])
	require.Equal(t, "POST", call.Config["method"])
}

func TestLoadUnknownPropertyPassesThrough(t *testing.T) {
	st := store.New()
	g := testPipeline
	st.Commit([]quad.Quad{
		{Subject: iri("step:run"), Predicate: iri(quad.RDFType), Object: iri(NS + "CliStep"), Graph: g},
		{Subject: iri("step:run"), Predicate: iri(NS + "command"), Object: quad.PlainLiteral("echo"), Graph: g},
	})
	p, err := Load(st.Snapshot(), testPipeline)
	require.NoError(t, err)
	require.Equal(t, "echo", p.Steps["step:run"].Config["command"])
}

func TestLoadParsesRetryOnError(t *testing.T) {
	st := store.New()
	g := testPipeline
	st.Commit([]quad.Quad{
		{Subject: iri("step:call"), Predicate: iri(quad.RDFType), Object: iri(NS + "HttpStep"), Graph: g},
		{Subject: iri("step:call"), Predicate: iri(NS + "onError"), Object: quad.PlainLiteral("retry(3, 500)"), Graph: g},
	})
	p, err := Load(st.Snapshot(), testPipeline)
	require.NoError(t, err)
	policy := p.Steps["step:call"].OnError
	require.Equal(t, "retry", policy.Mode)
	require.Equal(t, 3, policy.Retries)
	require.Equal(t, 500, policy.BackoffMs)
}

func TestLoadRejectsDependencyOnUnknownStep(t *testing.T) {
	st := store.New()
	g := testPipeline
	st.Commit([]quad.Quad{
		{Subject: iri("step:a"), Predicate: iri(quad.RDFType), Object: iri(NS + "CliStep"), Graph: g},
		{Subject: iri("step:a"), Predicate: iri(NS + "dependsOn"), Object: iri("step:ghost"), Graph: g},
	})
	_, err := Load(st.Snapshot(), testPipeline)
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestLoadNoStepsErrors(t *testing.T) {
	st := store.New()
	_, err := Load(st.Snapshot(), testPipeline)
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
}
