package hook

import (
	"testing"

	"github.com/gitvan-dev/gitvan/pkg/predicate"
	"github.com/gitvan-dev/gitvan/pkg/quad"
	"github.com/gitvan-dev/gitvan/pkg/store"
	"github.com/stretchr/testify/require"
)

func iri(v string) quad.Term { return quad.IRITerm(v) }

const testHooksGraph = "https://gitvan.dev/graphs/hooks"

func TestLoadFoldsPredicateAndTriggers(t *testing.T) {
	st := store.New()
	st.Commit([]quad.Quad{
		{Subject: iri("hook:onCommit"), Predicate: iri(quad.RDFType), Object: iri(OntologyNS + "Hook"), Graph: testHooksGraph},
		{Subject: iri("hook:onCommit"), Predicate: iri(GraphHookNS + "pipeline"), Object: iri("pipeline:build"), Graph: testHooksGraph},
		{Subject: iri("hook:onCommit"), Predicate: iri(GraphHookNS + "on"), Object: quad.PlainLiteral(EventPostCommit), Graph: testHooksGraph},
		{Subject: iri("hook:onCommit"), Predicate: iri(GraphHookNS + "timer"), Object: quad.PlainLiteral("timer-hourly"), Graph: testHooksGraph},
		{Subject: iri("hook:onCommit"), Predicate: iri(GraphHookNS + "predicateKind"), Object: quad.PlainLiteral("threshold"), Graph: testHooksGraph},
		{Subject: iri("hook:onCommit"), Predicate: iri(GraphHookNS + "query"), Object: quad.PlainLiteral("ASK { ?s ?p ?o }"), Graph: testHooksGraph},
		{Subject: iri("hook:onCommit"), Predicate: iri(GraphHookNS + "variable"), Object: quad.PlainLiteral("count"), Graph: testHooksGraph},
		{Subject: iri("hook:onCommit"), Predicate: iri(GraphHookNS + "op"), Object: quad.PlainLiteral(">"), Graph: testHooksGraph},
		{Subject: iri("hook:onCommit"), Predicate: iri(GraphHookNS + "value"), Object: quad.TypedLiteral("3", quad.XSDInteger), Graph: testHooksGraph},
	})

	hooks, err := Load(st.Snapshot(), testHooksGraph)
	require.NoError(t, err)
	require.Len(t, hooks, 1)

	h := hooks[0]
	require.Equal(t, "pipeline:build", h.PipelineIRI)
	require.Equal(t, []string{EventPostCommit}, h.On)
	require.Equal(t, []string{"timer-hourly"}, h.Timers)
	require.Equal(t, predicate.KindSelectThreshold, h.Predicate.Kind)
	require.Equal(t, "count", h.Predicate.Variable)
	require.Equal(t, predicate.OpGT, h.Predicate.Op)
	require.Equal(t, 3.0, h.Predicate.Value)
	require.False(t, h.Disabled)
}

func TestLoadDefaultsToAskPredicate(t *testing.T) {
	st := store.New()
	st.Commit([]quad.Quad{
		{Subject: iri("hook:simple"), Predicate: iri(quad.RDFType), Object: iri(OntologyNS + "Hook"), Graph: testHooksGraph},
		{Subject: iri("hook:simple"), Predicate: iri(GraphHookNS + "pipeline"), Object: iri("pipeline:one"), Graph: testHooksGraph},
		{Subject: iri("hook:simple"), Predicate: iri(GraphHookNS + "query"), Object: quad.PlainLiteral("ASK { ?s ?p ?o }"), Graph: testHooksGraph},
	})

	hooks, err := Load(st.Snapshot(), testHooksGraph)
	require.NoError(t, err)
	require.Len(t, hooks, 1)
	require.Equal(t, predicate.KindAsk, hooks[0].Predicate.Kind)
}

func TestLoadRejectsHookWithoutPipeline(t *testing.T) {
	st := store.New()
	st.Commit([]quad.Quad{
		{Subject: iri("hook:broken"), Predicate: iri(quad.RDFType), Object: iri(OntologyNS + "Hook"), Graph: testHooksGraph},
	})

	_, err := Load(st.Snapshot(), testHooksGraph)
	require.Error(t, err)
	var defErr *DefinitionError
	require.ErrorAs(t, err, &defErr)
}

func TestLoadDeclaredOrderMatchesFirstAppearance(t *testing.T) {
	st := store.New()
	st.Commit([]quad.Quad{
		{Subject: iri("hook:z"), Predicate: iri(quad.RDFType), Object: iri(OntologyNS + "Hook"), Graph: testHooksGraph},
		{Subject: iri("hook:z"), Predicate: iri(GraphHookNS + "pipeline"), Object: iri("pipeline:z"), Graph: testHooksGraph},
		{Subject: iri("hook:a"), Predicate: iri(quad.RDFType), Object: iri(OntologyNS + "Hook"), Graph: testHooksGraph},
		{Subject: iri("hook:a"), Predicate: iri(GraphHookNS + "pipeline"), Object: iri("pipeline:a"), Graph: testHooksGraph},
	})

	hooks, err := Load(st.Snapshot(), testHooksGraph)
	require.NoError(t, err)
	require.Equal(t, []string{"hook:z", "hook:a"}, []string{hooks[0].IRI, hooks[1].IRI})
}

func TestMapEventSkipsDisabledAndUnmatched(t *testing.T) {
	hooks := []*Hook{
		{IRI: "hook:a", On: []string{EventPostCommit}},
		{IRI: "hook:b", On: []string{EventPrePush}},
		{IRI: "hook:c", On: []string{EventPostCommit}, Disabled: true},
	}
	matched := MapEvent(hooks, EventPostCommit)
	require.Len(t, matched, 1)
	require.Equal(t, "hook:a", matched[0].IRI)
}
