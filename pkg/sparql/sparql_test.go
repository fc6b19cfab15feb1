package sparql

import (
	"testing"

	"github.com/gitvan-dev/gitvan/pkg/quad"
	"github.com/gitvan-dev/gitvan/pkg/store"
	"github.com/stretchr/testify/require"
)

func iri(v string) quad.Term { return quad.IRITerm(v) }

func buildSnapshot(t *testing.T) *store.Snapshot {
	t.Helper()
	st := store.New()
	st.Commit([]quad.Quad{
		{Subject: iri("ex:alice"), Predicate: iri("ex:name"), Object: quad.PlainLiteral("Alice")},
		{Subject: iri("ex:alice"), Predicate: iri("ex:age"), Object: quad.TypedLiteral("30", quad.XSDInteger)},
		{Subject: iri("ex:alice"), Predicate: iri("ex:knows"), Object: iri("ex:bob")},
		{Subject: iri("ex:bob"), Predicate: iri("ex:name"), Object: quad.PlainLiteral("Bob")},
		{Subject: iri("ex:bob"), Predicate: iri("ex:age"), Object: quad.TypedLiteral("25", quad.XSDInteger)},
		{Subject: iri("ex:bob"), Predicate: iri("ex:knows"), Object: iri("ex:carol")},
		{Subject: iri("ex:carol"), Predicate: iri("ex:name"), Object: quad.PlainLiteral("Carol")},
	})
	return st.Snapshot()
}

func TestSelectBasicBGP(t *testing.T) {
	snap := buildSnapshot(t)
	q, err := Parse(`
PREFIX ex: <ex:>
SELECT ?s ?name WHERE { ?s ex:name ?name }
ORDER BY ?name
`)
	require.NoError(t, err)
	rows, err := Select(snap, q)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "Alice", rows[0]["name"].Value)
	require.Equal(t, "Bob", rows[1]["name"].Value)
	require.Equal(t, "Carol", rows[2]["name"].Value)
}

func TestAskTrueAndFalse(t *testing.T) {
	snap := buildSnapshot(t)
	q, err := Parse(`PREFIX ex: <ex:> ASK { ex:alice ex:knows ex:bob }`)
	require.NoError(t, err)
	ok, err := Ask(snap, q)
	require.NoError(t, err)
	require.True(t, ok)

	q2, err := Parse(`PREFIX ex: <ex:> ASK { ex:alice ex:knows ex:carol }`)
	require.NoError(t, err)
	ok2, err := Ask(snap, q2)
	require.NoError(t, err)
	require.False(t, ok2)
}

func TestSelectFilterNumeric(t *testing.T) {
	snap := buildSnapshot(t)
	q, err := Parse(`
PREFIX ex: <ex:>
SELECT ?s WHERE { ?s ex:age ?age . FILTER(?age > 26) }
`)
	require.NoError(t, err)
	rows, err := Select(snap, q)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "ex:alice", rows[0]["s"].Value)
}

func TestSelectOptional(t *testing.T) {
	snap := buildSnapshot(t)
	q, err := Parse(`
PREFIX ex: <ex:>
SELECT ?s ?nick WHERE { ?s ex:name ?n . OPTIONAL { ?s ex:nickname ?nick } }
`)
	require.NoError(t, err)
	rows, err := Select(snap, q)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, r := range rows {
		_, ok := r["nick"]
		require.False(t, ok)
	}
}

func TestSelectUnion(t *testing.T) {
	snap := buildSnapshot(t)
	q, err := Parse(`
PREFIX ex: <ex:>
SELECT ?s WHERE { { ?s ex:age "30"^^<http://www.w3.org/2001/XMLSchema#integer> } UNION { ?s ex:age "25"^^<http://www.w3.org/2001/XMLSchema#integer> } }
`)
	require.NoError(t, err)
	rows, err := Select(snap, q)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestSelectPropertyPathPlus(t *testing.T) {
	snap := buildSnapshot(t)
	q, err := Parse(`
PREFIX ex: <ex:>
SELECT ?reachable WHERE { ex:alice ex:knows+ ?reachable }
`)
	require.NoError(t, err)
	rows, err := Select(snap, q)
	require.NoError(t, err)
	var vals []string
	for _, r := range rows {
		vals = append(vals, r["reachable"].Value)
	}
	require.ElementsMatch(t, []string{"ex:bob", "ex:carol"}, vals)
}

func TestSelectAggregateCount(t *testing.T) {
	snap := buildSnapshot(t)
	q, err := Parse(`
PREFIX ex: <ex:>
SELECT (COUNT(?s) AS ?c) WHERE { ?s ex:name ?n }
`)
	require.NoError(t, err)
	rows, err := Select(snap, q)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "3", rows[0]["c"].Value)
}

func TestSelectLimitOffset(t *testing.T) {
	snap := buildSnapshot(t)
	q, err := Parse(`
PREFIX ex: <ex:>
SELECT ?s WHERE { ?s ex:name ?n } ORDER BY ?n LIMIT 1 OFFSET 1
`)
	require.NoError(t, err)
	rows, err := Select(snap, q)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "ex:bob", rows[0]["s"].Value)
}

func TestParseUndefinedPrefixIsQueryError(t *testing.T) {
	_, err := Parse(`SELECT ?s WHERE { ?s ex:name ?n }`)
	require.Error(t, err)
	var qe *QueryError
	require.ErrorAs(t, err, &qe)
}

func TestConstructDeduplicates(t *testing.T) {
	snap := buildSnapshot(t)
	q, err := Parse(`
PREFIX ex: <ex:>
CONSTRUCT { ?s ex:hasName ?n } WHERE { ?s ex:name ?n }
`)
	require.NoError(t, err)
	quads, err := Construct(snap, q)
	require.NoError(t, err)
	require.Len(t, quads, 3)
}
