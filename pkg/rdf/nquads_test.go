package rdf

import (
	"testing"

	"github.com/gitvan-dev/gitvan/pkg/quad"
	"github.com/stretchr/testify/require"
)

func TestParseNQuadsRoundTrip(t *testing.T) {
	src := `<http://example.org/alice> <http://example.org/name> "Alice" .
<http://example.org/alice> <http://example.org/age> "30"^^<http://www.w3.org/2001/XMLSchema#integer> .
<http://example.org/alice> <http://example.org/knows> <http://example.org/bob> <http://example.org/graph1> .
`
	quads, err := ParseNQuads(src, "test.nq")
	require.NoError(t, err)
	require.Len(t, quads, 3)

	require.Equal(t, "Alice", quads[0].Object.Value)
	require.Equal(t, quad.DefaultGraph, quads[0].Graph)

	require.Equal(t, quad.XSDInteger, quads[1].Object.Datatype)

	require.Equal(t, "http://example.org/graph1", quads[2].Graph)
	require.True(t, quads[2].Object.IsIRI())

	out := WriteNQuads(quads)
	reparsed, err := ParseNQuads(out, "roundtrip.nq")
	require.NoError(t, err)
	require.Len(t, reparsed, 3)
	for i := range quads {
		require.True(t, quads[i].Equal(reparsed[i]), "quad %d should round-trip", i)
	}
}

func TestParseNQuadsSkipsCommentsAndBlankLines(t *testing.T) {
	src := "\n# a comment\n<http://a> <http://b> <http://c> .\n\n"
	quads, err := ParseNQuads(src, "test.nq")
	require.NoError(t, err)
	require.Len(t, quads, 1)
}

func TestParseNQuadsBadArity(t *testing.T) {
	src := `<http://a> <http://b> .`
	_, err := ParseNQuads(src, "bad.nq")
	require.Error(t, err)
}
