package rdf

import (
	"testing"

	"github.com/gitvan-dev/gitvan/pkg/quad"
	"github.com/stretchr/testify/require"
)

func TestParseTurtleBasicTriples(t *testing.T) {
	src := `
@prefix ex: <http://example.org/> .
ex:alice a ex:Person ;
    ex:name "Alice" ;
    ex:age 30 ;
    ex:knows ex:bob, ex:carol .
`
	quads, err := ParseTurtle(src, "test.ttl")
	require.NoError(t, err)
	require.Len(t, quads, 5)

	require.Equal(t, "http://example.org/alice", quads[0].Subject.Value)
	require.Equal(t, quad.RDFType, quads[0].Predicate.Value)
	require.Equal(t, "http://example.org/Person", quads[0].Object.Value)

	nameQuad := quads[1]
	require.Equal(t, "Alice", nameQuad.Object.Value)
	require.True(t, nameQuad.Object.IsLiteral())

	ageQuad := quads[2]
	require.Equal(t, quad.XSDInteger, ageQuad.Object.Datatype)

	require.Equal(t, "http://example.org/bob", quads[3].Object.Value)
	require.Equal(t, "http://example.org/carol", quads[4].Object.Value)
}

func TestParseTurtleLiteralForms(t *testing.T) {
	src := `
@prefix ex: <http://example.org/> .
ex:s ex:label "hello"@en ;
     ex:score "3.14"^^<http://www.w3.org/2001/XMLSchema#decimal> ;
     ex:active true .
`
	quads, err := ParseTurtle(src, "test.ttl")
	require.NoError(t, err)
	require.Len(t, quads, 3)
	require.Equal(t, "en", quads[0].Object.Lang)
	require.Equal(t, quad.XSDDecimal, quads[1].Object.Datatype)
	require.Equal(t, "true", quads[2].Object.Value)
	require.Equal(t, quad.XSDBoolean, quads[2].Object.Datatype)
}

func TestParseTurtleBlankNodeScoping(t *testing.T) {
	src := `
@prefix ex: <http://example.org/> .
_:x ex:p ex:o1 .
_:x ex:p ex:o2 .
`
	quads, err := ParseTurtle(src, "test.ttl")
	require.NoError(t, err)
	require.Len(t, quads, 2)
	require.Equal(t, quads[0].Subject.Value, quads[1].Subject.Value)

	// Re-parsing the same source must not reuse blank node identity from
	// the previous parse.
	again, err := ParseTurtle(src, "test.ttl")
	require.NoError(t, err)
	require.NotEqual(t, quads[0].Subject.Value, again[0].Subject.Value)
}

func TestParseTurtleBlankNodePropertyList(t *testing.T) {
	src := `
@prefix ex: <http://example.org/> .
ex:s ex:p [ ex:q ex:r ] .
`
	quads, err := ParseTurtle(src, "test.ttl")
	require.NoError(t, err)
	require.Len(t, quads, 2)
	// The bracketed triple is emitted before the triple that refers to it.
	require.True(t, quads[1].Object.IsBlank())
	require.Equal(t, quads[1].Object.Value, quads[0].Subject.Value)
}

func TestParseTurtleUndefinedPrefixIsSyntaxError(t *testing.T) {
	src := `ex:s ex:p ex:o .`
	_, err := ParseTurtle(src, "bad.ttl")
	require.Error(t, err)
	var synErr *SyntaxError
	require.ErrorAs(t, err, &synErr)
}

func TestParseTurtleUnterminatedString(t *testing.T) {
	src := `@prefix ex: <http://example.org/> .
ex:s ex:p "unterminated .`
	_, err := ParseTurtle(src, "bad.ttl")
	require.Error(t, err)
}
