package template

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitFrontMatterYAML(t *testing.T) {
	src := "---\nto: \"out/{{ name }}.txt\"\nforce: overwrite\n---\nhello {{ name }}"
	fm, body, err := SplitFrontMatter(src)
	require.NoError(t, err)
	require.Equal(t, []string{"out/{{ name }}.txt"}, fm.To)
	require.Equal(t, "overwrite", fm.Force)
	require.Equal(t, "hello {{ name }}", body)
}

func TestSplitFrontMatterTOML(t *testing.T) {
	src := "+++\nto = \"out/file.txt\"\n+++\nbody text"
	fm, body, err := SplitFrontMatter(src)
	require.NoError(t, err)
	require.Equal(t, []string{"out/file.txt"}, fm.To)
	require.Equal(t, "body text", body)
}

func TestSplitFrontMatterJSONLine(t *testing.T) {
	src := `{"to": "out/file.txt", "force": "append"};body text`
	fm, body, err := SplitFrontMatter(src)
	require.NoError(t, err)
	require.Equal(t, []string{"out/file.txt"}, fm.To)
	require.Equal(t, "append", fm.Force)
	require.Equal(t, "body text", body)
}

func TestSplitFrontMatterDefaultsForceToError(t *testing.T) {
	src := "---\nto: out.txt\n---\nbody"
	fm, _, err := SplitFrontMatter(src)
	require.NoError(t, err)
	require.Equal(t, "error", fm.Force)
}

func TestSplitFrontMatterWarnsOnUnknownField(t *testing.T) {
	src := "---\nto: out.txt\nbogusField: 1\n---\nbody"
	fm, _, err := SplitFrontMatter(src)
	require.NoError(t, err)
	require.Len(t, fm.Warnings, 1)
}

func TestSplitFrontMatterNoneReturnsWholeSourceAsBody(t *testing.T) {
	src := "just a plain body with no front matter"
	fm, body, err := SplitFrontMatter(src)
	require.NoError(t, err)
	require.Nil(t, fm)
	require.Equal(t, src, body)
}

func TestSplitFrontMatterUnterminatedBlockErrors(t *testing.T) {
	_, _, err := SplitFrontMatter("---\nto: out.txt\nbody with no closer")
	require.Error(t, err)
}

func TestSplitFrontMatterInjectDefaults(t *testing.T) {
	src := "---\ninject:\n  - into: file.go\n    snippet: \"// marker\"\n    find: \"// anchor\"\n---\nbody"
	fm, _, err := SplitFrontMatter(src)
	require.NoError(t, err)
	require.Len(t, fm.Inject, 1)
	require.Equal(t, "after", fm.Inject[0].Where)
	require.NotNil(t, fm.Inject[0].Once)
	require.True(t, *fm.Inject[0].Once)
}
