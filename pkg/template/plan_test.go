package template

import (
	"testing"

	"github.com/gitvan-dev/gitvan/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func TestPlanSimpleWrite(t *testing.T) {
	root := testutil.TempDir(t, "template-plan")
	src := "---\nto: \"greeting.txt\"\n---\nhello {{ name }}"
	plan, err := Plan(src, Vars{"name": "Ada"}, root)
	require.NoError(t, err)
	require.Len(t, plan.Writes, 1)
	require.Equal(t, "hello Ada", plan.Writes[0].Content)
}

func TestPlanWhenFalseSkips(t *testing.T) {
	root := testutil.TempDir(t, "template-plan")
	src := "---\nto: \"out.txt\"\nwhen: enabled == false\n---\nbody"
	plan, err := Plan(src, Vars{"enabled": true}, root)
	require.NoError(t, err)
	require.True(t, plan.Skipped)
}

func TestPlanPathEscapeRejected(t *testing.T) {
	root := testutil.TempDir(t, "template-plan")
	src := "---\nto: \"../escape.txt\"\n---\nbody"
	_, err := Plan(src, Vars{}, root)
	require.Error(t, err)
	var pathErr *PathEscapeError
	require.ErrorAs(t, err, &pathErr)
}

func TestPlanMultipleToTargets(t *testing.T) {
	root := testutil.TempDir(t, "template-plan")
	src := "---\nto:\n  - a.txt\n  - b.txt\n---\nshared content"
	plan, err := Plan(src, Vars{}, root)
	require.NoError(t, err)
	require.Len(t, plan.Writes, 2)
}

func TestPlanInjectResolvesVarsInSnippet(t *testing.T) {
	root := testutil.TempDir(t, "template-plan")
	src := "---\ninject:\n  - into: \"target.go\"\n    snippet: \"// {{ label }}\"\n    find: \"// ANCHOR\"\n---\n"
	plan, err := Plan(src, Vars{"label": "generated"}, root)
	require.NoError(t, err)
	require.Len(t, plan.Injects, 1)
	require.Equal(t, "// generated", plan.Injects[0].Snippet)
	require.True(t, plan.Injects[0].Once)
}
