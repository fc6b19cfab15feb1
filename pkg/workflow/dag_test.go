package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func stepIDs(steps []*Step) []string {
	ids := make([]string, len(steps))
	for i, s := range steps {
		ids[i] = s.ID
	}
	return ids
}

func TestTopologicalOrderRespectsDependsOn(t *testing.T) {
	p := &Pipeline{IRI: testPipeline, Steps: map[string]*Step{
		"a": {ID: "a", Type: StepCLI, order: 0},
		"b": {ID: "b", Type: StepCLI, order: 1, DependsOn: []string{"a"}},
		"c": {ID: "c", Type: StepCLI, order: 2, DependsOn: []string{"b"}},
	}}
	order, err := TopologicalOrder(p)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, stepIDs(order))
}

func TestTopologicalOrderTieBreaksByDeclaredOrder(t *testing.T) {
	p := &Pipeline{IRI: testPipeline, Steps: map[string]*Step{
		"z": {ID: "z", Type: StepCLI, order: 0},
		"y": {ID: "y", Type: StepCLI, order: 1},
		"x": {ID: "x", Type: StepCLI, order: 2},
	}}
	order, err := TopologicalOrder(p)
	require.NoError(t, err)
	// No dependency relation among any of these; declared order wins
	// over any alphabetical tendency.
	require.Equal(t, []string{"z", "y", "x"}, stepIDs(order))
}

func TestTopologicalOrderDetectsCycle(t *testing.T) {
	p := &Pipeline{IRI: testPipeline, Steps: map[string]*Step{
		"a": {ID: "a", Type: StepCLI, order: 0, DependsOn: []string{"b"}},
		"b": {ID: "b", Type: StepCLI, order: 1, DependsOn: []string{"a"}},
	}}
	_, err := TopologicalOrder(p)
	require.Error(t, err)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
}

func TestTopologicalOrderRejectsUnknownDependency(t *testing.T) {
	p := &Pipeline{IRI: testPipeline, Steps: map[string]*Step{
		"a": {ID: "a", Type: StepCLI, order: 0, DependsOn: []string{"ghost"}},
	}}
	_, err := TopologicalOrder(p)
	require.Error(t, err)
}
