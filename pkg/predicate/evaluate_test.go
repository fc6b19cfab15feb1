package predicate

import (
	"context"
	"testing"

	"github.com/gitvan-dev/gitvan/pkg/quad"
	"github.com/gitvan-dev/gitvan/pkg/store"
	"github.com/stretchr/testify/require"
)

type fakeBaselines map[string]string

func (f fakeBaselines) Get(id string) (string, bool) {
	h, ok := f[id]
	return h, ok
}

func buildSnapshot(t *testing.T, score int) *store.Snapshot {
	t.Helper()
	st := store.New()
	st.Commit([]quad.Quad{
		{Subject: quad.IRITerm("ex:build1"), Predicate: quad.IRITerm("ex:failures"), Object: quad.TypedLiteral(itoa(score), quad.XSDInteger)},
	})
	return st.Snapshot()
}

func itoa(n int) string {
	digits := "0123456789"
	if n == 0 {
		return "0"
	}
	var out []byte
	for n > 0 {
		out = append([]byte{digits[n%10]}, out...)
		n /= 10
	}
	return string(out)
}

func TestEvaluateAsk(t *testing.T) {
	snap := buildSnapshot(t, 3)
	def := Definition{Kind: KindAsk, Query: `PREFIX ex: <ex:> ASK { ?b ex:failures ?n }`}
	v := Evaluate(context.Background(), snap, def, nil, 0)
	require.NoError(t, v.Err)
	require.True(t, v.Fired)
}

func TestEvaluateSelectThresholdDefaultAny(t *testing.T) {
	snap := buildSnapshot(t, 3)
	def := Definition{
		Kind:     KindSelectThreshold,
		Query:    `PREFIX ex: <ex:> SELECT ?n WHERE { ?b ex:failures ?n }`,
		Variable: "n",
		Op:       OpGT,
		Value:    2,
	}
	v := Evaluate(context.Background(), snap, def, nil, 0)
	require.NoError(t, v.Err)
	require.True(t, v.Fired)

	def.Value = 10
	v = Evaluate(context.Background(), snap, def, nil, 0)
	require.NoError(t, v.Err)
	require.False(t, v.Fired)
}

func TestEvaluateSelectThresholdSumReducer(t *testing.T) {
	snap := buildSnapshot(t, 3)
	def := Definition{
		Kind:     KindSelectThreshold,
		Query:    `PREFIX ex: <ex:> SELECT ?n WHERE { ?b ex:failures ?n }`,
		Variable: "n",
		Reducer:  ReducerSum,
		Op:       OpEQ,
		Value:    3,
	}
	v := Evaluate(context.Background(), snap, def, nil, 0)
	require.NoError(t, v.Err)
	require.True(t, v.Fired)
}

func TestEvaluateResultDeltaFiresOnFirstRunAndOnChange(t *testing.T) {
	snap := buildSnapshot(t, 3)
	def := Definition{
		Kind:         KindResultDelta,
		Query:        `PREFIX ex: <ex:> SELECT ?b ?n WHERE { ?b ex:failures ?n }`,
		KeyVariables: []string{"b", "n"},
		BaselineID:   "build-failures",
	}
	v := Evaluate(context.Background(), snap, def, fakeBaselines{}, 0)
	require.NoError(t, v.Err)
	require.True(t, v.Fired, "no baseline recorded yet, so the first evaluation must fire")

	baselines := fakeBaselines{"build-failures": v.NewBaselineHash}
	v2 := Evaluate(context.Background(), snap, def, baselines, 0)
	require.NoError(t, v2.Err)
	require.False(t, v2.Fired, "unchanged result set must not re-fire once the baseline is recorded")

	changed := buildSnapshot(t, 4)
	v3 := Evaluate(context.Background(), changed, def, baselines, 0)
	require.NoError(t, v3.Err)
	require.True(t, v3.Fired, "a changed result set must fire even against a recorded baseline")
}

func TestEvaluateAskSyntaxErrorSurfacesAsVerdictError(t *testing.T) {
	snap := buildSnapshot(t, 3)
	def := Definition{Kind: KindAsk, Query: `ASK { ?b ex:failures ?n }`}
	v := Evaluate(context.Background(), snap, def, nil, 0)
	require.Error(t, v.Err)
	require.False(t, v.Fired)
}
