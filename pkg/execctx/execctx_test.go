package execctx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

func TestDefaultDerivesFromProcessEnvironment(t *testing.T) {
	ec := Default()
	require.NotEmpty(t, ec.Cwd)
	require.NotNil(t, ec.Env)
	require.NotNil(t, ec.Clock)
}

func TestFromReturnsDefaultWhenNoneInstalled(t *testing.T) {
	ec := From(context.Background())
	require.NotEmpty(t, ec.Cwd)
}

func TestWithContextInstallsAndRestores(t *testing.T) {
	fixed := fixedClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	var sawCwd string
	err := WithContext(context.Background(), Context{Cwd: "/tmp/project", Clock: fixed}, func(ctx context.Context) error {
		ec := From(ctx)
		sawCwd = ec.Cwd
		require.Equal(t, fixed.Now(), ec.Clock.Now())
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "/tmp/project", sawCwd)

	// Outside WithContext, From falls back to the process default again.
	outside := From(context.Background())
	require.NotEqual(t, "/tmp/project", outside.Cwd)
}

func TestWithContextNestedOverridesOnlySetFields(t *testing.T) {
	base := context.Background()
	err := WithContext(base, Context{Cwd: "/outer"}, func(ctx context.Context) error {
		return WithContext(ctx, Context{Env: map[string]string{"FOO": "bar"}}, func(ctx2 context.Context) error {
			ec := From(ctx2)
			require.Equal(t, "/outer", ec.Cwd)
			require.Equal(t, "bar", ec.Env["FOO"])
			return nil
		})
	})
	require.NoError(t, err)
}
