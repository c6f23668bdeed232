package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/quoteform-e2e/internal/errs"
	"github.com/kuitang/quoteform-e2e/internal/form"
	"github.com/kuitang/quoteform-e2e/internal/matrix"
	"github.com/kuitang/quoteform-e2e/internal/quotepage"
	"github.com/kuitang/quoteform-e2e/internal/validation"
)

func loadMatrix(t *testing.T) *matrix.Matrix {
	t.Helper()
	m, err := matrix.Load()
	require.NoError(t, err)
	return m
}

func (env *BrowserTestEnv) runner() *matrix.Runner {
	return &matrix.Runner{Launcher: env.Launcher, Config: env.Config, Artifacts: env.Artifacts, RunID: env.RunID}
}

// TestScenarios runs every declared scenario through the scenario runner, one
// subtest and one session each.
func TestScenarios(t *testing.T) {
	env := SetupBrowserTestEnv(t)
	runner := env.runner()

	for _, sc := range loadMatrix(t).Scenarios {
		t.Run(sc.Name, func(t *testing.T) {
			out := runner.Run(env.Context(), sc)
			if out.Code == errs.Unavailable {
				t.Skip("browser not available:", out.Error)
			}
			for _, a := range out.Artifacts {
				t.Logf("Stored %s: %s", a.Kind, a.Location)
			}
			require.True(t, out.Passed, out.Failure())
			assert.Equal(t, matrix.StateAsserted, out.Reached)
			assert.Equal(t, matrix.StateSessionClosed, out.Trace[len(out.Trace)-1])
			if sc.Corrupt != nil {
				assert.Contains(t, out.Trace, matrix.StateFieldCorrupted)
			}
		})
	}
}

// TestRunner_Battery runs the whole battery through the scenario runner on
// two concurrent sessions.
func TestRunner_Battery(t *testing.T) {
	env := SetupBrowserTestEnv(t)
	if env.Fixture == nil {
		t.Skip("runner battery only runs against the fixture site")
	}
	// Opening one session up front skips the test when no browser is available.
	env.OpenSession(t)

	m := loadMatrix(t)
	outcomes := env.runner().RunAll(env.Context(), m.Scenarios, 2)
	for _, o := range outcomes {
		assert.True(t, o.Passed, "%s: %s", o.Scenario, o.Failure())
		assert.Equal(t, matrix.StateSessionClosed, o.Trace[len(o.Trace)-1])
	}
	assert.Equal(t, 0, matrix.ExitCode(outcomes))
}

func TestForm_FillAndSubmitWaitsForQuote(t *testing.T) {
	env := SetupBrowserTestEnv(t)
	if env.Fixture == nil {
		t.Skip("known quote only asserted against the fixture site")
	}
	s := env.OpenSession(t)
	ctx := s.Context(env.Context())

	require.NoError(t, form.Fill(ctx, s, form.DefaultIdentity().WithRating(24, 3, 0), true))
	got, err := form.ResultValue(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "$5500", got)
}

// A malformed email is reported by the browser's own constraint validation,
// before any companion element is consulted.
func TestValidation_NativeMessageFirst(t *testing.T) {
	env := SetupBrowserTestEnv(t)
	s := env.OpenSession(t)
	ctx := s.Context(env.Context())

	require.NoError(t, form.Fill(ctx, s, form.DefaultIdentity().WithRating(28, 3, 0), false))
	require.NoError(t, form.SetField(ctx, s, quotepage.EmailID, "test@"))
	require.NoError(t, form.Submit(ctx, s))

	native, err := validation.NativeMessage(ctx, s.Browser, quotepage.EmailID)
	require.NoError(t, err)
	require.NotEmpty(t, native)
	assert.Equal(t, native, validation.GetValidationMessage(ctx, s.Browser, quotepage.EmailID))
}

func TestValidation_ValidFieldHasNoMessage(t *testing.T) {
	env := SetupBrowserTestEnv(t)
	s := env.OpenSession(t)
	ctx := s.Context(env.Context())

	require.NoError(t, form.Fill(ctx, s, form.DefaultIdentity().WithRating(24, 3, 0), false))
	assert.Empty(t, validation.GetValidationMessage(ctx, s.Browser, quotepage.EmailID))
	assert.Empty(t, validation.GetValidationMessage(ctx, s.Browser, "noSuchField"))
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	env := SetupBrowserTestEnv(t)
	s := env.OpenSession(t)

	assert.NotPanics(t, func() {
		s.Close()
		s.Close()
	})
	assert.True(t, s.Disposed())
}
