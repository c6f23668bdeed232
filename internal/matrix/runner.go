package matrix

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kuitang/quoteform-e2e/internal/artifacts"
	"github.com/kuitang/quoteform-e2e/internal/automation"
	"github.com/kuitang/quoteform-e2e/internal/config"
	"github.com/kuitang/quoteform-e2e/internal/errs"
	"github.com/kuitang/quoteform-e2e/internal/form"
	"github.com/kuitang/quoteform-e2e/internal/obs"
	"github.com/kuitang/quoteform-e2e/internal/session"
	"github.com/kuitang/quoteform-e2e/internal/validation"
)

// State is a step of a scenario run.
type State string

const (
	StateCreated        State = "created"
	StateSessionOpen    State = "session_open"
	StateFormFilled     State = "form_filled"
	StateFieldCorrupted State = "field_corrupted"
	StateSubmitted      State = "submitted"
	StateResultRead     State = "result_read"
	StateAsserted       State = "asserted"
	StateSessionClosed  State = "session_closed"
)

// Outcome is the result of running one scenario.
type Outcome struct {
	Scenario string          `json:"scenario"`
	Kind     ExpectationKind `json:"kind"`
	Expected string          `json:"expected"`
	Actual   string          `json:"actual"`
	Passed   bool            `json:"passed"`
	// Reached is the furthest step completed before the session closed.
	Reached   State                `json:"reached"`
	Trace     []State              `json:"trace"`
	Code      errs.Code            `json:"code,omitempty"`
	Error     string               `json:"error,omitempty"`
	Err       error                `json:"-"`
	Duration  time.Duration        `json:"duration_ns"`
	Artifacts []artifacts.Artifact `json:"artifacts,omitempty"`
}

func (o *Outcome) advance(s State) {
	o.Trace = append(o.Trace, s)
	if s != StateSessionClosed {
		o.Reached = s
	}
}

func (o *Outcome) fail(err error) {
	o.Passed = false
	o.Err = err
	o.Code = errs.CodeOf(err)
	o.Error = err.Error()
}

// Failure describes why the scenario failed, or "" when it passed.
func (o Outcome) Failure() string {
	switch {
	case o.Passed:
		return ""
	case o.Err != nil:
		return fmt.Sprintf("%s (after %s)", o.Error, o.Reached)
	case o.Kind == ExpectValidation:
		return fmt.Sprintf("expected a %s, got none", o.Expected)
	default:
		return fmt.Sprintf("expected %q, got %q", o.Expected, o.Actual)
	}
}

// Runner executes scenarios, each in its own browser session.
type Runner struct {
	Launcher automation.Launcher
	Config   *config.Config
	// Artifacts receives a screenshot and page source of failed scenarios. Nil disables capture.
	Artifacts artifacts.Store
	RunID     string
}

// Run executes sc and returns its outcome. The session is closed on every
// path; Run itself never fails.
func (r *Runner) Run(ctx context.Context, sc Scenario) (out Outcome) {
	start := time.Now()
	if r.RunID != "" {
		ctx = obs.WithRunID(ctx, r.RunID)
	}
	ctx = obs.WithScenario(ctx, sc.Name)
	log := obs.From(ctx).With("pkg", "matrix")

	out = Outcome{Scenario: sc.Name, Kind: sc.Expect.Kind(), Expected: sc.Expect.String()}
	out.advance(StateCreated)
	defer func() {
		out.Duration = time.Since(start)
		if out.Passed {
			log.Info("scenario_passed", "duration_ms", out.Duration.Milliseconds())
			return
		}
		log.Warn("scenario_failed", "reached", out.Reached, "failure", out.Failure(), "code", out.Code)
	}()

	if err := ctx.Err(); err != nil {
		out.fail(errs.Wrap(errs.Internal, "run aborted", err))
		return out
	}

	err := session.With(ctx, r.Launcher, r.Config, func(ctx context.Context, s *session.Session) error {
		out.advance(StateSessionOpen)
		err := r.drive(ctx, s, sc, &out)
		if err != nil || !out.Passed {
			r.capture(ctx, s, sc, &out)
		}
		return err
	})
	if out.Reached != StateCreated {
		out.advance(StateSessionClosed)
	}
	if err != nil {
		out.fail(err)
	}
	return out
}

func (r *Runner) drive(ctx context.Context, s *session.Session, sc Scenario, out *Outcome) error {
	if err := form.Fill(ctx, s, sc.Record(), false); err != nil {
		return err
	}
	out.advance(StateFormFilled)

	if c := sc.Corrupt; c != nil {
		if err := form.SetField(ctx, s, c.Field, c.Value); err != nil {
			return err
		}
		out.advance(StateFieldCorrupted)
	}

	if err := form.Submit(ctx, s); err != nil {
		return err
	}
	out.advance(StateSubmitted)

	switch sc.Expect.Kind() {
	case ExpectValidation:
		out.Actual = validation.GetValidationMessage(ctx, s.Browser, sc.Expect.Validation)
		out.advance(StateResultRead)
		out.Passed = out.Actual != ""
	default:
		actual, err := form.WaitForResult(ctx, s)
		if err != nil {
			return err
		}
		out.Actual = actual
		out.advance(StateResultRead)
		out.Passed = out.Actual == sc.Expect.Quote
	}
	out.advance(StateAsserted)
	return nil
}

func (r *Runner) capture(ctx context.Context, s *session.Session, sc Scenario, out *Outcome) {
	if r.Artifacts == nil {
		return
	}
	// Capture problems are logged by Capture and never change the outcome.
	stored, _ := artifacts.Capture(ctx, r.Artifacts, s.Browser, r.RunID, sc.Name)
	out.Artifacts = stored
}

// RunAll runs scenarios on up to parallel concurrent sessions and returns
// their outcomes in input order.
func (r *Runner) RunAll(ctx context.Context, scenarios []Scenario, parallel int) []Outcome {
	if parallel < 1 {
		parallel = 1
	}
	outcomes := make([]Outcome, len(scenarios))
	var g errgroup.Group
	g.SetLimit(parallel)
	for i, sc := range scenarios {
		g.Go(func() error {
			outcomes[i] = r.Run(ctx, sc)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// Summary counts outcomes.
type Summary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// Summarize counts passed and failed outcomes.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		if o.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

// ExitCode maps a run to a process exit status: 0 when everything passed, 3
// when a browser could not be launched, 2 for configuration or internal
// errors, and 1 for ordinary scenario failures.
func ExitCode(outcomes []Outcome) int {
	code := 0
	for _, o := range outcomes {
		if o.Passed {
			continue
		}
		c := 1
		if o.Err != nil {
			c = errs.ExitCode(o.Code)
		}
		code = max(code, c)
	}
	return code
}
