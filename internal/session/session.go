// Package session owns the lifecycle of one browser session per test case:
// launch with the quote page's settings, navigate, wait for the page to be ready,
// and release the browser exactly once on every exit path.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/kuitang/quoteform-e2e/internal/automation"
	"github.com/kuitang/quoteform-e2e/internal/config"
	"github.com/kuitang/quoteform-e2e/internal/errs"
	"github.com/kuitang/quoteform-e2e/internal/logutil"
	"github.com/kuitang/quoteform-e2e/internal/obs"
	"github.com/kuitang/quoteform-e2e/internal/quotepage"
)

// LaunchArgs are the browser flags every session starts with.
var LaunchArgs = []string{"--start-maximized", "--disable-notifications"}

const pagePreviewChars = 500

// Session is one browser instance plus its wait helper, owned by one test case.
type Session struct {
	ID      string
	Browser automation.Browser
	Wait    automation.Waiter

	log *slog.Logger

	mu       sync.Mutex
	disposed bool
}

// Open launches a browser, navigates to the target URL and blocks until the
// submit control is displayed. If the page never becomes ready within the wait
// ceiling, the browser is released and a Timeout error is returned.
func Open(ctx context.Context, launcher automation.Launcher, cfg *config.Config) (*Session, error) {
	id := obs.NewSessionID()
	ctx = obs.WithSessionID(ctx, id)
	log := obs.From(ctx).With("pkg", "session")

	browser, err := launcher.Launch(ctx, automation.LaunchOptions{
		Browser:         cfg.Browser,
		Headless:        cfg.Headless,
		Args:            LaunchArgs,
		PageLoadTimeout: cfg.PageLoadTimeout,
		ActionTimeout:   cfg.WaitTimeout,
		Headers:         requestHeaders(ctx),
	})
	if err != nil {
		log.Error("launch_failed", "error", err)
		return nil, fmt.Errorf("open session: %w", err)
	}

	s := &Session{
		ID:      id,
		Browser: browser,
		Wait:    automation.Waiter{Timeout: cfg.WaitTimeout, Interval: cfg.PollInterval},
		log:     log,
	}

	// A navigation failure is not fatal on its own: an unreachable page shows
	// up as the readiness barrier timing out.
	if err := browser.Navigate(ctx, cfg.TargetURL); err != nil {
		log.Warn("navigate_failed", "url", cfg.TargetURL, "error", err)
	}

	if err := s.waitReady(ctx); err != nil {
		s.logPagePreview(ctx)
		s.Close()
		return nil, fmt.Errorf("open session: %w", err)
	}

	log.Info("session_open", "url", cfg.TargetURL, "browser", cfg.Browser, "headless", cfg.Headless)
	return s, nil
}

// requestHeaders tags page traffic with the run id so the fixture site's
// access log correlates with the harness log.
func requestHeaders(ctx context.Context) map[string]string {
	runID := obs.CorrelationFromContext(ctx).RunID
	if runID == "" {
		return nil
	}
	return map[string]string{obs.RunIDHeader: runID}
}

func (s *Session) waitReady(ctx context.Context) error {
	return s.Wait.Until(ctx, quotepage.SubmitID+" displayed", func(ctx context.Context) (bool, error) {
		el, err := s.Browser.FindElement(ctx, automation.ByID, quotepage.SubmitID)
		if err != nil {
			return false, err
		}
		return el.Displayed(ctx)
	})
}

func (s *Session) logPagePreview(ctx context.Context) {
	content, _ := s.Browser.PageSource(ctx)
	s.log.Warn("page_not_ready",
		"url", s.Browser.CurrentURL(),
		"content_preview", logutil.TruncateForLog(content, pagePreviewChars),
	)
}

// Context returns ctx tagged with this session's id.
func (s *Session) Context(ctx context.Context) context.Context {
	return obs.WithSessionID(ctx, s.ID)
}

// Close quits the browser. Only the first call does anything; release errors
// are logged and swallowed so teardown never replaces the test's own failure.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.disposed = true

	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("session_release_failed", "code", errs.ResourceRelease, "panic", fmt.Sprint(r))
		}
	}()
	if err := s.Browser.Quit(); err != nil {
		s.log.Warn("session_release_failed", "code", errs.ResourceRelease, "error", err)
		return
	}
	s.log.Debug("session_closed")
}

// Disposed reports whether Close has run.
func (s *Session) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// FailureHook runs at test cleanup, before Close, when the test has failed.
type FailureHook func(ctx context.Context, t testing.TB, s *Session)

// Acquire opens a session for t and registers its release with t.Cleanup.
// A failed open fails the test immediately.
func Acquire(ctx context.Context, t testing.TB, launcher automation.Launcher, cfg *config.Config, onFailure ...FailureHook) *Session {
	t.Helper()

	s, err := Open(ctx, launcher, cfg)
	if err != nil {
		if errs.CodeOf(err) == errs.Unavailable {
			t.Skip("browser not available:", err)
		}
		t.Fatalf("open session: %v", err)
	}
	t.Cleanup(func() {
		if t.Failed() {
			for _, hook := range onFailure {
				hook(s.Context(ctx), t, s)
			}
		}
		s.Close()
	})
	return s
}

// With opens a session, runs fn, and closes the session however fn exits.
func With(ctx context.Context, launcher automation.Launcher, cfg *config.Config, fn func(ctx context.Context, s *Session) error) error {
	s, err := Open(ctx, launcher, cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s.Context(ctx), s)
}
