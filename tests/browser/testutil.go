// Package browser runs the quote-form scenarios against a real browser.
// All browser test files use BrowserTestEnv via SetupBrowserTestEnv(t).
//
// By default the tests serve the built-in stand-in page; set QUOTE_TARGET_URL
// to run against a deployed quote page instead.
package browser

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kuitang/quoteform-e2e/internal/artifacts"
	"github.com/kuitang/quoteform-e2e/internal/automation"
	"github.com/kuitang/quoteform-e2e/internal/config"
	"github.com/kuitang/quoteform-e2e/internal/fixturesite"
	"github.com/kuitang/quoteform-e2e/internal/logutil"
	"github.com/kuitang/quoteform-e2e/internal/obs"
	"github.com/kuitang/quoteform-e2e/internal/session"
)

const (
	// CODING AGENT RULE: Always use this ceiling for waits against the fixture
	// site. Never introduce a larger timeout value anywhere in tests/browser.
	browserMaxTimeout = 5 * time.Second

	pagePreviewChars = 500
)

var browserFixtureMu sync.Mutex
var browserSharedFixture *BrowserTestEnv

// BrowserTestEnv is shared by every browser test in the package.
type BrowserTestEnv struct {
	Config    *config.Config
	Launcher  *automation.PlaywrightLauncher
	Fixture   *fixturesite.Server // nil when QUOTE_TARGET_URL is set
	Artifacts artifacts.Store     // nil unless QUOTE_ARTIFACT_DIR or QUOTE_ARTIFACT_BUCKET is set
	RunID     string
}

// SetupBrowserTestEnv returns the shared environment, creating it on first use.
func SetupBrowserTestEnv(t *testing.T) *BrowserTestEnv {
	t.Helper()

	browserFixtureMu.Lock()
	defer browserFixtureMu.Unlock()

	if browserSharedFixture != nil {
		return browserSharedFixture
	}
	browserSharedFixture = createBrowserTestEnv(t)
	return browserSharedFixture
}

func createBrowserTestEnv(t *testing.T) *BrowserTestEnv {
	t.Helper()

	env := &BrowserTestEnv{
		Launcher: automation.NewPlaywrightLauncher(),
		RunID:    obs.NewRunID(),
	}

	flags := &config.Flags{}
	if strings.TrimSpace(os.Getenv("QUOTE_TARGET_URL")) == "" {
		srv, err := fixturesite.Start(fixturesite.New(nil), "127.0.0.1:0")
		if err != nil {
			t.Fatalf("Failed to start fixture site: %v", err)
		}
		env.Fixture = srv
		flags.TargetURL = srv.PageURL()
	}

	cfg, err := config.LoadConfig(flags)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if env.Fixture != nil {
		cfg.PageLoadTimeout = min(cfg.PageLoadTimeout, browserMaxTimeout)
		cfg.WaitTimeout = min(cfg.WaitTimeout, browserMaxTimeout)
	}
	env.Config = cfg

	store, err := artifacts.NewStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create artifact store: %v", err)
	}
	env.Artifacts = store
	return env
}

func cleanupSharedBrowserTestEnv() {
	browserFixtureMu.Lock()
	defer browserFixtureMu.Unlock()

	if browserSharedFixture == nil {
		return
	}
	_ = browserSharedFixture.Launcher.Stop()
	if browserSharedFixture.Fixture != nil {
		_ = browserSharedFixture.Fixture.Close()
	}
	browserSharedFixture = nil
}

func TestMain(m *testing.M) {
	code := m.Run()
	cleanupSharedBrowserTestEnv()
	os.Exit(code)
}

// Context returns a context carrying the environment's run id.
func (env *BrowserTestEnv) Context() context.Context {
	return obs.WithRunID(context.Background(), env.RunID)
}

// OpenSession opens a browser session on the quote page for t. The session is
// released at cleanup; failed tests first log a page preview and store
// failure artifacts. Skips the test if no browser can be launched.
func (env *BrowserTestEnv) OpenSession(t *testing.T) *session.Session {
	t.Helper()
	ctx := obs.WithScenario(env.Context(), t.Name())
	return session.Acquire(ctx, t, env.Launcher, env.Config, logPagePreview, env.captureArtifacts)
}

func logPagePreview(ctx context.Context, t testing.TB, s *session.Session) {
	content, _ := s.Browser.PageSource(ctx)
	t.Logf("Current URL: %s", s.Browser.CurrentURL())
	t.Logf("Content preview: %s", logutil.TruncateForLog(content, pagePreviewChars))
}

func (env *BrowserTestEnv) captureArtifacts(ctx context.Context, t testing.TB, s *session.Session) {
	stored, err := artifacts.Capture(ctx, env.Artifacts, s.Browser, env.RunID, t.Name())
	if err != nil {
		t.Logf("Artifact capture incomplete: %v", err)
	}
	for _, a := range stored {
		t.Logf("Stored %s: %s", a.Kind, a.Location)
	}
}
