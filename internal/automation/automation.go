// Package automation defines the browser automation capability the harness drives:
// launching a browser, locating elements, reading and writing their state, running
// injected script, and polling until a condition holds.
//
// The Playwright implementation lives in playwright.go; automationtest provides an
// in-memory fake for unit tests.
package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/kuitang/quoteform-e2e/internal/errs"
)

// By selects a locator strategy.
type By string

const (
	ByID          By = "id"
	ByCSSSelector By = "css selector"
)

// LaunchOptions configures a browser launch.
type LaunchOptions struct {
	Browser         string // chromium, firefox or webkit
	Headless        bool
	Args            []string
	PageLoadTimeout time.Duration
	// ActionTimeout bounds a single click or keystroke sequence.
	ActionTimeout time.Duration
	// Headers are sent with every request the page makes.
	Headers map[string]string
}

// Launcher starts browser instances.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
}

// Browser is one launched browser instance with a single page.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	// FindElement returns the first element matching the locator, or an
	// errs.ElementNotFound error. It never waits.
	FindElement(ctx context.Context, by By, value string) (Element, error)
	// ExecuteScript runs script as a function body; args are available as
	// arguments[i]. Element arguments are passed as DOM nodes.
	ExecuteScript(ctx context.Context, script string, args ...any) (any, error)
	Screenshot(ctx context.Context) ([]byte, error)
	PageSource(ctx context.Context) (string, error)
	CurrentURL() string
	Quit() error
}

// Element is a located DOM element.
type Element interface {
	// Attribute returns the named DOM property when it holds a scalar, falling
	// back to the HTML attribute. Missing values read as "".
	Attribute(ctx context.Context, name string) (string, error)
	// Text returns the rendered text; hidden elements have none.
	Text(ctx context.Context) (string, error)
	SendKeys(ctx context.Context, text string) error
	Clear(ctx context.Context) error
	Click(ctx context.Context) error
	Displayed(ctx context.Context) (bool, error)
}

// NotFound builds the error FindElement returns for a missing element.
func NotFound(by By, value string) error {
	return errs.New(errs.ElementNotFound, fmt.Sprintf("no element matches %s %q", by, value))
}

// IsNotFound reports whether err is a missing-element error.
func IsNotFound(err error) bool {
	return errs.Is(err, errs.ElementNotFound)
}
