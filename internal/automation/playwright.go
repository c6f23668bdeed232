package automation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/quoteform-e2e/internal/errs"
	"github.com/kuitang/quoteform-e2e/internal/obs"
)

// attributeJS mirrors WebDriver's getAttribute: a scalar DOM property wins over
// the HTML attribute, so "value" and "validationMessage" read live state.
const attributeJS = `(el, name) => {
	const p = el[name];
	if (p !== undefined && p !== null && typeof p !== 'object' && typeof p !== 'function') {
		return String(p);
	}
	const a = el.getAttribute(name);
	return a === null ? '' : a;
}`

// PlaywrightLauncher launches browsers through one shared Playwright driver
// process. Each Launch returns an independent browser instance.
type PlaywrightLauncher struct {
	mu sync.Mutex
	pw *playwright.Playwright
}

// NewPlaywrightLauncher returns a launcher; the driver starts on first Launch.
func NewPlaywrightLauncher() *PlaywrightLauncher {
	return &PlaywrightLauncher{}
}

func (l *PlaywrightLauncher) driver() (*playwright.Playwright, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pw != nil {
		return l.pw, nil
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "start playwright driver", err)
	}
	l.pw = pw
	return pw, nil
}

// Launch starts a browser, opens a context and a page, and applies timeouts.
func (l *PlaywrightLauncher) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	pw, err := l.driver()
	if err != nil {
		return nil, err
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	var browserType playwright.BrowserType
	switch opts.Browser {
	case "", "chromium":
		browserType = pw.Chromium
		launchOpts.Args = opts.Args
	case "firefox":
		browserType = pw.Firefox
	case "webkit":
		browserType = pw.WebKit
	default:
		return nil, errs.New(errs.InvalidArgument, fmt.Sprintf("unknown browser %q", opts.Browser))
	}

	browser, err := browserType.Launch(launchOpts)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "launch "+browserType.Name(), err)
	}

	// NoViewport lets the page follow the (maximized) window size.
	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		NoViewport:       playwright.Bool(true),
		ExtraHttpHeaders: opts.Headers,
	})
	if err != nil {
		_ = browser.Close()
		return nil, errs.Wrap(errs.Unavailable, "create browser context", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		return nil, errs.Wrap(errs.Unavailable, "create page", err)
	}
	page.SetDefaultNavigationTimeout(milliseconds(opts.PageLoadTimeout))
	page.SetDefaultTimeout(milliseconds(opts.ActionTimeout))

	obs.From(ctx).With("pkg", "automation").Debug("browser_launched",
		"browser", browserType.Name(),
		"headless", opts.Headless,
		"version", browser.Version(),
	)
	return &pwBrowser{browser: browser, context: bctx, page: page}, nil
}

// Stop shuts down the shared driver process. Browsers must be quit first.
func (l *PlaywrightLauncher) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pw == nil {
		return nil
	}
	err := l.pw.Stop()
	l.pw = nil
	return err
}

func milliseconds(d time.Duration) float64 {
	return float64(d.Milliseconds())
}

type pwBrowser struct {
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
}

func (b *pwBrowser) Navigate(ctx context.Context, url string) error {
	_, err := b.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	if err != nil {
		return mapError("navigate to "+url, err)
	}
	return nil
}

func (b *pwBrowser) FindElement(ctx context.Context, by By, value string) (Element, error) {
	var selector string
	switch by {
	case ByID:
		selector = "id=" + value
	case ByCSSSelector:
		selector = "css=" + value
	default:
		return nil, errs.New(errs.InvalidArgument, fmt.Sprintf("unsupported locator strategy %q", by))
	}

	locator := b.page.Locator(selector)
	count, err := locator.Count()
	if err != nil {
		// Malformed selectors surface here; a selector that cannot match is a miss.
		return nil, errs.Wrap(errs.ElementNotFound, fmt.Sprintf("locate %s %q", by, value), err)
	}
	if count == 0 {
		return nil, NotFound(by, value)
	}
	return &pwElement{locator: locator.First(), desc: string(by) + " " + value}, nil
}

func (b *pwBrowser) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	converted := make([]any, len(args))
	for i, arg := range args {
		el, ok := arg.(*pwElement)
		if !ok {
			converted[i] = arg
			continue
		}
		handle, err := el.locator.ElementHandle()
		if err != nil {
			return nil, mapError("resolve script argument "+el.desc, err)
		}
		defer func() { _ = handle.Dispose() }()
		converted[i] = handle
	}

	expression := "(args) => (function() {\n" + script + "\n}).apply(null, args)"
	result, err := b.page.Evaluate(expression, converted)
	if err != nil {
		return nil, mapError("execute script", err)
	}
	return result, nil
}

func (b *pwBrowser) Screenshot(ctx context.Context) ([]byte, error) {
	data, err := b.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return nil, mapError("screenshot", err)
	}
	return data, nil
}

func (b *pwBrowser) PageSource(ctx context.Context) (string, error) {
	content, err := b.page.Content()
	if err != nil {
		return "", mapError("page source", err)
	}
	return content, nil
}

func (b *pwBrowser) CurrentURL() string {
	return b.page.URL()
}

func (b *pwBrowser) Quit() error {
	return errors.Join(b.context.Close(), b.browser.Close())
}

type pwElement struct {
	locator playwright.Locator
	desc    string
}

func (e *pwElement) Attribute(ctx context.Context, name string) (string, error) {
	v, err := e.locator.Evaluate(attributeJS, name)
	if err != nil {
		return "", mapError(fmt.Sprintf("read %s of %s", name, e.desc), err)
	}
	switch typed := v.(type) {
	case nil:
		return "", nil
	case string:
		return typed, nil
	default:
		return fmt.Sprint(typed), nil
	}
}

// Text returns the rendered text, which is empty for an element that is not
// displayed.
func (e *pwElement) Text(ctx context.Context) (string, error) {
	visible, err := e.locator.IsVisible()
	if err != nil {
		return "", mapError("check visibility of "+e.desc, err)
	}
	if !visible {
		return "", nil
	}
	text, err := e.locator.InnerText()
	if err != nil {
		return "", mapError("read text of "+e.desc, err)
	}
	return text, nil
}

func (e *pwElement) SendKeys(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if err := e.locator.PressSequentially(text); err != nil {
		return mapError("type into "+e.desc, err)
	}
	return nil
}

func (e *pwElement) Clear(ctx context.Context) error {
	if err := e.locator.Clear(); err != nil {
		return mapError("clear "+e.desc, err)
	}
	return nil
}

func (e *pwElement) Click(ctx context.Context) error {
	if err := e.locator.Click(); err != nil {
		return mapError("click "+e.desc, err)
	}
	return nil
}

func (e *pwElement) Displayed(ctx context.Context) (bool, error) {
	visible, err := e.locator.IsVisible()
	if err != nil {
		return false, mapError("check visibility of "+e.desc, err)
	}
	return visible, nil
}

func mapError(op string, err error) error {
	if errors.Is(err, playwright.ErrTimeout) {
		return errs.Wrap(errs.Timeout, op, err)
	}
	return errs.Wrap(errs.Internal, op, err)
}
