// Package automationtest provides an in-memory implementation of the automation
// capability. Pages are plain maps of elements; behavior on click is scripted by
// the test through OnClick hooks.
package automationtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/kuitang/quoteform-e2e/internal/automation"
	"github.com/kuitang/quoteform-e2e/internal/errs"
	"github.com/kuitang/quoteform-e2e/internal/quotepage"
)

// Element is a fake DOM element. Props model live DOM properties (value,
// validationMessage); Attrs model HTML attributes (class).
type Element struct {
	ID      string
	Props   map[string]string
	Attrs   map[string]string
	Content string
	Visible bool

	// Hook runs before every operation; a non-nil error is returned by the operation.
	Hook func(op string) error

	Clicks           int
	ScrolledIntoView bool

	page *Page
}

// Page is a fake document.
type Page struct {
	mu        sync.Mutex
	byID      map[string]*Element
	bySel     map[string]*Element
	OnClick   map[string]func(p *Page)
	Scripts   []string
	Source    string
	ShotBytes []byte
}

// NewPage returns an empty page.
func NewPage() *Page {
	return &Page{
		byID:    make(map[string]*Element),
		bySel:   make(map[string]*Element),
		OnClick: make(map[string]func(p *Page)),
	}
}

// Add registers an element by id and returns it.
func (p *Page) Add(id string) *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	el := &Element{
		ID:      id,
		Props:   map[string]string{},
		Attrs:   map[string]string{},
		Visible: true,
		page:    p,
	}
	p.byID[id] = el
	return el
}

// AddSelector registers an element reachable only through a CSS selector.
func (p *Page) AddSelector(selector, text string) *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	el := &Element{
		Props:   map[string]string{},
		Attrs:   map[string]string{},
		Content: text,
		Visible: true,
		page:    p,
	}
	p.bySel[selector] = el
	return el
}

// Element returns the element with id, or nil.
func (p *Page) Element(id string) *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.byID[id]
}

// Value returns the value property of element id.
func (p *Page) Value(id string) string {
	el := p.Element(id)
	if el == nil {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return el.Props["value"]
}

// SetValue sets the value property of element id.
func (p *Page) SetValue(id, value string) {
	el := p.Element(id)
	if el == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	el.Props["value"] = value
}

// SetProp sets a DOM property (such as validationMessage) of element id.
func (p *Page) SetProp(id, name, value string) {
	el := p.Element(id)
	if el == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	el.Props[name] = value
}

// QuotePage builds a page with every quote-form element. Clicking submit
// calls respond with the current field values and writes the answer into the
// result field; a nil respond leaves the result empty.
func QuotePage(respond func(values map[string]string) string) *Page {
	p := NewPage()
	for _, id := range quotepage.FieldOrder {
		p.Add(id)
	}
	p.Add(quotepage.SubmitID)
	p.Add(quotepage.ResultID)
	p.OnClick[quotepage.SubmitID] = func(p *Page) {
		if respond == nil {
			return
		}
		values := make(map[string]string, len(quotepage.FieldOrder))
		for _, id := range quotepage.FieldOrder {
			values[id] = p.Value(id)
		}
		p.SetValue(quotepage.ResultID, respond(values))
	}
	return p
}

func (e *Element) run(op string) error {
	if e.Hook != nil {
		return e.Hook(op)
	}
	return nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, error) {
	if err := e.run("attribute:" + name); err != nil {
		return "", err
	}
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if v, ok := e.Props[name]; ok {
		return v, nil
	}
	return e.Attrs[name], nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	if err := e.run("text"); err != nil {
		return "", err
	}
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if !e.Visible {
		return "", nil
	}
	return e.Content, nil
}

func (e *Element) SendKeys(ctx context.Context, text string) error {
	if err := e.run("sendkeys"); err != nil {
		return err
	}
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.Props["value"] += text
	return nil
}

func (e *Element) Clear(ctx context.Context) error {
	if err := e.run("clear"); err != nil {
		return err
	}
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.Props["value"] = ""
	return nil
}

func (e *Element) Click(ctx context.Context) error {
	if err := e.run("click"); err != nil {
		return err
	}
	e.page.mu.Lock()
	e.Clicks++
	handler := e.page.OnClick[e.ID]
	e.page.mu.Unlock()
	if handler != nil {
		handler(e.page)
	}
	return nil
}

func (e *Element) Displayed(ctx context.Context) (bool, error) {
	if err := e.run("displayed"); err != nil {
		return false, err
	}
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	return e.Visible, nil
}

// Browser is a fake launched browser bound to one Page.
type Browser struct {
	Page      *Page
	QuitErr   error
	NavErr    error
	Navigated []string

	mu    sync.Mutex
	quits int
}

func (b *Browser) Navigate(ctx context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Navigated = append(b.Navigated, url)
	return b.NavErr
}

func (b *Browser) FindElement(ctx context.Context, by automation.By, value string) (automation.Element, error) {
	b.Page.mu.Lock()
	defer b.Page.mu.Unlock()
	switch by {
	case automation.ByID:
		if el, ok := b.Page.byID[value]; ok {
			return el, nil
		}
	case automation.ByCSSSelector:
		if el, ok := b.Page.bySel[value]; ok {
			return el, nil
		}
		if strings.HasPrefix(value, "#") {
			if el, ok := b.Page.byID[value[1:]]; ok {
				return el, nil
			}
		}
	default:
		return nil, errs.New(errs.InvalidArgument, "unsupported locator strategy "+string(by))
	}
	return nil, automation.NotFound(by, value)
}

func (b *Browser) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	b.Page.mu.Lock()
	defer b.Page.mu.Unlock()
	b.Page.Scripts = append(b.Page.Scripts, script)
	if strings.Contains(script, "scrollIntoView") {
		for _, arg := range args {
			if el, ok := arg.(*Element); ok {
				el.ScrolledIntoView = true
			}
		}
	}
	return nil, nil
}

func (b *Browser) Screenshot(ctx context.Context) ([]byte, error) {
	b.Page.mu.Lock()
	defer b.Page.mu.Unlock()
	if b.Page.ShotBytes == nil {
		return []byte("\x89PNG fake"), nil
	}
	return b.Page.ShotBytes, nil
}

func (b *Browser) PageSource(ctx context.Context) (string, error) {
	b.Page.mu.Lock()
	defer b.Page.mu.Unlock()
	return b.Page.Source, nil
}

func (b *Browser) CurrentURL() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.Navigated) == 0 {
		return "about:blank"
	}
	return b.Navigated[len(b.Navigated)-1]
}

func (b *Browser) Quit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quits++
	return b.QuitErr
}

// Quits returns how many times Quit was called.
func (b *Browser) Quits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.quits
}

// Launcher hands out fake browsers. NewPage is called once per launch.
type Launcher struct {
	NewPage   func() *Page
	LaunchErr error
	NavErr    error
	QuitErr   error

	mu       sync.Mutex
	launched []*Browser
	opts     []automation.LaunchOptions
}

// ErrLaunch is a convenient launch failure for tests.
var ErrLaunch = errors.New("automationtest: launch refused")

func (l *Launcher) Launch(ctx context.Context, opts automation.LaunchOptions) (automation.Browser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opts = append(l.opts, opts)
	if l.LaunchErr != nil {
		return nil, errs.Wrap(errs.Unavailable, "launch fake browser", l.LaunchErr)
	}
	page := NewPage()
	if l.NewPage != nil {
		page = l.NewPage()
	}
	b := &Browser{Page: page, QuitErr: l.QuitErr, NavErr: l.NavErr}
	l.launched = append(l.launched, b)
	return b, nil
}

// Launched returns every browser launched so far.
func (l *Launcher) Launched() []*Browser {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Browser(nil), l.launched...)
}

// Options returns the options of every launch so far.
func (l *Launcher) Options() []automation.LaunchOptions {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]automation.LaunchOptions(nil), l.opts...)
}
