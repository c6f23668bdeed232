// Package validation reads whatever validation feedback the quote page shows for
// a field. It knows several conventions pages use to surface an error and
// reports the first one that yields text.
package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/kuitang/quoteform-e2e/internal/automation"
	"github.com/kuitang/quoteform-e2e/internal/obs"
)

// ErrorClassMessage is reported when the only signal is an error-like class on the field.
const ErrorClassMessage = "Invalid field (marked with error class)"

// Probe looks for one kind of validation signal. An empty result means no
// signal; errors are treated the same as no signal.
type Probe func(ctx context.Context, b automation.Browser, fieldID string) (string, error)

// FirstMatch evaluates probes in order and returns the first non-empty result.
// Probes after the first match are not evaluated. A probe that errors or panics
// counts as no signal.
func FirstMatch(ctx context.Context, b automation.Browser, fieldID string, probes ...Probe) string {
	for i, probe := range probes {
		msg := runProbe(ctx, b, fieldID, i, probe)
		if msg != "" {
			return msg
		}
	}
	return ""
}

func runProbe(ctx context.Context, b automation.Browser, fieldID string, i int, probe Probe) (msg string) {
	defer func() {
		if r := recover(); r != nil {
			obs.From(ctx).Debug("validation_probe_panicked", "pkg", "validation", "field", fieldID, "probe", i, "panic", fmt.Sprint(r))
			msg = ""
		}
	}()
	msg, err := probe(ctx, b, fieldID)
	if err != nil {
		if !automation.IsNotFound(err) {
			obs.From(ctx).Debug("validation_probe_failed", "pkg", "validation", "field", fieldID, "probe", i, "error", err)
		}
		return ""
	}
	return msg
}

// NativeMessage reads the field's validationMessage property.
func NativeMessage(ctx context.Context, b automation.Browser, fieldID string) (string, error) {
	el, err := b.FindElement(ctx, automation.ByID, fieldID)
	if err != nil {
		return "", err
	}
	return el.Attribute(ctx, "validationMessage")
}

// SelectorText returns a probe reading the text of the element matched by the
// CSS selector built from pattern, with %s replaced by the field id.
func SelectorText(pattern string) Probe {
	return func(ctx context.Context, b automation.Browser, fieldID string) (string, error) {
		el, err := b.FindElement(ctx, automation.ByCSSSelector, fmt.Sprintf(pattern, fieldID))
		if err != nil {
			return "", err
		}
		return el.Text(ctx)
	}
}

// ErrorClass reports ErrorClassMessage when the field's class attribute
// contains "error" or "invalid".
func ErrorClass(ctx context.Context, b automation.Browser, fieldID string) (string, error) {
	el, err := b.FindElement(ctx, automation.ByID, fieldID)
	if err != nil {
		return "", err
	}
	class, err := el.Attribute(ctx, "class")
	if err != nil {
		return "", err
	}
	if strings.Contains(class, "error") || strings.Contains(class, "invalid") {
		return ErrorClassMessage, nil
	}
	return "", nil
}

// SelectorPatterns are the companion-element conventions, in probe order.
var SelectorPatterns = []string{
	"[data-valmsg-for='%s']",
	"#%s-error",
	"#%s + .validation-message",
	"#%s ~ .error-message",
}

// DefaultProbes is the probe order GetValidationMessage uses.
func DefaultProbes() []Probe {
	probes := []Probe{NativeMessage}
	for _, p := range SelectorPatterns {
		probes = append(probes, SelectorText(p))
	}
	return append(probes, ErrorClass)
}

// GetValidationMessage returns the validation message shown for fieldID, or ""
// when the page shows none. A field with no backing element has no message.
// It never fails.
func GetValidationMessage(ctx context.Context, b automation.Browser, fieldID string) string {
	if !fieldExists(ctx, b, fieldID) {
		obs.From(ctx).Debug("validation_field_missing", "pkg", "validation", "field", fieldID)
		return ""
	}
	msg := FirstMatch(ctx, b, fieldID, DefaultProbes()...)
	obs.From(ctx).Debug("validation_message", "pkg", "validation", "field", fieldID, "found", msg != "")
	return msg
}

func fieldExists(ctx context.Context, b automation.Browser, fieldID string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	_, err := b.FindElement(ctx, automation.ByID, fieldID)
	return err == nil
}
