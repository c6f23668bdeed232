package validation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/kuitang/quoteform-e2e/internal/automation"
	"github.com/kuitang/quoteform-e2e/internal/automation/automationtest"
	"github.com/kuitang/quoteform-e2e/internal/quotepage"
)

func browserWith(page *automationtest.Page) *automationtest.Browser {
	return &automationtest.Browser{Page: page}
}

func TestGetValidationMessage_NativeMessageWins(t *testing.T) {
	t.Parallel()
	page := automationtest.QuotePage(nil)
	email := page.Element(quotepage.EmailID)
	email.Props["validationMessage"] = "Please enter a part following '@'. 'test@' is incomplete."
	email.Attrs["class"] = "invalid"
	companion := page.AddSelector("#email-error", "Email is invalid")

	got := GetValidationMessage(context.Background(), browserWith(page), quotepage.EmailID)
	assert.Equal(t, "Please enter a part following '@'. 'test@' is incomplete.", got)

	// Later probes never ran.
	companion.Hook = func(op string) error {
		t.Errorf("companion probed after native message (%s)", op)
		return nil
	}
	GetValidationMessage(context.Background(), browserWith(page), quotepage.EmailID)
}

func TestGetValidationMessage_SelectorOrder(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name      string
		selectors map[string]string
		want      string
	}{
		{
			name:      "data-valmsg-for",
			selectors: map[string]string{"[data-valmsg-for='phone']": "Phone is required", "#phone-error": "other"},
			want:      "Phone is required",
		},
		{
			name:      "id-error",
			selectors: map[string]string{"#phone-error": "Bad phone", "#phone ~ .error-message": "other"},
			want:      "Bad phone",
		},
		{
			name:      "adjacent validation-message",
			selectors: map[string]string{"#phone + .validation-message": "Use 10 digits"},
			want:      "Use 10 digits",
		},
		{
			name:      "sibling error-message",
			selectors: map[string]string{"#phone ~ .error-message": "Phone looks wrong"},
			want:      "Phone looks wrong",
		},
		{
			name:      "empty companion falls through",
			selectors: map[string]string{"[data-valmsg-for='phone']": "", "#phone-error": "Bad phone"},
			want:      "Bad phone",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page := automationtest.QuotePage(nil)
			for sel, text := range tc.selectors {
				page.AddSelector(sel, text)
			}
			got := GetValidationMessage(context.Background(), browserWith(page), quotepage.PhoneID)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetValidationMessage_HiddenCompanionIsSkipped(t *testing.T) {
	t.Parallel()
	page := automationtest.QuotePage(nil)
	hidden := page.AddSelector("#email-error", "Email is invalid")
	hidden.Visible = false
	page.AddSelector("#email + .validation-message", "Enter a valid email")

	got := GetValidationMessage(context.Background(), browserWith(page), quotepage.EmailID)
	assert.Equal(t, "Enter a valid email", got)
}

func TestGetValidationMessage_OnlyHiddenCompanionsMeansNoMessage(t *testing.T) {
	t.Parallel()
	page := automationtest.QuotePage(nil)
	page.AddSelector("[data-valmsg-for='email']", "Email is required").Visible = false
	page.AddSelector("#email-error", "Email is invalid").Visible = false

	assert.Equal(t, "", GetValidationMessage(context.Background(), browserWith(page), quotepage.EmailID))
}

func TestGetValidationMessage_ErrorClassSentinel(t *testing.T) {
	t.Parallel()
	for _, class := range []string{"form-control input-error", "is-invalid"} {
		page := automationtest.QuotePage(nil)
		page.Element(quotepage.AgeID).Attrs["class"] = class
		got := GetValidationMessage(context.Background(), browserWith(page), quotepage.AgeID)
		assert.Equal(t, ErrorClassMessage, got, class)
	}
}

func TestGetValidationMessage_NoSignal(t *testing.T) {
	t.Parallel()
	page := automationtest.QuotePage(nil)
	page.Element(quotepage.AgeID).Attrs["class"] = "form-control"
	assert.Equal(t, "", GetValidationMessage(context.Background(), browserWith(page), quotepage.AgeID))
}

func TestGetValidationMessage_MissingFieldIsEmpty(t *testing.T) {
	t.Parallel()
	page := automationtest.QuotePage(nil)
	page.AddSelector("#ghost-error", "orphan message")
	assert.Equal(t, "", GetValidationMessage(context.Background(), browserWith(page), "ghost"))
}

func TestGetValidationMessage_AbsorbsElementFailures(t *testing.T) {
	t.Parallel()
	page := automationtest.QuotePage(nil)
	age := page.Element(quotepage.AgeID)
	age.Hook = func(op string) error {
		if op == "attribute:validationMessage" {
			return errors.New("stale element reference")
		}
		return nil
	}
	page.AddSelector("#age-error", "Age is required")

	got := GetValidationMessage(context.Background(), browserWith(page), quotepage.AgeID)
	assert.Equal(t, "Age is required", got)
}

func TestFirstMatch_StopsAtFirstNonEmpty(t *testing.T) {
	t.Parallel()
	var evaluated []int
	probe := func(i int, result string) Probe {
		return func(ctx context.Context, b automation.Browser, fieldID string) (string, error) {
			evaluated = append(evaluated, i)
			return result, nil
		}
	}
	got := FirstMatch(context.Background(), nil, "age", probe(0, ""), probe(1, "second"), probe(2, "third"))
	assert.Equal(t, "second", got)
	assert.Equal(t, []int{0, 1}, evaluated)
}

func TestFirstMatch_PanickingProbeIsNoSignal(t *testing.T) {
	t.Parallel()
	panicky := func(ctx context.Context, b automation.Browser, fieldID string) (string, error) {
		panic("nil element")
	}
	fallback := func(ctx context.Context, b automation.Browser, fieldID string) (string, error) {
		return "fallback", nil
	}
	assert.Equal(t, "fallback", FirstMatch(context.Background(), nil, "age", panicky, fallback))
}

// Property: for any field id and any page contents, the inspector returns
// without panicking, and returns "" whenever the page carries no signal.
func TestGetValidationMessage_NeverFails_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		page := automationtest.QuotePage(nil)
		fieldID := rapid.OneOf(
			rapid.SampledFrom(quotepage.FieldOrder),
			rapid.String(),
		).Draw(t, "fieldID")

		failing := rapid.Bool().Draw(t, "failing")
		for _, id := range quotepage.FieldOrder {
			el := page.Element(id)
			if failing {
				el.Hook = func(op string) error { return errors.New("driver disconnected") }
			}
		}

		var got string
		assert.NotPanics(t, func() {
			got = GetValidationMessage(context.Background(), browserWith(page), fieldID)
		})
		assert.Equal(t, "", got)
	})
}

// Property: the native message, when present, always wins over every other signal.
func TestGetValidationMessage_NativePrecedence_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		fieldID := rapid.SampledFrom(quotepage.FieldOrder).Draw(t, "fieldID")
		native := rapid.StringMatching(`[A-Za-z][A-Za-z .']{0,40}`).Draw(t, "native")
		companion := rapid.StringMatching(`[A-Za-z ]{1,20}`).Draw(t, "companion")

		page := automationtest.QuotePage(nil)
		el := page.Element(fieldID)
		el.Props["validationMessage"] = native
		el.Attrs["class"] = "error"
		page.AddSelector("#"+fieldID+"-error", companion)

		assert.Equal(t, native, GetValidationMessage(context.Background(), browserWith(page), fieldID))
	})
}
