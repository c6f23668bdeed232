// Package form drives the quote form: typing the input record into its fields,
// submitting, and reading back the quote.
package form

import (
	"context"
	"fmt"

	"github.com/kuitang/quoteform-e2e/internal/automation"
	"github.com/kuitang/quoteform-e2e/internal/errs"
	"github.com/kuitang/quoteform-e2e/internal/logutil"
	"github.com/kuitang/quoteform-e2e/internal/obs"
	"github.com/kuitang/quoteform-e2e/internal/quotepage"
	"github.com/kuitang/quoteform-e2e/internal/session"
)

// ScrollIntoViewScript brings the element passed as arguments[0] into view.
const ScrollIntoViewScript = "arguments[0].scrollIntoView(true);"

// Record holds the literal text typed into each field. Values are not
// validated; malformed input is how validation scenarios are built.
type Record struct {
	FirstName  string `yaml:"firstName" json:"firstName"`
	LastName   string `yaml:"lastName" json:"lastName"`
	Address    string `yaml:"address" json:"address"`
	City       string `yaml:"city" json:"city"`
	PostalCode string `yaml:"postalCode" json:"postalCode"`
	Phone      string `yaml:"phone" json:"phone"`
	Email      string `yaml:"email" json:"email"`
	Age        string `yaml:"age" json:"age"`
	Experience string `yaml:"experience" json:"experience"`
	Accidents  string `yaml:"accidents" json:"accidents"`
}

// DefaultIdentity returns the identity every scenario is filled with. Rating
// inputs are left empty for the caller.
func DefaultIdentity() Record {
	return Record{
		FirstName:  "Rumsha",
		LastName:   "Ahmed",
		Address:    "123 Upper James Street",
		City:       "Hamilton",
		PostalCode: "N2L 3G1",
		Phone:      "519-555-1234",
		Email:      "rum@sha.com",
	}
}

// WithRating returns a copy of r with the three rating inputs set.
func (r Record) WithRating(age, experience, accidents int) Record {
	r.Age = fmt.Sprint(age)
	r.Experience = fmt.Sprint(experience)
	r.Accidents = fmt.Sprint(accidents)
	return r
}

// Values returns the record keyed by element id.
func (r Record) Values() map[string]string {
	return map[string]string{
		quotepage.FirstNameID:  r.FirstName,
		quotepage.LastNameID:   r.LastName,
		quotepage.AddressID:    r.Address,
		quotepage.CityID:       r.City,
		quotepage.PostalCodeID: r.PostalCode,
		quotepage.PhoneID:      r.Phone,
		quotepage.EmailID:      r.Email,
		quotepage.AgeID:        r.Age,
		quotepage.ExperienceID: r.Experience,
		quotepage.AccidentsID:  r.Accidents,
	}
}

// Fill types every field of rec into the page in quotepage.FieldOrder. With
// submit set it then clicks the submit control and waits until the result
// field holds a non-empty value.
func Fill(ctx context.Context, s *session.Session, rec Record, submit bool) error {
	log := obs.From(ctx).With("pkg", "form")
	values := rec.Values()
	for _, id := range quotepage.FieldOrder {
		el, err := s.Browser.FindElement(ctx, automation.ByID, id)
		if err != nil {
			return fmt.Errorf("fill %s: %w", id, err)
		}
		if err := el.SendKeys(ctx, values[id]); err != nil {
			return fmt.Errorf("fill %s: %w", id, err)
		}
	}
	log.Debug("form_filled", "fields", logutil.FormatFieldsForLog(values))

	if !submit {
		return nil
	}
	if err := Submit(ctx, s); err != nil {
		return err
	}
	_, err := WaitForResult(ctx, s)
	return err
}

// SetField replaces the value of field id. An empty value only clears it.
func SetField(ctx context.Context, s *session.Session, id, value string) error {
	el, err := s.Browser.FindElement(ctx, automation.ByID, id)
	if err != nil {
		return fmt.Errorf("set %s: %w", id, err)
	}
	if err := el.Clear(ctx); err != nil {
		return fmt.Errorf("set %s: %w", id, err)
	}
	if value != "" {
		if err := el.SendKeys(ctx, value); err != nil {
			return fmt.Errorf("set %s: %w", id, err)
		}
	}
	obs.From(ctx).Debug("field_set", "pkg", "form", "field", id, "value", logutil.RedactFieldValue(id, value))
	return nil
}

// ClearField empties field id.
func ClearField(ctx context.Context, s *session.Session, id string) error {
	return SetField(ctx, s, id, "")
}

// Submit scrolls the submit control into view and clicks it. It does not wait
// for a result.
func Submit(ctx context.Context, s *session.Session) error {
	btn, err := s.Browser.FindElement(ctx, automation.ByID, quotepage.SubmitID)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if _, err := s.Browser.ExecuteScript(ctx, ScrollIntoViewScript, btn); err != nil {
		return fmt.Errorf("submit: scroll into view: %w", err)
	}
	if err := btn.Click(ctx); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	obs.From(ctx).Debug("form_submitted", "pkg", "form")
	return nil
}

// ResultValue reads the current value of the result field.
func ResultValue(ctx context.Context, s *session.Session) (string, error) {
	el, err := s.Browser.FindElement(ctx, automation.ByID, quotepage.ResultID)
	if err != nil {
		return "", fmt.Errorf("read result: %w", err)
	}
	v, err := el.Attribute(ctx, "value")
	if err != nil {
		return "", fmt.Errorf("read result: %w", err)
	}
	return v, nil
}

// WaitForResult polls the result field until it is non-empty and returns its
// value. A result that never appears is an errs.Timeout.
func WaitForResult(ctx context.Context, s *session.Session) (string, error) {
	var result string
	err := s.Wait.Until(ctx, quotepage.ResultID+" populated", func(ctx context.Context) (bool, error) {
		v, err := ResultValue(ctx, s)
		if err != nil {
			return false, err
		}
		result = v
		return v != "", nil
	})
	if err != nil {
		if errs.Is(err, errs.Timeout) {
			obs.From(ctx).Warn("result_not_populated", "pkg", "form", "timeout", s.Wait.Timeout)
		}
		return "", err
	}
	return result, nil
}
