// Package matrix declares the quote-form scenarios and runs them.
//
// Scenarios live in scenarios.yaml, embedded at build time. A scenario fills
// the form with the default identity plus its rating inputs, optionally
// corrupts one field, submits, and compares either the literal quote or the
// presence of a validation message against its expectation.
package matrix

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kuitang/quoteform-e2e/internal/errs"
	"github.com/kuitang/quoteform-e2e/internal/form"
	"github.com/kuitang/quoteform-e2e/internal/quotepage"
)

//go:embed scenarios.yaml
var scenariosYAML []byte

// ExpectationKind distinguishes the two ways a scenario can pass.
type ExpectationKind string

const (
	ExpectQuote      ExpectationKind = "quote"
	ExpectValidation ExpectationKind = "validation"
)

// Expectation is exactly one of a literal quote (compared for exact equality
// with the result field) or a field that must show a validation message.
type Expectation struct {
	Quote      string `yaml:"quote,omitempty" json:"quote,omitempty"`
	Validation string `yaml:"validation,omitempty" json:"validation,omitempty"`
}

// Kind reports which expectation is set.
func (e Expectation) Kind() ExpectationKind {
	if e.Validation != "" {
		return ExpectValidation
	}
	return ExpectQuote
}

func (e Expectation) String() string {
	if e.Kind() == ExpectValidation {
		return "validation message on " + e.Validation
	}
	return e.Quote
}

// Corruption overwrites one field after the initial fill. An empty Value
// clears the field.
type Corruption struct {
	Field string `yaml:"field" json:"field"`
	Value string `yaml:"value,omitempty" json:"value,omitempty"`
}

// Scenario is one input to expected-output declaration.
type Scenario struct {
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	Age         int         `yaml:"age" json:"age"`
	Experience  int         `yaml:"experience" json:"experience"`
	Accidents   int         `yaml:"accidents" json:"accidents"`
	Corrupt     *Corruption `yaml:"corrupt,omitempty" json:"corrupt,omitempty"`
	Expect      Expectation `yaml:"expect" json:"expect"`
}

// Record returns the form input for s.
func (s Scenario) Record() form.Record {
	return form.DefaultIdentity().WithRating(s.Age, s.Experience, s.Accidents)
}

// SubmitOnFill reports whether the initial fill submits and waits for a
// result. Corrupted scenarios fill without submitting and submit after the
// corruption instead.
func (s Scenario) SubmitOnFill() bool {
	return s.Corrupt == nil
}

// Matrix is an ordered list of scenarios.
type Matrix struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// Load parses and validates the embedded scenario file.
func Load() (*Matrix, error) {
	return Parse(bytes.NewReader(scenariosYAML))
}

// Parse decodes a scenario file and validates it. Unknown keys are rejected.
func Parse(r io.Reader) (*Matrix, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var m Matrix
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errs.New(errs.InvalidArgument, "scenario file is empty")
		}
		return nil, errs.Wrap(errs.InvalidArgument, "parse scenario file", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate reports every problem in the matrix as one InvalidArgument error.
func (m *Matrix) Validate() error {
	var problems []string
	if len(m.Scenarios) == 0 {
		problems = append(problems, "no scenarios")
	}
	seen := make(map[string]bool, len(m.Scenarios))
	for i, s := range m.Scenarios {
		label := fmt.Sprintf("scenario %d", i+1)
		if s.Name == "" {
			problems = append(problems, label+": name is required")
		} else {
			label = fmt.Sprintf("scenario %q", s.Name)
			if seen[s.Name] {
				problems = append(problems, label+": duplicate name")
			}
			seen[s.Name] = true
		}
		if s.Age < 0 || s.Experience < 0 || s.Accidents < 0 {
			problems = append(problems, label+": rating inputs must not be negative")
		}
		if s.Corrupt != nil && !quotepage.IsField(s.Corrupt.Field) {
			problems = append(problems, fmt.Sprintf("%s: corrupt.field %q is not a form field", label, s.Corrupt.Field))
		}
		switch {
		case s.Expect.Quote == "" && s.Expect.Validation == "":
			problems = append(problems, label+": expect needs quote or validation")
		case s.Expect.Quote != "" && s.Expect.Validation != "":
			problems = append(problems, label+": expect cannot set both quote and validation")
		case s.Expect.Validation != "" && !quotepage.IsField(s.Expect.Validation):
			problems = append(problems, fmt.Sprintf("%s: expect.validation %q is not a form field", label, s.Expect.Validation))
		}
	}
	if len(problems) > 0 {
		return errs.New(errs.InvalidArgument, "invalid scenario matrix:\n  - "+strings.Join(problems, "\n  - "))
	}
	return nil
}

// Find returns the scenario named name.
func (m *Matrix) Find(name string) (Scenario, bool) {
	for _, s := range m.Scenarios {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}

// Select returns the scenarios whose name contains filter, case-insensitively.
// An empty filter selects everything.
func (m *Matrix) Select(filter string) []Scenario {
	filter = strings.ToLower(strings.TrimSpace(filter))
	var out []Scenario
	for _, s := range m.Scenarios {
		if filter == "" || strings.Contains(strings.ToLower(s.Name), filter) {
			out = append(out, s)
		}
	}
	return out
}

// Names returns every scenario name, sorted.
func (m *Matrix) Names() []string {
	names := make([]string, 0, len(m.Scenarios))
	for _, s := range m.Scenarios {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}
