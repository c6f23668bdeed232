package matrix

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/quoteform-e2e/internal/errs"
	"github.com/kuitang/quoteform-e2e/internal/quotepage"
)

func TestLoad_EmbeddedBattery(t *testing.T) {
	m, err := Load()
	require.NoError(t, err)
	require.Len(t, m.Scenarios, 15)

	quotes := map[[3]int]string{}
	validations := map[string]string{}
	for _, s := range m.Scenarios {
		if s.Expect.Kind() == ExpectQuote && s.Corrupt == nil {
			quotes[[3]int{s.Age, s.Experience, s.Accidents}] = s.Expect.Quote
		}
		if s.Expect.Kind() == ExpectValidation {
			validations[s.Name] = s.Expect.Validation
		}
	}
	assert.Equal(t, "$5500", quotes[[3]int{24, 3, 0}])
	assert.Equal(t, "No Insurance for you!!  Too many accidents - go take a course!", quotes[[3]int{25, 3, 4}])
	assert.Equal(t, "$3905", quotes[[3]int{35, 9, 2}])
	assert.Equal(t, "$7000", quotes[[3]int{16, 0, 0}])
	assert.Equal(t, "$3905", quotes[[3]int{30, 2, 1}])
	assert.Equal(t, "$2840", quotes[[3]int{45, 29, 1}])
	assert.Equal(t, "$2840", quotes[[3]int{40, 10, 2}])
	assert.Len(t, validations, 7)

	s14, ok := m.Find("Test14_InvalidExperience_Error")
	require.True(t, ok)
	assert.Equal(t, &Corruption{Field: quotepage.ExperienceID, Value: "5"}, s14.Corrupt)
	assert.Equal(t, "No Insurance for you!! Driver Age / Experience Not Correct", s14.Expect.Quote)

	s7, ok := m.Find("Test7_AgeOmitted_Error")
	require.True(t, ok)
	assert.Equal(t, "", s7.Corrupt.Value, "omitted fields are cleared")
	assert.False(t, s7.SubmitOnFill())
}

func TestScenario_Record(t *testing.T) {
	rec := Scenario{Age: 35, Experience: 9, Accidents: 2}.Record()
	assert.Equal(t, "Rumsha", rec.FirstName)
	assert.Equal(t, "35", rec.Age)
	assert.Equal(t, "9", rec.Experience)
	assert.Equal(t, "2", rec.Accidents)
}

func TestParse_RejectsMalformedMatrices(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"empty file", ``, "empty"},
		{"no scenarios", "scenarios: []\n", "no scenarios"},
		{"unknown key", "scenarios:\n  - name: a\n    agee: 3\n    expect: {quote: $1}\n", "agee"},
		{"duplicate", "scenarios:\n  - {name: a, expect: {quote: $1}}\n  - {name: a, expect: {quote: $2}}\n", "duplicate name"},
		{"unknown corrupt field", "scenarios:\n  - {name: a, corrupt: {field: zip}, expect: {validation: age}}\n", `corrupt.field "zip"`},
		{"missing expectation", "scenarios:\n  - {name: a, age: 20}\n", "expect needs quote or validation"},
		{"both expectations", "scenarios:\n  - {name: a, expect: {quote: $1, validation: age}}\n", "both"},
		{"unknown validation field", "scenarios:\n  - {name: a, expect: {validation: btnSubmit}}\n", `expect.validation "btnSubmit"`},
		{"negative input", "scenarios:\n  - {name: a, accidents: -1, expect: {quote: $1}}\n", "negative"},
		{"missing name", "scenarios:\n  - {expect: {quote: $1}}\n", "name is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.yaml))
			require.Error(t, err)
			assert.Equal(t, errs.InvalidArgument, errs.CodeOf(err))
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	m := &Matrix{Scenarios: []Scenario{
		{Name: "a"},
		{Name: "a", Expect: Expectation{Quote: "$1"}, Corrupt: &Corruption{Field: "nope"}},
	}}
	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expect needs quote or validation")
	assert.Contains(t, err.Error(), "duplicate name")
	assert.Contains(t, err.Error(), `corrupt.field "nope"`)
}

func TestSelect(t *testing.T) {
	m, err := Load()
	require.NoError(t, err)

	assert.Len(t, m.Select(""), 15)
	got := m.Select("omitted")
	require.Len(t, got, 3)
	assert.Equal(t, "Test7_AgeOmitted_Error", got[0].Name)
	assert.Len(t, m.Select("test1_"), 1)
	assert.Empty(t, m.Select("does-not-exist"))
	assert.Len(t, m.Names(), 15)
}

func TestExpectation_String(t *testing.T) {
	assert.Equal(t, "$5500", Expectation{Quote: "$5500"}.String())
	assert.Equal(t, "validation message on age", Expectation{Validation: "age"}.String())
}
