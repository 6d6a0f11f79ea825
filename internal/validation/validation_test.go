package validation

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEntity struct {
	messages []string
	calls    *int
}

func (s stubEntity) Validate() Outcome {
	if s.calls != nil {
		*s.calls++
	}
	var c Checker
	for _, msg := range s.messages {
		c.Check(true, msg)
	}
	return c.Outcome()
}

type recordingSink struct {
	errors []string
}

func (r *recordingSink) ReportError(message string) {
	r.errors = append(r.errors, message)
}

func TestCheckerCollectsEveryFailure(t *testing.T) {
	var c Checker
	c.Check(true, "first")
	c.Check(false, "skipped")
	c.Checkf(true, "third %d", 3)

	outcome := c.Outcome()
	assert.Equal(t, Invalid, outcome.Result)
	assert.Equal(t, []string{"first", "third 3"}, outcome.Messages)
}

func TestCheckerValidHasNoMessages(t *testing.T) {
	var c Checker
	c.Check(false, "never")

	outcome := c.Outcome()
	assert.True(t, outcome.Valid())
	assert.Empty(t, outcome.Messages)
}

func TestCheckerDoesNotDeduplicate(t *testing.T) {
	var c Checker
	c.Check(true, "same")
	c.Check(true, "same")

	assert.Equal(t, []string{"same", "same"}, c.Outcome().Messages)
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "valid", Valid.String())
	assert.Equal(t, "invalid", Invalid.String())
}

func TestValidateAllVisitsEveryEntry(t *testing.T) {
	calls := 0
	entries := []Entry{
		{Identity: "data/a.yaml", Entity: stubEntity{messages: []string{"Missing ID"}, calls: &calls}},
		{Identity: "data/b.yaml", Entity: stubEntity{calls: &calls}},
		{Identity: "data/c.yaml", LoadErr: errors.New("boom")},
		{Identity: "data/d.yaml", Entity: stubEntity{messages: []string{"x", "y"}, calls: &calls}},
	}
	sink := &recordingSink{}

	summary := ValidateAll(entries, sink)

	assert.False(t, summary.Passed())
	assert.Equal(t, 4, summary.Checked)
	assert.Equal(t, 3, calls)
	require.Len(t, summary.Failures, 3)
	assert.Equal(t, []string{"couldn't load data/c.yaml"}, summary.Failures[1].Messages)
	assert.Equal(t, []string{
		"data/a.yaml has validation errors:\nMissing ID",
		"couldn't load data/c.yaml",
		"data/d.yaml has validation errors:\nx\ny",
	}, sink.errors)
}

func TestValidateAllNilEntityIsLoadFailure(t *testing.T) {
	summary := ValidateAll([]Entry{{Identity: "data/missing.yaml"}}, nil)

	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "couldn't load data/missing.yaml", summary.Failures[0].Messages[0])
}

func TestValidateAllPassesWhenEverythingIsValid(t *testing.T) {
	sink := &recordingSink{}
	summary := ValidateAll([]Entry{
		{Identity: "a", Entity: stubEntity{}},
		{Identity: "b", Entity: stubEntity{}},
	}, sink)

	assert.True(t, summary.Passed())
	assert.Empty(t, sink.errors)
}

func TestValidateAllIndependentOfOrder(t *testing.T) {
	entries := []Entry{
		{Identity: "a", Entity: stubEntity{messages: []string{"bad"}}},
		{Identity: "b", Entity: stubEntity{}},
		{Identity: "c", LoadErr: errors.New("nope")},
		{Identity: "d", Entity: stubEntity{}},
		{Identity: "e", Entity: stubEntity{messages: []string{"worse"}}},
	}
	baseline := ValidateAll(entries, nil)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		shuffled := append([]Entry(nil), entries...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		sink := &recordingSink{}
		summary := ValidateAll(shuffled, sink)

		assert.Equal(t, baseline.Passed(), summary.Passed())
		assert.Len(t, summary.Failures, 3)
		assert.Len(t, sink.errors, 3)
		assert.ElementsMatch(t, baseline.Failures, summary.Failures)
	}
}
