package validation

import (
	"fmt"
	"strings"
)

// Entry is one enumerated content entity. Entity is nil when the entity could
// not be loaded, in which case LoadErr usually explains why.
type Entry struct {
	Identity string
	Entity   Validatable
	LoadErr  error
}

// Sink receives failures as they are discovered.
type Sink interface {
	ReportError(message string)
}

// Failure is the diagnostic recorded for one entity.
type Failure struct {
	Identity string   `json:"identity"`
	Messages []string `json:"messages"`
}

// Summary is the aggregate verdict of a ValidateAll pass.
type Summary struct {
	Checked  int
	Failures []Failure
}

// Passed reports whether every entity loaded and validated.
func (s Summary) Passed() bool {
	return len(s.Failures) == 0
}

// LoadFailureMessage is the synthetic message recorded for an entity that
// could not be loaded.
func LoadFailureMessage(identity string) string {
	return fmt.Sprintf("couldn't load %s", identity)
}

// ValidateAll validates every entry exactly once and never stops at the first
// failure. Each failure is reported to sink before the next entry is visited.
func ValidateAll(entries []Entry, sink Sink) Summary {
	summary := Summary{}

	for _, entry := range entries {
		summary.Checked++

		if entry.Entity == nil || entry.LoadErr != nil {
			msg := LoadFailureMessage(entry.Identity)
			summary.Failures = append(summary.Failures, Failure{
				Identity: entry.Identity,
				Messages: []string{msg},
			})
			report(sink, msg)
			continue
		}

		outcome := entry.Entity.Validate()
		if outcome.Valid() {
			continue
		}

		summary.Failures = append(summary.Failures, Failure{
			Identity: entry.Identity,
			Messages: outcome.Messages,
		})
		report(sink, fmt.Sprintf("%s has validation errors:\n%s", entry.Identity, strings.Join(outcome.Messages, "\n")))
	}

	return summary
}

func report(sink Sink, msg string) {
	if sink != nil {
		sink.ReportError(msg)
	}
}

// IndexIdentity keys the failure recorded when the content index itself
// cannot be listed.
const IndexIdentity = "content index"

// Collect runs an enumeration and turns a listing error into a single load
// failure keyed by IndexIdentity.
func Collect(enumerate func() ([]Entry, error)) []Entry {
	entries, err := enumerate()
	if err != nil {
		entries = append(entries, Entry{Identity: IndexIdentity, LoadErr: err})
	}
	return entries
}
