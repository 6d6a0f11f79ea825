package validation

import "fmt"

// Result is the pass/fail verdict of a single validation call.
type Result int

const (
	Valid Result = iota
	Invalid
)

func (r Result) String() string {
	switch r {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// Scope selects which rule set an entity evaluates.
type Scope int

const (
	// ScopeBuild evaluates every rule, including the ones that only make sense
	// while producing a build.
	ScopeBuild Scope = iota
	// ScopeRuntime evaluates only the rules over fields a running instance reads.
	ScopeRuntime
)

// Outcome is the result of one validation pass. A valid outcome carries no
// messages and an invalid one carries at least one.
type Outcome struct {
	Result   Result
	Messages []string
}

// Validatable is implemented by every entity that participates in the pipeline.
type Validatable interface {
	Validate() Outcome
}

func (o Outcome) Valid() bool {
	return o.Result == Valid
}

// Checker accumulates rule failures for one pass. Every Check is evaluated,
// a failing rule never prevents later rules from running.
type Checker struct {
	messages []string
}

// Check records msg when failed is true.
func (c *Checker) Check(failed bool, msg string) {
	if failed {
		c.messages = append(c.messages, msg)
	}
}

// Checkf is Check with a formatted message.
func (c *Checker) Checkf(failed bool, format string, args ...any) {
	if failed {
		c.messages = append(c.messages, fmt.Sprintf(format, args...))
	}
}

// Outcome builds the outcome of the checks recorded so far.
func (c *Checker) Outcome() Outcome {
	if len(c.messages) == 0 {
		return Outcome{Result: Valid}
	}
	return Outcome{
		Result:   Invalid,
		Messages: append([]string(nil), c.messages...),
	}
}
