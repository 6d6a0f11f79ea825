package build

import "github.com/cockroachdb/errors"

// Gate decides what happens when a stage fails.
type Gate int

const (
	// GateNone marks stages that cannot fail on their own.
	GateNone Gate = iota
	// GateHard ends the run when the stage fails.
	GateHard
	// GateSoft asks the operator whether to continue when the stage fails.
	GateSoft
)

func (g Gate) String() string {
	switch g {
	case GateNone:
		return "none"
	case GateHard:
		return "hard"
	case GateSoft:
		return "soft"
	default:
		return "unknown"
	}
}

// Policy overrides the default gate of individual stages.
type Policy map[Stage]Gate

// defaultGates is the gate of every stage absent an override.
var defaultGates = map[Stage]Gate{
	StageLocateSettings:   GateHard,
	StageLocateConfig:     GateHard,
	StageValidateConfig:   GateHard,
	StageDeriveParameters: GateNone,
	StageValidateContent:  GateSoft,
	StageConfirmBuild:     GateHard,
	StageInvokeBackend:    GateNone,
	StageReportOutcome:    GateNone,
}

// pinnedGates cannot be overridden with anything but a hard gate.
var pinnedGates = []Stage{
	StageLocateSettings,
	StageLocateConfig,
	StageValidateConfig,
	StageConfirmBuild,
}

// Gate returns the effective gate of stage.
func (p Policy) Gate(stage Stage) Gate {
	if gate, ok := p[stage]; ok {
		return gate
	}
	return defaultGates[stage]
}

// Validate rejects policies that weaken a pinned hard gate, that gate a stage
// which cannot fail, or that remove the gate of a stage which can.
func (p Policy) Validate() error {
	for _, stage := range pinnedGates {
		if gate := p.Gate(stage); gate != GateHard {
			return errors.Newf("stage %s must keep a hard gate, got %s", stage, gate)
		}
	}
	for stage, gate := range p {
		if defaultGates[stage] == GateNone && gate != GateNone {
			return errors.Newf("stage %s cannot be gated", stage)
		}
		if defaultGates[stage] != GateNone && gate == GateNone {
			return errors.Newf("stage %s must be gated", stage)
		}
	}
	return nil
}

// StrictPolicy turns the content gate hard, so invalid data aborts without a prompt.
func StrictPolicy() Policy {
	return Policy{StageValidateContent: GateHard}
}
