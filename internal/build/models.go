package build

import (
	"github.com/cochaviz/buildgate/internal/artifacts"
	"github.com/cochaviz/buildgate/internal/models"
)

// Status is the terminal state of one orchestration run.
type Status string

// Supported run statuses.
const (
	StatusMissingSettings   Status = "missing-settings"
	StatusMissingConfig     Status = "missing-config"
	StatusInvalidConfig     Status = "invalid-config"
	StatusInvalidData       Status = "invalid-data"
	StatusAbortedByOperator Status = "aborted-by-operator"
	StatusSucceeded         Status = "build-succeeded"
	StatusFailed            Status = "build-failed"
)

// Stage is one step of the orchestration state machine.
type Stage int

const (
	StageLocateSettings Stage = iota
	StageLocateConfig
	StageValidateConfig
	StageDeriveParameters
	StageValidateContent
	StageConfirmBuild
	StageInvokeBackend
	StageReportOutcome
)

// stages is the order in which a run visits stages.
var stages = []Stage{
	StageLocateSettings,
	StageLocateConfig,
	StageValidateConfig,
	StageDeriveParameters,
	StageValidateContent,
	StageConfirmBuild,
	StageInvokeBackend,
	StageReportOutcome,
}

func (s Stage) String() string {
	switch s {
	case StageLocateSettings:
		return "locate-settings"
	case StageLocateConfig:
		return "locate-config"
	case StageValidateConfig:
		return "validate-config"
	case StageDeriveParameters:
		return "derive-parameters"
	case StageValidateContent:
		return "validate-content"
	case StageConfirmBuild:
		return "confirm-build"
	case StageInvokeBackend:
		return "invoke-backend"
	case StageReportOutcome:
		return "report-outcome"
	default:
		return "unknown"
	}
}

// Option is a backend build option derived from the preset.
type Option string

const (
	OptionNone        Option = "none"
	OptionDevelopment Option = "development"
)

// Parameters are the resolved inputs handed to the backend. They live only for
// the duration of one run.
type Parameters struct {
	RunID      string             `yaml:"run_id"`
	ConfigID   string             `yaml:"config_id"`
	Scenes     []string           `yaml:"scenes"`
	OutputPath string             `yaml:"output_path"`
	Target     models.BuildTarget `yaml:"target"`
	Options    Option             `yaml:"options"`
}

// BackendResult is the signal returned by a backend invocation.
type BackendResult string

const (
	BackendSucceeded BackendResult = "succeeded"
	BackendFailed    BackendResult = "failed"
)

// Question is a confirmation request shown to the operator.
type Question struct {
	Title       string
	Body        string
	Affirmative string
	Negative    string
}

// Request selects what a run builds. An empty ConfigRef uses the reference
// stored in the project's build settings.
type Request struct {
	ConfigRef string
}

// Report summarises one orchestration run.
type Report struct {
	RunID           string
	Status          Status
	Stage           Stage
	ConfigErrors    []string
	ContentPassed   bool
	ContentFailures int
	Overrides       []Stage
	Parameters      *Parameters
	Artifact        *artifacts.Artifact
}

// Overridden reports whether the operator continued past a failed stage.
func (r Report) Overridden(stage Stage) bool {
	for _, s := range r.Overrides {
		if s == stage {
			return true
		}
	}
	return false
}
