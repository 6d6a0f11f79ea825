package build

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/cochaviz/buildgate/internal/artifacts"
	"github.com/cochaviz/buildgate/internal/models"
	"github.com/cochaviz/buildgate/internal/validation"
)

// Orchestrator runs the gated build pipeline: locate settings and preset,
// validate the preset, derive parameters, validate content, confirm, invoke
// the backend and report. Only one run may be active at a time.
type Orchestrator struct {
	Logger      *slog.Logger
	Store       EntityStore
	Backend     Backend
	Prompt      Prompt
	Diagnostics Diagnostics
	Policy      Policy

	running sync.Mutex
}

// stepResult is what a stage hands back to the state machine.
type stepResult struct {
	passed   bool
	status   Status
	question *Question
}

func passed() stepResult {
	return stepResult{passed: true}
}

func stop(status Status) stepResult {
	return stepResult{status: status}
}

// Run executes one orchestration run. Every pipeline outcome, including
// missing settings and operator aborts, is reported through Report.Status;
// the error is reserved for runs that could not be carried out at all.
func (o *Orchestrator) Run(ctx context.Context, request Request) (Report, error) {
	if o.Store == nil || o.Backend == nil || o.Prompt == nil || o.Diagnostics == nil {
		return Report{}, errors.WithHint(ErrNotConfigured, "store, backend, prompt and diagnostics are required")
	}
	if err := o.Policy.Validate(); err != nil {
		return Report{}, errors.Wrap(err, "invalid gate policy")
	}
	if !o.running.TryLock() {
		return Report{}, ErrRunInProgress
	}
	defer o.running.Unlock()

	r := &run{
		orchestrator: o,
		request:      request,
		report:       Report{RunID: uuid.New().String()},
	}
	r.logger = o.logger().With("run_id", r.report.RunID)
	r.logger.Info("starting build run", "config_override", request.ConfigRef)

	for _, stage := range stages {
		// Once the backend has been invoked its outcome is always reported.
		if err := ctx.Err(); err != nil && stage <= StageInvokeBackend {
			return r.report, errors.Wrapf(err, "run interrupted before %s", stage)
		}

		r.report.Stage = stage
		result := r.step(ctx, stage)
		if result.passed {
			continue
		}

		gate := o.Policy.Gate(stage)
		logger := r.logger.With("stage", stage.String(), "gate", gate.String())

		if gate == GateSoft && result.question != nil {
			if r.ask(ctx, *result.question) {
				logger.Warn("operator overrode failed stage")
				r.report.Overrides = append(r.report.Overrides, stage)
				continue
			}
			result.status = StatusAbortedByOperator
		}

		logger.Info("build run stopped", "status", result.status)
		r.report.Status = result.status
		return r.report, nil
	}

	r.logger.Info("build run finished", "status", r.report.Status)
	return r.report, nil
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// run holds the state of a single orchestration run.
type run struct {
	orchestrator *Orchestrator
	request      Request
	logger       *slog.Logger
	report       Report

	settings   models.BuildSettings
	configRef  string
	config     models.BuildConfig
	params     Parameters
	result     BackendResult
	backendErr error
}

func (r *run) step(ctx context.Context, stage Stage) stepResult {
	switch stage {
	case StageLocateSettings:
		return r.locateSettings()
	case StageLocateConfig:
		return r.locateConfig()
	case StageValidateConfig:
		return r.validateConfig()
	case StageDeriveParameters:
		return r.deriveParameters()
	case StageValidateContent:
		return r.validateContent()
	case StageConfirmBuild:
		return r.confirmBuild(ctx)
	case StageInvokeBackend:
		return r.invokeBackend(ctx)
	case StageReportOutcome:
		return r.reportOutcome()
	default:
		panic(fmt.Sprintf("build: unhandled stage %d", stage))
	}
}

func (r *run) diagnostics() Diagnostics {
	return r.orchestrator.Diagnostics
}

func (r *run) locateSettings() stepResult {
	settings, err := r.orchestrator.Store.LoadSettings()
	if err != nil {
		r.logger.Error("build settings not found", "error", err)
		r.diagnostics().ReportError(fmt.Sprintf("Missing build settings! %v", err))
		return stop(StatusMissingSettings)
	}
	r.settings = settings
	return passed()
}

func (r *run) locateConfig() stepResult {
	ref := strings.TrimSpace(r.request.ConfigRef)
	if ref == "" {
		ref = strings.TrimSpace(r.settings.CurrentConfig)
	}
	if ref == "" {
		r.logger.Error("build settings reference no build config")
		r.diagnostics().ReportError("Missing build config! Build settings have no build config.")
		return stop(StatusMissingConfig)
	}

	config, err := r.orchestrator.Store.LoadConfig(ref)
	if err != nil {
		r.logger.Error("build config not found", "config", ref, "error", err)
		r.diagnostics().ReportError(fmt.Sprintf("Missing build config! %v", err))
		return stop(StatusMissingConfig)
	}

	r.configRef = ref
	r.config = config
	r.logger = r.logger.With("config", ref)
	return passed()
}

func (r *run) validateConfig() stepResult {
	var entity validation.Validatable = r.config

	outcome := entity.Validate()
	if outcome.Valid() {
		r.logger.Info("build config is valid")
		return passed()
	}

	for _, msg := range outcome.Messages {
		r.logger.Error("build config rule failed", "message", msg)
	}
	r.report.ConfigErrors = outcome.Messages
	r.diagnostics().ReportError(fmt.Sprintf("Invalid build configuration %q!\n%s", r.configRef, strings.Join(outcome.Messages, "\n")))
	return stop(StatusInvalidConfig)
}

func (r *run) deriveParameters() stepResult {
	scenes, err := r.orchestrator.Store.Scenes()
	if err != nil {
		r.logger.Error("read scene list", "error", err)
		r.diagnostics().ReportError(fmt.Sprintf("Could not read the scene list: %v", err))
		return stop(StatusInvalidConfig)
	}

	outputPath, err := filepath.Abs(filepath.Join(r.orchestrator.Store.Root(), filepath.FromSlash(r.config.BuildPath)))
	if err != nil {
		r.logger.Error("resolve build path", "build_path", r.config.BuildPath, "error", err)
		r.diagnostics().ReportError(fmt.Sprintf("Could not resolve build path %s: %v", r.config.BuildPath, err))
		return stop(StatusInvalidConfig)
	}

	options := OptionNone
	if r.config.Development {
		options = OptionDevelopment
	}

	r.params = Parameters{
		RunID:      r.report.RunID,
		ConfigID:   r.config.ID,
		Scenes:     models.EnabledScenePaths(scenes),
		OutputPath: outputPath,
		Target:     r.config.Target,
		Options:    options,
	}
	params := r.params
	r.report.Parameters = &params

	r.logger.Info("derived build parameters",
		"target", r.params.Target,
		"output_path", r.params.OutputPath,
		"scenes", len(r.params.Scenes),
		"options", r.params.Options,
	)
	return passed()
}

func (r *run) validateContent() stepResult {
	entries := validation.Collect(r.orchestrator.Store.EnumerateContentEntities)
	summary := validation.ValidateAll(entries, r.diagnostics())

	r.report.ContentPassed = summary.Passed()
	r.report.ContentFailures = len(summary.Failures)
	r.logger.Info("content validation finished", "checked", summary.Checked, "failures", len(summary.Failures))

	if summary.Passed() {
		return passed()
	}

	result := stop(StatusInvalidData)
	result.question = &Question{
		Title:       "Found invalid assets!",
		Body:        fmt.Sprintf("%d of %d content entities failed validation. See log for details.", len(summary.Failures), summary.Checked),
		Affirmative: "Continue with build anyway",
		Negative:    "Cancel build",
	}
	return result
}

func (r *run) confirmBuild(ctx context.Context) stepResult {
	confirmed := r.ask(ctx, Question{
		Title:       "Build with current settings?",
		Body:        fmt.Sprintf("Current config: %s\nCurrent build path: %s", r.config.ID, r.params.OutputPath),
		Affirmative: "OK",
		Negative:    "Cancel",
	})
	if !confirmed {
		r.logger.Info("operator declined build")
		return stop(StatusAbortedByOperator)
	}
	return passed()
}

func (r *run) invokeBackend(ctx context.Context) stepResult {
	r.logger.Info("invoking build backend")
	r.result, r.backendErr = r.orchestrator.Backend.Invoke(ctx, r.params)
	return passed()
}

func (r *run) reportOutcome() stepResult {
	if r.backendErr != nil || r.result != BackendSucceeded {
		r.report.Status = StatusFailed
		r.logger.Error("build failed", "result", r.result, "error", r.backendErr)
		if r.backendErr != nil {
			r.diagnostics().ReportError(fmt.Sprintf("Build failed! %v", r.backendErr))
		} else {
			r.diagnostics().ReportError("Build failed!")
		}
		return passed()
	}

	r.report.Status = StatusSucceeded
	artifact, err := artifacts.Describe(r.params.OutputPath, artifacts.BuildArtifact)
	if err != nil {
		r.logger.Warn("build output not found after successful build", "output_path", r.params.OutputPath, "error", err)
	} else {
		r.report.Artifact = &artifact
	}

	r.logger.Info("build succeeded", "output_path", r.params.OutputPath)
	r.diagnostics().ReportInfo("Build succeeded!")
	return passed()
}

// ask shows a question to the operator. A prompt error counts as a decline.
func (r *run) ask(ctx context.Context, question Question) bool {
	answer, err := r.orchestrator.Prompt.Ask(ctx, question)
	if err != nil {
		r.logger.Warn("confirmation prompt failed", "title", question.Title, "error", err)
		return false
	}
	return answer
}
