// Package config wires the project configuration to the build pipeline and
// exposes the operations of the buildgate CLI.
package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/cochaviz/buildgate/internal/build"
	"github.com/cochaviz/buildgate/internal/build/adapters/command"
	"github.com/cochaviz/buildgate/internal/build/adapters/manifest"
	"github.com/cochaviz/buildgate/internal/console"
	"github.com/cochaviz/buildgate/internal/logging"
	"github.com/cochaviz/buildgate/internal/models"
	"github.com/cochaviz/buildgate/internal/repositories/embedded"
	"github.com/cochaviz/buildgate/internal/repositories/local"
	"github.com/cochaviz/buildgate/internal/setup"
	"github.com/cochaviz/buildgate/internal/validation"
)

// DefaultConfigRef names the preset created by Init.
const DefaultConfigRef = "default"

// ErrAlreadyInitialised is returned by Init for a project with build settings.
var ErrAlreadyInitialised = errors.New("project already initialised")

// BuildOptions selects how Build runs.
type BuildOptions struct {
	Setup      setup.Config
	ConfigRef  string
	AssumeYes  bool
	StrictData bool

	// Prompt and Diagnostics replace the terminal adapters when set.
	Prompt      build.Prompt
	Diagnostics build.Diagnostics

	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// NewBackend returns the build backend selected by cfg.
func NewBackend(cfg setup.Config, stdout, stderr io.Writer, logger *slog.Logger) (build.Backend, error) {
	switch cfg.Backend.Kind {
	case setup.BackendCommand:
		return &command.Backend{
			Command: cfg.Backend.Command,
			Dir:     cfg.Project,
			Stdout:  stdout,
			Stderr:  stderr,
			Logger:  logger,
		}, nil
	case setup.BackendManifest, "":
		return &manifest.Backend{Logger: logger}, nil
	default:
		return nil, errors.Newf("unknown backend %q", cfg.Backend.Kind)
	}
}

// Build runs one gated build of the project.
func Build(ctx context.Context, opts BuildOptions) (build.Report, error) {
	logger := logging.Ensure(opts.Logger).With("component", "config", "project", opts.Setup.Project)

	backend, err := NewBackend(opts.Setup, opts.Stdout, opts.Stderr, logger.With("service", "backend"))
	if err != nil {
		return build.Report{}, err
	}

	prompt := opts.Prompt
	if prompt == nil {
		if opts.AssumeYes {
			prompt = console.AutoPrompt{Answer: true, Logger: logger}
		} else {
			prompt = &console.Prompt{Writer: opts.Stdout}
		}
	}

	diagnostics := opts.Diagnostics
	if diagnostics == nil {
		diagnostics = &console.Sink{Writer: opts.Stderr}
	}

	var policy build.Policy
	if opts.StrictData {
		policy = build.StrictPolicy()
	}

	orchestrator := &build.Orchestrator{
		Logger:      logger.With("service", "build"),
		Store:       local.NewStore(opts.Setup.Project),
		Backend:     backend,
		Prompt:      prompt,
		Diagnostics: diagnostics,
		Policy:      policy,
	}

	return orchestrator.Run(ctx, build.Request{ConfigRef: opts.ConfigRef})
}

// ValidateData validates every content entity of the project and reports each
// failure to sink.
func ValidateData(project string, sink validation.Sink, logger *slog.Logger) validation.Summary {
	logger = logging.Ensure(logger).With("component", "config", "project", project)
	store := local.NewStore(project)

	summary := validation.ValidateAll(validation.Collect(store.EnumerateContentEntities), sink)
	logger.Info("validated content", "checked", summary.Checked, "failures", len(summary.Failures))
	return summary
}

// ConfigCheck is the result of validating one preset.
type ConfigCheck struct {
	Ref     string
	Config  models.BuildConfig
	Outcome validation.Outcome
}

// CheckConfig validates the preset named ref, or the current preset when ref
// is empty, in the given scope.
func CheckConfig(project, ref string, scope validation.Scope) (ConfigCheck, error) {
	store := local.NewStore(project)

	ref = strings.TrimSpace(ref)
	if ref == "" {
		settings, err := store.LoadSettings()
		if err != nil {
			return ConfigCheck{}, errors.WithHint(errors.Wrap(err, "missing build settings"), "run 'buildgate init' or pass a config reference")
		}
		ref = strings.TrimSpace(settings.CurrentConfig)
		if ref == "" {
			return ConfigCheck{}, errors.New("build settings have no build config")
		}
	}

	cfg, err := store.LoadConfig(ref)
	if err != nil {
		return ConfigCheck{}, errors.Wrapf(err, "missing build config %q", ref)
	}

	return ConfigCheck{
		Ref:     ref,
		Config:  cfg,
		Outcome: cfg.ValidateScope(scope),
	}, nil
}

// RuntimeSettings returns the runtime view of the current preset, validated in
// runtime scope.
func RuntimeSettings(project string) (models.RuntimeSettings, validation.Outcome, error) {
	check, err := CheckConfig(project, "", validation.ScopeRuntime)
	if err != nil {
		return models.RuntimeSettings{}, validation.Outcome{}, err
	}
	return check.Config.RuntimeView(), check.Outcome, nil
}

// InitOptions configures Init.
type InitOptions struct {
	// ConfigRef names the preset; DefaultConfigRef when empty.
	ConfigRef string
	// Template names a built-in preset template. Empty uses the authoring
	// defaults.
	Template string
	// Force points existing build settings at the preset.
	Force bool
}

// Init creates build settings pointing at a preset. An existing preset of that
// name is kept.
func Init(project string, opts InitOptions, logger *slog.Logger) error {
	logger = logging.Ensure(logger).With("component", "config", "action", "init")
	store := local.NewStore(project)

	ref := strings.TrimSpace(opts.ConfigRef)
	if ref == "" {
		ref = DefaultConfigRef
	}

	if err := os.MkdirAll(project, 0o755); err != nil {
		return errors.Wrapf(err, "create project %s", project)
	}

	if err := setup.Verify(project, store.SettingsPath()); err == nil && !opts.Force {
		return errors.WithHint(ErrAlreadyInitialised, "use --force to point the settings at a new preset")
	}

	if _, err := store.LoadConfig(ref); err != nil {
		if !errors.Is(err, local.ErrNotFound) {
			return errors.Wrapf(err, "inspect build config %q", ref)
		}

		preset, err := newPreset(ref, opts.Template)
		if err != nil {
			return err
		}
		if err := store.SaveConfig(ref, preset); err != nil {
			return err
		}
		logger.Info("created build config", "config", ref, "template", opts.Template, "path", store.ConfigPath(ref))
	} else {
		logger.Info("keeping existing build config", "config", ref)
	}

	if err := store.SaveSettings(models.BuildSettings{CurrentConfig: ref}); err != nil {
		return err
	}
	logger.Info("wrote build settings", "path", store.SettingsPath())
	return nil
}

func newPreset(ref, template string) (models.BuildConfig, error) {
	if template == "" {
		return models.NewBuildConfig(ref), nil
	}
	templates, err := embedded.NewTemplateRepository()
	if err != nil {
		return models.BuildConfig{}, err
	}
	return templates.Get(template, ref)
}

// Templates returns the names of the built-in preset templates. A non-empty
// target keeps only the templates building for it.
func Templates(target models.BuildTarget) ([]string, error) {
	templates, err := embedded.NewTemplateRepository()
	if err != nil {
		return nil, err
	}
	if target == "" {
		return templates.ListAll(), nil
	}
	if !target.IsSelected() {
		known := make([]string, 0, len(models.KnownTargets()))
		for _, t := range models.KnownTargets() {
			known = append(known, string(t))
		}
		return nil, errors.WithHintf(errors.Newf("unknown build target %q", target), "known targets: %s", strings.Join(known, ", "))
	}
	return templates.FilterByTarget(target), nil
}

// ListConfigs validates every stored preset in build scope and marks the
// current one.
func ListConfigs(project string) (checks []ConfigCheck, current string, err error) {
	store := local.NewStore(project)

	if settings, err := store.LoadSettings(); err == nil {
		current = settings.CurrentConfig
	}

	refs, err := store.ListConfigs()
	if err != nil {
		return nil, "", err
	}

	for _, ref := range refs {
		check, err := CheckConfig(project, ref, validation.ScopeBuild)
		if err != nil {
			return nil, "", err
		}
		checks = append(checks, check)
	}
	return checks, current, nil
}
