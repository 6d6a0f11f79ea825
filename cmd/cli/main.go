package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	config "github.com/cochaviz/buildgate/config"
	"github.com/cochaviz/buildgate/internal/artifacts"
	"github.com/cochaviz/buildgate/internal/build"
	"github.com/cochaviz/buildgate/internal/console"
	"github.com/cochaviz/buildgate/internal/logging"
	"github.com/cochaviz/buildgate/internal/models"
	"github.com/cochaviz/buildgate/internal/setup"
	"github.com/cochaviz/buildgate/internal/validation"
)

const defaultLogLevel = "warning"

func main() {
	var levelVar slog.LevelVar
	levelVar.Set(slog.LevelWarn)

	logger := logging.NewCLI(os.Stderr, &levelVar)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := newApp(logger, &levelVar, os.Stdout, os.Stderr)
	err := cli.root().ExecuteContext(ctx)
	code := exitCode(err)

	switch {
	case err == nil:
	case code == exitInterrupted:
		cli.logger.Warn("command interrupted", "error", err)
	case isStatusError(err):
		cli.logger.Info("command finished", "status", err.Error(), "exit_code", code)
	default:
		cli.logger.Error("command execution failed", "error", err)
		for _, hint := range errors.GetAllHints(err) {
			cli.logger.Info(hint)
		}
	}
	os.Exit(code)
}

// app carries the state shared by every command. The logger is rebuilt once
// flags and configuration are known.
type app struct {
	viper  *viper.Viper
	level  *slog.LevelVar
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer

	config setup.Config
	mode   logging.Mode
}

func newApp(logger *slog.Logger, level *slog.LevelVar, stdout, stderr io.Writer) *app {
	return &app{
		viper:  setup.NewViper(),
		level:  level,
		logger: logger,
		stdout: stdout,
		stderr: stderr,
	}
}

func (a *app) root() *cobra.Command {
	root := &cobra.Command{
		Use:           "buildgate",
		Short:         "CLI for 'buildgate': validate project data and run gated builds",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.String("project", ".", "Project root directory")
	flags.String("log-level", defaultLogLevel, "Set log verbosity (debug, info, warning, error)")
	flags.String("log-format", "cli", "Set log format (cli, json)")
	a.bind(setup.KeyProject, flags.Lookup("project"))
	a.bind(setup.KeyLogLevel, flags.Lookup("log-level"))
	a.bind(setup.KeyLogFormat, flags.Lookup("log-format"))

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.configure()
	}

	root.AddCommand(
		a.buildCommand(),
		a.validateDataCommand(),
		a.validateConfigCommand(),
		a.configsCommand(),
		a.settingsCommand(),
		a.initCommand(),
		a.templatesCommand(),
	)
	return root
}

func (a *app) bind(key string, flag *pflag.Flag) {
	if err := a.viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}

// configure resolves the project configuration and rebuilds the logger.
func (a *app) configure() error {
	cfg, err := setup.Load(a.viper)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	mode, err := logging.ParseMode(cfg.Log.Format)
	if err != nil {
		return err
	}

	a.level.Set(level)
	a.logger = logging.New(mode, a.stderr, a.level)
	slog.SetDefault(a.logger)
	setup.SetLogger(a.logger.With("component", "setup"))

	a.config = cfg
	a.mode = mode
	return nil
}

// diagnostics returns the operator-facing sink: terminal output, or the
// structured log when logging as JSON.
func (a *app) diagnostics(w io.Writer) build.Diagnostics {
	if a.mode == logging.ModeJSON {
		return &console.LogSink{Logger: a.logger}
	}
	return &console.Sink{Writer: w}
}

func (a *app) buildCommand() *cobra.Command {
	var (
		configRef  string
		assumeYes  bool
		strictData bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Args:  cobra.NoArgs,
		Short: "Validate the current build config and project data, then build",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdLogger := a.logger.With("command", "build")
			cmdLogger.Info("starting build", "project", a.config.Project, "backend", a.config.Backend.Kind)

			report, err := config.Build(cmd.Context(), config.BuildOptions{
				Setup:       a.config,
				ConfigRef:   configRef,
				AssumeYes:   assumeYes,
				StrictData:  strictData,
				Diagnostics: a.diagnostics(cmd.ErrOrStderr()),
				Stdout:      cmd.OutOrStdout(),
				Stderr:      cmd.ErrOrStderr(),
				Logger:      cmdLogger,
			})
			if err != nil {
				return err
			}

			printReport(cmd.OutOrStdout(), report)
			return statusError(report.Status)
		},
	}

	cmd.Flags().StringVar(&configRef, "config", "", "Build config to use instead of the one in the build settings")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Answer every confirmation with yes")
	cmd.Flags().BoolVar(&strictData, "strict-data", false, "Abort without asking when project data is invalid")
	cmd.Flags().String("backend", setup.BackendManifest, "Build backend (manifest, command)")
	a.bind(setup.KeyBackendKind, cmd.Flags().Lookup("backend"))

	return cmd
}

func printReport(w io.Writer, report build.Report) {
	fmt.Fprintf(w, "run:    %s\n", report.RunID)
	fmt.Fprintf(w, "status: %s\n", report.Status)
	if report.Parameters != nil {
		fmt.Fprintf(w, "target: %s\n", report.Parameters.Target)
		fmt.Fprintf(w, "output: %s\n", report.Parameters.OutputPath)
	}
	for _, stage := range report.Overrides {
		fmt.Fprintf(w, "overridden: %s\n", stage)
	}
	if report.Artifact == nil {
		return
	}
	if path, err := artifacts.PathFromURI(report.Artifact.URI); err == nil {
		fmt.Fprintf(w, "artifact: %s\n", path)
	}
	if report.Artifact.Checksum != nil {
		fmt.Fprintf(w, "sha256: %s\n", *report.Artifact.Checksum)
	}
}

// dataReport is the --json rendering of a validate-data pass.
type dataReport struct {
	Passed      bool                 `json:"passed"`
	Checked     int                  `json:"checked"`
	Failures    []validation.Failure `json:"failures"`
	Diagnostics []console.Line       `json:"diagnostics"`
}

func (a *app) validateDataCommand() *cobra.Command {
	var (
		watch  bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "validate-data",
		Args:  cobra.NoArgs,
		Short: "Validate every content record of the project",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdLogger := a.logger.With("command", "validate-data")
			sink := a.diagnostics(cmd.ErrOrStderr())

			if watch {
				cmdLogger.Info("watching project data; press Ctrl+C to stop")
				return config.WatchData(cmd.Context(), config.WatchOptions{
					Project: a.config.Project,
					Sink:    sink,
					Logger:  cmdLogger,
					OnPass: func(summary validation.Summary) {
						printSummary(cmd.OutOrStdout(), summary)
					},
				})
			}

			if asJSON {
				recorder := &console.Recorder{}
				summary := config.ValidateData(a.config.Project, recorder, cmdLogger)

				report := dataReport{
					Passed:      summary.Passed(),
					Checked:     summary.Checked,
					Failures:    summary.Failures,
					Diagnostics: recorder.Lines(),
				}
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				if err := encoder.Encode(report); err != nil {
					return errors.Wrap(err, "encode report")
				}
				return dataStatus(summary)
			}

			summary := config.ValidateData(a.config.Project, sink, cmdLogger)
			printSummary(cmd.OutOrStdout(), summary)
			return dataStatus(summary)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Validate again whenever project data changes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	cmd.MarkFlagsMutuallyExclusive("watch", "json")

	return cmd
}

func printSummary(w io.Writer, summary validation.Summary) {
	if summary.Passed() {
		pterm.Success.WithWriter(w).Printfln("All %d content records are valid", summary.Checked)
		return
	}
	pterm.Warning.WithWriter(w).Printfln("%d of %d content records failed validation", len(summary.Failures), summary.Checked)
}

func (a *app) validateConfigCommand() *cobra.Command {
	var runtime bool

	cmd := &cobra.Command{
		Use:   "validate-config [config]",
		Args:  cobra.MaximumNArgs(1),
		Short: "Validate a build config, by default the current one",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) == 1 {
				ref = strings.TrimSpace(args[0])
			}

			scope := validation.ScopeBuild
			if runtime {
				scope = validation.ScopeRuntime
			}

			check, err := config.CheckConfig(a.config.Project, ref, scope)
			if err != nil {
				return err
			}

			a.logger.Info("validated build config", "command", "validate-config", "config", check.Ref, "result", check.Outcome.Result)
			printOutcome(cmd.OutOrStdout(), check.Ref, check.Outcome)
			if !check.Outcome.Valid() {
				return statusError(build.StatusInvalidConfig)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&runtime, "runtime", false, "Check only the rules that apply at runtime")

	return cmd
}

func printOutcome(w io.Writer, ref string, outcome validation.Outcome) {
	fmt.Fprintf(w, "%s: %s\n", ref, outcome.Result)
	for _, msg := range outcome.Messages {
		fmt.Fprintf(w, "  - %s\n", msg)
	}
}

func (a *app) configsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "configs",
		Args:  cobra.NoArgs,
		Short: "List build configs and whether they are valid",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdLogger := a.logger.With("command", "configs")

			checks, current, err := config.ListConfigs(a.config.Project)
			if err != nil {
				cmdLogger.Error("listing build configs failed", "error", err)
				return err
			}
			if len(checks) == 0 {
				cmdLogger.Warn("no build configs available", "project", a.config.Project)
				return nil
			}

			for _, check := range checks {
				marker := " "
				if check.Ref == current {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\t(%s, %s)\n", marker, check.Ref, check.Config.Target, check.Outcome.Result)
			}

			cmdLogger.Info("listed build configs", "count", len(checks))
			return nil
		},
	}
}

func (a *app) settingsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Args:  cobra.NoArgs,
		Short: "Print the runtime settings of the current build config",
		RunE: func(cmd *cobra.Command, args []string) error {
			view, outcome, err := config.RuntimeSettings(a.config.Project)
			if err != nil {
				return err
			}

			encoder := yaml.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent(2)
			if err := encoder.Encode(map[string]any{
				"id":             view.ID,
				"storefront":     string(view.Storefront),
				"cheats_enabled": view.CheatsEnabled,
			}); err != nil {
				return errors.Wrap(err, "encode settings")
			}
			if err := encoder.Close(); err != nil {
				return errors.Wrap(err, "encode settings")
			}

			if !outcome.Valid() {
				printOutcome(cmd.ErrOrStderr(), view.ID, outcome)
				return statusError(build.StatusInvalidConfig)
			}
			return nil
		},
	}
}

func (a *app) initCommand() *cobra.Command {
	var opts config.InitOptions

	templates, err := config.Templates("")
	if err != nil {
		panic(fmt.Sprintf("load built-in templates: %v", err))
	}

	cmd := &cobra.Command{
		Use:   "init",
		Args:  cobra.NoArgs,
		Short: "Create build settings and a default build config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdLogger := a.logger.With("command", "init")

			err := config.Init(a.config.Project, opts, cmdLogger)
			if errors.Is(err, config.ErrAlreadyInitialised) {
				cmdLogger.Info("project already initialised", "hint", "use 'buildgate init --force' to reinitialise")
				return nil
			}
			if err != nil {
				cmdLogger.Error("initialisation failed", "error", err)
				return err
			}

			cmdLogger.Info("project initialised")
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.ConfigRef, "config", config.DefaultConfigRef, "Name of the build config to create")
	cmd.Flags().StringVarP(&opts.Template, "template", "t", "", "Built-in template for the build config ("+strings.Join(templates, ", ")+")")
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Point existing build settings at the new build config")

	return cmd
}

func (a *app) templatesCommand() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "templates",
		Args:  cobra.NoArgs,
		Short: "List the built-in build config templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := config.Templates(models.BuildTarget(strings.TrimSpace(target)))
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Only list templates building for this target")

	return cmd
}
