// Package command runs an external build tool for each orchestration run.
package command

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/cockroachdb/errors"
	"github.com/kballard/go-shellquote"

	"github.com/cochaviz/buildgate/internal/build"
	"github.com/cochaviz/buildgate/internal/logging"
)

// Ensure Backend satisfies the build backend interface.
var _ build.Backend = (*Backend)(nil)

// Environment variables exported to the build tool.
const (
	EnvRunID      = "BUILDGATE_RUN_ID"
	EnvConfigID   = "BUILDGATE_CONFIG_ID"
	EnvTarget     = "BUILDGATE_TARGET"
	EnvOutputPath = "BUILDGATE_OUTPUT_PATH"
	EnvScenes     = "BUILDGATE_SCENES"
	EnvOptions    = "BUILDGATE_OPTIONS"
)

// Backend renders Command as a template over build.Parameters, splits the
// result into shell words and executes it in Dir. A zero exit status is a
// successful build, any other exit status a failed one.
type Backend struct {
	Command string
	Dir     string
	Stdout  io.Writer
	Stderr  io.Writer
	Logger  *slog.Logger
}

var funcs = template.FuncMap{
	"join":  strings.Join,
	"quote": func(s string) string { return shellquote.Join(s) },
}

// Argv renders the command line for params without running it.
func (b *Backend) Argv(params build.Parameters) ([]string, error) {
	if strings.TrimSpace(b.Command) == "" {
		return nil, errors.WithHint(errors.New("build command is empty"), "set backend.command in buildgate.yaml")
	}

	tmpl, err := template.New("command").Funcs(funcs).Parse(b.Command)
	if err != nil {
		return nil, errors.Wrap(err, "parse build command")
	}

	var rendered bytes.Buffer
	if err := tmpl.Execute(&rendered, params); err != nil {
		return nil, errors.Wrap(err, "render build command")
	}

	argv, err := shellquote.Split(rendered.String())
	if err != nil {
		return nil, errors.Wrapf(err, "split build command %q", rendered.String())
	}
	if len(argv) == 0 {
		return nil, errors.Newf("build command %q renders to nothing", b.Command)
	}
	return argv, nil
}

func (b *Backend) Invoke(ctx context.Context, params build.Parameters) (build.BackendResult, error) {
	logger := logging.Ensure(b.Logger).With("backend", "command", "run_id", params.RunID)

	argv, err := b.Argv(params)
	if err != nil {
		return build.BackendFailed, err
	}

	if params.OutputPath != "" {
		dir := filepath.Dir(params.OutputPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return build.BackendFailed, errors.Wrapf(err, "create output directory %s", dir)
		}
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = b.Dir
	cmd.Stdout = writerOr(b.Stdout, os.Stdout)
	cmd.Stderr = writerOr(b.Stderr, os.Stderr)
	cmd.Env = append(os.Environ(), environment(params)...)

	logger.Info("running build command", "argv", argv, "dir", b.Dir)

	err = cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return build.BackendFailed, errors.Wrap(ctxErr, "build command interrupted")
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		logger.Info("build command finished")
		return build.BackendSucceeded, nil
	case errors.As(err, &exitErr):
		logger.Warn("build command failed", "exit_code", exitErr.ExitCode())
		return build.BackendFailed, nil
	default:
		return build.BackendFailed, errors.Wrapf(err, "run build command %s", argv[0])
	}
}

func environment(params build.Parameters) []string {
	return []string{
		EnvRunID + "=" + params.RunID,
		EnvConfigID + "=" + params.ConfigID,
		EnvTarget + "=" + string(params.Target),
		EnvOutputPath + "=" + params.OutputPath,
		EnvScenes + "=" + strings.Join(params.Scenes, string(os.PathListSeparator)),
		EnvOptions + "=" + string(params.Options),
	}
}

func writerOr(w, fallback io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return fallback
}
