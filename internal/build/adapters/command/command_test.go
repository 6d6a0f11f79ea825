package command

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cochaviz/buildgate/internal/build"
	"github.com/cochaviz/buildgate/internal/models"
)

func testParams(t *testing.T) build.Parameters {
	t.Helper()
	return build.Parameters{
		RunID:      "run-1",
		ConfigID:   "release",
		Scenes:     []string{"Assets/Scenes/Main.unity", "Assets/Scenes/Level 1.unity"},
		OutputPath: filepath.Join(t.TempDir(), "build", "MyDemo.exe"),
		Target:     models.StandaloneWindows64,
		Options:    build.OptionNone,
	}
}

func newBackend(command string, stdout io.Writer) *Backend {
	return &Backend{
		Command: command,
		Stdout:  stdout,
		Stderr:  io.Discard,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestArgvRendersParameters(t *testing.T) {
	params := testParams(t)
	backend := newBackend(`unity -buildTarget {{.Target}} -output {{quote .OutputPath}} -scenes {{quote (join .Scenes ",")}}`, nil)

	argv, err := backend.Argv(params)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"unity",
		"-buildTarget", "StandaloneWindows64",
		"-output", params.OutputPath,
		"-scenes", "Assets/Scenes/Main.unity,Assets/Scenes/Level 1.unity",
	}, argv)
}

func TestArgvErrors(t *testing.T) {
	params := testParams(t)

	tests := map[string]string{
		"empty":          "   ",
		"bad template":   "unity {{.Target",
		"unknown field":  "unity {{.Platform}}",
		"unclosed quote": `unity "{{.Target}}`,
		"renders empty":  `{{if false}}unity{{end}}`,
	}

	for name, command := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := newBackend(command, nil).Argv(params)
			assert.Error(t, err)
		})
	}
}

func TestInvokeExitStatus(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    build.BackendResult
	}{
		{name: "zero exit", command: "true", want: build.BackendSucceeded},
		{name: "non-zero exit", command: "false", want: build.BackendFailed},
		{name: "target check", command: `sh -c 'test "$BUILDGATE_TARGET" = {{.Target}}'`, want: build.BackendSucceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := newBackend(tt.command, nil).Invoke(context.Background(), testParams(t))
			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestInvokeWritesOutput(t *testing.T) {
	params := testParams(t)
	var stdout bytes.Buffer

	backend := newBackend(`sh -c 'echo "$BUILDGATE_CONFIG_ID" > "$BUILDGATE_OUTPUT_PATH" && echo built'`, &stdout)
	result, err := backend.Invoke(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, build.BackendSucceeded, result)
	assert.Equal(t, "built\n", stdout.String())

	data, err := os.ReadFile(params.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "release\n", string(data))
}

func TestInvokeRunsInDir(t *testing.T) {
	dir := t.TempDir()
	var stdout bytes.Buffer

	backend := newBackend("pwd", &stdout)
	backend.Dir = dir

	result, err := backend.Invoke(context.Background(), testParams(t))
	require.NoError(t, err)
	assert.Equal(t, build.BackendSucceeded, result)

	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, resolved+"\n", stdout.String())
}

func TestInvokeMissingExecutable(t *testing.T) {
	result, err := newBackend("buildgate-no-such-tool", nil).Invoke(context.Background(), testParams(t))

	assert.Error(t, err)
	assert.Equal(t, build.BackendFailed, result)
}

func TestInvokeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newBackend("sleep 5", nil).Invoke(ctx, testParams(t))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, build.BackendFailed, result)
}
