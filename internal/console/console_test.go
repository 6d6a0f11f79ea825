package console

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cochaviz/buildgate/internal/build"
)

func TestRecorderKeepsOrder(t *testing.T) {
	next := &Recorder{}
	recorder := &Recorder{Next: next}

	recorder.ReportError("first")
	recorder.ReportInfo("second")
	recorder.ReportError("third")

	assert.Equal(t, []Line{
		{Level: LevelError, Message: "first"},
		{Level: LevelInfo, Message: "second"},
		{Level: LevelError, Message: "third"},
	}, recorder.Lines())
	assert.Equal(t, []string{"first", "third"}, recorder.Errors())
	assert.Equal(t, recorder.Lines(), next.Lines())
}

func TestAutoPrompt(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	question := build.Question{Title: "Build with current settings?"}

	yes, err := AutoPrompt{Answer: true, Logger: logger}.Ask(context.Background(), question)
	require.NoError(t, err)
	assert.True(t, yes)

	no, err := AutoPrompt{Logger: logger}.Ask(context.Background(), question)
	require.NoError(t, err)
	assert.False(t, no)
}

func TestSinkWritesMessages(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	var buf bytes.Buffer
	sink := &Sink{Writer: &buf}

	sink.ReportError("data/a.yaml has validation errors:\nMissing ID")
	sink.ReportInfo("Build succeeded!")

	out := buf.String()
	assert.Contains(t, out, "data/a.yaml has validation errors:")
	assert.Contains(t, out, "Missing ID")
	assert.Contains(t, out, "Build succeeded!")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("Missing ID")), bytes.Index(buf.Bytes(), []byte("Build succeeded!")))
}

func TestLogSinkUsesFirstLine(t *testing.T) {
	var buf bytes.Buffer
	sink := &LogSink{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	sink.ReportError("Invalid build configuration \"release\"!\nMissing ID")

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, `msg="Invalid build configuration \"release\"!"`)
}

func TestPromptHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	answer, err := (&Prompt{Writer: &out}).Ask(ctx, build.Question{Title: "Build?", Body: "Current config: release"})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, answer)
	assert.Empty(t, out.String())
}
