// Package console provides the operator-facing adapters of the build pipeline:
// confirmation prompts and diagnostics sinks for terminals, logs and tests.
package console

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"

	"github.com/cochaviz/buildgate/internal/build"
	"github.com/cochaviz/buildgate/internal/logging"
)

var (
	_ build.Prompt      = (*Prompt)(nil)
	_ build.Prompt      = AutoPrompt{}
	_ build.Diagnostics = (*Sink)(nil)
	_ build.Diagnostics = (*LogSink)(nil)
	_ build.Diagnostics = (*Recorder)(nil)
)

// Prompt asks questions on the terminal. Declining is the default answer.
type Prompt struct {
	// Writer receives the question title and body. The confirmation line
	// itself is drawn by pterm's interactive printer, which always writes to
	// standard output.
	Writer io.Writer
}

// Ask renders the question and waits for a yes/no answer.
func (p *Prompt) Ask(ctx context.Context, question build.Question) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	writer := p.writer()
	pterm.DefaultSection.WithWriter(writer).Println(question.Title)
	if question.Body != "" {
		pterm.Fprintln(writer, question.Body)
	}

	answer, err := pterm.DefaultInteractiveConfirm.
		WithDefaultValue(false).
		Show(fmt.Sprintf("%s? (no: %s)", question.Affirmative, question.Negative))
	if err != nil {
		return false, errors.Wrapf(err, "ask %q", question.Title)
	}
	return answer, nil
}

// writer returns nil when unset, which pterm treats as standard output.
func (p *Prompt) writer() io.Writer {
	if p == nil {
		return nil
	}
	return p.Writer
}

// AutoPrompt answers every question with Answer without asking, for
// unattended runs.
type AutoPrompt struct {
	Answer bool
	Logger *slog.Logger
}

func (p AutoPrompt) Ask(_ context.Context, question build.Question) (bool, error) {
	logging.Ensure(p.Logger).Info("answering prompt automatically",
		"title", question.Title,
		"answer", p.Answer,
	)
	return p.Answer, nil
}

// Sink prints diagnostics to a terminal.
type Sink struct {
	Writer io.Writer

	mu sync.Mutex
}

func (s *Sink) ReportError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pterm.Error.WithWriter(s.writer()).Println(message)
}

func (s *Sink) ReportInfo(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pterm.Info.WithWriter(s.writer()).Println(message)
}

func (s *Sink) writer() io.Writer {
	if s.Writer != nil {
		return s.Writer
	}
	return os.Stderr
}

// LogSink forwards diagnostics to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

func (s *LogSink) ReportError(message string) {
	logging.Ensure(s.Logger).Error(firstLine(message), "diagnostic", message)
}

func (s *LogSink) ReportInfo(message string) {
	logging.Ensure(s.Logger).Info(firstLine(message), "diagnostic", message)
}

func firstLine(message string) string {
	if idx := strings.IndexByte(message, '\n'); idx >= 0 {
		return message[:idx]
	}
	return message
}

// Level tags a recorded diagnostic.
type Level string

const (
	LevelError Level = "error"
	LevelInfo  Level = "info"
)

// Line is one recorded diagnostic.
type Line struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Recorder keeps diagnostics in memory, in the order they were reported.
// It optionally forwards every line to Next.
type Recorder struct {
	Next build.Diagnostics

	mu    sync.Mutex
	lines []Line
}

func (r *Recorder) ReportError(message string) {
	r.record(LevelError, message)
	if r.Next != nil {
		r.Next.ReportError(message)
	}
}

func (r *Recorder) ReportInfo(message string) {
	r.record(LevelInfo, message)
	if r.Next != nil {
		r.Next.ReportInfo(message)
	}
}

func (r *Recorder) record(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, Line{Level: level, Message: message})
}

// Lines returns a copy of every recorded diagnostic.
func (r *Recorder) Lines() []Line {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Line(nil), r.lines...)
}

// Errors returns the recorded error messages.
func (r *Recorder) Errors() []string {
	var messages []string
	for _, line := range r.Lines() {
		if line.Level == LevelError {
			messages = append(messages, line.Message)
		}
	}
	return messages
}
