package notify

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/deeptube/deeptube/internal/model"
)

// TerminalSink prints notifications as styled lines.
type TerminalSink struct {
	out    io.Writer
	styles map[model.Severity]lipgloss.Style
	mu     sync.Mutex
}

// NewTerminalSink creates a sink writing to out.
func NewTerminalSink(out io.Writer) *TerminalSink {
	base := lipgloss.NewStyle().Bold(true)
	return &TerminalSink{
		out: out,
		styles: map[model.Severity]lipgloss.Style{
			model.SeveritySuccess: base.Foreground(lipgloss.Color("#10B981")),
			model.SeverityWarning: base.Foreground(lipgloss.Color("#F59E0B")),
			model.SeverityError:   base.Foreground(lipgloss.Color("#EF4444")),
			model.SeverityInfo:    base.Foreground(lipgloss.Color("#60A5FA")),
		},
	}
}

func (t *TerminalSink) ID() string { return "terminal" }

func (t *TerminalSink) Notify(_ context.Context, n model.Notification) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	prefix := t.styles[n.Severity].Render(Icon(n.Severity))
	_, err := fmt.Fprintf(t.out, "%s %s\n", prefix, n.Message)
	return err
}

// Icon returns the glyph shown before a notification.
func Icon(s model.Severity) string {
	switch s {
	case model.SeveritySuccess:
		return "✓"
	case model.SeverityWarning:
		return "!"
	case model.SeverityError:
		return "✗"
	default:
		return "•"
	}
}

// LogSink writes notifications to a zap logger.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink that logs through logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("notify")}
}

func (l *LogSink) ID() string { return "log" }

func (l *LogSink) Notify(_ context.Context, n model.Notification) error {
	fields := []zap.Field{
		zap.String("severity", string(n.Severity)),
		zap.String("message", n.Message),
	}
	switch n.Severity {
	case model.SeverityError:
		l.logger.Error("notification", fields...)
	case model.SeverityWarning:
		l.logger.Warn("notification", fields...)
	default:
		l.logger.Info("notification", fields...)
	}
	return nil
}

// Recorder keeps every notification in memory.
type Recorder struct {
	id   string
	seen []model.Notification
	mu   sync.Mutex
}

// NewRecorder creates a recording sink with the given ID.
func NewRecorder(id string) *Recorder {
	return &Recorder{id: id}
}

func (r *Recorder) ID() string { return r.id }

func (r *Recorder) Notify(_ context.Context, n model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seen = append(r.seen, n)
	return nil
}

// Publish lets a Recorder stand in for a Registry.
func (r *Recorder) Publish(ctx context.Context, n model.Notification) error {
	return r.Notify(ctx, n)
}

// Notifications returns a copy of everything recorded so far.
func (r *Recorder) Notifications() []model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.seen)
}

// Last returns the most recent notification.
func (r *Recorder) Last() (model.Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.seen) == 0 {
		return model.Notification{}, false
	}
	return r.seen[len(r.seen)-1], true
}
