package pipeline

import (
	"log/slog"

	"git.home.luguber.info/inful/docweaver/internal/diag"
	"git.home.luguber.info/inful/docweaver/internal/logfields"
)

// Logger is the driver's progress and reporting surface. Progress is called
// exactly once per stage, in stage order; Report is called once at the end
// of every run with the collected diagnostics.
type Logger interface {
	Progress(stage Stage)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Report(diagnostics []diag.Diagnostic)
}

// SlogLogger is the default Logger, forwarding to log/slog.
type SlogLogger struct {
	log *slog.Logger
}

// NewLogger wraps the given slog logger; nil means slog.Default.
func NewLogger(log *slog.Logger) *SlogLogger {
	if log == nil {
		log = slog.Default()
	}
	return &SlogLogger{log: log}
}

func (l *SlogLogger) Progress(stage Stage) {
	l.log.Info(progressMessage(stage), logfields.Stage(string(stage)))
}

func (l *SlogLogger) Info(msg string, args ...any)  { l.log.Info(msg, args...) }
func (l *SlogLogger) Warn(msg string, args ...any)  { l.log.Warn(msg, args...) }
func (l *SlogLogger) Error(msg string, args ...any) { l.log.Error(msg, args...) }

// Report logs every collected diagnostic at its mapped level, then a
// summary line with the per-severity counts.
func (l *SlogLogger) Report(diagnostics []diag.Diagnostic) {
	if len(diagnostics) == 0 {
		return
	}
	counts := map[diag.Severity]int{}
	for _, d := range diagnostics {
		counts[d.Severity]++
		switch d.Severity {
		case diag.SeverityError:
			l.log.Error(d.String())
		case diag.SeverityWarning:
			l.log.Warn(d.String())
		default:
			l.log.Info(d.String())
		}
	}
	l.log.Info("Diagnostics reported",
		slog.Int("errors", counts[diag.SeverityError]),
		slog.Int("warnings", counts[diag.SeverityWarning]),
		slog.Int("info", counts[diag.SeverityInfo]))
}
