package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger writes timestamped records to w. Verbose loggers also emit debug
// records and report the calling source line.
func newLogger(w io.Writer, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		ReportCaller:    verbose,
		TimeFormat:      "15:04:05.000",
		Level:           level,
	})
}

// stopwatch times the phases of a command. Each lap is logged with the
// time since the previous lap, or since the stopwatch started.
type stopwatch struct {
	logger *log.Logger
	last   time.Time
}

func newStopwatch(l *log.Logger) *stopwatch {
	return &stopwatch{logger: l, last: time.Now()}
}

func (s *stopwatch) lap(msg string, keyvals ...any) {
	now := time.Now()
	keyvals = append(keyvals, "took", now.Sub(s.last).Round(time.Millisecond))
	s.last = now
	s.logger.Info(msg, keyvals...)
}

type loggerKey struct{}

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext returns the command logger, or log.Default() outside a command
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
