// Package cli implements the gridcore command-line interface.
//
// The commands load TOML case files through the caching pipeline runner and
// print what they find with lipgloss styling. The CLI is built using cobra
// and logs with charmbracelet/log.
//
// # Commands
//
//   - inspect: counts, buses and components of every variant
//   - merge: merge several case files and report the tie lines created
//   - render: draw a variant as a DOT or SVG bus/branch diagram
//   - variants: list variants, or pick one interactively with --pick
//   - serve: answer the same questions over HTTP
//   - cache: clear or locate the result cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context.
//
// # Caching
//
// Results are cached in $XDG_CACHE_HOME/gridcore, in Redis when --redis-url
// or $GRIDCORE_REDIS_URL is set, or in MongoDB when --mongo-uri or
// $GRIDCORE_MONGO_URI is set.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns the CLI logger writing to w at level.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// setVerbose switches l to debug output with call sites, as --verbose asks.
func setVerbose(l *log.Logger) {
	l.SetLevel(log.DebugLevel)
	l.SetReportCaller(true)
}

// progress times one step of a command: loading cases, rendering.
type progress struct {
	logger *log.Logger
	step   string
	start  time.Time
}

// newProgress logs the start of step at debug level.
func newProgress(l *log.Logger, step string, keyvals ...any) *progress {
	l.Debug(step, keyvals...)
	return &progress{logger: l, step: step, start: time.Now()}
}

func (p *progress) elapsed() time.Duration {
	return time.Since(p.start).Round(time.Millisecond)
}

// done logs msg at info level with the time the step took.
func (p *progress) done(msg string, keyvals ...any) {
	p.logger.Info(msg, append(keyvals, "took", p.elapsed())...)
}

// fail logs the failed step at debug level and returns err. The error
// itself is printed once, by main.
func (p *progress) fail(err error) error {
	p.logger.Debug(p.step+" failed", "error", err, "took", p.elapsed())
	return err
}

type loggerKey struct{}

// withLogger attaches l to ctx. Each command gets the CLI logger prefixed
// with its name.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext returns the logger attached to ctx, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
