package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		wantDbg bool
	}{
		{"info", LogInfo, false},
		{"debug", LogDebug, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			c := New(&buf, LogInfo)
			c.SetLogLevel(tt.level)
			c.Logger.Debug("cache lookup")
			c.Logger.Info("Loaded network")

			out := buf.String()
			if !strings.Contains(out, "Loaded network") {
				t.Errorf("output %q lacks the info line", out)
			}
			if got := strings.Contains(out, "cache lookup"); got != tt.wantDbg {
				t.Errorf("debug line logged = %v, want %v", got, tt.wantDbg)
			}
		})
	}
}

func TestSetVerbose_ReportsCaller(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, LogInfo)
	setVerbose(l)
	l.Debug("variant picked", "variant", "peak")

	out := buf.String()
	if !strings.Contains(out, "variant=peak") {
		t.Errorf("output %q lacks the key-value pair", out)
	}
	if !strings.Contains(out, "log_test.go") {
		t.Errorf("output %q lacks the call site", out)
	}
}

func TestProgress_Done(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, LogInfo), "summarize", "cases", 2)
	prog.done("Loaded network", "network", "eu", "elements", 12)

	out := buf.String()
	for _, want := range []string{"Loaded network", "network=eu", "elements=12", "took="} {
		if !strings.Contains(out, want) {
			t.Errorf("done() output %q lacks %q", out, want)
		}
	}
	// the step start is debug only
	if strings.Contains(out, "cases=2") {
		t.Errorf("start of the step logged at info level: %q", out)
	}
}

func TestProgress_Fail(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, LogDebug), "render", "variant", "peak")
	cause := errors.New("no variant")

	if err := prog.fail(cause); err != cause {
		t.Errorf("fail() = %v, want %v", err, cause)
	}
	out := buf.String()
	for _, want := range []string{"render", "variant=peak", "render failed", "no variant"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q lacks %q", out, want)
		}
	}
}

func TestLoggerFromContext(t *testing.T) {
	if got := loggerFromContext(context.Background()); got != log.Default() {
		t.Error("loggerFromContext() without a logger is not log.Default()")
	}

	l := newLogger(&bytes.Buffer{}, LogInfo)
	if got := loggerFromContext(withLogger(context.Background(), l)); got != l {
		t.Error("loggerFromContext() does not return the attached logger")
	}
}

func TestVerboseFlag(t *testing.T) {
	path := writeCase(t, "grid.toml", gridCase)
	tests := []struct {
		name    string
		args    []string
		wantDbg bool
	}{
		{"quiet", []string{"inspect", "--no-cache", path}, false},
		{"verbose", []string{"inspect", "--no-cache", "-v", path}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			root := New(&logs, LogInfo).RootCommand()
			root.SetOut(&bytes.Buffer{})
			root.SetErr(&bytes.Buffer{})
			root.SetArgs(tt.args)
			if err := root.Execute(); err != nil {
				t.Fatalf("inspect error: %v", err)
			}

			out := logs.String()
			if !strings.Contains(out, "inspect") || !strings.Contains(out, "Loaded network") {
				t.Errorf("logs %q lack the prefixed progress line", out)
			}
			if got := strings.Contains(out, "DEBU"); got != tt.wantDbg {
				t.Errorf("debug lines logged = %v, want %v\n%s", got, tt.wantDbg, out)
			}
		})
	}
}
