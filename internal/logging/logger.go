// Package logging provides the leveled console logger used by every stage.
//
// Lines look like "2006-01-02 15:04:05 [LEVEL] text". ERROR lines go to the
// error writer, everything else to the output writer, and an optional log
// file receives every line without color codes. All methods are safe for
// concurrent use by pipeline workers.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/backmassage/dashpack/internal/config"
	"github.com/backmassage/dashpack/internal/term"
)

var levelColors = map[string]*color.Color{
	"INFO":    color.New(color.FgHiBlue, color.Bold),
	"SUCCESS": color.New(color.FgHiGreen, color.Bold),
	"WARN":    color.New(color.FgHiYellow, color.Bold),
	"ERROR":   color.New(color.FgHiRed, color.Bold),
	"DEBUG":   color.New(color.FgHiCyan, color.Bold),
}

// Logger provides leveled, optionally colored logging with optional file sink.
// Loggers derived with With share the parent's writers and lock.
type Logger struct {
	*sink
	prefix  string
	verbose bool
	now     func() time.Time
}

type sink struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	file   *os.File
}

// NewLogger configures colors from cfg and optionally opens cfg.LogFile for
// appending. Call Close when done.
func NewLogger(cfg *config.Config) (*Logger, error) {
	term.Configure(cfg.ColorMode)

	l := New(os.Stdout, os.Stderr, cfg.Verbose)
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.file = f
	}
	return l, nil
}

// New returns a Logger writing to out and errOut with no file sink.
func New(out, errOut io.Writer, verbose bool) *Logger {
	return &Logger{
		sink:    &sink{out: out, errOut: errOut},
		verbose: verbose,
		now:     time.Now,
	}
}

// With returns a Logger that prefixes every message with prefix, e.g.
// "[job 3] ". It writes through the same sink as l.
func (l *Logger) With(prefix string) *Logger {
	child := *l
	child.prefix = l.prefix + prefix
	return &child
}

// Discard returns a Logger that drops everything; handy in tests.
func Discard() *Logger {
	return New(io.Discard, io.Discard, true)
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Verbose reports whether DEBUG lines are emitted.
func (l *Logger) Verbose() bool { return l.verbose }

func (l *Logger) line(level, text string) {
	ts := l.now().Format("2006-01-02 15:04:05")
	tag := "[" + level + "]"
	text = l.prefix + text

	l.mu.Lock()
	defer l.mu.Unlock()

	out := l.out
	if level == "ERROR" {
		out = l.errOut
	}
	if c, ok := levelColors[level]; ok && term.Enabled() {
		_, _ = io.WriteString(out, ts+" "+c.Sprint(tag)+" "+text+"\n")
	} else {
		_, _ = io.WriteString(out, ts+" "+tag+" "+text+"\n")
	}
	if l.file != nil {
		_, _ = io.WriteString(l.file, ts+" "+tag+" "+text+"\n")
	}
}

// Info logs at INFO level (blue).
func (l *Logger) Info(format string, args ...interface{}) {
	l.line("INFO", fmt.Sprintf(format, args...))
}

// Success logs at SUCCESS level (green).
func (l *Logger) Success(format string, args ...interface{}) {
	l.line("SUCCESS", fmt.Sprintf(format, args...))
}

// Warn logs at WARN level (yellow).
func (l *Logger) Warn(format string, args ...interface{}) {
	l.line("WARN", fmt.Sprintf(format, args...))
}

// Error logs at ERROR level (red) to the error writer.
func (l *Logger) Error(format string, args ...interface{}) {
	l.line("ERROR", fmt.Sprintf(format, args...))
}

// Debug logs at DEBUG level (cyan) only in verbose mode.
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.line("DEBUG", fmt.Sprintf(format, args...))
}

// Blank writes an empty line to the output writer, separating batches of
// related lines on the console. The log file is not affected.
func (l *Logger) Blank() {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.out, "\n")
}
