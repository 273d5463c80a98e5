// Package logger is a small component-tagged console logger.  Each line
// carries a timestamp, a level and the component that produced it, e.g.
//
//	2026-10-19 09:00:00 INFO  [LEDGER] booking created
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a LOG_LEVEL value to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	}
	return LevelInfo
}

// Logger writes component-tagged lines to out.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	file  *os.File
	level Level
	now   func() time.Time

	debug   *color.Color
	info    *color.Color
	warn    *color.Color
	err     *color.Color
	process *color.Color
	db      *color.Color
	queue   *color.Color
	api     *color.Color
	sec     *color.Color
}

// NewLogger returns a logger writing to stdout at info level.
func NewLogger() *Logger {
	return New(color.Output, LevelInfo)
}

// New returns a logger writing to out.
func New(out io.Writer, level Level) *Logger {
	return &Logger{
		out:     out,
		level:   level,
		now:     time.Now,
		debug:   color.New(color.FgHiBlack),
		info:    color.New(color.FgCyan),
		warn:    color.New(color.FgYellow),
		err:     color.New(color.FgRed, color.Bold),
		process: color.New(color.FgGreen),
		db:      color.New(color.FgBlue),
		queue:   color.New(color.FgMagenta),
		api:     color.New(color.FgWhite),
		sec:     color.New(color.FgHiRed),
	}
}

// WithFile additionally appends every line, uncoloured, to path.
func (l *Logger) WithFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.file = f
	l.mu.Unlock()
	return nil
}

// SetLevel changes the minimum level written.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

// Close releases the log file, if any.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
}

func (l *Logger) write(level Level, c *color.Color, tag, component, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}
	ts := l.now().Format("2006-01-02 15:04:05")
	line := fmt.Sprintf("%s %-5s [%s] %s", ts, tag, component, msg)
	c.Fprintln(l.out, line)
	if l.file != nil {
		fmt.Fprintln(l.file, line)
	}
}

func (l *Logger) Debug(component, msg string) { l.write(LevelDebug, l.debug, "DEBUG", component, msg) }
func (l *Logger) Info(component, msg string)  { l.write(LevelInfo, l.info, "INFO", component, msg) }
func (l *Logger) Warn(component, msg string)  { l.write(LevelWarn, l.warn, "WARN", component, msg) }
func (l *Logger) Error(component, msg string) { l.write(LevelError, l.err, "ERROR", component, msg) }

// Fatal logs at error level and exits the process.
func (l *Logger) Fatal(component, msg string) {
	l.write(LevelError, l.err, "FATAL", component, msg)
	l.Close()
	os.Exit(1)
}

// LogProcess records a startup or shutdown step.
func (l *Logger) LogProcess(component, msg string) {
	l.write(LevelInfo, l.process, "INFO", component, msg)
}

// LogDatabase records a storage operation.
func (l *Logger) LogDatabase(op, store, msg string) {
	l.write(LevelInfo, l.db, "INFO", "DB:"+store, op+" "+msg)
}

// LogQueue records a broker operation; role is publisher or consumer.
func (l *Logger) LogQueue(op, role, msg string) {
	l.write(LevelInfo, l.queue, "INFO", "QUEUE:"+role, op+" "+msg)
}

// LogAPI records one served request.
func (l *Logger) LogAPI(method, path, status, duration string) {
	l.write(LevelInfo, l.api, "INFO", "API", fmt.Sprintf("%s %s - %s (%s)", method, path, status, duration))
}

// LogSecurity records rejected or throttled requests.
func (l *Logger) LogSecurity(event, msg string) {
	l.write(LevelWarn, l.sec, "WARN", "SECURITY:"+event, msg)
}

var (
	defaultMu sync.RWMutex
	std       = NewLogger()
)

// Default returns the process-wide logger.
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return std
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	std = l
	defaultMu.Unlock()
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return New(io.Discard, LevelError+1)
}
