// Leveled component logging for the Kobra panel host
//
// Copyright (C) 2026  Kobra Panel Host Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is the severity of a log line.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	}
	return "UNKNOWN"
}

// ParseLevel maps a level name to a Level, defaulting to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	}
	return INFO
}

var ansiColors = map[Level]string{
	DEBUG: "\x1b[36m",
	INFO:  "\x1b[32m",
	WARN:  "\x1b[33m",
	ERROR: "\x1b[31m",
}

const ansiReset = "\x1b[0m"

// sink is the process-wide output every component logger writes to.
// One sink keeps lines from the panel loop, the recovery engine and
// the bridge interleaved in order on a single stream.
type sink struct {
	mu       sync.Mutex
	out      io.Writer
	level    Level
	colorize bool
}

var std = &sink{
	out:      os.Stderr,
	level:    INFO,
	colorize: os.Getenv("NO_COLOR") == "",
}

func init() {
	if s := os.Getenv("KOBRA_LOG_LEVEL"); s != "" {
		std.level = ParseLevel(s)
	}
}

// SetOutput redirects all component loggers to w.
func SetOutput(w io.Writer) {
	std.mu.Lock()
	std.out = w
	std.mu.Unlock()
}

// SetLevel sets the minimum level that gets written.
func SetLevel(level Level) {
	std.mu.Lock()
	std.level = level
	std.mu.Unlock()
}

// SetColorize turns ANSI colors on or off. Off is the right choice
// whenever the output is a file.
func SetColorize(on bool) {
	std.mu.Lock()
	std.colorize = on
	std.mu.Unlock()
}

// Logger tags lines with the component that emitted them.
type Logger struct {
	prefix string
}

// New returns a logger for the named component.
func New(prefix string) *Logger {
	return &Logger{prefix: prefix}
}

func (l *Logger) Debug(format string, args ...any) { l.write(DEBUG, format, args) }
func (l *Logger) Info(format string, args ...any)  { l.write(INFO, format, args) }
func (l *Logger) Warn(format string, args ...any)  { l.write(WARN, format, args) }
func (l *Logger) Error(format string, args ...any) { l.write(ERROR, format, args) }

func (l *Logger) write(level Level, format string, args []any) {
	std.mu.Lock()
	defer std.mu.Unlock()

	if level < std.level {
		return
	}

	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}

	var sb strings.Builder
	sb.WriteString(time.Now().Format("2006-01-02 15:04:05.000"))
	sb.WriteString(fmt.Sprintf(" [%-5s] ", level))
	if std.colorize {
		sb.WriteString(ansiColors[level])
	}
	sb.WriteString(l.prefix)
	if std.colorize {
		sb.WriteString(ansiReset)
	}
	sb.WriteString(": ")
	sb.WriteString(msg)
	sb.WriteString("\n")

	fmt.Fprint(std.out, sb.String())
}
