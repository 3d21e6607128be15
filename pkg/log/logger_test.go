// Copyright (C) 2026  Kobra Panel Host Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"bytes"
	"strings"
	"testing"
)

// capture redirects the shared sink to a buffer for one test.
func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer

	std.mu.Lock()
	oldOut, oldLevel, oldColor := std.out, std.level, std.colorize
	std.out = &buf
	std.level = INFO
	std.colorize = false
	std.mu.Unlock()

	t.Cleanup(func() {
		std.mu.Lock()
		std.out, std.level, std.colorize = oldOut, oldLevel, oldColor
		std.mu.Unlock()
	})
	return &buf
}

func TestComponentPrefix(t *testing.T) {
	buf := capture(t)

	New("panel").Info("page changed to %d", 121)

	line := buf.String()
	if !strings.Contains(line, "panel: page changed to 121") {
		t.Errorf("unexpected line %q", line)
	}
	if !strings.Contains(line, "[INFO ]") {
		t.Errorf("missing level tag in %q", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t)
	SetLevel(WARN)

	l := New("recovery")
	l.Debug("dropped")
	l.Info("dropped")
	l.Warn("kept")
	l.Error("kept too")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("low level lines leaked: %q", out)
	}
	if strings.Count(out, "kept") != 2 {
		t.Errorf("expected 2 kept lines, got %q", out)
	}
}

func TestColorizedOutput(t *testing.T) {
	buf := capture(t)
	SetColorize(true)

	New("main").Error("boom")

	if !strings.Contains(buf.String(), "\x1b[31m") {
		t.Errorf("missing ANSI color in %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DEBUG,
		"INFO":    INFO,
		"Warning": WARN,
		"error":   ERROR,
		"bogus":   INFO,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLevelString(t *testing.T) {
	if DEBUG.String() != "DEBUG" || ERROR.String() != "ERROR" {
		t.Error("level names wrong")
	}
	if Level(42).String() != "UNKNOWN" {
		t.Error("out of range level should be UNKNOWN")
	}
}
