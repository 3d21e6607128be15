// Copyright (C) 2026  Kobra Panel Host Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestRotatingWriterAppends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "host.log")

	w, err := NewRotatingWriter(path, 1, 2)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer w.Close()

	if _, err := w.Write([]byte("first\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := w.Write([]byte("second\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "first\nsecond\n" {
		t.Errorf("unexpected content %q", data)
	}
	if w.Size() != int64(len(data)) {
		t.Errorf("size accounting off: %d vs %d", w.Size(), len(data))
	}
}

func TestRotationShiftsBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "host.log")

	w, err := NewRotatingWriter(path, 1, 2)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer w.Close()
	// Force tiny cap so every write rotates.
	w.maxSize = 8

	for _, line := range []string{"aaaaaaaa\n", "bbbbbbbb\n", "cccccccc\n"} {
		if _, err := w.Write([]byte(line)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	// Live file holds the last line, .1 the one before, .2 the first.
	for name, want := range map[string]string{
		path:        "cccccccc\n",
		path + ".1": "bbbbbbbb\n",
		path + ".2": "aaaaaaaa\n",
	} {
		data, err := os.ReadFile(name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !bytes.Equal(data, []byte(want)) {
			t.Errorf("%s = %q, want %q", name, data, want)
		}
	}
}

func TestRotationDropsOldestBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "host.log")

	w, err := NewRotatingWriter(path, 1, 2)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer w.Close()
	w.maxSize = 8

	for _, line := range []string{"11111111\n", "22222222\n", "33333333\n", "44444444\n"} {
		if _, err := w.Write([]byte(line)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Error("backup beyond maxBackups should not exist")
	}
	data, _ := os.ReadFile(path + ".2")
	if string(data) != "22222222\n" {
		t.Errorf("oldest kept backup = %q, want 22222222", data)
	}
}

func TestNewRotatingWriterRequiresFilename(t *testing.T) {
	if _, err := NewRotatingWriter("", 1, 1); err == nil {
		t.Error("expected error for empty filename")
	}
}
