// Size-capped log files for the Kobra panel host
//
// The host runs forever on a small eMMC partition, so log files are
// rotated by size with a fixed number of numbered backups.
//
// Copyright (C) 2026  Kobra Panel Host Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// RotatingWriter is an io.Writer over a log file that rotates the file
// when it exceeds maxSize. Backups are kept as name.1 .. name.N, with
// name.1 the most recent.
type RotatingWriter struct {
	mu         sync.Mutex
	filename   string
	maxSize    int64
	maxBackups int
	size       int64
	file       *os.File
}

// NewRotatingWriter opens (or creates) the log file. maxSizeMB and
// maxBackups fall back to 2 MB and 3 backups when zero.
func NewRotatingWriter(filename string, maxSizeMB, maxBackups int) (*RotatingWriter, error) {
	if filename == "" {
		return nil, fmt.Errorf("log: filename required")
	}
	if maxSizeMB <= 0 {
		maxSizeMB = 2
	}
	if maxBackups <= 0 {
		maxBackups = 3
	}

	w := &RotatingWriter{
		filename:   filename,
		maxSize:    int64(maxSizeMB) * 1024 * 1024,
		maxBackups: maxBackups,
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingWriter) open() error {
	if err := os.MkdirAll(filepath.Dir(w.filename), 0755); err != nil {
		return fmt.Errorf("log: create directory: %w", err)
	}
	f, err := os.OpenFile(w.filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("log: open file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("log: stat file: %w", err)
	}
	w.file = f
	w.size = info.Size()
	return nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.size+int64(len(p)) > w.maxSize {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// rotate shifts name.N-1 -> name.N up the chain, moves the live file
// to name.1 and reopens a fresh one.
func (w *RotatingWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("log: close for rotation: %w", err)
	}

	for i := w.maxBackups - 1; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", w.filename, i)
		to := fmt.Sprintf("%s.%d", w.filename, i+1)
		if _, err := os.Stat(from); err == nil {
			os.Rename(from, to)
		}
	}
	if err := os.Rename(w.filename, w.filename+".1"); err != nil {
		w.open()
		return fmt.Errorf("log: rotate: %w", err)
	}

	return w.open()
}

// Close closes the live log file.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}

// Size returns the live file size.
func (w *RotatingWriter) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}
