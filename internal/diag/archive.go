// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package diag

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/cavaliergopher/cpio"
)

const fileMode = 0o644

// Entry is a single file in the archive. Content is read from Path unless
// Data is set.
type Entry struct {
	Name string
	Path string
	Data []byte
}

// Writer writes diagnostic archives.
type Writer struct {
	cpioWriter *cpio.Writer
	modTime    time.Time
}

// NewWriter creates a new archive writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		cpioWriter: cpio.NewWriter(w),
		modTime:    time.Now(),
	}
}

// Close flushes and closes the archive.
func (w *Writer) Close() error {
	err := w.cpioWriter.Close()
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}

	return nil
}

// Add adds the entry to the archive. Entries with a missing source file are
// skipped.
func (w *Writer) Add(entry Entry) error {
	data := entry.Data

	if data == nil && entry.Path != "" {
		var err error

		data, err = os.ReadFile(entry.Path)
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("Skip missing diagnostic file", slog.String("path", entry.Path))
			return nil
		} else if err != nil {
			return fmt.Errorf("read %s: %w", entry.Path, err)
		}
	}

	name := entry.Name
	if name == "" {
		name = path.Base(entry.Path)
	}

	header := &cpio.Header{
		Name:    name,
		Mode:    cpio.TypeReg | fileMode,
		ModTime: w.modTime,
		Size:    int64(len(data)),
	}

	err := w.cpioWriter.WriteHeader(header)
	if err != nil {
		return fmt.Errorf("write header for %s: %w", name, err)
	}

	_, err = w.cpioWriter.Write(data)
	if err != nil {
		return fmt.Errorf("write body for %s: %w", name, err)
	}

	return nil
}

// WriteFile writes an archive with the given entries to path.
func WriteFile(path string, entries ...Entry) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer file.Close()

	w := NewWriter(file)

	for _, entry := range entries {
		err := w.Add(entry)
		if err != nil {
			_ = w.Close()
			return err
		}
	}

	err = w.Close()
	if err != nil {
		return err
	}

	err = file.Close()
	if err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	return nil
}
