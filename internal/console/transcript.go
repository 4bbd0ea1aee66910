// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
)

// LevelTrace is the log level raw console lines are logged with.
const LevelTrace = slog.LevelDebug - 4

// transcript writes console output line by line into dst with carriage
// returns removed. Each line is logged with [LevelTrace].
type transcript struct {
	dst     io.Writer
	logger  *slog.Logger
	partial []byte
}

// Write implements [io.Writer]. Incomplete lines are held back until the
// line is completed or [transcript.Flush] is called.
func (t *transcript) Write(data []byte) (int, error) {
	t.partial = append(t.partial, data...)

	for {
		idx := bytes.IndexByte(t.partial, '\n')
		if idx < 0 {
			break
		}

		err := t.writeLn(t.partial[:idx])
		if err != nil {
			return 0, err
		}

		t.partial = t.partial[idx+1:]
	}

	return len(data), nil
}

// Flush writes an incomplete last line.
func (t *transcript) Flush() error {
	if len(t.partial) == 0 {
		return nil
	}

	err := t.writeLn(t.partial)
	t.partial = nil

	return err
}

func (t *transcript) writeLn(line []byte) error {
	line = bytes.ReplaceAll(line, []byte("\r"), nil)

	if t.logger != nil {
		t.logger.Log(context.Background(), LevelTrace, "Console",
			slog.String("line", string(line)))
	}

	return writeLn(t.dst, line)
}

func writeLn(dst io.Writer, data []byte) error {
	// If the caller did not pass any output writer, discard it.
	if dst == nil {
		return nil
	}

	_, err := dst.Write(data)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}

	_, err = dst.Write([]byte("\n"))
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}

	return nil
}
