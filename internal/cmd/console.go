// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	"github.com/aibor/vrboot/internal/launcher"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// escapeByte detaches from the console (Ctrl-]).
const escapeByte = 0x1d

func newConsoleCommand() *cobra.Command {
	var host string

	cmd := &cobra.Command{
		Use:   "console [INDEX]",
		Short: "Attach the terminal to an instance's serial console",
		Long: `Attach the terminal to the serial console of the instance with the given
index (default 0). The terminal is put into raw mode. Press Ctrl-] to
detach.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index := 0

			if len(args) > 0 {
				var err error

				index, err = strconv.Atoi(args[0])
				if err != nil || index < 0 {
					return fmt.Errorf("%w: %s", ErrInvalidInstance, args[0])
				}
			}

			return attachConsole(cmd.Context(), host, index, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "host the console ports listen on")

	return cmd
}

func attachConsole(
	ctx context.Context,
	host string,
	index int,
	stdin io.Reader,
	stdout, stderr io.Writer,
) error {
	address := net.JoinHostPort(host, strconv.Itoa(launcher.ConsolePortBase+index))

	var dialer net.Dialer

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("%w: instance %d: %w", ErrInvalidInstance, index, err)
	}

	if file, ok := stdin.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		state, err := term.MakeRaw(int(file.Fd()))
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("raw terminal: %w", err)
		}

		defer func() { _ = term.Restore(int(file.Fd()), state) }()
	}

	fmt.Fprintf(stderr, "Connected to %s. Escape character is '^]'.\r\n", address)

	return attach(ctx, conn, stdin, stdout)
}

// attach copies between the console and the terminal until the escape byte
// is read, stdin ends, the console is closed or ctx is canceled.
func attach(ctx context.Context, conn io.ReadWriteCloser, stdin io.Reader, stdout io.Writer) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	input := make(chan error, 1)
	output := make(chan error, 1)

	go func() {
		input <- copyUntilEscape(conn, stdin)
	}()

	go func() {
		_, err := io.Copy(stdout, conn)
		output <- err
	}()

	select {
	case err := <-input:
		_ = conn.Close()
		<-output

		return err
	case err := <-output:
		_ = conn.Close()

		if ctx.Err() != nil {
			return nil
		}

		if err != nil {
			return fmt.Errorf("console: %w", err)
		}

		return nil
	}
}

// copyUntilEscape copies from src to dst up to the escape byte.
func copyUntilEscape(dst io.Writer, src io.Reader) error {
	buf := make([]byte, 1024)

	for {
		n, err := src.Read(buf)
		if n > 0 {
			chunk := buf[:n]

			idx := bytes.IndexByte(chunk, escapeByte)
			if idx >= 0 {
				chunk = chunk[:idx]
			}

			if len(chunk) > 0 {
				_, werr := dst.Write(chunk)
				if werr != nil {
					return nil //nolint:nilerr
				}
			}

			if idx >= 0 {
				return nil
			}
		}

		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
	}
}
