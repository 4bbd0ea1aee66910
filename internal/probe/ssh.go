// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"golang.org/x/crypto/ssh"
)

// ErrUnreachable is returned if the SSH server did not accept the
// credentials before the context was done.
var ErrUnreachable = errors.New("management plane unreachable")

const (
	defaultInterval    = 5 * time.Second
	defaultDialTimeout = 10 * time.Second
)

// SSH probes a guest SSH server with password authentication.
type SSH struct {
	Address  string
	Username string
	Password string

	// Interval between attempts.
	Interval time.Duration

	// DialTimeout limits a single attempt.
	DialTimeout time.Duration
}

// Wait retries logging in until it succeeds or ctx is done.
func (p SSH) Wait(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		err := p.Check(ctx)
		if err == nil {
			return nil
		}

		slog.Debug("SSH probe failed",
			slog.String("address", p.Address),
			slog.Any("error", err))

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %w", ErrUnreachable, p.Address, err)
		case <-ticker.C:
		}
	}
}

// Check logs in once.
func (p SSH) Check(ctx context.Context) error {
	timeout := p.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	config := &ssh.ClientConfig{
		User: p.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(p.Password),
			ssh.KeyboardInteractive(p.answerAll),
		},
		// Host keys are generated on first boot of the guest.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec
		Timeout:         timeout,
	}

	dialer := net.Dialer{Timeout: timeout}

	conn, err := dialer.DialContext(ctx, "tcp", p.Address)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	// Bound the handshake by the context as well.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, p.Address, config)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("handshake: %w", err)
	}

	client := ssh.NewClient(sshConn, chans, reqs)

	err = client.Close()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("close: %w", err)
	}

	return nil
}

// answerAll answers keyboard interactive questions with the password.
func (p SSH) answerAll(_, _ string, questions []string, _ []bool) ([]string, error) {
	answers := make([]string, len(questions))
	for i := range answers {
		answers[i] = p.Password
	}

	return answers, nil
}
