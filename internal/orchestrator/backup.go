// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/aibor/vrboot/internal/sys"
)

// Default backup locations.
const (
	DefaultBackupArchive = "/config/backup.tar.gz"
	DefaultBackupScript  = "/backup.sh"
)

// Backup restores a saved guest configuration once the guest is ready.
type Backup struct {
	// Archive is the saved configuration. Nothing is restored if it does not
	// exist.
	Archive string

	// Script is called as "Script -u <user> -p <password> restore".
	Script string
}

// Restore runs the restore script if both archive and script exist.
func (b Backup) Restore(ctx context.Context, log *slog.Logger, username, password string) error {
	if b.Archive == "" || !sys.FileExists(b.Archive) {
		log.Debug("No backup to restore", slog.String("archive", b.Archive))
		return nil
	}

	if b.Script == "" || !sys.FileExists(b.Script) {
		log.Warn("Backup found but no restore script",
			slog.String("archive", b.Archive),
			slog.String("script", b.Script))

		return nil
	}

	log.Info("Restore backup", slog.String("archive", b.Archive))

	//nolint:gosec
	output, err := exec.CommandContext(ctx, b.Script,
		"-u", username,
		"-p", password,
		"restore",
	).CombinedOutput()
	if err != nil {
		return fmt.Errorf("restore backup: %w: %s", err, output)
	}

	return nil
}
