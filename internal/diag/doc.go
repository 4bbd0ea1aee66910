// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package diag collects the artifacts of a failed instance into a single cpio
// archive.
package diag
