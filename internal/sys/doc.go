// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package sys provides host system checks: file paths, KVM support and the
// availability of memory, ports and executables.
package sys
