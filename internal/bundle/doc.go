// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package bundle resolves the effective configuration of an instance from
// built-in defaults, mounted documents and command line flags.
package bundle
