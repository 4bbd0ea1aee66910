// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package orchestrator wires the components for each instance: it
// classifies the image, resolves the configuration, maps the NICs, renders
// the seed, launches the hypervisor and drives the console until the guest is
// ready. Instances run concurrently and independently of each other.
package orchestrator
