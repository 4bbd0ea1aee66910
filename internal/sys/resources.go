// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys

import (
	"fmt"
	"net"
	"os/exec"
	"strconv"

	"golang.org/x/sys/unix"
)

const mib = 1 << 20

// AvailableMemory returns the free plus buffered memory of the host in MiB.
func AvailableMemory() (uint64, error) {
	var info unix.Sysinfo_t

	err := unix.Sysinfo(&info)
	if err != nil {
		return 0, fmt.Errorf("sysinfo: %w", err)
	}

	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}

	return (uint64(info.Freeram) + uint64(info.Bufferram)) * unit / mib, nil
}

// CheckMemory returns [ErrInsufficientMemory] if less than the requested
// amount of MiB is available.
func CheckMemory(requested uint64) error {
	available, err := AvailableMemory()
	if err != nil {
		return err
	}

	if available < requested {
		return fmt.Errorf(
			"%w: requested %d MiB, available %d MiB",
			ErrInsufficientMemory,
			requested,
			available,
		)
	}

	return nil
}

// CheckPortFree returns [ErrPortInUse] if the TCP port can not be bound on
// the given address.
func CheckPortFree(address string, port uint16) error {
	hostport := net.JoinHostPort(address, strconv.Itoa(int(port)))

	listener, err := net.Listen("tcp", hostport)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPortInUse, hostport, err)
	}

	_ = listener.Close()

	return nil
}

// LookPath returns the absolute path of the named executable.
func LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrExecutableNotFound, name)
	}

	return path, nil
}
