// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package launcher

import (
	"errors"

	"github.com/aibor/vrboot/internal/sys"
)

// ResourceChecker checks if the resources of an instance can be reserved.
type ResourceChecker interface {
	Check(spec InstanceSpec) error
}

// HostChecker checks the resources of the local host.
//
// Memory is checked against the currently available memory. Memory
// accounting is advisory only. Concurrently launched instances are not
// taken into account.
type HostChecker struct {
	Executables []string
	Address     string
}

// Check implements [ResourceChecker].
func (c HostChecker) Check(spec InstanceSpec) error {
	var errs []error

	for _, exe := range c.Executables {
		if exe == "" {
			continue
		}

		_, err := sys.LookPath(exe)
		if err != nil {
			errs = append(errs, err)
		}
	}

	_, err := sys.RegularFile(spec.Image)
	if err != nil {
		errs = append(errs, err)
	}

	err = sys.CheckMemory(spec.Resources.MemoryMiB)
	if err != nil {
		errs = append(errs, err)
	}

	address := c.Address
	if address == "" {
		address = "0.0.0.0"
	}

	ports := []uint16{spec.ConsolePort, spec.MonitorPort}
	for _, fwd := range spec.Forwards {
		if fwd.Protocol != "udp" {
			ports = append(ports, fwd.HostPort)
		}
	}

	for _, port := range ports {
		if port == 0 {
			continue
		}

		err := sys.CheckPortFree(address, port)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
