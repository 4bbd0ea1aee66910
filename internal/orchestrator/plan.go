// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package orchestrator

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/aibor/vrboot/internal/bundle"
	"github.com/aibor/vrboot/internal/console"
	"github.com/aibor/vrboot/internal/launcher"
	"github.com/aibor/vrboot/internal/netdev"
	"github.com/aibor/vrboot/internal/nic"
	"github.com/aibor/vrboot/internal/profile"
	"github.com/aibor/vrboot/internal/qemu"
	"github.com/google/uuid"
)

// Config is the input of a run.
type Config struct {
	// Images are the base images. Each one becomes an instance.
	Images []string

	// Role overrides image classification if set.
	Role profile.Role

	// WorkDir holds overlays, seeds and logs of all instances.
	WorkDir string

	// Documents is the directory of the mounted configuration documents.
	// Optional.
	Documents fs.FS

	// Flags are the command line overrides.
	Flags bundle.Partial

	ConnectionMode netdev.Mode

	// ExtraDisks are sizes of additional empty disks for every instance.
	ExtraDisks []string

	// QemuArgs are additional hypervisor arguments for every instance, like
	// "-device=virtio-rng-pci".
	QemuArgs []string

	// BootTimeout and VerifyTimeout override the deadlines of the role if
	// set. Retries overrides the number of attempts if set.
	BootTimeout   time.Duration
	VerifyTimeout time.Duration
	Retries       int

	NoKVM       bool
	KeepOverlay bool

	// MACSeed makes MAC addresses unique across hosts.
	MACSeed string

	// SSHProbe enables the management plane probe after the console
	// session is ready.
	SSHProbe        bool
	SSHProbeTimeout time.Duration

	// FailFast stops all instances once one of them failed.
	FailFast bool

	Backup Backup
}

// Plan is everything required to boot an instance, computed before any
// instance is started.
type Plan struct {
	Profile  profile.Profile
	Bundle   bundle.Bundle
	Playbook console.Playbook
	Spec     launcher.InstanceSpec
}

// Name returns the instance name.
func (p Plan) Name() string {
	return p.Spec.Name
}

// NewPlans computes the plans for all images of cfg. It fails before anything
// is started if any image can not be booted.
func NewPlans(cfg Config) ([]Plan, error) {
	if len(cfg.Images) == 0 {
		return nil, ErrNoImages
	}

	var inputs bundle.Inputs

	if cfg.Documents != nil {
		var err error

		inputs, err = bundle.LoadDocuments(cfg.Documents)
		if err != nil {
			return nil, err
		}
	}

	inputs.Flags = cfg.Flags

	plans := make([]Plan, 0, len(cfg.Images))
	firstExternal := 1

	for idx, image := range cfg.Images {
		plan, err := newPlan(cfg, inputs, idx, image, firstExternal)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(image), err)
		}

		firstExternal += len(nic.Data(plan.Spec.NICs))
		plans = append(plans, plan)
	}

	return plans, nil
}

func newPlan(cfg Config, inputs bundle.Inputs, idx int, image string, firstExternal int) (Plan, error) {
	var (
		prof profile.Profile
		err  error
	)

	if cfg.Role != "" {
		prof, err = profile.Lookup(cfg.Role)
	} else {
		prof, err = profile.Classify(image)
	}

	if err != nil {
		return Plan{}, err
	}

	b, err := bundle.Resolve(prof, inputs)
	if err != nil {
		return Plan{}, err
	}

	descs, err := nic.Map(nic.Topology{
		MaxDataSlots:  prof.MaxNICs,
		SlotFormat:    prof.SlotFormat,
		FirstExternal: firstExternal,
		MACSeed:       cfg.MACSeed,
		Instance:      uint8(idx), //nolint:gosec
	}, b.NICs)
	if err != nil {
		return Plan{}, err
	}

	playbook, err := console.NewPlaybook(prof, b)
	if err != nil {
		return Plan{}, err
	}

	if cfg.BootTimeout > 0 {
		playbook.Deadlines.Boot = cfg.BootTimeout
	}

	if cfg.VerifyTimeout > 0 {
		playbook.Deadlines.Verify = cfg.VerifyTimeout
	}

	if cfg.Retries > 0 {
		playbook.Retries = cfg.Retries
	}

	name := instanceName(image, idx, len(cfg.Images))

	spec := launcher.NewInstanceSpec(name, idx, image, cfg.WorkDir, prof, descs)
	spec.RunID = uuid.NewString()
	spec.Seed = filepath.Join(cfg.WorkDir, name+"-seed.iso")
	spec.Resources.Disks = append(spec.Resources.Disks, cfg.ExtraDisks...)
	spec.NoKVM = cfg.NoKVM

	for _, arg := range cfg.QemuArgs {
		parsed, err := qemu.ParseArgument(arg)
		if err != nil {
			return Plan{}, err
		}

		spec.ExtraArgs = append(spec.ExtraArgs, parsed)
	}

	spec.KeepOverlay = cfg.KeepOverlay

	if cfg.ConnectionMode != "" {
		spec.ConnectionMode = cfg.ConnectionMode
	}

	return Plan{
		Profile:  prof,
		Bundle:   b,
		Playbook: playbook,
		Spec:     spec,
	}, nil
}

// instanceName derives the instance name from the image file name. With
// multiple images the index is appended, so names stay unique.
func instanceName(image string, idx, count int) string {
	name := filepath.Base(image)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	if count > 1 {
		name = fmt.Sprintf("%s-%d", name, idx)
	}

	return name
}
