// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"fmt"
	"io"
	"io/fs"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aibor/vrboot/internal/bundle"
	"github.com/aibor/vrboot/internal/launcher"
	"github.com/aibor/vrboot/internal/netdev"
	"github.com/aibor/vrboot/internal/orchestrator"
	"github.com/aibor/vrboot/internal/profile"
	"github.com/spf13/pflag"
)

// AddDiskEnv is the environment variable additional disk sizes are read from.
const AddDiskEnv = "ADD_DISK"

const (
	defaultConfigDir = "/config"
	defaultImageDir  = "/"
	defaultWorkDir   = "/var/lib/vrboot"

	maxNICs    = 16
	maxRetries = 100
)

type flags struct {
	images   FilePathList
	imageDir FilePath
	role     profile.Role

	hostname    string
	username    string
	password    string
	nics        uint64
	mgmtAddress string
	mgmtGateway string
	mgmtDHCP    bool

	connectionMode netdev.Mode
	addDisks       []string
	workDir        FilePath
	configDir      FilePath

	bootTimeout     time.Duration
	verifyTimeout   time.Duration
	retries         uint64
	sshProbe        bool
	sshProbeTimeout time.Duration

	metricsAddr string
	qemuBin     string
	qemuArgs    []string
	imageBin    string
	noKVM       bool
	keepOverlay bool
	failFast    bool

	debug bool
	trace bool

	// presets holds the flags parsed from preset arguments.
	presets *pflag.FlagSet
}

func newFlags() *flags {
	return &flags{
		imageDir:       defaultImageDir,
		workDir:        defaultWorkDir,
		configDir:      defaultConfigDir,
		connectionMode: netdev.ModeTC,
		qemuBin:        launcher.DefaultQemuExecutable,
		imageBin:       launcher.DefaultImageExecutable,
	}
}

// addLogFlags adds the flags every command shares.
func (f *flags) addLogFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&f.debug, "debug", f.debug, "enable debug output")
	fs.BoolVar(&f.trace, "trace", f.trace,
		"enable debug output and log every console line")
}

// Flag defaults are the current values, so flags registered after the
// presets are parsed keep the preset values.

// addPlanFlags adds the flags that determine the instances.
func (f *flags) addPlanFlags(fs *pflag.FlagSet) {
	fs.VarP(&f.images, "image", "i",
		"base image to boot, may be given multiple times or comma separated "+
			"(default all "+ImagePattern+" in --image-dir)")
	fs.Var(&f.imageDir, "image-dir", "directory searched for base images")
	fs.Var(&f.role, "role",
		"role of the images instead of classifying them by file name: "+
			roleList())
	fs.Var(&f.configDir, "config-dir",
		"directory with mounted configuration documents")

	fs.StringVar(&f.hostname, "hostname", f.hostname, "guest hostname")
	fs.StringVar(&f.username, "username", f.username, "guest login user")
	fs.StringVar(&f.password, "password", f.password, "guest login password")
	fs.Var(&LimitedUintValue{Value: &f.nics, Upper: maxNICs}, "nics",
		"number of data NICs")
	fs.StringVar(&f.mgmtAddress, "mgmt-address", f.mgmtAddress,
		"management address in CIDR notation")
	fs.StringVar(&f.mgmtGateway, "mgmt-gateway", f.mgmtGateway, "management gateway")
	fs.BoolVar(&f.mgmtDHCP, "mgmt-dhcp", f.mgmtDHCP,
		"use DHCP on the management interface")

	fs.Var(&f.connectionMode, "connection-mode",
		"how data NICs are connected to container interfaces: tc, bridge, none")
	fs.StringSliceVar(&f.addDisks, "add-disk", f.addDisks,
		"size of an additional empty disk, may be given multiple times "+
			"(also read from "+AddDiskEnv+")")
	fs.Var(&f.workDir, "work-dir",
		"directory for overlays, seeds, console logs and diagnostics")

	fs.DurationVar(&f.bootTimeout, "boot-timeout", f.bootTimeout,
		"maximum wait for each boot prompt (default per role)")
	fs.DurationVar(&f.verifyTimeout, "verify-timeout", f.verifyTimeout,
		"maximum wait for the readiness check (default per role)")
	fs.Var(&LimitedUintValue{Value: &f.retries, Upper: maxRetries}, "retries",
		"number of attempts for boot prompts and readiness checks "+
			"(default per role)")
}

// addRunFlags adds the flags only required for actually booting.
func (f *flags) addRunFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&f.sshProbe, "ssh-probe", f.sshProbe,
		"check SSH login through the forwarded management port once ready")
	fs.DurationVar(&f.sshProbeTimeout, "ssh-probe-timeout", f.sshProbeTimeout,
		"maximum wait for the SSH check")
	fs.StringVar(&f.metricsAddr, "metrics-addr", f.metricsAddr,
		"address to serve prometheus metrics on, disabled if empty")
	fs.StringVar(&f.qemuBin, "qemu-bin", f.qemuBin,
		"QEMU binary to use")
	fs.StringArrayVar(&f.qemuArgs, "qemu-arg", f.qemuArgs,
		"additional QEMU argument like \"-device=virtio-rng-pci\", may be given multiple times")
	fs.StringVar(&f.imageBin, "qemu-img-bin", f.imageBin,
		"qemu-img binary to use")
	fs.BoolVar(&f.noKVM, "nokvm", f.noKVM, "disable hardware support")
	fs.BoolVar(&f.keepOverlay, "keep-overlay", f.keepOverlay,
		"do not delete overlay disks on exit")
	fs.BoolVar(&f.failFast, "fail-fast", f.failFast,
		"stop all instances once one of them failed")
}

// changed returns true if the flag is set explicitly or by preset.
func (f *flags) changed(flagSet *pflag.FlagSet, name string) bool {
	if f.presets != nil && f.presets.Changed(name) {
		return true
	}

	return flagSet.Changed(name)
}

// partial returns the command line contribution to the config bundle. Only
// flags that are explicitly set contribute.
func (f *flags) partial(flagSet *pflag.FlagSet) (bundle.Partial, error) {
	partial := bundle.Partial{Source: "command line"}

	if f.changed(flagSet, "hostname") {
		partial.Hostname = &f.hostname
	}

	if f.changed(flagSet, "username") {
		partial.Username = &f.username
	}

	if f.changed(flagSet, "password") {
		partial.Password = &f.password
	}

	if f.changed(flagSet, "nics") {
		nics := int(f.nics) //nolint:gosec
		partial.NICs = &nics
	}

	if f.changed(flagSet, "mgmt-dhcp") {
		partial.ManagementDHCP = &f.mgmtDHCP
	}

	if f.mgmtAddress != "" {
		prefix, err := netip.ParsePrefix(f.mgmtAddress)
		if err != nil {
			return bundle.Partial{}, &ParseArgsError{msg: "mgmt-address", err: err}
		}

		partial.ManagementAddress = &prefix
	}

	if f.mgmtGateway != "" {
		addr, err := netip.ParseAddr(f.mgmtGateway)
		if err != nil {
			return bundle.Partial{}, &ParseArgsError{msg: "mgmt-gateway", err: err}
		}

		partial.ManagementGateway = &addr
	}

	return partial, nil
}

// validImages returns the validated images given or discovered.
func (f *flags) validImages() ([]string, error) {
	images := []string(f.images)
	if len(images) == 0 {
		var err error

		images, err = DiscoverImages(string(f.imageDir))
		if err != nil {
			return nil, err
		}
	}

	return ValidateImages(images)
}

// extraDisks returns the disks given by flag followed by the ones of the
// environment.
func (f *flags) extraDisks() []string {
	disks := append([]string{}, f.addDisks...)

	for size := range strings.FieldsFuncSeq(os.Getenv(AddDiskEnv), isListSeparator) {
		disks = append(disks, size)
	}

	return disks
}

func isListSeparator(r rune) bool {
	return r == ',' || r == ' ' || r == '\t' || r == '\n'
}

// config assembles the orchestrator input.
func (f *flags) config(flagSet *pflag.FlagSet) (orchestrator.Config, error) {
	images, err := f.validImages()
	if err != nil {
		return orchestrator.Config{}, err
	}

	return f.configFor(flagSet, images)
}

func (f *flags) configFor(flagSet *pflag.FlagSet, images []string) (orchestrator.Config, error) {
	partial, err := f.partial(flagSet)
	if err != nil {
		return orchestrator.Config{}, err
	}

	configDir := string(f.configDir)

	cfg := orchestrator.Config{
		Images:          images,
		Role:            f.role,
		WorkDir:         string(f.workDir),
		Flags:           partial,
		ConnectionMode:  f.connectionMode,
		ExtraDisks:      f.extraDisks(),
		QemuArgs:        f.qemuArgs,
		BootTimeout:     f.bootTimeout,
		VerifyTimeout:   f.verifyTimeout,
		Retries:         int(f.retries), //nolint:gosec
		NoKVM:           f.noKVM,
		KeepOverlay:     f.keepOverlay,
		SSHProbe:        f.sshProbe,
		SSHProbeTimeout: f.sshProbeTimeout,
		FailFast:        f.failFast,
		Backup: orchestrator.Backup{
			Archive: filepath.Join(configDir, filepath.Base(orchestrator.DefaultBackupArchive)),
			Script:  orchestrator.DefaultBackupScript,
		},
	}

	if info, err := os.Stat(configDir); err == nil && info.IsDir() {
		cfg.Documents = os.DirFS(configDir)
	}

	// MAC addresses differ between containers but stay stable across
	// restarts of the same one.
	cfg.MACSeed, err = os.Hostname()
	if err != nil {
		return orchestrator.Config{}, fmt.Errorf("hostname: %w", err)
	}

	return cfg, nil
}

// parsePresets applies the arguments of the local config file and the
// environment. They may only contain flags.
func (f *flags) parsePresets(fsys fs.FS, file string) error {
	args, err := PresetArgs(fsys, file)
	if err != nil {
		return &ParseArgsError{msg: "preset args", err: err}
	}

	f.presets = pflag.NewFlagSet("presets", pflag.ContinueOnError)
	f.presets.SetOutput(io.Discard)
	f.addLogFlags(f.presets)
	f.addPlanFlags(f.presets)
	f.addRunFlags(f.presets)

	err = f.presets.Parse(args)
	if err != nil {
		return &ParseArgsError{msg: "preset args", err: err}
	}

	if f.presets.NArg() > 0 {
		return &ParseArgsError{
			msg: fmt.Sprintf("preset args: positional arguments not supported: %v", f.presets.Args()),
		}
	}

	return nil
}

func roleList() string {
	roles := profile.Roles()
	names := make([]string, len(roles))

	for idx, role := range roles {
		names[idx] = string(role)
	}

	return strings.Join(names, ", ")
}
