// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"github.com/spf13/cobra"
)

func newRootCommand(f *flags, cfg IO) *cobra.Command {
	root := &cobra.Command{
		Use:   "vrboot",
		Short: "Boot vendor appliance images in a container",
		Long: `vrboot boots vendor supplied appliance images with QEMU, maps the
container interfaces onto the guest NICs in a fixed order and drives the
serial console through the first boot until the appliance is configured.

Without a subcommand, vrboot runs all images just like "vrboot run".

Arguments may also be given in the environment variable ` + EnvArgsVar + `
and in the file /` + localConfigFile + `, one argument per line. Arguments
on the command line take precedence.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			setupLogging(cfg.Stderr, logLevel(f.debug, f.trace))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInstances(cmd.Context(), f, cmd.Flags())
		},
	}

	root.SetIn(cfg.Stdin)
	root.SetOut(cfg.Stdout)
	root.SetErr(cfg.Stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ParseArgsError{msg: "parse args", err: err}
	})

	f.addLogFlags(root.PersistentFlags())
	f.addPlanFlags(root.Flags())
	f.addRunFlags(root.Flags())

	root.AddCommand(
		newRunCommand(f),
		newNICsCommand(f),
		newClassifyCommand(),
		newConsoleCommand(),
		newVersionCommand(),
	)

	return root
}

func newRunCommand(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Boot and configure all images",
		Long: `Boot all given images, or all images found in the image directory,
and drive each serial console until the appliance is ready. vrboot then
stays in the foreground until it is stopped or a hypervisor exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInstances(cmd.Context(), f, cmd.Flags())
		},
	}

	f.addPlanFlags(cmd.Flags())
	f.addRunFlags(cmd.Flags())

	return cmd
}
