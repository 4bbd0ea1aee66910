// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/aibor/vrboot/internal/nic"
	"github.com/aibor/vrboot/internal/orchestrator"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newNICsCommand(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nics",
		Short: "Print the interface mapping",
		Long: `Print which container interface is connected to which guest NIC for
every instance that "vrboot run" would start with the same flags.

If no image is found, but a role is given, the mapping of that role is
printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printNICs(cmd.OutOrStdout(), f, cmd.Flags())
		},
	}

	f.addPlanFlags(cmd.Flags())

	return cmd
}

func printNICs(w io.Writer, f *flags, flagSet *pflag.FlagSet) error {
	images, err := f.validImages()
	if errors.Is(err, ErrNoImagesFound) && f.role != "" {
		// Plans only use the image name, so the role serves as one.
		images, err = []string{string(f.role)}, nil
	}

	if err != nil {
		return err
	}

	cfg, err := f.configFor(flagSet, images)
	if err != nil {
		return err
	}

	plans, err := orchestrator.NewPlans(cfg)
	if err != nil {
		return err
	}

	for idx, plan := range plans {
		if idx > 0 {
			fmt.Fprintln(w)
		}

		fmt.Fprintf(w, "%s (%s)\n", plan.Name(), plan.Profile.Role)

		err := nic.WriteTable(w, plan.Spec.NICs)
		if err != nil {
			return err
		}
	}

	return nil
}
