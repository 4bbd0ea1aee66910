// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/aibor/vrboot/internal/profile"
	"github.com/spf13/cobra"
)

func newClassifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classify IMAGE...",
		Short: "Print the role and resource profile of images",
		Long: `Classify images by their file name and print the resulting role and
its default resource profile. The images do not need to exist.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printProfiles(cmd.OutOrStdout(), args)
		},
	}
}

func printProfiles(w io.Writer, images []string) error {
	profiles := make([]profile.Profile, len(images))

	for idx, image := range images {
		p, err := profile.Classify(image)
		if err != nil {
			return err
		}

		profiles[idx] = p
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "IMAGE\tROLE\tFAMILY\tCPUS\tMEMORY\tDATA DISK\tNICS\tHOSTNAME")

	for idx, p := range profiles {
		disk := p.DataDisk
		if disk == "" {
			disk = "-"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%dM\t%s\t%d\t%s\n",
			filepath.Base(images[idx]),
			p.Role,
			p.Family,
			p.CPUs,
			p.MemoryMiB,
			disk,
			p.DefaultNICs,
			p.Hostname(),
		)
	}

	err := tw.Flush()
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	return nil
}
