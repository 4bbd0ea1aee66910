// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package nic

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteTable prints the interface to port mapping for operators.
func WriteTable(w io.Writer, descs []Descriptor) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "PORT\tEXTERNAL\tGUEST\tSLOT\tTAP\tMAC")

	for _, desc := range descs {
		tap := desc.TapName
		if desc.Management() {
			tap = "(mgmt)"
		}

		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			desc.ExternalIndex,
			desc.ExternalName,
			desc.SlotName,
			desc.SlotOrdinal,
			tap,
			desc.MAC,
		)
	}

	err := tw.Flush()
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	return nil
}
