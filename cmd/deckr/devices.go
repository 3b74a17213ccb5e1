package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/deckr/internal/hid"
)

var searchDevices = hid.Search

func newDevicesCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List attached Stream Decks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			found := searchDevices()
			out := cmd.OutOrStdout()

			if root.json {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(found)
			}

			if len(found) == 0 {
				fmt.Fprintln(out, "no stream decks found")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSERIAL\tPRODUCT")
			for _, d := range found {
				fmt.Fprintf(tw, "%s\t%s\t0x%04x\n", d.Name, d.Serial, d.ProductID)
			}
			return tw.Flush()
		},
	}

	return cmd
}
