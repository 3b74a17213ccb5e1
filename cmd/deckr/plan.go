package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/deckr/internal/config"
	"github.com/alexisbeaulieu97/deckr/internal/layout"
	"github.com/alexisbeaulieu97/deckr/pkg/diff"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <current-layout> <next-layout>",
		Short: "Show how the keys change between two layout files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := config.ParseConfig(args[0])
			if err != nil {
				return err
			}
			next, err := config.ParseConfig(args[1])
			if err != nil {
				return err
			}

			out := diff.GenerateUnifiedDiff(
				[]byte(layout.Describe(current)),
				[]byte(layout.Describe(next)),
				args[0], args[1],
			)
			if out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "no changes")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	return cmd
}
