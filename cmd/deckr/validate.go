package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/deckr/internal/config"
)

type validateResult struct {
	Valid bool   `json:"valid"`
	Name  string `json:"name,omitempty"`
	Pages int    `json:"pages,omitempty"`
	Keys  int    `json:"keys,omitempty"`
	Error string `json:"error,omitempty"`
}

func newValidateCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <layout-file>",
		Short: "Check a layout file without touching any device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.ParseConfig(args[0])

			res := validateResult{Valid: err == nil}
			if err != nil {
				res.Error = err.Error()
			} else {
				res.Name = cfg.Name
				res.Pages = len(cfg.Pages)
				for _, p := range cfg.Pages {
					res.Keys += len(p.Keys)
				}
			}

			out := cmd.OutOrStdout()
			if root.json {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(res); encErr != nil {
					return encErr
				}
				return err
			}

			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: ok (%d pages, %d keys)\n", res.Name, res.Pages, res.Keys)
			return nil
		},
	}

	return cmd
}
