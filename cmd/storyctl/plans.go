package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newPlansCmd(c *cli) *cobra.Command {
	var (
		output string
		names  []string
	)

	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Print the story plan presets",
		Long:  `Print the request configuration each preset sends to the story service.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(names) == 0 {
				names = c.registry.Names()
			}
			plans, err := c.registry.Resolve(names)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch output {
			case "yaml", "yml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(plans); err != nil {
					return fmt.Errorf("failed to encode plans: %w", err)
				}
				return enc.Close()
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(plans)
			default:
				return fmt.Errorf("unsupported output %q (use yaml or json)", output)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format: yaml or json")
	cmd.Flags().StringSliceVar(&names, "plan", nil, "Only print these plans")
	return cmd
}
