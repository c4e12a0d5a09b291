package main

import (
	"fmt"

	"github.com/spboyer/codearena/internal/projectconfig"
	"github.com/spboyer/codearena/internal/validation"
	"github.com/spf13/cobra"
)

func newConfigCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	cmd.AddCommand(newConfigValidateCommand(opts))
	return cmd
}

func newConfigValidateCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Check a .arena.yaml against the schema",
		Long: `Check a .arena.yaml against the schema.

Without a path, the file that would be loaded is checked (see --config).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				p, err := opts.configPath()
				if err != nil {
					return err
				}
				path = p
			}
			if path == "" {
				return &projectconfig.ConfigError{Problems: []string{"no " + projectconfig.FileName + " found"}}
			}

			problems, err := validation.ValidateConfigFile(path)
			if err != nil {
				return &projectconfig.ConfigError{Problems: []string{err.Error()}}
			}
			if len(problems) > 0 {
				w := cmd.ErrOrStderr()
				for _, p := range problems {
					fmt.Fprintf(w, "  ✗ %s\n", p) //nolint:errcheck
				}
				return &projectconfig.ConfigError{Problems: []string{fmt.Sprintf("%s has %d problem(s)", path, len(problems))}}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid\n", path) //nolint:errcheck
			return nil
		},
	}
}
