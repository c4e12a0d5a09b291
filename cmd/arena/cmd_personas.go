package main

import (
	"fmt"

	"github.com/spboyer/codearena/internal/persona"
	"github.com/spf13/cobra"
)

func newPersonasCommand() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "personas",
		Short: "List the reviewer personas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for _, p := range persona.All() {
				fmt.Fprintf(w, "%s %s\n", personaLabel(p.Name), p.Focus) //nolint:errcheck
				if verbose {
					instr, err := persona.Instruction(p.Name)
					if err != nil {
						return err
					}
					fmt.Fprintf(w, "    %s\n", instr) //nolint:errcheck
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show each persona's instruction")
	return cmd
}
