package main

import (
	"fmt"

	"github.com/spboyer/codearena/internal/wizard"
	"github.com/spf13/cobra"
)

func newInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a .arena.yaml interactively",
		Long: `Create a .arena.yaml interactively.

Asks for the backend provider, model, strategies and battle settings and
writes them to dir (default: the working directory). API keys are never
written; export GROQ_API_KEY, OPENAI_API_KEY or GEMINI_API_KEY instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			answers, err := wizard.RunConfigWizard(cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}

			path, err := wizard.Write(dir, answers, force)
			if err != nil {
				return fmt.Errorf("%w (use --force to overwrite)", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nWrote %s\n", path) //nolint:errcheck
			if env := answers.Provider.KeyEnv(); env != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Set %s before running a remote battle.\n", env) //nolint:errcheck
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing .arena.yaml")
	return cmd
}
