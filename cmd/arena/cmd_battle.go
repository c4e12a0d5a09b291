package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spboyer/codearena/internal/arena"
	"github.com/spboyer/codearena/internal/models"
	"github.com/spboyer/codearena/internal/transcript"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type battleOptions struct {
	format string
	outDir string
}

func newBattleCommand(opts *globalOptions) *cobra.Command {
	bo := &battleOptions{}

	cmd := &cobra.Command{
		Use:   "battle [file|-]",
		Short: "Run one battle in the terminal",
		Long: `Run one battle in the terminal.

The snippet is read from the file argument, or from stdin when the argument
is "-" or missing. Critiques are printed as they arrive, then the verdict.
An empty snippet does nothing.

Output formats:
  text      colored transcript (default)
  json      the full report as JSON
  markdown  the full report as Markdown

--out also writes the report (json, or markdown when --format markdown)
into the given directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snippet, err := readSnippet(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if snippet == "" {
				return nil
			}

			if bo.format != "text" {
				if _, err := transcript.ParseFormat(bo.format); err != nil {
					return err
				}
			}

			bindings := map[string]string{
				"battle.rounds":      "rounds",
				"battle.shuffle":     "shuffle",
				"battle.seed":        "seed",
				"critique.strategy":  "strategy",
				"consensus.strategy": "strategy",
			}
			cfg, err := opts.load(cmd, bindings)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			interactive := bo.format == "text" && isTerminal(out)

			var extra []arena.RunnerOption
			if !interactive {
				extra = append(extra, arena.WithPacing(0))
			}
			stack, err := newBattleStack(ctx, cfg, extra...)
			if err != nil {
				return err
			}
			defer stack.Close(context.Background())

			snap, err := runBattle(ctx, stack.Runner, snippet, out, cmd.ErrOrStderr(), bo.format, interactive)
			if err != nil {
				return err
			}

			if bo.outDir != "" {
				f := transcript.FormatJSON
				if bo.format == string(transcript.FormatMarkdown) || bo.format == "md" {
					f = transcript.FormatMarkdown
				}
				path, err := transcript.Write(bo.outDir, transcript.NewReport(snap, time.Now()), f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", path) //nolint:errcheck
			}
			return nil
		},
	}

	cmd.Flags().Int("rounds", 1, "Critique passes over the three personas")
	cmd.Flags().Bool("shuffle", false, "Shuffle persona order every round")
	cmd.Flags().Uint64("seed", 0, "Random seed for shuffling and canned critiques (0 = time)")
	cmd.Flags().String("strategy", "remote", "Critique and consensus strategy: remote or mock")
	cmd.Flags().StringVarP(&bo.format, "format", "f", "text", "Output format: text, json or markdown")
	cmd.Flags().StringVarP(&bo.outDir, "out", "o", "", "Also write the report into this directory")

	return cmd
}

// runBattle runs snippet in a fresh session and prints it in format.
func runBattle(ctx context.Context, runner *arena.Runner, snippet string, out, status io.Writer, format string, interactive bool) (models.Snapshot, error) {
	sess := arena.NewSession()

	if format == "text" {
		rep := newTextReporter(out, status, interactive, runner.Rounds()*len(runner.Personas()))
		snap, err := runner.Start(ctx, sess, snippet, rep.OnProgress)
		rep.Finish(snap)
		if err != nil {
			return snap, fmt.Errorf("battle stopped: %w", err)
		}
		return snap, nil
	}

	snap, err := runner.Start(ctx, sess, snippet)
	if err != nil {
		return snap, fmt.Errorf("battle stopped: %w", err)
	}
	f, err := transcript.ParseFormat(format)
	if err != nil {
		return snap, err
	}
	return snap, transcript.Render(out, transcript.NewReport(snap, time.Now()), f)
}

// readSnippet reads the file named by args[0], or stdin for "-" or no args.
// The content is returned as is.
func readSnippet(args []string, stdin io.Reader) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("snippet file %s not found", args[0])
		}
		return "", fmt.Errorf("reading %s: %w", args[0], err)
	}
	return string(data), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
