package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spboyer/codearena/internal/projectconfig"
	"github.com/spboyer/codearena/internal/session"
	"github.com/spf13/cobra"
)

// errNoLogs is reported by "arena logs" when nothing was recorded.
var errNoLogs = errors.New("no battle logs found")

func newLogsCommand(opts *globalOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "logs [file]",
		Short: "List battle logs or show one as a timeline",
		Long: `List battle logs or show one as a timeline.

Battle logs are NDJSON files written when logging.session_log is enabled.
Without an argument the logs in --dir (default: logging.dir) are listed,
newest first. With a file, its events are rendered as a timeline.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			if len(args) == 1 {
				events, err := session.ReadEvents(args[0])
				if err != nil {
					return fmt.Errorf("reading battle log: %w", err)
				}
				session.RenderTimeline(w, events)
				return nil
			}

			if dir == "" {
				dir = projectconfig.DefaultLogDir
				if cfg, err := opts.loadLogging(); err == nil && cfg.Dir != "" {
					dir = cfg.Dir
				}
			}

			files, err := session.ListLogs(dir)
			if errors.Is(err, fs.ErrNotExist) || (err == nil && len(files) == 0) {
				fmt.Fprintf(w, "%v in %s\n", errNoLogs, dir) //nolint:errcheck
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(w, "%-40s %-8s %s\n", "File", "Events", "Modified") //nolint:errcheck
			fmt.Fprintln(w, "─────────────────────────────────────────────────────────────────") //nolint:errcheck
			for _, f := range files {
				fmt.Fprintf(w, "%-40s %-8d %s\n", f.Name, f.NumEvents, f.ModTime.Format("2006-01-02 15:04:05")) //nolint:errcheck
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory holding battle logs")
	return cmd
}

// loadLogging reads only the logging section; a missing API key or other
// battle settings do not matter here.
func (o *globalOptions) loadLogging() (projectconfig.LoggingConfig, error) {
	path, err := o.configPath()
	if err != nil {
		return projectconfig.LoggingConfig{}, err
	}
	if path != "" {
		o.v.SetConfigFile(path)
		if err := o.v.ReadInConfig(); err != nil {
			return projectconfig.LoggingConfig{}, err
		}
	}
	projectconfig.BindEnv(o.v)
	cfg, err := projectconfig.Load(o.v)
	if err != nil {
		return projectconfig.LoggingConfig{}, err
	}
	return cfg.Logging, nil
}
