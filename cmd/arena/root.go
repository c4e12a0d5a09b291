package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spboyer/codearena/internal/projectconfig"
	"github.com/spboyer/codearena/internal/validation"
	"github.com/spboyer/codearena/internal/webapi"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

// globalOptions carries the persistent flags and the configuration layer
// shared by every subcommand.
type globalOptions struct {
	configFile string
	debug      bool

	v *viper.Viper
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "arena",
		Short: "CodeArena - three reviewers critique your code, then a judge rewrites it",
		Long: `CodeArena sends a code snippet to three reviewer personas:
Sentinel (security), Flash (performance) and Sage (style).
Their critiques stream in one by one, then a judge rewrites the snippet
to address them.

Run "arena serve" for the web page or "arena battle" in a terminal.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Path to "+projectconfig.FileName+" (default: search upward from the working directory, then $HOME)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if opts.debug {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	webapi.Version = version

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newBattleCommand(opts))
	cmd.AddCommand(newPersonasCommand())
	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newConfigCommand(opts))
	cmd.AddCommand(newLogsCommand(opts))
	cmd.AddCommand(newRPCCommand(opts))

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}

// configPath resolves which config file applies: --config, then the nearest
// .arena.yaml above the working directory, then one in $HOME. "" means none.
func (o *globalOptions) configPath() (string, error) {
	if o.configFile != "" {
		return o.configFile, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	path, err := projectconfig.FindConfigFile(wd)
	if err == nil {
		return path, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", nil //nolint:nilerr // no home directory means no home config
	}
	p := filepath.Join(home, projectconfig.FileName)
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}
	return "", nil
}

// load reads the config file (schema-checked), ARENA_* variables and the
// given command flags, keyed by configuration key, then validates the result.
func (o *globalOptions) load(cmd *cobra.Command, flags map[string]string) (*projectconfig.Config, error) {
	path, err := o.configPath()
	if err != nil {
		return nil, err
	}
	if path != "" {
		problems, err := validation.ValidateConfigFile(path)
		if err != nil {
			return nil, &projectconfig.ConfigError{Problems: []string{err.Error()}}
		}
		if len(problems) > 0 {
			return nil, &projectconfig.ConfigError{Problems: prefix(path, problems)}
		}

		o.v.SetConfigFile(path)
		o.v.SetConfigType("yaml")
		if err := o.v.ReadInConfig(); err != nil {
			return nil, &projectconfig.ConfigError{Problems: []string{fmt.Sprintf("%s: %v", path, err)}}
		}
		slog.Debug("loaded configuration", "path", path)
	}

	projectconfig.BindEnv(o.v)
	for key, name := range flags {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := o.v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding --%s: %w", name, err)
			}
		}
	}

	cfg, err := projectconfig.Load(o.v)
	if err != nil {
		return nil, &projectconfig.ConfigError{Problems: []string{err.Error()}}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func prefix(path string, problems []string) []string {
	out := make([]string, len(problems))
	for i, p := range problems {
		out[i] = path + ": " + p
	}
	return out
}
