// Package wizard collects the answers for a new .arena.yaml, either through
// an interactive form or line by line when input is not a terminal.
package wizard

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spboyer/codearena/internal/projectconfig"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// ErrUnexpectedEOF is returned when line input ends before every question
// is answered.
var ErrUnexpectedEOF = errors.New("unexpected end of input")

// Answers holds everything the wizard asks for.
type Answers struct {
	Provider          projectconfig.Provider
	Model             string
	CritiqueStrategy  projectconfig.Strategy
	ConsensusStrategy projectconfig.Strategy
	Rounds            int
	Shuffle           bool
}

// Defaults returns the answers used for blank input.
func Defaults() Answers {
	return Answers{
		Provider:          projectconfig.DefaultProvider,
		CritiqueStrategy:  projectconfig.DefaultCritiqueStrategy,
		ConsensusStrategy: projectconfig.DefaultConsensusStrategy,
		Rounds:            projectconfig.DefaultRounds,
	}
}

// RunConfigWizard asks for the configuration. A terminal gets a huh form;
// anything else (tests, piped input) is read one answer per line, where a
// blank line keeps the default.
func RunConfigWizard(in io.Reader, out io.Writer) (*Answers, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return runForm(in, out)
	}
	return runLines(in, out)
}

func runForm(in io.Reader, out io.Writer) (*Answers, error) {
	a := Defaults()
	var (
		provider  = string(a.Provider)
		critique  = string(a.CritiqueStrategy)
		consensus = string(a.ConsensusStrategy)
		rounds    = strconv.Itoa(a.Rounds)
	)

	providerOpts := make([]huh.Option[string], 0, len(projectconfig.Providers))
	for _, p := range projectconfig.Providers {
		providerOpts = append(providerOpts, huh.NewOption(string(p), string(p)))
	}
	strategyOpts := []huh.Option[string]{
		huh.NewOption("remote (ask the backend)", string(projectconfig.StrategyRemote)),
		huh.NewOption("mock (offline canned replies)", string(projectconfig.StrategyMock)),
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Backend provider").
				Options(providerOpts...).
				Value(&provider),
			huh.NewInput().
				Title("Model").
				Description("Leave blank for the provider default").
				Value(&a.Model),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Critique strategy").
				Options(strategyOpts...).
				Value(&critique),
			huh.NewSelect[string]().
				Title("Consensus strategy").
				Options(strategyOpts...).
				Value(&consensus),
			huh.NewInput().
				Title("Rounds").
				Description(fmt.Sprintf("Critique passes per battle (1-%d)", projectconfig.MaxRounds)).
				Value(&rounds).
				Validate(func(s string) error {
					_, err := parseRounds(s)
					return err
				}),
			huh.NewConfirm().
				Title("Shuffle personas each round?").
				Value(&a.Shuffle),
		),
	).
		WithInput(in).
		WithOutput(out)

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	a.Provider = projectconfig.Provider(provider)
	a.CritiqueStrategy = projectconfig.Strategy(critique)
	a.ConsensusStrategy = projectconfig.Strategy(consensus)
	a.Model = strings.TrimSpace(a.Model)
	n, err := parseRounds(rounds)
	if err != nil {
		return nil, err
	}
	a.Rounds = n
	return &a, nil
}

func runLines(in io.Reader, out io.Writer) (*Answers, error) {
	a := Defaults()
	sc := bufio.NewScanner(in)

	ask := func(prompt string) (string, error) {
		fmt.Fprint(out, prompt) //nolint:errcheck
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", fmt.Errorf("reading answer: %w", err)
			}
			return "", ErrUnexpectedEOF
		}
		return strings.TrimSpace(sc.Text()), nil
	}

	names := make([]string, 0, len(projectconfig.Providers))
	for _, p := range projectconfig.Providers {
		names = append(names, string(p))
	}

	v, err := ask(fmt.Sprintf("Backend provider (%s) [%s]: ", strings.Join(names, "|"), a.Provider))
	if err != nil {
		return nil, err
	}
	if v != "" {
		p := projectconfig.Provider(strings.ToLower(v))
		if !slices.Contains(projectconfig.Providers, p) {
			return nil, fmt.Errorf("invalid provider %q", v)
		}
		a.Provider = p
	}

	if a.Model, err = ask("Model (blank for provider default): "); err != nil {
		return nil, err
	}

	for _, target := range []*projectconfig.Strategy{&a.CritiqueStrategy, &a.ConsensusStrategy} {
		label := "Critique"
		if target == &a.ConsensusStrategy {
			label = "Consensus"
		}
		v, err := ask(fmt.Sprintf("%s strategy (remote|mock) [%s]: ", label, *target))
		if err != nil {
			return nil, err
		}
		if v == "" {
			continue
		}
		s, err := parseStrategy(v)
		if err != nil {
			return nil, err
		}
		*target = s
	}

	if v, err = ask(fmt.Sprintf("Rounds [%d]: ", a.Rounds)); err != nil {
		return nil, err
	}
	if v != "" {
		if a.Rounds, err = parseRounds(v); err != nil {
			return nil, err
		}
	}

	if v, err = ask("Shuffle personas each round? (y/N): "); err != nil {
		return nil, err
	}
	switch strings.ToLower(v) {
	case "", "n", "no":
	case "y", "yes":
		a.Shuffle = true
	default:
		return nil, fmt.Errorf("invalid answer %q, expected y or n", v)
	}

	return &a, nil
}

func parseStrategy(v string) (projectconfig.Strategy, error) {
	s := projectconfig.Strategy(strings.ToLower(v))
	if s != projectconfig.StrategyRemote && s != projectconfig.StrategyMock {
		return "", fmt.Errorf("invalid strategy %q", v)
	}
	return s, nil
}

func parseRounds(v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 || n > projectconfig.MaxRounds {
		return 0, fmt.Errorf("rounds must be a number between 1 and %d", projectconfig.MaxRounds)
	}
	return n, nil
}

type fileBackend struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model,omitempty"`
}

type fileStrategy struct {
	Strategy string `yaml:"strategy"`
}

type fileBattle struct {
	Rounds  int  `yaml:"rounds"`
	Shuffle bool `yaml:"shuffle"`
}

type fileConfig struct {
	Backend   fileBackend  `yaml:"backend"`
	Critique  fileStrategy `yaml:"critique"`
	Consensus fileStrategy `yaml:"consensus"`
	Battle    fileBattle   `yaml:"battle"`
}

// Render produces the .arena.yaml document for a. API keys are never
// written; they come from the environment.
func Render(a *Answers) ([]byte, error) {
	doc := fileConfig{
		Backend:   fileBackend{Provider: string(a.Provider), Model: a.Model},
		Critique:  fileStrategy{Strategy: string(a.CritiqueStrategy)},
		Consensus: fileStrategy{Strategy: string(a.ConsensusStrategy)},
		Battle:    fileBattle{Rounds: a.Rounds, Shuffle: a.Shuffle},
	}
	body, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}

	header := "# CodeArena configuration. Override any key with ARENA_<SECTION>_<KEY>.\n"
	if env := a.Provider.KeyEnv(); env != "" {
		header += fmt.Sprintf("# The API key is read from %s.\n", env)
	}
	return append([]byte(header), body...), nil
}

// Write renders a into dir/.arena.yaml. An existing file is only replaced
// when force is set.
func Write(dir string, a *Answers, force bool) (string, error) {
	path := filepath.Join(dir, projectconfig.FileName)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("%s: %w", path, os.ErrExist)
		}
	}

	data, err := Render(a)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
