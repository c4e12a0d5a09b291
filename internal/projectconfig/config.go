// Package projectconfig loads the .arena.yaml configuration, layered with
// ARENA_* environment variables and command-line flags.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// FileName is the configuration file looked up from the working directory.
const FileName = ".arena.yaml"

// EnvPrefix prefixes every environment override, e.g. ARENA_BATTLE_ROUNDS.
const EnvPrefix = "ARENA"

// Default values for configuration. These are the single source of truth;
// SetDefaults references them and no other code should duplicate them.
const (
	DefaultProvider = ProviderGroq

	DefaultCritiqueStrategy    = StrategyRemote
	DefaultCritiqueMaxTokens   = 150
	DefaultCritiqueTemperature = 0.6

	DefaultConsensusStrategy    = StrategyRemote
	DefaultConsensusTemperature = 0.2

	DefaultRounds = 1
	DefaultPacing = 200 * time.Millisecond

	DefaultServerHost = "127.0.0.1"
	DefaultServerPort = 3000
	DefaultSessionTTL = 30 * time.Minute

	DefaultLogDir = ".arena/logs"

	// MaxRounds bounds battle.rounds.
	MaxRounds = 10
)

// Provider names a generation backend.
type Provider string

const (
	ProviderGroq    Provider = "groq"
	ProviderOpenAI  Provider = "openai"
	ProviderGemini  Provider = "gemini"
	ProviderCopilot Provider = "copilot"
)

// Providers lists every supported backend.
var Providers = []Provider{ProviderGroq, ProviderOpenAI, ProviderGemini, ProviderCopilot}

// UnmarshalText accepts provider names in any case.
func (p *Provider) UnmarshalText(text []byte) error {
	*p = Provider(strings.ToLower(strings.TrimSpace(string(text))))
	return nil
}

// KeyEnv returns the conventional environment variable holding the
// provider's API key, or "" when the provider needs none.
func (p Provider) KeyEnv() string {
	switch p {
	case ProviderGroq:
		return "GROQ_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	}
	return ""
}

// Strategy selects how critiques or the consensus are produced.
type Strategy string

const (
	StrategyRemote Strategy = "remote"
	StrategyMock   Strategy = "mock"
)

// UnmarshalText accepts strategy names in any case.
func (s *Strategy) UnmarshalText(text []byte) error {
	*s = Strategy(strings.ToLower(strings.TrimSpace(string(text))))
	return nil
}

// BackendConfig selects and authenticates the generation backend.
type BackendConfig struct {
	Provider Provider `mapstructure:"provider"`
	// Model overrides the provider's default model.
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	// Timeout bounds a single HTTP call to the backend. Zero means none.
	Timeout time.Duration `mapstructure:"timeout"`
}

// CritiqueConfig holds critique generation settings.
type CritiqueConfig struct {
	Strategy    Strategy `mapstructure:"strategy"`
	MaxTokens   int      `mapstructure:"max_tokens"`
	Temperature float64  `mapstructure:"temperature"`
}

// ConsensusConfig holds rewrite generation settings.
type ConsensusConfig struct {
	Strategy         Strategy `mapstructure:"strategy"`
	MaxTokens        int      `mapstructure:"max_tokens"`
	Temperature      float64  `mapstructure:"temperature"`
	IncludeCritiques bool     `mapstructure:"include_critiques"`
}

// BattleConfig holds orchestration settings.
type BattleConfig struct {
	Rounds  int           `mapstructure:"rounds"`
	Shuffle bool          `mapstructure:"shuffle"`
	Pacing  time.Duration `mapstructure:"pacing"`
	// Seed fixes the random source. Zero seeds from the clock.
	Seed uint64 `mapstructure:"seed"`
}

// ServerConfig holds web server settings.
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	NoBrowser      bool          `mapstructure:"no_browser"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
}

// LoggingConfig holds the battle event log settings.
type LoggingConfig struct {
	SessionLog bool   `mapstructure:"session_log"`
	Dir        string `mapstructure:"dir"`
}

// Config is the fully resolved configuration.
type Config struct {
	Backend   BackendConfig   `mapstructure:"backend"`
	Critique  CritiqueConfig  `mapstructure:"critique"`
	Consensus ConsensusConfig `mapstructure:"consensus"`
	Battle    BattleConfig    `mapstructure:"battle"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// SetDefaults registers every default on v. Keys without a default are not
// picked up from the environment by viper, so every key is listed.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend.provider", string(DefaultProvider))
	v.SetDefault("backend.model", "")
	v.SetDefault("backend.base_url", "")
	v.SetDefault("backend.api_key", "")
	v.SetDefault("backend.timeout", time.Duration(0))

	v.SetDefault("critique.strategy", string(DefaultCritiqueStrategy))
	v.SetDefault("critique.max_tokens", DefaultCritiqueMaxTokens)
	v.SetDefault("critique.temperature", DefaultCritiqueTemperature)

	v.SetDefault("consensus.strategy", string(DefaultConsensusStrategy))
	v.SetDefault("consensus.max_tokens", 0)
	v.SetDefault("consensus.temperature", DefaultConsensusTemperature)
	v.SetDefault("consensus.include_critiques", false)

	v.SetDefault("battle.rounds", DefaultRounds)
	v.SetDefault("battle.shuffle", false)
	v.SetDefault("battle.pacing", DefaultPacing)
	v.SetDefault("battle.seed", 0)

	v.SetDefault("server.host", DefaultServerHost)
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.no_browser", false)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.session_ttl", DefaultSessionTTL)

	v.SetDefault("logging.session_log", false)
	v.SetDefault("logging.dir", DefaultLogDir)
}

// BindEnv makes v read ARENA_SECTION_KEY variables.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes v into a Config. Defaults are registered first, and a missing
// backend.api_key falls back to the provider's conventional variable
// (GROQ_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY).
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	if cfg.Backend.APIKey == "" {
		if env := cfg.Backend.Provider.KeyEnv(); env != "" {
			cfg.Backend.APIKey = os.Getenv(env)
		}
	}
	return &cfg, nil
}

// NeedsBackend reports whether any strategy calls the generation backend.
func (c *Config) NeedsBackend() bool {
	return c.Critique.Strategy == StrategyRemote || c.Consensus.Strategy == StrategyRemote
}

// ConfigError reports configuration that cannot be used. It is fatal at
// startup.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate checks ranges, enumerations and credentials. The returned error is
// a *ConfigError.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if !validProvider(c.Backend.Provider) {
		add("backend.provider %q is not one of %s", c.Backend.Provider, joinProviders())
	}
	if c.Backend.Timeout < 0 {
		add("backend.timeout must not be negative")
	}
	for name, s := range map[string]Strategy{"critique.strategy": c.Critique.Strategy, "consensus.strategy": c.Consensus.Strategy} {
		if s != StrategyRemote && s != StrategyMock {
			add("%s %q must be %q or %q", name, s, StrategyRemote, StrategyMock)
		}
	}
	if c.Critique.MaxTokens < 0 || c.Consensus.MaxTokens < 0 {
		add("max_tokens must not be negative")
	}
	if !validTemperature(c.Critique.Temperature) {
		add("critique.temperature %.2f is outside 0..2", c.Critique.Temperature)
	}
	if !validTemperature(c.Consensus.Temperature) {
		add("consensus.temperature %.2f is outside 0..2", c.Consensus.Temperature)
	}
	if c.Battle.Rounds < 1 || c.Battle.Rounds > MaxRounds {
		add("battle.rounds %d is outside 1..%d", c.Battle.Rounds, MaxRounds)
	}
	if c.Battle.Pacing < 0 {
		add("battle.pacing must not be negative")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port %d is outside 1..65535", c.Server.Port)
	}
	if c.Server.SessionTTL <= 0 {
		add("server.session_ttl must be positive")
	}

	if c.NeedsBackend() && c.Backend.APIKey == "" {
		if env := c.Backend.Provider.KeyEnv(); env != "" {
			add("API key missing: set %s or backend.api_key for provider %q", env, c.Backend.Provider)
		}
	}

	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}

// IsConfigError reports whether err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func validProvider(p Provider) bool {
	for _, known := range Providers {
		if p == known {
			return true
		}
	}
	return false
}

func joinProviders() string {
	names := make([]string, 0, len(Providers))
	for _, p := range Providers {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}

func validTemperature(t float64) bool {
	return t >= 0 && t <= 2
}

// FindConfigFile walks up from dir looking for .arena.yaml (max 10 levels).
// Returns os.ErrNotExist if no config file is found. Propagates real I/O
// errors (e.g. permission denied) instead of silently swallowing them.
func FindConfigFile(dir string) (string, error) {
	// Convert to absolute path so filepath.Dir(".") walks correctly.
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, FileName)
		_, err := os.Stat(p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return "", os.ErrNotExist
}
