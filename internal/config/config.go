package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// DirName is the per-repository directory holding lair files.
const DirName = ".lair"

// Config represents the complete lair configuration
type Config struct {
	Version int `json:"version" yaml:"version" toml:"version" mapstructure:"version"`

	Analysis  AnalysisConfig  `json:"analysis" yaml:"analysis" toml:"analysis" mapstructure:"analysis"`
	Search    SearchConfig    `json:"search" yaml:"search" toml:"search" mapstructure:"search"`
	Scoring   ScoringConfig   `json:"scoring" yaml:"scoring" toml:"scoring" mapstructure:"scoring"`
	Budget    BudgetConfig    `json:"budget" yaml:"budget" toml:"budget" mapstructure:"budget"`
	Languages LanguagesConfig `json:"languages" yaml:"languages" toml:"languages" mapstructure:"languages"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging" toml:"logging" mapstructure:"logging"`
}

// AnalysisConfig controls the per-file pipeline
type AnalysisConfig struct {
	BatchSize        int `json:"batchSize" yaml:"batchSize" toml:"batchSize" mapstructure:"batchSize"`
	CacheCapacity    int `json:"cacheCapacity" yaml:"cacheCapacity" toml:"cacheCapacity" mapstructure:"cacheCapacity"`
	MaxFileSizeBytes int `json:"maxFileSizeBytes" yaml:"maxFileSizeBytes" toml:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
}

// SearchConfig controls candidate-file discovery
type SearchConfig struct {
	// Backend is one of auto, ripgrep, walk
	Backend     string   `json:"backend" yaml:"backend" toml:"backend" mapstructure:"backend"`
	RipgrepPath string   `json:"ripgrepPath" yaml:"ripgrepPath" toml:"ripgrepPath" mapstructure:"ripgrepPath"`
	TimeoutMs   int      `json:"timeoutMs" yaml:"timeoutMs" toml:"timeoutMs" mapstructure:"timeoutMs"`
	IgnoreGlobs []string `json:"ignoreGlobs" yaml:"ignoreGlobs" toml:"ignoreGlobs" mapstructure:"ignoreGlobs"`
}

// ScoringConfig overrides relevance weights
type ScoringConfig struct {
	TypeWeights          map[string]float64 `json:"typeWeights" yaml:"typeWeights" toml:"typeWeights" mapstructure:"typeWeights"`
	KeywordWeights       map[string]float64 `json:"keywordWeights" yaml:"keywordWeights" toml:"keywordWeights" mapstructure:"keywordWeights"`
	DefaultKeywordWeight float64            `json:"defaultKeywordWeight" yaml:"defaultKeywordWeight" toml:"defaultKeywordWeight" mapstructure:"defaultKeywordWeight"`
}

// BudgetConfig contains output token budget configuration
type BudgetConfig struct {
	Preset           string  `json:"preset" yaml:"preset" toml:"preset" mapstructure:"preset"`
	MaxTokens        int     `json:"maxTokens" yaml:"maxTokens" toml:"maxTokens" mapstructure:"maxTokens"`
	MaxElements      int     `json:"maxElements" yaml:"maxElements" toml:"maxElements" mapstructure:"maxElements"`
	MaxSnippetLength int     `json:"maxSnippetLength" yaml:"maxSnippetLength" toml:"maxSnippetLength" mapstructure:"maxSnippetLength"`
	PriorityCutoff   float64 `json:"priorityCutoff" yaml:"priorityCutoff" toml:"priorityCutoff" mapstructure:"priorityCutoff"`
}

// LanguagesConfig points at optional grammar overrides
type LanguagesConfig struct {
	// OverridesPath is a TOML file, relative to the repo root unless absolute
	OverridesPath string `json:"overridesPath" yaml:"overridesPath" toml:"overridesPath" mapstructure:"overridesPath"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `json:"level" yaml:"level" toml:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Analysis: AnalysisConfig{
			BatchSize:        10,
			CacheCapacity:    50,
			MaxFileSizeBytes: 1_000_000,
		},
		Search: SearchConfig{
			Backend:     "auto",
			RipgrepPath: "rg",
			TimeoutMs:   60_000,
			IgnoreGlobs: []string{},
		},
		Scoring: ScoringConfig{
			TypeWeights:          map[string]float64{},
			KeywordWeights:       map[string]float64{},
			DefaultKeywordWeight: 3,
		},
		Budget: BudgetConfig{
			Preset:           "standard",
			MaxSnippetLength: 2000,
		},
		Languages: LanguagesConfig{
			OverridesPath: filepath.Join(DirName, "languages.toml"),
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// Path returns the config file location for a repository root
func Path(repoRoot string) string {
	return filepath.Join(repoRoot, DirName, "config.json")
}

// LoadConfig loads configuration from .lair/config.json, layered over the defaults
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, DirName))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to .lair/config.json
func (c *Config) Save(repoRoot string) error {
	if err := os.MkdirAll(filepath.Join(repoRoot, DirName), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(Path(repoRoot), append(data, '\n'), 0o644)
}

// OverridesPath resolves the language overrides file against the repo root
func (c *Config) OverridesPath(repoRoot string) string {
	p := c.Languages.OverridesPath
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(repoRoot, p)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Analysis.BatchSize < 1 {
		return &ConfigError{Field: "analysis.batchSize", Message: "must be at least 1"}
	}
	if c.Analysis.CacheCapacity < 1 {
		return &ConfigError{Field: "analysis.cacheCapacity", Message: "must be at least 1"}
	}
	switch c.Search.Backend {
	case "auto", "ripgrep", "walk":
	default:
		return &ConfigError{Field: "search.backend", Message: "must be one of auto, ripgrep, walk"}
	}
	if c.Search.TimeoutMs < 0 {
		return &ConfigError{Field: "search.timeoutMs", Message: "must not be negative"}
	}
	if c.Budget.MaxTokens < 0 || c.Budget.MaxElements < 0 || c.Budget.MaxSnippetLength < 0 {
		return &ConfigError{Field: "budget", Message: "limits must not be negative"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
