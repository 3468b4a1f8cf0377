// Package config loads CIM configuration from <repoRoot>/.cim/config.json.
// Missing files fall back to defaults; individual keys can be overridden via
// CIM_* environment variables.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ModelDirName is the repository-relative directory holding the model
// documents and configuration.
const ModelDirName = ".cim"

// Config represents the complete CIM configuration
type Config struct {
	Version  int    `json:"version" mapstructure:"version"`
	ModelDir string `json:"modelDir" mapstructure:"modelDir"`

	Scoring ScoringConfig `json:"scoring" mapstructure:"scoring"`
	Drift   DriftConfig   `json:"drift" mapstructure:"drift"`
	AI      AIConfig      `json:"ai" mapstructure:"ai"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ScoringConfig holds the relevance scoring weights for local-mode queries.
// The weights are heuristic constants; they are configuration, not invariants.
type ScoringConfig struct {
	TagWeight     float64 `json:"tagWeight" mapstructure:"tagWeight"`
	SummaryWeight float64 `json:"summaryWeight" mapstructure:"summaryWeight"`
	IntentWeight  float64 `json:"intentWeight" mapstructure:"intentWeight"`
	ExportWeight  float64 `json:"exportWeight" mapstructure:"exportWeight"`
	PathWeight    float64 `json:"pathWeight" mapstructure:"pathWeight"`

	// HopDecay is the per-hop multiplier for graph-expansion bonuses,
	// applied up to MaxHops hops from a scored artifact.
	HopDecay float64 `json:"hopDecay" mapstructure:"hopDecay"`
	MaxHops  int     `json:"maxHops" mapstructure:"maxHops"`

	// MaxResults is the default result cap for query commands.
	MaxResults int `json:"maxResults" mapstructure:"maxResults"`

	// CandidateLimit bounds the payload sent to the AI ranker.
	CandidateLimit int `json:"candidateLimit" mapstructure:"candidateLimit"`
}

// DriftConfig controls the diff/drift detector
type DriftConfig struct {
	// ThresholdPercent is the minimum size drift (percent) to report a file
	ThresholdPercent float64 `json:"thresholdPercent" mapstructure:"thresholdPercent"`
}

// AIConfig controls the AI-assisted query backend
type AIConfig struct {
	// Backend selects the ranker: "subprocess" or "openai"
	Backend string `json:"backend" mapstructure:"backend"`
	// Command and Args define the subprocess ranker invocation
	Command string   `json:"command" mapstructure:"command"`
	Args    []string `json:"args" mapstructure:"args"`
	// Model and BaseURL configure the OpenAI-compatible ranker
	Model   string `json:"model" mapstructure:"model"`
	BaseURL string `json:"baseUrl" mapstructure:"baseUrl"`
	// TimeoutSeconds bounds a single ranker call
	TimeoutSeconds int `json:"timeoutSeconds" mapstructure:"timeoutSeconds"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Version:  1,
		ModelDir: ModelDirName,
		Scoring: ScoringConfig{
			TagWeight:      1.0,
			SummaryWeight:  0.7,
			IntentWeight:   0.5,
			ExportWeight:   0.8,
			PathWeight:     0.3,
			HopDecay:       0.3,
			MaxHops:        2,
			MaxResults:     10,
			CandidateLimit: 30,
		},
		Drift: DriftConfig{
			ThresholdPercent: 10.0,
		},
		AI: AIConfig{
			Backend:        "subprocess",
			Command:        "",
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 60,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads configuration from <repoRoot>/.cim/config.json
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, ModelDirName))

	v.SetEnvPrefix("CIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// If config doesn't exist, defaults apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := DefaultConfig()
	v.SetDefault("version", def.Version)
	v.SetDefault("modelDir", def.ModelDir)
	v.SetDefault("scoring.tagWeight", def.Scoring.TagWeight)
	v.SetDefault("scoring.summaryWeight", def.Scoring.SummaryWeight)
	v.SetDefault("scoring.intentWeight", def.Scoring.IntentWeight)
	v.SetDefault("scoring.exportWeight", def.Scoring.ExportWeight)
	v.SetDefault("scoring.pathWeight", def.Scoring.PathWeight)
	v.SetDefault("scoring.hopDecay", def.Scoring.HopDecay)
	v.SetDefault("scoring.maxHops", def.Scoring.MaxHops)
	v.SetDefault("scoring.maxResults", def.Scoring.MaxResults)
	v.SetDefault("scoring.candidateLimit", def.Scoring.CandidateLimit)
	v.SetDefault("drift.thresholdPercent", def.Drift.ThresholdPercent)
	v.SetDefault("ai.backend", def.AI.Backend)
	v.SetDefault("ai.command", def.AI.Command)
	v.SetDefault("ai.model", def.AI.Model)
	v.SetDefault("ai.baseUrl", def.AI.BaseURL)
	v.SetDefault("ai.timeoutSeconds", def.AI.TimeoutSeconds)
	v.SetDefault("logging.level", def.Logging.Level)
}

// Save writes the configuration to <repoRoot>/.cim/config.json
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, ModelDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}
