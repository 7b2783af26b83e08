// Package config provides configuration loading and structs for the intentbot
// trainer, server and CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. INTENTBOT_SERVER_PORT.
const EnvPrefix = "intentbot"

// Engine names accepted by chatbot.engine.
const (
	EngineClassifier = "classifier"
	EngineGenAI      = "genai"
)

var validate = validator.New()

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Corpus   CorpusConfig   `yaml:"corpus"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Training TrainingConfig `yaml:"training"`
	Chatbot  ChatbotConfig  `yaml:"chatbot"`
	GenAI    GenAIConfig    `yaml:"genai"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port" validate:"min=1,max=65535"`
}

// StorageConfig holds the database path.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" split_words:"true"`
}

// CorpusConfig locates the intents file.
type CorpusConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// SnapshotConfig locates the trained model and controls hot reload.
type SnapshotConfig struct {
	Path  string `yaml:"path" validate:"required"`
	Watch *bool  `yaml:"watch"`
}

// WatchOrDefault returns whether to reload on file changes; defaults to true when unset.
func (s *SnapshotConfig) WatchOrDefault() bool {
	if s.Watch != nil {
		return *s.Watch
	}
	return true
}

// TrainingConfig holds training hyperparameters.
type TrainingConfig struct {
	HiddenSize   int     `yaml:"hidden_size" split_words:"true" validate:"min=1"`
	Epochs       int     `yaml:"epochs" validate:"min=1"`
	BatchSize    int     `yaml:"batch_size" split_words:"true" validate:"min=1"`
	LearningRate float64 `yaml:"learning_rate" split_words:"true" validate:"gt=0"`
	LogEvery     int     `yaml:"log_every" split_words:"true"` // 0 uses the default; negative disables progress logs
}

// ChatbotConfig selects the reply engine and its behavior.
type ChatbotConfig struct {
	Engine   string `yaml:"engine" validate:"oneof=classifier genai"`
	Fallback string `yaml:"fallback" validate:"required"`
	Backend  string `yaml:"backend" validate:"oneof=auto cpu dense sparse"`
}

// GenAIConfig holds Gemini settings for the genai engine.
type GenAIConfig struct {
	APIKey string `yaml:"api_key" split_words:"true"`
	Model  string `yaml:"model"`
}

// Default returns a config with every default applied and environment
// overrides processed, for running without a config file.
func Default() (*Config, error) {
	var cfg Config
	return finish(&cfg, "")
}

// Load reads and parses the config file at path, applies defaults, expands
// paths and applies INTENTBOT_* environment overrides.
// Returns an error if the file cannot be read or parsed or the result is invalid.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return finish(&cfg, filepath.Dir(path))
}

func finish(cfg *Config, configDir string) (*Config, error) {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}
	ApplyDefaults(cfg)
	// An empty configDir resolves to the working directory.
	if abs, err := filepath.Abs(configDir); err == nil {
		configDir = abs
	}
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Corpus.Path = expandPath(cfg.Corpus.Path, configDir)
	cfg.Snapshot.Path = expandPath(cfg.Snapshot.Path, configDir)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and cross-field requirements.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Chatbot.Engine == EngineGenAI && cfg.GenAI.APIKey == "" {
		return fmt.Errorf("invalid config: genai engine requires genai.api_key (or INTENTBOT_GENAI_API_KEY)")
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if strings.HasPrefix(path, "~/") {
		path = path[2:]
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
