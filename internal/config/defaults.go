package config

import (
	"github.com/hyperjump/intentbot/internal/chatbot"
	"github.com/hyperjump/intentbot/internal/trainer"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/intentbot/data/intentbot.db"
	}
	if cfg.Corpus.Path == "" {
		cfg.Corpus.Path = "/usr/local/var/intentbot/data/intents.json"
	}
	if cfg.Snapshot.Path == "" {
		cfg.Snapshot.Path = "/usr/local/var/intentbot/data/model.json"
	}
	// Watch defaults to true when unset (nil); see WatchOrDefault.

	t := trainer.DefaultConfig()
	if cfg.Training.HiddenSize == 0 {
		cfg.Training.HiddenSize = t.HiddenSize
	}
	if cfg.Training.Epochs == 0 {
		cfg.Training.Epochs = t.Epochs
	}
	if cfg.Training.BatchSize == 0 {
		cfg.Training.BatchSize = t.BatchSize
	}
	if cfg.Training.LearningRate == 0 {
		cfg.Training.LearningRate = t.LearningRate
	}
	if cfg.Training.LogEvery == 0 {
		cfg.Training.LogEvery = t.LogEvery
	}
	if cfg.Chatbot.Engine == "" {
		cfg.Chatbot.Engine = EngineClassifier
	}
	if cfg.Chatbot.Fallback == "" {
		cfg.Chatbot.Fallback = chatbot.DefaultFallback
	}
	if cfg.Chatbot.Backend == "" {
		cfg.Chatbot.Backend = "auto"
	}
	if cfg.GenAI.Model == "" {
		cfg.GenAI.Model = chatbot.DefaultGenAIModel
	}
}

// TrainerConfig converts the training section for the trainer package.
func (c *Config) TrainerConfig() trainer.Config {
	return trainer.Config{
		HiddenSize:   c.Training.HiddenSize,
		Epochs:       c.Training.Epochs,
		BatchSize:    c.Training.BatchSize,
		LearningRate: c.Training.LearningRate,
		LogEvery:     c.Training.LogEvery,
	}
}
