// Package main is the intentbot CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hyperjump/intentbot/internal/chatbot"
	"github.com/hyperjump/intentbot/internal/config"
	"github.com/hyperjump/intentbot/internal/model"
	"github.com/hyperjump/intentbot/internal/server"
	"github.com/hyperjump/intentbot/internal/storage"
	"github.com/hyperjump/intentbot/internal/watcher"
	"github.com/hyperjump/intentbot/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/intentbot/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development), and when neither exists
// it runs on built-in defaults plus environment overrides.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg, err := config.Default()
			if err != nil {
				return nil, "", err
			}
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server", "serve":
		runServer()
	case "train":
		runTrain()
	case "chat":
		runChat()
	case "inspect":
		runInspect()
	case "runs":
		runRuns()
	case "status":
		runStatus()
	case "reload":
		runReload()
	case "version", "--version", "-v":
		fmt.Printf("intentbot version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// buildResponder returns the configured reply engine. For the classifier
// engine the returned holder is also the responder; it loads lazily.
func buildResponder(ctx context.Context, cfg *config.Config, logger *zap.Logger) (chatbot.Responder, *chatbot.Holder, error) {
	if cfg.Chatbot.Engine == config.EngineGenAI {
		r, err := chatbot.NewGenAIResponder(ctx, cfg.GenAI.APIKey, cfg.GenAI.Model, logger)
		if err != nil {
			return nil, nil, err
		}
		return r, nil, nil
	}
	backend, err := model.ResolveBackend(cfg.Chatbot.Backend)
	if err != nil {
		return nil, nil, err
	}
	load := chatbot.FileLoader(cfg.Snapshot.Path, cfg.Corpus.Path,
		chatbot.WithFallback(cfg.Chatbot.Fallback),
		chatbot.WithBackend(backend),
		chatbot.WithLogger(logger),
	)
	h := chatbot.NewHolder(load, chatbot.WithHolderLogger(logger))
	return h, h, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (predictions, reloads)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("engine", cfg.Chatbot.Engine),
		zap.Bool("debug", debugMode),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	responder, holder, err := buildResponder(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize chatbot", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	if holder != nil {
		if _, err := holder.Get(gctx); err != nil {
			logger.Warn("chatbot not loaded yet; first request will retry", zap.Error(err))
		}
		if cfg.Snapshot.WatchOrDefault() {
			w := watcher.NewWatcher(
				[]string{cfg.Snapshot.Path, cfg.Corpus.Path},
				func(path string) {
					logger.Debug("change detected, reloading", zap.String("path", path))
					_, _ = holder.Reload(gctx)
				},
				watcher.WithLogger(logger),
			)
			if err := w.Start(gctx); err != nil {
				logger.Fatal("Failed to start watcher", zap.Error(err))
			}
			defer w.Stop()
		}
	}

	srv := server.NewServer(responder, holder, store, cfg, logger)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("Server failed", zap.Error(err))
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`intentbot - Intent-classification chatbot

Usage:
  intentbot train [flags]            Train a classifier from the corpus and save a snapshot
  intentbot server [flags]           Start the HTTP server
  intentbot chat [flags] [message]   Send one message, or start an interactive chat
  intentbot inspect [flags]          Summarize a snapshot
  intentbot runs [flags]             List recorded training runs
  intentbot status [flags]           Show server status
  intentbot reload [flags]           Ask the server to reload its snapshot
  intentbot version                  Show version
  intentbot help                     Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/intentbot/config.yaml,
                     or ./config.yaml when present; built-in defaults otherwise)

Train Flags:
  --corpus string    Corpus file (overrides corpus.path)
  --out string       Snapshot file (overrides snapshot.path)
  --epochs int       Training epochs (overrides training.epochs)
  --hidden int       Hidden layer size (overrides training.hidden_size)
  --seed uint        Random seed for reproducible training (0 = random)
  --output string    Output format: text or json (default: text)

Server Flags:
  --debug            Enable debug logging

Chat Flags:
  --server string    Server URL. Empty (default) answers locally from the snapshot.
  --output string    Output format for one-shot replies: text or json
  --verbose          Show tag and confidence in interactive mode
  --no-color         Disable colored prompts

Inspect Flags:
  --snapshot string  Snapshot file (overrides snapshot.path)
  --output string    Output format: text or json

Runs Flags:
  --limit int        Number of runs to show (default: 20)
  --offset int       Runs to skip
  --output string    Output format: text or json

Status/Reload Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format: text or json (status only)

Environment:
  INTENTBOT_* variables override config values (e.g. INTENTBOT_SERVER_PORT,
  INTENTBOT_CHATBOT_ENGINE, INTENTBOT_GENAI_API_KEY). A .env file in the
  current directory is loaded first.

Examples:
  intentbot train --seed 42
  intentbot server
  intentbot chat "what are your opening hours"
  intentbot chat --server http://localhost:8080
  intentbot inspect --output json
  intentbot runs --limit 5`)
}
