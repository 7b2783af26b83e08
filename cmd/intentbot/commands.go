package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gookit/color"
	"github.com/hyperjump/intentbot/internal/chatbot"
	"github.com/hyperjump/intentbot/internal/cli"
	"github.com/hyperjump/intentbot/internal/config"
	"github.com/hyperjump/intentbot/internal/corpus"
	"github.com/hyperjump/intentbot/internal/model"
	"github.com/hyperjump/intentbot/internal/models"
	"github.com/hyperjump/intentbot/internal/snapshot"
	"github.com/hyperjump/intentbot/internal/storage"
	"github.com/hyperjump/intentbot/internal/trainer"
	"github.com/hyperjump/intentbot/pkg/utils"
	"go.uber.org/zap"
)

const defaultServerURL = "http://localhost:8080"

// trainAndSave fits a classifier on the configured corpus, writes the snapshot
// and records the run. A storage failure is logged; the snapshot is still kept.
func trainAndSave(ctx context.Context, cfg *config.Config, seed uint64, logger *zap.Logger) (*models.TrainingRun, error) {
	logger = utils.OrNop(logger)
	c, err := corpus.Load(cfg.Corpus.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	backend, err := model.ResolveBackend(cfg.Chatbot.Backend)
	if err != nil {
		return nil, err
	}
	opts := []trainer.Option{trainer.WithLogger(logger), trainer.WithBackend(backend)}
	if seed != 0 {
		opts = append(opts, trainer.WithRand(rand.New(rand.NewPCG(seed, seed))))
	}
	res, err := trainer.New(cfg.TrainerConfig(), opts...).Fit(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("training failed: %w", err)
	}
	snap := snapshot.FromTraining(res)
	if err := snapshot.Save(cfg.Snapshot.Path, snap); err != nil {
		return nil, err
	}
	logger.Info("snapshot saved", zap.String("path", cfg.Snapshot.Path), zap.String("snapshot_id", snap.ID))

	run := &models.TrainingRun{
		SnapshotID:   snap.ID,
		SnapshotPath: cfg.Snapshot.Path,
		CorpusPath:   cfg.Corpus.Path,
		Examples:     res.Examples,
		Vocabulary:   len(res.Vocabulary),
		Tags:         len(res.Tags),
		HiddenSize:   res.Classifier.HiddenSize,
		Epochs:       res.Epochs,
		Loss:         res.Loss,
		Accuracy:     res.Accuracy,
		DurationMS:   res.Duration.Milliseconds(),
		CreatedAt:    snap.CreatedAt,
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Warn("training run not recorded", zap.Error(err))
		return run, nil
	}
	defer store.Close()
	if err := store.RecordTrainingRun(ctx, run); err != nil {
		logger.Warn("training run not recorded", zap.Error(err))
	}
	return run, nil
}

func toChatResponse(r chatbot.Reply) *models.ChatResponse {
	return &models.ChatResponse{
		Response:   r.Text,
		Tag:        r.Tag,
		Confidence: r.Confidence,
		Matched:    r.Matched,
	}
}

// localAsk answers messages in-process with the configured engine.
func localAsk(ctx context.Context, cfg *config.Config, logger *zap.Logger) (cli.AskFunc, error) {
	responder, _, err := buildResponder(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, message string) (*models.ChatResponse, error) {
		return toChatResponse(responder.Respond(ctx, message)), nil
	}, nil
}

func mustConfig(path string) *config.Config {
	cfg, _, err := loadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func mustFormat(s string) cli.OutputFormat {
	f, err := cli.ParseOutputFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return f
}

func runTrain() {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	corpusPath := fs.String("corpus", "", "corpus file (overrides corpus.path)")
	outPath := fs.String("out", "", "snapshot file (overrides snapshot.path)")
	epochs := fs.Int("epochs", 0, "training epochs (overrides training.epochs)")
	hidden := fs.Int("hidden", 0, "hidden layer size (overrides training.hidden_size)")
	seed := fs.Uint64("seed", 0, "random seed (0 = random)")
	debug := fs.Bool("debug", false, "enable debug logging")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := mustFormat(*outputFormat)

	cfg := mustConfig(*configPath)
	if *corpusPath != "" {
		cfg.Corpus.Path = *corpusPath
	}
	if *outPath != "" {
		cfg.Snapshot.Path = *outPath
	}
	if *epochs > 0 {
		cfg.Training.Epochs = *epochs
	}
	if *hidden > 0 {
		cfg.Training.HiddenSize = *hidden
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := trainAndSave(ctx, cfg, *seed, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to train: %v\n", err)
		os.Exit(1)
	}
	if format == cli.OutputJSON {
		_ = cli.WriteTrainingRuns(os.Stdout, []*models.TrainingRun{run}, format)
		return
	}
	fmt.Printf("%d patterns, %d tags, %d unique stemmed words\n", run.Examples, run.Tags, run.Vocabulary)
	fmt.Printf("final loss: %.4f, accuracy: %.1f%%\n", run.Loss, run.Accuracy*100)
	fmt.Printf("Training complete. Snapshot saved to %s\n", run.SnapshotPath)
}

func runChat() {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = answer locally)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	verbose := fs.Bool("verbose", false, "show tag and confidence")
	noColor := fs.Bool("no-color", false, "disable colored prompts")
	_ = fs.Parse(os.Args[2:])
	format := mustFormat(*outputFormat)
	message := strings.TrimSpace(strings.Join(fs.Args(), " "))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var ask cli.AskFunc
	if *serverURL != "" {
		ask = cli.NewClient(*serverURL).Chat
	} else {
		cfg := mustConfig(*configPath)
		var logger *zap.Logger
		if cfg.Debug {
			logger, _ = utils.NewLogger(true)
		}
		var err error
		ask, err = localAsk(ctx, cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize chatbot: %v\n", err)
			os.Exit(1)
		}
	}

	if message != "" {
		reply, err := ask(ctx, message)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Chat failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteReply(os.Stdout, reply, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	repl := &cli.REPL{
		In:      os.Stdin,
		Out:     os.Stdout,
		Ask:     ask,
		Colors:  !*noColor && color.SupportColor(),
		Verbose: *verbose,
	}
	if err := repl.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Chat failed: %v\n", err)
		os.Exit(1)
	}
}

func runInspect() {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	snapshotPath := fs.String("snapshot", "", "snapshot file (overrides snapshot.path)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := mustFormat(*outputFormat)

	cfg := mustConfig(*configPath)
	if *snapshotPath != "" {
		cfg.Snapshot.Path = *snapshotPath
	}
	snap, err := snapshot.Load(cfg.Snapshot.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load snapshot: %v\n", err)
		os.Exit(1)
	}
	c, err := corpus.Load(cfg.Corpus.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "corpus unavailable, pattern counts omitted: %v\n", err)
		c = nil
	}
	if err := cli.WriteSnapshotSummary(os.Stdout, cli.Summarize(snap, c), format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runRuns() {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	limit := fs.Int("limit", 20, "number of runs to show")
	offset := fs.Int("offset", 0, "runs to skip")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := mustFormat(*outputFormat)

	cfg := mustConfig(*configPath)
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open storage: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()
	runs, err := store.ListTrainingRuns(context.Background(), *offset, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list training runs: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteTrainingRuns(os.Stdout, runs, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := mustFormat(*outputFormat)

	st, err := cli.NewClient(*serverURL).Status(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStatus(os.Stdout, st, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runReload() {
	fs := flag.NewFlagSet("reload", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(os.Args[2:])

	id, err := cli.NewClient(*serverURL).Reload(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Reload failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Reloaded snapshot %s\n", id)
}
