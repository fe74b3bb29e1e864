package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docindex/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docindex/internal/notify"
	"github.com/Adithya-Monish-Kumar-K/docindex/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docindex/pkg/lock"
	"github.com/Adithya-Monish-Kumar-K/docindex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docindex/pkg/metrics"
	"github.com/google/uuid"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to config file")
	htmlDir := flag.String("html-dir", "", "rendered documentation root (overrides indexer.htmlDir)")
	stopWords := flag.String("stopwords", "", "stop word list, one per line (overrides indexer.stopWordsPath)")
	workers := flag.Int("workers", -1, "worker count per phase, 0 for one per CPU (overrides indexer.workers)")
	fileList := flag.String("files", "", "file listing the html pages to index, one per line; default is every page under the html dir")
	logLevel := flag.String("log-level", "", "debug, info, warn or error (overrides logging.level)")
	verify := flag.Bool("verify", false, "check the artifacts of the last run instead of indexing")
	strict := flag.Bool("strict", false, "exit non-zero when some file or artifact was skipped")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return apperrors.ExitUsage
	}
	if *htmlDir != "" {
		cfg.Indexer.HTMLDir = *htmlDir
	}
	if *stopWords != "" {
		cfg.Indexer.StopWordsPath = *stopWords
	}
	if *workers >= 0 {
		cfg.Indexer.Workers = *workers
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	cfg.Indexer.Resolve()

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx)

	if *verify {
		return runVerify(log, cfg.Indexer)
	}
	if err := cfg.Indexer.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		return apperrors.ExitCode(err)
	}

	m := metrics.New()
	if cfg.Metrics.Port > 0 {
		shutdown := metrics.StartServer(m, cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	notifier, err := notify.Open(ctx, cfg, m)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) {
			log.Error("invalid notify configuration", "error", err)
			return apperrors.ExitCode(err)
		}
		log.Warn("run summary sinks unavailable, continuing without them", "error", err)
		notifier = notify.New(cfg.Notify, m)
	}
	defer notifier.Close()

	lockDir := cfg.Indexer.PrivateDir
	if lockDir == "" {
		lockDir = cfg.Indexer.SearchDir
	}
	runLock := lock.New(lockDir)
	if err := runLock.Acquire(); err != nil {
		log.Error("cannot lock output", "path", runLock.Path(), "error", err)
		return apperrors.ExitCode(err)
	}
	defer runLock.Release()

	files, err := listFiles(cfg.Indexer.HTMLDir, *fileList)
	if err != nil {
		log.Error("cannot list html files", "error", err)
		return apperrors.ExitFailure
	}

	log.Info("starting docindex",
		"html_dir", cfg.Indexer.HTMLDir,
		"search_dir", cfg.Indexer.SearchDir,
		"files", len(files),
		"sinks", notifier.Sinks(),
	)
	startedAt := time.Now()
	result, runErr := indexer.Build(ctx, cfg.Indexer, files, indexer.WithMetrics(m))

	summary := notify.NewSummary(runID, cfg.Indexer.HTMLDir, startedAt, result, runErr)
	m.Run(summary.Status)
	if err := notifier.Publish(ctx, summary); err != nil {
		log.Warn("run summary not delivered to every sink", "error", err)
	}
	if cfg.Metrics.TextfilePath != "" {
		if err := m.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			log.Warn("metrics not exported", "error", err)
		}
	}

	if runErr != nil {
		log.Error("index run failed", "error", runErr)
		return apperrors.ExitCode(runErr)
	}
	for _, w := range result.Warnings {
		log.Debug("skipped", "phase", w.Phase.String(), "target", w.Target, "error", w.Err)
	}
	if result.Partial() {
		log.Warn("index is incomplete", "warnings", len(result.Warnings))
		if *strict {
			return apperrors.ExitPartial
		}
	}
	return apperrors.ExitOK
}

func listFiles(htmlDir, fileList string) ([]string, error) {
	if fileList != "" {
		return indexer.ReadFileList(fileList)
	}
	return indexer.ListHTMLFiles(htmlDir, indexer.DefaultExclude)
}

func runVerify(log *slog.Logger, cfg config.IndexerConfig) int {
	report, err := indexer.Verify(cfg)
	if err != nil {
		log.Error("verification failed", "error", err)
		return apperrors.ExitCode(err)
	}
	log.Info("verification complete",
		"words", report.Words,
		"missing_tokens", len(report.MissingTokens),
		"script_matches", report.ScriptMatches,
	)
	if !report.OK() {
		for _, tok := range report.MissingTokens {
			log.Warn("token file missing", "token", tok)
		}
		return apperrors.ExitFailure
	}
	return apperrors.ExitOK
}
