package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/docindex/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docindex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docindex/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/docindex/pkg/resilience"
)

// Sink receives run summaries.
type Sink interface {
	Name() string
	Send(ctx context.Context, s Summary) error
	Close() error
}

// KafkaSink publishes each summary as one message keyed by run id.
type KafkaSink struct {
	producer *kafka.Producer
}

func NewKafkaSink(p *kafka.Producer) *KafkaSink {
	return &KafkaSink{producer: p}
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) Send(ctx context.Context, s Summary) error {
	return k.producer.Publish(ctx, kafka.Event{
		Key:     s.RunID,
		Value:   s,
		Headers: map[string]string{"status": s.Status},
	})
}

func (k *KafkaSink) Close() error {
	return k.producer.Close()
}

// Cache is the part of the Redis client the RedisSink uses.
type Cache interface {
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
	Publish(ctx context.Context, channel string, message any) (int64, error)
	Close() error
}

// RedisSink drops cached search results matching pattern, then announces the
// summary on channel. A failed run leaves the cache alone.
type RedisSink struct {
	cache   Cache
	channel string
	pattern string
	logger  *slog.Logger
}

func NewRedisSink(cache Cache, channel, pattern string) *RedisSink {
	return &RedisSink{
		cache:   cache,
		channel: channel,
		pattern: pattern,
		logger:  logger.WithComponent("notify-redis"),
	}
}

func (r *RedisSink) Name() string { return "redis" }

func (r *RedisSink) Send(ctx context.Context, s Summary) error {
	if s.Status != StatusFailed && r.pattern != "" {
		deleted, err := r.cache.FlushByPattern(ctx, r.pattern)
		if err != nil {
			return fmt.Errorf("invalidating cache: %w", err)
		}
		r.logger.Info("search cache invalidated", "pattern", r.pattern, "keys_deleted", deleted)
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return resilience.Permanent(fmt.Errorf("marshaling summary: %w", err))
	}
	receivers, err := r.cache.Publish(ctx, r.channel, payload)
	if err != nil {
		return err
	}
	r.logger.Debug("summary published", "channel", r.channel, "receivers", receivers)
	return nil
}

func (r *RedisSink) Close() error {
	return r.cache.Close()
}

// Schema creates the run history tables.
const Schema = `
CREATE TABLE IF NOT EXISTS index_runs (
	run_id        UUID PRIMARY KEY,
	html_dir      TEXT NOT NULL,
	status        TEXT NOT NULL,
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL,
	files         INTEGER NOT NULL,
	files_indexed INTEGER NOT NULL,
	files_skipped INTEGER NOT NULL,
	tokens        INTEGER NOT NULL,
	fragments     INTEGER NOT NULL,
	trie_edges    INTEGER NOT NULL,
	warning_count INTEGER NOT NULL,
	error         TEXT
);
CREATE TABLE IF NOT EXISTS index_run_warnings (
	run_id  UUID NOT NULL REFERENCES index_runs(run_id) ON DELETE CASCADE,
	seq     INTEGER NOT NULL,
	message TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);`

const insertRun = `INSERT INTO index_runs
	(run_id, html_dir, status, started_at, finished_at, files, files_indexed,
	 files_skipped, tokens, fragments, trie_edges, warning_count, error)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULLIF($13, ''))
	ON CONFLICT (run_id) DO NOTHING`

const insertWarning = `INSERT INTO index_run_warnings (run_id, seq, message)
	VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`

// TxRunner runs a function in a database transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx postgres.Execer) error) error
	Close() error
}

// PostgresSink records each run and its warnings in the run history.
// Inserts are idempotent so that a retried send does not fail on the
// primary key.
type PostgresSink struct {
	db TxRunner
}

func NewPostgresSink(db TxRunner) *PostgresSink {
	return &PostgresSink{db: db}
}

func (p *PostgresSink) Name() string { return "postgres" }

// EnsureSchema creates the history tables if they are missing.
func (p *PostgresSink) EnsureSchema(ctx context.Context) error {
	return p.db.InTx(ctx, func(tx postgres.Execer) error {
		if _, err := tx.ExecContext(ctx, Schema); err != nil {
			return fmt.Errorf("creating run history schema: %w", err)
		}
		return nil
	})
}

func (p *PostgresSink) Send(ctx context.Context, s Summary) error {
	return p.db.InTx(ctx, func(tx postgres.Execer) error {
		_, err := tx.ExecContext(ctx, insertRun,
			s.RunID, s.HTMLDir, s.Status, s.StartedAt, s.FinishedAt,
			s.Files, s.FilesIndexed, s.FilesSkipped, s.Tokens, s.Fragments,
			s.TrieEdges, s.WarningCount, s.Error,
		)
		if err != nil {
			return fmt.Errorf("inserting run %s: %w", s.RunID, err)
		}
		for i, w := range s.Warnings {
			if _, err := tx.ExecContext(ctx, insertWarning, s.RunID, i, w); err != nil {
				return fmt.Errorf("inserting warning %d of run %s: %w", i, s.RunID, err)
			}
		}
		return nil
	})
}

func (p *PostgresSink) Close() error {
	return p.db.Close()
}
