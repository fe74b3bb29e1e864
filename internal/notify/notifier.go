package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docindex/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docindex/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docindex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docindex/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docindex/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/docindex/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/docindex/pkg/resilience"
)

var knownSinks = []string{"kafka", "redis", "postgres"}

// Notifier fans a summary out to every sink, retrying each independently.
type Notifier struct {
	sinks   []Sink
	retry   resilience.RetryConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(cfg config.NotifyConfig, m *metrics.Metrics, sinks ...Sink) *Notifier {
	return &Notifier{
		sinks: sinks,
		retry: resilience.RetryConfig{
			MaxAttempts:    cfg.MaxAttempts,
			InitialDelay:   cfg.InitialDelay,
			AttemptTimeout: cfg.Timeout,
		},
		metrics: m,
		logger:  logger.WithComponent("notify"),
	}
}

// Open connects the sinks enabled in cfg.Notify. Sinks that were opened
// before a failure are closed again.
func Open(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*Notifier, error) {
	for _, name := range cfg.Notify.Sinks {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if !slices.Contains(knownSinks, name) {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage,
				"unknown notify sink %q (want one of %s)", name, strings.Join(knownSinks, ", "))
		}
	}

	n := New(cfg.Notify, m)
	if cfg.Notify.Enabled("kafka") {
		n.sinks = append(n.sinks, NewKafkaSink(kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)))
	}
	if cfg.Notify.Enabled("redis") {
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			n.Close()
			return nil, fmt.Errorf("opening redis sink: %w", err)
		}
		n.sinks = append(n.sinks, NewRedisSink(client, cfg.Redis.Channel, cfg.Redis.InvalidatePattern))
	}
	if cfg.Notify.Enabled("postgres") {
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			n.Close()
			return nil, fmt.Errorf("opening postgres sink: %w", err)
		}
		sink := NewPostgresSink(client)
		if err := sink.EnsureSchema(ctx); err != nil {
			sink.Close()
			n.Close()
			return nil, err
		}
		n.sinks = append(n.sinks, sink)
	}
	return n, nil
}

// Sinks returns the names of the configured sinks.
func (n *Notifier) Sinks() []string {
	names := make([]string, len(n.sinks))
	for i, s := range n.sinks {
		names[i] = s.Name()
	}
	return names
}

// Publish sends s to every sink. A failing sink does not stop the others;
// all failures are joined in the returned error.
func (n *Notifier) Publish(ctx context.Context, s Summary) error {
	var errs []error
	for _, sink := range n.sinks {
		err := resilience.Retry(ctx, "notify-"+sink.Name(), n.retry, func(ctx context.Context) error {
			return sink.Send(ctx, s)
		})
		n.metrics.Notify(sink.Name(), err)
		if err != nil {
			n.logger.Error("run summary not delivered", "sink", sink.Name(), "run_id", s.RunID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		n.logger.Info("run summary delivered", "sink", sink.Name(), "run_id", s.RunID, "status", s.Status)
	}
	return errors.Join(errs...)
}

func (n *Notifier) Close() error {
	var errs []error
	for _, sink := range n.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}
