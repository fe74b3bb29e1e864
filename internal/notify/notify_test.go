package notify

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docindex/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docindex/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docindex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docindex/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docindex/pkg/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = config.NotifyConfig{MaxAttempts: 2, InitialDelay: time.Millisecond}

func TestNewSummary(t *testing.T) {
	started := time.Now().Add(-time.Second)
	result := &indexer.Result{
		Files:        3,
		FilesIndexed: 2,
		FilesSkipped: 1,
		Tokens:       10,
		Fragments:    4,
		TrieEdges:    25,
		Phases:       map[string]time.Duration{"indexing": 1500 * time.Millisecond},
		Warnings: []indexer.Warning{
			{Phase: indexer.PhaseIndexing, Target: "bad.html", Err: errors.New("unreadable")},
		},
	}

	s := NewSummary("run-1", "/docs/html", started, result, nil)
	assert.Equal(t, StatusPartial, s.Status)
	assert.Equal(t, 2, s.FilesIndexed)
	assert.Equal(t, int64(1500), s.PhasesMillis["indexing"])
	assert.Equal(t, []string{"indexing: bad.html: unreadable"}, s.Warnings)
	assert.Equal(t, 1, s.WarningCount)
	assert.False(t, s.FinishedAt.Before(s.StartedAt))

	result.Warnings = nil
	assert.Equal(t, StatusOK, NewSummary("run-2", "", started, result, nil).Status)

	failed := NewSummary("run-3", "", started, nil, errors.New("stop words missing"))
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "stop words missing", failed.Error)
}

func TestSummary_JSON(t *testing.T) {
	s := Summary{RunID: "r", Status: StatusOK, Tokens: 2}
	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "r", decoded["run_id"])
	assert.Equal(t, float64(2), decoded["tokens"])
	assert.NotContains(t, decoded, "warnings")
	assert.NotContains(t, decoded, "error")
}

type fakeSink struct {
	name    string
	failFor int
	calls   int
	got     []Summary
	closed  bool
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Send(ctx context.Context, s Summary) error {
	f.calls++
	if f.calls <= f.failFor {
		return errors.New("unavailable")
	}
	f.got = append(f.got, s)
	return nil
}

func (f *fakeSink) Close() error {
	f.closed = true
	return nil
}

func TestPublish_RetriesAndContinues(t *testing.T) {
	flaky := &fakeSink{name: "flaky", failFor: 1}
	down := &fakeSink{name: "down", failFor: 100}
	ok := &fakeSink{name: "ok"}
	m := metrics.New()
	n := New(fastRetry, m, flaky, down, ok)

	err := n.Publish(context.Background(), Summary{RunID: "run-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
	assert.NotContains(t, err.Error(), "flaky")

	assert.Equal(t, 2, flaky.calls)
	assert.Len(t, flaky.got, 1)
	assert.Equal(t, 2, down.calls)
	assert.Len(t, ok.got, 1)
	assert.Equal(t, []string{"flaky", "down", "ok"}, n.Sinks())

	require.NoError(t, n.Close())
	assert.True(t, ok.closed)
}

func TestPublish_NoSinks(t *testing.T) {
	n := New(fastRetry, nil)
	assert.NoError(t, n.Publish(context.Background(), Summary{}))
	assert.NoError(t, n.Close())
}

func TestOpen(t *testing.T) {
	cfg := &config.Config{}
	n, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Empty(t, n.Sinks())

	cfg.Notify.Sinks = []string{"carrier-pigeon"}
	_, err = Open(context.Background(), cfg, nil)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	cfg.Notify.Sinks = []string{" Kafka "}
	cfg.Kafka.Brokers = []string{"127.0.0.1:1"}
	n, err = Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka"}, n.Sinks())
	assert.NoError(t, n.Close())
}

type fakeCache struct {
	flushed   []string
	published map[string][]byte
}

func (f *fakeCache) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	f.flushed = append(f.flushed, pattern)
	return 3, nil
}

func (f *fakeCache) Publish(ctx context.Context, channel string, message any) (int64, error) {
	if f.published == nil {
		f.published = map[string][]byte{}
	}
	f.published[channel] = message.([]byte)
	return 1, nil
}

func (f *fakeCache) Close() error { return nil }

func TestRedisSink(t *testing.T) {
	cache := &fakeCache{}
	sink := NewRedisSink(cache, "docindex:runs", "docsearch:*")

	require.NoError(t, sink.Send(context.Background(), Summary{RunID: "a", Status: StatusOK}))
	assert.Equal(t, []string{"docsearch:*"}, cache.flushed)
	assert.Contains(t, string(cache.published["docindex:runs"]), `"run_id":"a"`)

	require.NoError(t, sink.Send(context.Background(), Summary{RunID: "b", Status: StatusFailed}))
	assert.Len(t, cache.flushed, 1, "failed runs keep the cache")
	assert.Contains(t, string(cache.published["docindex:runs"]), `"run_id":"b"`)
}

func TestComponentLoggers(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	var buf bytes.Buffer
	logger.Setup("debug", "text", &buf)

	n := New(fastRetry, nil, NewRedisSink(&fakeCache{}, "docindex:runs", "docsearch:*"))
	require.NoError(t, n.Publish(context.Background(), Summary{RunID: "c", Status: StatusOK}))

	out := buf.String()
	assert.Contains(t, out, "component=notify ")
	assert.Contains(t, out, "component=notify-redis")
	assert.Contains(t, out, "run summary delivered")
}

type execCall struct {
	query string
	args  []any
}

type fakeTx struct {
	calls []execCall
	fail  bool
}

func (f *fakeTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if f.fail {
		return nil, errors.New("constraint violated")
	}
	f.calls = append(f.calls, execCall{query: query, args: args})
	return nil, nil
}

type fakeDB struct {
	tx        *fakeTx
	committed int
}

func (f *fakeDB) InTx(ctx context.Context, fn func(tx postgres.Execer) error) error {
	if err := fn(f.tx); err != nil {
		return err
	}
	f.committed++
	return nil
}

func (f *fakeDB) Close() error { return nil }

func TestPostgresSink(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{}}
	sink := NewPostgresSink(db)

	require.NoError(t, sink.EnsureSchema(context.Background()))
	require.Len(t, db.tx.calls, 1)
	assert.Contains(t, db.tx.calls[0].query, "CREATE TABLE IF NOT EXISTS index_runs")

	err := sink.Send(context.Background(), Summary{
		RunID:    "6f1c1c9e-8a53-4b7e-9a3b-0c2b4b7d9e10",
		Status:   StatusPartial,
		Warnings: []string{"w0", "w1"},
	})
	require.NoError(t, err)
	require.Len(t, db.tx.calls, 4)
	assert.Contains(t, db.tx.calls[1].query, "INSERT INTO index_runs")
	assert.Equal(t, []any{"6f1c1c9e-8a53-4b7e-9a3b-0c2b4b7d9e10", 1, "w1"}, db.tx.calls[3].args)
	assert.Equal(t, 2, db.committed)

	db.tx.fail = true
	assert.Error(t, sink.Send(context.Background(), Summary{RunID: "x"}))
	assert.Equal(t, 2, db.committed)
}
