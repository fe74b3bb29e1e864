// Package indexer runs the search indexing of a rendered documentation tree.
//
// A run goes through four phases, each a barrier:
//
//	Indexing           files are parsed and tokenized by a pool of workers
//	FragmentsDraining  one preview file is written per URL
//	UrlsDraining       one URL list file is written per token
//	Encoding           the token trie is encoded and written
//
// The trie, the fragment map and the URL map are owned by the run and each has
// its own lock. A worker holds at most one of them at a time and never while
// parsing or writing files.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docindex/internal/indexer/artifact"
	"github.com/Adithya-Monish-Kumar-K/docindex/internal/indexer/extract"
	"github.com/Adithya-Monish-Kumar-K/docindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docindex/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docindex/internal/indexer/trie"
	"github.com/Adithya-Monish-Kumar-K/docindex/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docindex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docindex/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docindex/pkg/tracing"
	"golang.org/x/sync/errgroup"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseIndexing
	PhaseFragmentsDraining
	PhaseURLsDraining
	PhaseEncoding
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseIndexing:
		return "indexing"
	case PhaseFragmentsDraining:
		return "fragments_draining"
	case PhaseURLsDraining:
		return "urls_draining"
	case PhaseEncoding:
		return "encoding"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Warning is a recoverable failure: one file that could not be indexed or
// one artifact that could not be written.
type Warning struct {
	Phase  Phase
	Target string
	Err    error
}

func (w Warning) Error() string {
	return fmt.Sprintf("%s: %s: %v", w.Phase, w.Target, w.Err)
}

func (w Warning) Unwrap() error {
	return w.Err
}

// Result summarizes a finished run.
type Result struct {
	Files        int
	FilesIndexed int
	FilesSkipped int
	Occurrences  int
	Tokens       int
	Fragments    int
	TrieEdges    int
	TrieWords    int
	Warnings     []Warning
	Phases       map[string]time.Duration
	Duration     time.Duration
}

// Partial reports whether some file or artifact was left out.
func (r *Result) Partial() bool {
	return len(r.Warnings) > 0
}

type Engine struct {
	cfg     config.IndexerConfig
	stop    tokenizer.StopWords
	writer  *artifact.Writer
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu    sync.Mutex
	phase Phase
}

type Option func(*Engine)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine validates cfg, loads the stop words and creates the output
// directories. Any failure here is fatal for the run.
func NewEngine(cfg config.IndexerConfig, opts ...Option) (*Engine, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stop, err := tokenizer.LoadStopWords(cfg.StopWordsPath)
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{cfg.SearchDir, cfg.FragmentsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, apperrors.Newf(apperrors.ErrOutputDir, apperrors.ExitFailure,
				"creating %s: %v", dir, err)
		}
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	e := &Engine{
		cfg:    cfg,
		stop:   stop,
		writer: artifact.NewWriter(cfg.SearchDir, cfg.FragmentsDir),
		logger: logger.WithComponent("indexer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the resolved configuration.
func (e *Engine) Config() config.IndexerConfig {
	return e.cfg
}

// Phase returns the phase the engine is in.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

func (e *Engine) setPhase(p Phase) {
	e.mu.Lock()
	e.phase = p
	e.mu.Unlock()
}

// run is the state owned by one call to Run.
type run struct {
	log *slog.Logger

	trieMu sync.Mutex
	trie   *trie.Trie

	fragments *index.FragmentMap
	urls      *index.URLMap

	warnMu   sync.Mutex
	warnings []Warning

	indexed atomic.Int64
	skipped atomic.Int64
	tokens  atomic.Int64
	frags   atomic.Int64
}

func (r *run) warn(p Phase, target string, err error) {
	r.log.Warn("recoverable failure", "phase", p.String(), "target", target, "error", err)
	r.warnMu.Lock()
	r.warnings = append(r.warnings, Warning{Phase: p, Target: target, Err: err})
	r.warnMu.Unlock()
}

// Run indexes files, given relative to the html directory, and writes every
// artifact before returning. ctx carries the run id and trace; a run always
// covers the whole file set. An error is returned only for fatal failures;
// per-file and per-artifact failures are reported in Result.Warnings.
func (e *Engine) Run(ctx context.Context, files []string) (*Result, error) {
	e.mu.Lock()
	if e.phase != PhaseIdle && e.phase != PhaseDone {
		e.mu.Unlock()
		return nil, apperrors.Newf(apperrors.ErrInternal, apperrors.ExitInternal,
			"run already in progress (phase %s)", e.phase)
	}
	e.phase = PhaseIdle
	e.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, "index_run", logger.RunID(ctx))
	r := &run{
		log:       e.logger.With("run_id", logger.RunID(ctx)),
		trie:      trie.New(),
		fragments: index.NewFragmentMap(),
		urls:      index.NewURLMap(),
	}
	r.log.Info("index run starting", "files", len(files), "workers", e.cfg.Workers)

	steps := []struct {
		phase Phase
		fn    func(context.Context, *run) error
	}{
		{PhaseIndexing, func(ctx context.Context, r *run) error { return e.indexFiles(ctx, r, files) }},
		{PhaseFragmentsDraining, e.drainFragments},
		{PhaseURLsDraining, e.drainURLs},
		{PhaseEncoding, e.encode},
	}
	for _, step := range steps {
		e.setPhase(step.phase)
		phaseCtx, phaseSpan := tracing.StartChildSpan(ctx, step.phase.String())
		err := step.fn(phaseCtx, r)
		d := phaseSpan.End()
		e.metrics.Phase(step.phase.String(), d)
		r.log.Info("phase complete", "phase", step.phase.String(), "duration_ms", d.Milliseconds())
		if err != nil {
			e.setPhase(PhaseDone)
			span.SetAttr("error", err.Error())
			span.End()
			span.Log(r.log)
			return nil, err
		}
	}
	e.setPhase(PhaseDone)

	result := &Result{
		Files:        len(files),
		FilesIndexed: int(r.indexed.Load()),
		FilesSkipped: int(r.skipped.Load()),
		Occurrences:  r.urls.Count(),
		Tokens:       int(r.tokens.Load()),
		Fragments:    int(r.frags.Load()),
		TrieEdges:    r.trie.Edges(),
		TrieWords:    r.trie.Len(),
		Warnings:     r.warnings,
	}
	span.SetAttr("files_indexed", result.FilesIndexed)
	span.SetAttr("warnings", len(result.Warnings))
	result.Duration = span.End()
	result.Phases = span.Durations()
	span.Log(r.log)

	r.log.Info("index run complete",
		"files_indexed", result.FilesIndexed,
		"files_skipped", result.FilesSkipped,
		"tokens", result.Tokens,
		"fragments", result.Fragments,
		"trie_edges", result.TrieEdges,
		"warnings", len(result.Warnings),
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

// poolSize bounds the pool of a phase by the number of items it has.
func (e *Engine) poolSize(items int) int {
	return min(e.cfg.Workers, items)
}

// indexFiles hands files to workers round-robin: worker w takes files w,
// w+n, w+2n, and so on.
func (e *Engine) indexFiles(ctx context.Context, r *run, files []string) error {
	n := e.poolSize(len(files))
	var g errgroup.Group
	for w := 0; w < n; w++ {
		g.Go(func() error {
			for i := w; i < len(files); i += n {
				if err := e.indexFile(r, files[i]); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// indexFile returns an error only for failures that must stop the run.
func (e *Engine) indexFile(r *run, name string) error {
	contents, err := e.parseFile(name)
	if err != nil {
		r.skipped.Add(1)
		e.metrics.FileSkipped()
		r.warn(PhaseIndexing, name, err)
		return nil
	}
	if len(contents) == 0 {
		r.skipped.Add(1)
		e.metrics.FileSkipped()
		r.log.Debug("no indexable root, skipping", "file", name)
		return nil
	}

	occurrences := 0
	for _, c := range contents {
		r.fragments.Append(c.URL, c.Text+"\n")
		for tok := range tokenizer.Tokens(c.Text, e.stop) {
			r.trieMu.Lock()
			err := r.trie.InsertString(tok.Term)
			r.trieMu.Unlock()
			if err != nil {
				return fmt.Errorf("indexing %s: %w", name, err)
			}
			r.urls.Append(tok.Term, index.ContextualizedURL{
				URL:       c.URL,
				NodeType:  c.NodeType,
				Languages: []string{c.Context.Language},
			})
			occurrences++
		}
	}
	r.indexed.Add(1)
	e.metrics.FileIndexed()
	e.metrics.Tokens(occurrences)
	r.log.Debug("file indexed", "file", name, "contents", len(contents), "occurrences", occurrences)
	return nil
}

func (e *Engine) parseFile(name string) ([]extract.Content, error) {
	f, err := os.Open(filepath.Join(e.cfg.HTMLDir, filepath.FromSlash(name)))
	if err != nil {
		return nil, fmt.Errorf("opening html file: %w", err)
	}
	defer f.Close()
	return extract.Parse(filepath.ToSlash(name), f)
}

func (e *Engine) drainFragments(ctx context.Context, r *run) error {
	var g errgroup.Group
	for w := 0; w < e.poolSize(r.fragments.Len()); w++ {
		g.Go(func() error {
			for {
				url, chunks, ok := r.fragments.Steal()
				if !ok {
					return nil
				}
				_, err := e.writer.WriteFragment(url, chunks)
				e.metrics.Artifact("fragment", err)
				if err != nil {
					r.warn(PhaseFragmentsDraining, url, err)
					continue
				}
				r.frags.Add(1)
			}
		})
	}
	return g.Wait()
}

func (e *Engine) drainURLs(ctx context.Context, r *run) error {
	var g errgroup.Group
	for w := 0; w < e.poolSize(r.urls.Len()); w++ {
		g.Go(func() error {
			for {
				token, postings, ok := r.urls.Steal()
				if !ok {
					return nil
				}
				_, err := e.writer.WriteURLs(token, postings)
				e.metrics.Artifact("token", err)
				if err != nil {
					r.warn(PhaseURLsDraining, token, err)
					continue
				}
				r.tokens.Add(1)
			}
		})
	}
	return g.Wait()
}

// encode runs on a single goroutine once every worker has joined.
func (e *Engine) encode(ctx context.Context, r *run) error {
	e.metrics.Edges(r.trie.Edges())
	err := r.trie.WriteFiles(e.cfg.TriePath, e.cfg.TrieScriptPath)
	e.metrics.Artifact("trie", err)
	if err == nil {
		return nil
	}
	if errors.Is(err, apperrors.ErrTrieOverflow) {
		return apperrors.Newf(apperrors.ErrTrieOverflow, apperrors.ExitFailure,
			"%d edges: %v", r.trie.Edges(), err)
	}
	r.warn(PhaseEncoding, e.cfg.TriePath, err)
	return nil
}

// Build creates an engine for cfg and runs it once over files.
func Build(ctx context.Context, cfg config.IndexerConfig, files []string, opts ...Option) (*Result, error) {
	e, err := NewEngine(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, files)
}
