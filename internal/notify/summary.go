// Package notify publishes the summary of an indexing run to the configured
// sinks: a Kafka topic, a Redis channel (after invalidating cached search
// results) and a PostgreSQL run-history table.
package notify

import (
	"errors"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docindex/internal/indexer"
)

const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// maxWarnings bounds the warnings carried in a summary.
const maxWarnings = 100

// Summary describes one finished run.
type Summary struct {
	RunID        string           `json:"run_id"`
	HTMLDir      string           `json:"html_dir"`
	Status       string           `json:"status"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
	Files        int              `json:"files"`
	FilesIndexed int              `json:"files_indexed"`
	FilesSkipped int              `json:"files_skipped"`
	Tokens       int              `json:"tokens"`
	Fragments    int              `json:"fragments"`
	TrieEdges    int              `json:"trie_edges"`
	PhasesMillis map[string]int64 `json:"phases_ms,omitempty"`
	Warnings     []string         `json:"warnings,omitempty"`
	WarningCount int              `json:"warning_count"`
	Error        string           `json:"error,omitempty"`
}

// NewSummary builds the summary of a run from its result, or from the fatal
// error that stopped it.
func NewSummary(runID, htmlDir string, startedAt time.Time, result *indexer.Result, runErr error) Summary {
	s := Summary{
		RunID:      runID,
		HTMLDir:    htmlDir,
		Status:     StatusOK,
		StartedAt:  startedAt.UTC(),
		FinishedAt: time.Now().UTC(),
	}
	if runErr != nil || result == nil {
		s.Status = StatusFailed
		if runErr == nil {
			runErr = errors.New("run produced no result")
		}
		s.Error = runErr.Error()
		return s
	}

	s.Files = result.Files
	s.FilesIndexed = result.FilesIndexed
	s.FilesSkipped = result.FilesSkipped
	s.Tokens = result.Tokens
	s.Fragments = result.Fragments
	s.TrieEdges = result.TrieEdges
	s.WarningCount = len(result.Warnings)
	if len(result.Phases) > 0 {
		s.PhasesMillis = make(map[string]int64, len(result.Phases))
		for name, d := range result.Phases {
			s.PhasesMillis[name] = d.Milliseconds()
		}
	}
	for i, w := range result.Warnings {
		if i == maxWarnings {
			break
		}
		s.Warnings = append(s.Warnings, w.Error())
	}
	if result.Partial() {
		s.Status = StatusPartial
	}
	return s
}
