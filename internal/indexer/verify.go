package indexer

import (
	"bytes"
	"fmt"
	"os"

	"github.com/Adithya-Monish-Kumar-K/docindex/internal/indexer/artifact"
	"github.com/Adithya-Monish-Kumar-K/docindex/internal/indexer/trie"
	"github.com/Adithya-Monish-Kumar-K/docindex/pkg/config"
)

// VerifyReport describes the consistency of the artifacts of a finished run.
type VerifyReport struct {
	Words         int
	MissingTokens []string
	ScriptMatches bool
}

func (v *VerifyReport) OK() bool {
	return len(v.MissingTokens) == 0 && v.ScriptMatches
}

// Verify decodes the written trie and checks that every word in it has a
// token file and that the script asset carries the same bytes.
func Verify(cfg config.IndexerConfig) (*VerifyReport, error) {
	cfg.Resolve()
	data, err := os.ReadFile(cfg.TriePath)
	if err != nil {
		return nil, fmt.Errorf("reading trie: %w", err)
	}
	t, err := trie.Decode(data)
	if err != nil {
		return nil, err
	}

	report := &VerifyReport{}
	script, err := os.ReadFile(cfg.TrieScriptPath)
	if err != nil {
		return nil, fmt.Errorf("reading trie script: %w", err)
	}
	report.ScriptMatches = bytes.Equal(script, trie.Script(data))

	reader := artifact.NewReader(cfg.SearchDir, cfg.FragmentsDir)
	for _, word := range t.Words() {
		report.Words++
		tok, err := reader.Token(word)
		if err != nil {
			return nil, err
		}
		if tok == nil || tok.Token != word || len(tok.URLs) == 0 {
			report.MissingTokens = append(report.MissingTokens, word)
		}
	}
	return report, nil
}
