package trie

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/docindex/pkg/errors"
)

// Record is one decoded 32-bit record.
type Record struct {
	FirstChild uint32
	Last       bool
	Terminal   bool
	Symbol     byte
}

// DecodeRecord unpacks a 32-bit record.
func DecodeRecord(r uint32) Record {
	return Record{
		FirstChild: r >> ChildShift,
		Last:       r&LastFlag != 0,
		Terminal:   r&TerminalFlag != 0,
		Symbol:     byte(r & SymbolMask),
	}
}

// Records splits encoded data into its records.
func Records(data []byte) ([]Record, error) {
	if len(data) == 0 || len(data)%RecordSize != 0 {
		return nil, apperrors.Newf(apperrors.ErrCorruptTrie, apperrors.ExitInternal,
			"length %d is not a positive multiple of %d", len(data), RecordSize)
	}
	records := make([]Record, len(data)/RecordSize)
	for i := range records {
		records[i] = DecodeRecord(binary.BigEndian.Uint32(data[i*RecordSize:]))
	}
	if raw := binary.BigEndian.Uint32(data[0:RecordSize]); raw != Header {
		return nil, apperrors.Newf(apperrors.ErrCorruptTrie, apperrors.ExitInternal,
			"bad header %08x", raw)
	}
	return records, nil
}

// Decode rebuilds a Trie from data produced by Encode. Children are read by
// following each record's first-child index until a record with the last
// sibling flag; every child index must point past its parent, as it always
// does in breadth-first order.
func Decode(data []byte) (*Trie, error) {
	records, err := Records(data)
	if err != nil {
		return nil, err
	}
	t := New()
	if len(records) == 1 {
		return t, nil
	}
	var build func(n *node, parent, first uint32) error
	build = func(n *node, parent, first uint32) error {
		for id := first; ; id++ {
			if id <= parent || int(id) >= len(records) {
				return apperrors.Newf(apperrors.ErrCorruptTrie, apperrors.ExitInternal,
					"record %d points to child %d outside (%d, %d)", parent, id, parent, len(records))
			}
			rec := records[id]
			n.edges = append(n.edges, edge{symbol: rec.Symbol, terminal: rec.Terminal})
			t.edges++
			if rec.Terminal {
				t.words++
			}
			if rec.FirstChild != 0 {
				e := &n.edges[len(n.edges)-1]
				e.next = &node{}
				if err := build(e.next, id, rec.FirstChild); err != nil {
					return err
				}
			}
			if rec.Last {
				return nil
			}
		}
	}
	if err := build(&t.root, 0, records[0].FirstChild); err != nil {
		return nil, err
	}
	if t.edges != len(records)-1 {
		return nil, apperrors.Newf(apperrors.ErrCorruptTrie, apperrors.ExitInternal,
			"reached %d of %d records", t.edges, len(records)-1)
	}
	return t, nil
}

// DecodeScript extracts and decodes the data embedded in a script asset.
func DecodeScript(script []byte) (*Trie, error) {
	s := strings.TrimSpace(string(script))
	prefix := "var " + ScriptVariable + "=\""
	if !strings.HasPrefix(s, prefix) || !strings.HasSuffix(s, "\";") {
		return nil, apperrors.New(apperrors.ErrCorruptTrie, apperrors.ExitInternal, "not a trie script asset")
	}
	data, err := base64.StdEncoding.DecodeString(s[len(prefix) : len(s)-2])
	if err != nil {
		return nil, fmt.Errorf("decoding trie script: %w", err)
	}
	return Decode(data)
}

// ReadFile decodes a trie file written by WriteFiles.
func ReadFile(path string) (*Trie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trie file: %w", err)
	}
	t, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return t, nil
}
