package trie

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	apperrors "github.com/Adithya-Monish-Kumar-K/docindex/pkg/errors"
)

// Record layout, most significant bits first: first-child index, last
// sibling flag, terminal flag, symbol.
const (
	RecordSize = 4

	SymbolMask   uint32 = 0x7F
	TerminalFlag uint32 = 1 << 7
	LastFlag     uint32 = 1 << 8
	ChildShift          = 9

	// MaxRecords bounds the record index so it fits the 23 child bits.
	MaxRecords = 1 << 23

	headerSymbol uint32 = 30

	// Header is record 0: first child at index 1, last sibling, symbol 30.
	Header uint32 = 1<<ChildShift | LastFlag | headerSymbol

	// ScriptVariable is the global the script asset assigns the data to.
	ScriptVariable = "trie_data"
)

// bftEntry is one edge in breadth-first order.
type bftEntry struct {
	e          *edge
	last       bool
	firstChild uint32
}

// unroll lists the edges breadth-first. Record ids start at 1 because record
// 0 is the header.
func (t *Trie) unroll() ([]bftEntry, error) {
	if t.edges >= MaxRecords {
		return nil, apperrors.Newf(apperrors.ErrTrieOverflow, apperrors.ExitInternal,
			"%d edges exceed the %d-record limit", t.edges, MaxRecords)
	}
	order := make([]bftEntry, 0, t.edges)
	enqueue := func(n *node) {
		for i := range n.edges {
			order = append(order, bftEntry{
				e:    &n.edges[i],
				last: i == len(n.edges)-1,
			})
		}
	}
	enqueue(&t.root)
	for i := 0; i < len(order); i++ {
		next := order[i].e.next
		if next == nil || len(next.edges) == 0 {
			continue
		}
		order[i].firstChild = uint32(len(order) + 1)
		enqueue(next)
	}
	return order, nil
}

// EncodeRecord packs one edge into its 32-bit record.
func EncodeRecord(firstChild uint32, last, terminal bool, symbol byte) uint32 {
	r := firstChild << ChildShift
	if last {
		r |= LastFlag
	}
	if terminal {
		r |= TerminalFlag
	}
	return r | uint32(symbol)&SymbolMask
}

// Encode serializes the trie as big-endian records: the header followed by
// one record per edge in breadth-first order. Symbols keep their low seven
// bits only, which covers every byte the tokenizer emits.
func (t *Trie) Encode() ([]byte, error) {
	order, err := t.unroll()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, RecordSize*(len(order)+1))
	binary.BigEndian.PutUint32(buf[0:RecordSize], Header)
	for i, entry := range order {
		off := RecordSize * (i + 1)
		rec := EncodeRecord(entry.firstChild, entry.last, entry.e.terminal, entry.e.symbol)
		binary.BigEndian.PutUint32(buf[off:off+RecordSize], rec)
	}
	return buf, nil
}

// Script wraps encoded trie data in the script asset loaded by the browser.
func Script(data []byte) []byte {
	encoded := base64.StdEncoding.EncodeToString(data)
	out := make([]byte, 0, len(encoded)+len(ScriptVariable)+6)
	out = append(out, "var "+ScriptVariable+"=\""...)
	out = append(out, encoded...)
	out = append(out, "\";"...)
	return out
}

// WriteFiles encodes the trie and writes the raw binary file and the script
// asset. Each file is written to a .tmp sibling first and renamed on
// success.
func (t *Trie) WriteFiles(triePath, scriptPath string) error {
	data, err := t.Encode()
	if err != nil {
		return fmt.Errorf("encoding trie: %w", err)
	}
	if err := writeAtomic(triePath, data); err != nil {
		return fmt.Errorf("writing trie file: %w", err)
	}
	if scriptPath == "" {
		return nil
	}
	if err := writeAtomic(scriptPath, Script(data)); err != nil {
		return fmt.Errorf("writing trie script: %w", err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", tmpPath, err)
	}
	f.Close()
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming %s: %w", tmpPath, err)
	}
	return nil
}
