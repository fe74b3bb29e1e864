// Package trie implements the prefix tree behind the offline search index.
// Every node keeps its outgoing edges sorted by byte so lookups can binary
// search them, and Encode linearizes the edges breadth-first into the
// fixed-width records the browser walks with index arithmetic.
package trie

import (
	"slices"

	apperrors "github.com/Adithya-Monish-Kumar-K/docindex/pkg/errors"
)

// edge is one labelled transition out of a node. terminal marks that an
// inserted word ends on this edge; next is nil until a longer word needs it.
type edge struct {
	symbol   byte
	terminal bool
	next     *node
}

type node struct {
	edges []edge
}

// Trie is a set of byte strings. It is not safe for concurrent use; callers
// serialize Insert with their own lock.
type Trie struct {
	root  node
	edges int
	words int
}

// New returns an empty Trie.
func New() *Trie {
	return &Trie{}
}

func cmpEdge(e edge, symbol byte) int {
	return int(e.symbol) - int(symbol)
}

// child returns the index of symbol among n's edges, or the position where it
// would have to be inserted to keep the edges sorted.
func (n *node) child(symbol byte) (int, bool) {
	return slices.BinarySearchFunc(n.edges, symbol, cmpEdge)
}

// Insert adds word to the trie. Inserting a word twice is a no-op.
func (t *Trie) Insert(word []byte) error {
	if len(word) == 0 {
		return apperrors.ErrEmptyWord
	}
	n := &t.root
	for i, c := range word {
		idx, found := n.child(c)
		if !found {
			n.edges = slices.Insert(n.edges, idx, edge{symbol: c})
			t.edges++
		}
		e := &n.edges[idx]
		if i == len(word)-1 {
			if !e.terminal {
				e.terminal = true
				t.words++
			}
			return nil
		}
		if e.next == nil {
			e.next = &node{}
		}
		n = e.next
	}
	return nil
}

// InsertString is Insert for string keys.
func (t *Trie) InsertString(word string) error {
	return t.Insert([]byte(word))
}

// Contains reports whether word was inserted.
func (t *Trie) Contains(word []byte) bool {
	if len(word) == 0 {
		return false
	}
	n := &t.root
	for i, c := range word {
		idx, found := n.child(c)
		if !found {
			return false
		}
		e := &n.edges[idx]
		if i == len(word)-1 {
			return e.terminal
		}
		if e.next == nil {
			return false
		}
		n = e.next
	}
	return false
}

// HasPrefix reports whether any inserted word starts with prefix.
func (t *Trie) HasPrefix(prefix []byte) bool {
	n := &t.root
	for i, c := range prefix {
		idx, found := n.child(c)
		if !found {
			return false
		}
		if i == len(prefix)-1 {
			return true
		}
		if n.edges[idx].next == nil {
			return false
		}
		n = n.edges[idx].next
	}
	return len(n.edges) > 0
}

// Len returns the number of distinct words.
func (t *Trie) Len() int {
	return t.words
}

// Edges returns the number of edges, which is the number of records Encode
// writes after the header.
func (t *Trie) Edges() int {
	return t.edges
}

// Words returns every inserted word in byte order.
func (t *Trie) Words() []string {
	words := make([]string, 0, t.words)
	var prefix []byte
	var walk func(n *node)
	walk = func(n *node) {
		for i := range n.edges {
			e := &n.edges[i]
			prefix = append(prefix, e.symbol)
			if e.terminal {
				words = append(words, string(prefix))
			}
			if e.next != nil {
				walk(e.next)
			}
			prefix = prefix[:len(prefix)-1]
		}
	}
	walk(&t.root)
	return words
}
