package trie

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/docindex/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertSorted(t *testing.T, n *node) {
	t.Helper()
	for i := range n.edges {
		if i > 0 {
			require.Less(t, n.edges[i-1].symbol, n.edges[i].symbol)
		}
		if n.edges[i].next != nil {
			assertSorted(t, n.edges[i].next)
		}
	}
}

func TestInsert_KeepsChildrenSorted(t *testing.T) {
	tr := New()
	for _, w := range []string{"zeta", "alpha", "mu", "beta", "Alpha", "_priv", "a1", "a"} {
		require.NoError(t, tr.InsertString(w))
	}
	assertSorted(t, &tr.root)
	assert.Equal(t, []string{"Alpha", "_priv", "a", "a1", "alpha", "beta", "mu", "zeta"}, tr.Words())
}

func TestInsert_EmptyWordRejected(t *testing.T) {
	tr := New()
	err := tr.Insert(nil)
	assert.True(t, errors.Is(err, apperrors.ErrEmptyWord))
	assert.Equal(t, 0, tr.Edges())
}

func TestInsert_Idempotent(t *testing.T) {
	tr := New()
	require.NoError(t, tr.InsertString("hello"))
	require.NoError(t, tr.InsertString("hello"))
	require.NoError(t, tr.InsertString("help"))

	assert.Equal(t, 2, tr.Len())
	assert.Equal(t, 6, tr.Edges())
}

func TestContainsAndHasPrefix(t *testing.T) {
	tr := New()
	require.NoError(t, tr.InsertString("hello"))
	require.NoError(t, tr.InsertString("he"))

	assert.True(t, tr.Contains([]byte("hello")))
	assert.True(t, tr.Contains([]byte("he")))
	assert.False(t, tr.Contains([]byte("hel")))
	assert.False(t, tr.Contains([]byte("helloo")))
	assert.False(t, tr.Contains(nil))

	assert.True(t, tr.HasPrefix([]byte("hel")))
	assert.False(t, tr.HasPrefix([]byte("hex")))
	assert.False(t, tr.HasPrefix([]byte("hello!")))
}

func TestEncode_KnownLayout(t *testing.T) {
	tr := New()
	for _, w := range []string{"ac", "b", "ab"} {
		require.NoError(t, tr.InsertString(w))
	}
	data, err := tr.Encode()
	require.NoError(t, err)

	want := []uint32{
		0x31E,             // header: child 1, last, symbol 30
		3<<9 | 'a',        // a -> first child at 3
		1<<8 | 1<<7 | 'b', // b, last sibling, terminal
		1<<7 | 'b',        // ab, terminal
		1<<8 | 1<<7 | 'c', // ac, last sibling, terminal
	}
	require.Len(t, data, len(want)*RecordSize)
	for i, w := range want {
		assert.Equal(t, w, binary.BigEndian.Uint32(data[i*RecordSize:]), "record %d", i)
	}
}

func TestEncode_EmptyTrie(t *testing.T) {
	data, err := New().Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0x03, 0x1E}, data)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 0, decoded.Len())
}

func TestRoundTrip_RandomWords(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	alphabet := "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_."
	for round := 0; round < 20; round++ {
		t.Run(fmt.Sprintf("round_%d", round), func(t *testing.T) {
			tr := New()
			want := map[string]struct{}{}
			for i := 0; i < 200; i++ {
				n := 1 + rng.Intn(12)
				var sb strings.Builder
				for j := 0; j < n; j++ {
					sb.WriteByte(alphabet[rng.Intn(len(alphabet))])
				}
				w := sb.String()
				want[w] = struct{}{}
				require.NoError(t, tr.InsertString(w))
			}

			data, err := tr.Encode()
			require.NoError(t, err)
			assert.Len(t, data, (tr.Edges()+1)*RecordSize)

			decoded, err := Decode(data)
			require.NoError(t, err)

			words := make([]string, 0, len(want))
			for w := range want {
				words = append(words, w)
			}
			sort.Strings(words)
			assert.Equal(t, words, decoded.Words())
			assertSameShape(t, &tr.root, &decoded.root)
		})
	}
}

// assertSameShape checks that every decoded node has exactly the children of
// the original, which is what the last-sibling flags must reproduce.
func assertSameShape(t *testing.T, want, got *node) {
	t.Helper()
	require.Equal(t, len(want.edges), len(got.edges))
	for i := range want.edges {
		w, g := want.edges[i], got.edges[i]
		require.Equal(t, w.symbol, g.symbol)
		require.Equal(t, w.terminal, g.terminal)
		wantKids := w.next != nil && len(w.next.edges) > 0
		gotKids := g.next != nil && len(g.next.edges) > 0
		require.Equal(t, wantKids, gotKids)
		if wantKids {
			assertSameShape(t, w.next, g.next)
		}
	}
}

func TestDecode_Corrupt(t *testing.T) {
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, Header)

	rec := func(vals ...uint32) []byte {
		out := append([]byte{}, header...)
		for _, v := range vals {
			b := make([]byte, 4)
			binary.BigEndian.PutUint32(b, v)
			out = append(out, b...)
		}
		return out
	}

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "ragged", data: []byte{0, 0, 3}},
		{name: "bad header", data: []byte{0, 0, 0, 1}},
		{name: "child points backwards", data: rec(1<<9|LastFlag|'a')},
		{name: "child past end", data: rec(9<<9|LastFlag|'a')},
		{name: "missing last flag", data: rec('a')},
		{name: "unreachable record", data: rec(LastFlag|TerminalFlag|'a', LastFlag|'b')},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrCorruptTrie))
		})
	}
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	tr := New()
	for _, w := range []string{"Hello", "hello", "World", "world"} {
		require.NoError(t, tr.InsertString(w))
	}
	triePath := filepath.Join(dir, "dumped.trie")
	scriptPath := filepath.Join(dir, "assets", "js", "trie_index.js")
	require.NoError(t, tr.WriteFiles(triePath, scriptPath))

	raw, err := os.ReadFile(triePath)
	require.NoError(t, err)
	script, err := os.ReadFile(scriptPath)
	require.NoError(t, err)

	assert.Equal(t, `var trie_data="`+base64.StdEncoding.EncodeToString(raw)+`";`, string(script))

	fromFile, err := ReadFile(triePath)
	require.NoError(t, err)
	fromScript, err := DecodeScript(script)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", "World", "hello", "world"}, fromFile.Words())
	assert.Equal(t, fromFile.Words(), fromScript.Words())

	_, err = os.Stat(triePath + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestDecodeScript_Rejects(t *testing.T) {
	_, err := DecodeScript([]byte("var other=\"AAADHg==\";"))
	assert.True(t, errors.Is(err, apperrors.ErrCorruptTrie))

	_, err = DecodeScript([]byte("var trie_data=\"!!!\";"))
	assert.Error(t, err)
}

func TestEncodeRecord_MasksSymbol(t *testing.T) {
	r := DecodeRecord(EncodeRecord(5, true, false, 'z'))
	assert.Equal(t, Record{FirstChild: 5, Last: true, Symbol: 'z'}, r)
}

func BenchmarkInsert(b *testing.B) {
	words := make([]string, 5000)
	for i := range words {
		words[i] = fmt.Sprintf("gtk_widget_%d_%x", i, i*7919)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tr := New()
		for _, w := range words {
			_ = tr.InsertString(w)
		}
	}
}

func BenchmarkEncode(b *testing.B) {
	tr := New()
	for i := 0; i < 20000; i++ {
		_ = tr.InsertString(fmt.Sprintf("g_object_%d", i))
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tr.Encode(); err != nil {
			b.Fatal(err)
		}
	}
}
