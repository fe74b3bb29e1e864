package index

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupe_MergesLanguages(t *testing.T) {
	got := Dedupe(PostingList{
		{URL: "a.html#x", NodeType: "p", Languages: []string{"c"}},
		{URL: "a.html#x", NodeType: "h1", Languages: []string{"python"}},
	})

	assert.Equal(t, PostingList{
		{URL: "a.html#x", NodeType: "h1", Languages: []string{"c", "python"}},
	}, got)
}

func TestDedupe_SortsByURL(t *testing.T) {
	got := Dedupe(PostingList{
		{URL: "b.html#2", NodeType: "p", Languages: []string{"default"}},
		{URL: "a.html#1", NodeType: "h2", Languages: []string{"default"}},
		{URL: "b.html#1", NodeType: "ul", Languages: []string{"default", "default"}},
		{URL: "a.html#1", NodeType: "p", Languages: []string{"default"}},
	})

	require.Len(t, got, 3)
	assert.Equal(t, "a.html#1", got[0].URL)
	assert.Equal(t, "p", got[0].NodeType, "last node type wins")
	assert.Equal(t, []string{"default"}, got[0].Languages)
	assert.Equal(t, "b.html#1", got[1].URL)
	assert.Equal(t, []string{"default"}, got[1].Languages)
	assert.Equal(t, "b.html#2", got[2].URL)
}

func TestDedupe_DoesNotAliasInput(t *testing.T) {
	in := PostingList{
		{URL: "a.html#x", Languages: []string{"python"}},
		{URL: "a.html#x", Languages: []string{"c"}},
	}
	_ = Dedupe(in)
	assert.Equal(t, []string{"python"}, in[0].Languages)
}

func TestDedupe_Empty(t *testing.T) {
	assert.Nil(t, Dedupe(nil))
	assert.Nil(t, Dedupe(PostingList{}))
}

func TestFragmentMap_AppendKeepsOrder(t *testing.T) {
	f := NewFragmentMap()
	f.Append("a.html#x", "first\n")
	f.Append("a.html#x", "second\n", "third\n")
	f.Append("b.html#y", "other\n")

	assert.Equal(t, 2, f.Len())
	assert.Equal(t, int64(len("first\nsecond\nthird\nother\n")), f.Size())

	stolen := map[string]string{}
	for {
		url, chunks, ok := f.Steal()
		if !ok {
			break
		}
		stolen[url] = Join(chunks)
	}
	assert.Equal(t, map[string]string{
		"a.html#x": "first\nsecond\nthird\n",
		"b.html#y": "other\n",
	}, stolen)
	assert.Equal(t, 0, f.Len())
}

func TestURLMap_StealEmpty(t *testing.T) {
	u := NewURLMap()
	token, postings, ok := u.Steal()
	assert.False(t, ok)
	assert.Empty(t, token)
	assert.Nil(t, postings)
}

func TestURLMap_Search(t *testing.T) {
	u := NewURLMap()
	u.Append("widget", ContextualizedURL{URL: "w.html#show", NodeType: "h1", Languages: []string{"c"}})
	u.Append("widget", ContextualizedURL{URL: "w.html#show", NodeType: "p", Languages: []string{"python"}})
	u.Append("other", ContextualizedURL{URL: "o.html#a", NodeType: "p", Languages: []string{"default"}})

	got := u.Search("widget")
	require.Len(t, got, 1)
	assert.Equal(t, []string{"c", "python"}, got[0].Languages)
	assert.Equal(t, 2, u.Len(), "search does not remove")
	assert.Equal(t, 3, u.Count())
	assert.Nil(t, u.Search("missing"))
}

func TestURLMap_ConcurrentAppendAndSteal(t *testing.T) {
	u := NewURLMap()
	const writers, perWriter = 8, 200

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				u.Append(fmt.Sprintf("tok%d", i%50), ContextualizedURL{
					URL:       fmt.Sprintf("f%d.html#%d", w, i),
					NodeType:  "p",
					Languages: []string{"default"},
				})
			}
		}(w)
	}
	wg.Wait()
	require.Equal(t, writers*perWriter, u.Count())
	require.Equal(t, 50, u.Len())

	var mu sync.Mutex
	total := 0
	seen := map[string]bool{}
	for d := 0; d < 4; d++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				token, postings, ok := u.Steal()
				if !ok {
					return
				}
				mu.Lock()
				assert.False(t, seen[token], "token %s stolen twice", token)
				seen[token] = true
				total += len(postings)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, writers*perWriter, total)
	assert.Len(t, seen, 50)
}
