// Package index holds the shared, run-scoped aggregation maps of an indexing
// run. Each map has its own mutex, held only for a single map operation, so
// workers never hold two locks at once. Draining uses Steal: remove one
// arbitrary entry under the lock, then process it after the lock is released.
package index

import (
	"strings"
	"sync"
)

// FragmentMap collects the text chunks shown as a preview for each URL.
type FragmentMap struct {
	mu     sync.Mutex
	chunks map[string][]string
	size   int64
}

func NewFragmentMap() *FragmentMap {
	return &FragmentMap{
		chunks: make(map[string][]string),
	}
}

// Append adds chunks to url's fragment, in order, as one locked operation.
func (f *FragmentMap) Append(url string, chunks ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks[url] = append(f.chunks[url], chunks...)
	for _, c := range chunks {
		f.size += int64(len(c))
	}
}

// Steal removes one arbitrary entry. ok is false when the map is empty.
func (f *FragmentMap) Steal() (url string, chunks []string, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for url, chunks = range f.chunks {
		delete(f.chunks, url)
		return url, chunks, true
	}
	return "", nil, false
}

func (f *FragmentMap) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chunks)
}

// Size returns the total number of bytes appended.
func (f *FragmentMap) Size() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

// Join concatenates chunks in the order they were appended.
func Join(chunks []string) string {
	return strings.Join(chunks, "")
}

// URLMap collects, for every token, the places it occurs.
type URLMap struct {
	mu       sync.Mutex
	postings map[string]PostingList
	count    int
}

func NewURLMap() *URLMap {
	return &URLMap{
		postings: make(map[string]PostingList),
	}
}

// Append records one occurrence of token.
func (u *URLMap) Append(token string, p ContextualizedURL) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.postings[token] = append(u.postings[token], p)
	u.count++
}

// Steal removes one arbitrary token and its postings. ok is false when the
// map is empty.
func (u *URLMap) Steal() (token string, postings PostingList, ok bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for token, postings = range u.postings {
		delete(u.postings, token)
		return token, postings, true
	}
	return "", nil, false
}

// Search returns a deduplicated copy of token's postings without removing
// them.
func (u *URLMap) Search(token string) PostingList {
	u.mu.Lock()
	postings := make(PostingList, len(u.postings[token]))
	copy(postings, u.postings[token])
	u.mu.Unlock()
	return Dedupe(postings)
}

func (u *URLMap) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.postings)
}

// Count returns the number of occurrences appended.
func (u *URLMap) Count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.count
}
