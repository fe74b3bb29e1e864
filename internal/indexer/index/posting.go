package index

import (
	"slices"
	"sort"
)

// ContextualizedURL is one occurrence of a token: the anchor it was found
// under, the tag of the element, and the language variants it was seen in.
type ContextualizedURL struct {
	URL       string
	NodeType  string
	Languages []string
}

type PostingList []ContextualizedURL

// Dedupe merges entries that share a URL and returns them sorted by URL.
// Languages are unioned and sorted; the node type of the last occurrence
// of each URL is kept.
func Dedupe(postings PostingList) PostingList {
	if len(postings) == 0 {
		return nil
	}
	seen := make(map[string]int, len(postings))
	result := make(PostingList, 0, len(postings))
	for _, p := range postings {
		if idx, exists := seen[p.URL]; exists {
			result[idx].NodeType = p.NodeType
			for _, lang := range p.Languages {
				if !slices.Contains(result[idx].Languages, lang) {
					result[idx].Languages = append(result[idx].Languages, lang)
				}
			}
			continue
		}
		seen[p.URL] = len(result)
		langs := make([]string, 0, len(p.Languages))
		for _, lang := range p.Languages {
			if !slices.Contains(langs, lang) {
				langs = append(langs, lang)
			}
		}
		result = append(result, ContextualizedURL{
			URL:       p.URL,
			NodeType:  p.NodeType,
			Languages: langs,
		})
	}
	for i := range result {
		sort.Strings(result[i].Languages)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].URL < result[j].URL
	})
	return result
}
