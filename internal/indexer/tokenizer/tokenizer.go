// Package tokenizer provides text tokenisation for the documentation index.
// It extracts identifier-like runs (letters, digits, underscores and dots),
// removes stop-words, and emits a lowercase twin for every mixed-case token
// so searches can match either spelling.
package tokenizer

import (
	"bufio"
	"iter"
	"os"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/docindex/pkg/errors"
)

// Token is a single indexable term. Lower is set on the lowercase twin
// emitted after a token that contains uppercase letters.
type Token struct {
	Term  string
	Lower bool
}

// StopWords is a set of lowercase words excluded from the index.
type StopWords map[string]struct{}

// NewStopWords builds a set from the given words.
func NewStopWords(words ...string) StopWords {
	sw := make(StopWords, len(words))
	for _, w := range words {
		sw[w] = struct{}{}
	}
	return sw
}

// Contains reports whether word is a stop word.
func (sw StopWords) Contains(word string) bool {
	_, ok := sw[word]
	return ok
}

// LoadStopWords reads a newline-delimited stop-word list, one word per line.
// Empty lines are ignored.
func LoadStopWords(path string) (StopWords, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrStopWords, apperrors.ExitFailure, "opening %s: %v", path, err)
	}
	defer f.Close()

	sw := make(StopWords)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := scanner.Text()
		if word == "" {
			continue
		}
		sw[word] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.Newf(apperrors.ErrStopWords, apperrors.ExitFailure, "reading %s: %v", path, err)
	}
	return sw, nil
}

func isStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isPart(c byte) bool {
	return isStart(c) || (c >= '0' && c <= '9') || c == '.'
}

// Tokens lazily yields the tokens of text. A token starts at an ASCII letter
// or underscore and runs through letters, digits, underscores and dots;
// trailing dots are dropped. A token whose lowercase form is a stop word is
// skipped in both spellings.
func Tokens(text string, stop StopWords) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		i := 0
		for i < len(text) {
			for i < len(text) && !isStart(text[i]) {
				i++
			}
			if i == len(text) {
				return
			}
			j := i + 1
			for j < len(text) && isPart(text[j]) {
				j++
			}
			term := strings.TrimRight(text[i:j], ".")
			i = j

			lower := strings.ToLower(term)
			if stop.Contains(lower) {
				continue
			}
			if !yield(Token{Term: term}) {
				return
			}
			if lower != term {
				if !yield(Token{Term: lower, Lower: true}) {
					return
				}
			}
		}
	}
}

// Tokenize collects Tokens into a slice.
func Tokenize(text string, stop StopWords) []Token {
	tokens := make([]Token, 0, len(text)/8)
	for tok := range Tokens(text, stop) {
		tokens = append(tokens, tok)
	}
	return tokens
}
