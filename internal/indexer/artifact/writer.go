// Package artifact writes the per-token and per-URL files loaded by the
// documentation search page. Every file is a JSONP call so that it can be
// fetched with a <script> tag from the local filesystem.
package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docindex/internal/indexer/index"
)

const (
	FragmentCallback = "fragment_downloaded_cb"
	URLsCallback     = "urls_downloaded_cb"
	FragmentExt      = ".fragment"
)

// ErrOutsideDir is returned for a URL or token whose file would land outside
// the directory it belongs in, e.g. an element id containing "../".
var ErrOutsideDir = errors.New("artifact path escapes its directory")

// Fragment is the JSON payload of a fragment file.
type Fragment struct {
	URL      string `json:"url"`
	Fragment string `json:"fragment"`
}

// URLEntry is one location of a token in a token file.
type URLEntry struct {
	URL      string     `json:"url"`
	NodeType string     `json:"node_type"`
	Context  URLContext `json:"context"`
}

type URLContext struct {
	Languages []string `json:"gi-language"`
}

// TokenURLs is the JSON payload of a token file.
type TokenURLs struct {
	Token string     `json:"token"`
	URLs  []URLEntry `json:"urls"`
}

// Writer writes token files into searchDir and fragment files into
// fragmentsDir. It is safe for concurrent use as long as callers never
// write the same file twice at once.
type Writer struct {
	searchDir    string
	fragmentsDir string
}

func NewWriter(searchDir, fragmentsDir string) *Writer {
	return &Writer{searchDir: searchDir, fragmentsDir: fragmentsDir}
}

// FragmentFileName maps a URL to its fragment file name, relative to the
// fragments directory.
func FragmentFileName(url string) string {
	return strings.ReplaceAll(url, "#", "-") + FragmentExt
}

// FragmentPath returns where the fragment of url is written.
func (w *Writer) FragmentPath(url string) (string, error) {
	return within(w.fragmentsDir, FragmentFileName(url))
}

// TokenPath returns where the URL list of token is written.
func (w *Writer) TokenPath(token string) (string, error) {
	return within(w.searchDir, token)
}

func within(dir, name string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(name))
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q", ErrOutsideDir, name)
	}
	return filepath.Join(dir, rel), nil
}

// WriteFragment writes the preview text of url. chunks are concatenated in
// order.
func (w *Writer) WriteFragment(url string, chunks []string) (string, error) {
	data, err := EncodeFragment(url, index.Join(chunks))
	if err != nil {
		return "", err
	}
	path, err := w.FragmentPath(url)
	if err != nil {
		return "", err
	}
	if err := writeFile(path, data); err != nil {
		return "", fmt.Errorf("writing fragment %s: %w", url, err)
	}
	return path, nil
}

// WriteURLs deduplicates postings and writes the URL list of token.
func (w *Writer) WriteURLs(token string, postings index.PostingList) (string, error) {
	data, err := EncodeURLs(token, index.Dedupe(postings))
	if err != nil {
		return "", err
	}
	path, err := w.TokenPath(token)
	if err != nil {
		return "", err
	}
	if err := writeFile(path, data); err != nil {
		return "", fmt.Errorf("writing token %s: %w", token, err)
	}
	return path, nil
}

// EncodeFragment renders a fragment file.
func EncodeFragment(url, text string) ([]byte, error) {
	return jsonp(FragmentCallback, Fragment{URL: url, Fragment: text})
}

// EncodeURLs renders a token file. postings are written in the given order.
func EncodeURLs(token string, postings index.PostingList) ([]byte, error) {
	payload := TokenURLs{Token: token, URLs: make([]URLEntry, 0, len(postings))}
	for _, p := range postings {
		langs := p.Languages
		if langs == nil {
			langs = []string{}
		}
		payload.URLs = append(payload.URLs, URLEntry{
			URL:      p.URL,
			NodeType: p.NodeType,
			Context:  URLContext{Languages: langs},
		})
	}
	return jsonp(URLsCallback, payload)
}

func jsonp(callback string, v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(callback)
	buf.WriteByte('(')
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("marshaling %s payload: %w", callback, err)
	}
	// Encode terminates the value with a newline.
	buf.Truncate(buf.Len() - 1)
	buf.WriteString(");")
	return buf.Bytes(), nil
}

// writeFile writes to a uniquely named temp file next to path and renames it
// into place. Token names may themselves end in ".tmp", so a fixed suffix
// could collide with another token's file.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	f, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := f.Name()
	_, err = f.Write(data)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmpPath, 0644)
	}
	if err == nil {
		err = os.Rename(tmpPath, path)
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
