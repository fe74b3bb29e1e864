package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Reader loads artifacts written by a Writer back from disk.
type Reader struct {
	searchDir    string
	fragmentsDir string
}

func NewReader(searchDir, fragmentsDir string) *Reader {
	return &Reader{searchDir: searchDir, fragmentsDir: fragmentsDir}
}

// Fragment reads the fragment written for url.
func (r *Reader) Fragment(url string) (*Fragment, error) {
	w := Writer{searchDir: r.searchDir, fragmentsDir: r.fragmentsDir}
	path, err := w.FragmentPath(url)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening fragment file: %w", err)
	}
	var f Fragment
	if err := DecodeJSONP(FragmentCallback, data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Token reads the URL list written for token. It returns nil, nil when the
// token was never written.
func (r *Reader) Token(token string) (*TokenURLs, error) {
	w := Writer{searchDir: r.searchDir, fragmentsDir: r.fragmentsDir}
	path, err := w.TokenPath(token)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening token file: %w", err)
	}
	var t TokenURLs
	if err := DecodeJSONP(URLsCallback, data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DecodeJSONP unwraps callback(<json>); and unmarshals the payload into v.
func DecodeJSONP(callback string, data []byte, v any) error {
	prefix := []byte(callback + "(")
	suffix := []byte(");")
	if !bytes.HasPrefix(data, prefix) || !bytes.HasSuffix(data, suffix) {
		return fmt.Errorf("invalid %s file: missing wrapper", callback)
	}
	payload := data[len(prefix) : len(data)-len(suffix)]
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("parsing %s payload: %w", callback, err)
	}
	return nil
}
