// Package storage keeps the image files that questions and answers point at.
package storage

import (
	"errors"
	"io"
	"path"
	"strings"
)

var (
	ErrBadKey   = errors.New("invalid asset key")
	ErrNotFound = errors.New("asset not found")
)

type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	URL(key string) string // public URL under /assets
}

// CleanKey normalizes an asset key to a slash-separated relative path and
// rejects keys that escape the store.
func CleanKey(key string) (string, error) {
	k := strings.TrimPrefix(strings.ReplaceAll(key, "\\", "/"), "/")
	if k == "" {
		return "", ErrBadKey
	}
	c := path.Clean(k)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", ErrBadKey
	}
	return c, nil
}
