// Package storage puts uploaded files somewhere they can be downloaded from.
// S3Store targets any S3-compatible service; DiskStore writes to a local
// directory for development and tests.
package storage

import (
	"errors"
	"path"
	"strings"
)

// ErrInvalidKey is returned for keys that are empty or try to escape the
// store's root.
var ErrInvalidKey = errors.New("invalid object key")

// cleanKey normalises a slash-separated object key.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

// joinURL appends key to base with exactly one slash between them.
func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
