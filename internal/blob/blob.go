// Package blob stores uploaded media and synthesized audio, either on the
// local filesystem or in a MinIO bucket.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrInvalidKey is returned for empty keys and keys escaping the store root.
var ErrInvalidKey = errors.New("invalid blob key")

// Store persists objects under slash-separated keys such as
// "audio/translated_wagwan.mp3".
type Store interface {
	// Put writes r under key and returns the key it was stored as. size may
	// be -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	// Open returns the object contents. The caller closes the reader.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// URL returns an address a browser can fetch the object from.
	URL(ctx context.Context, key string) (string, error)
}

// CleanKey normalizes key and rejects traversal outside the store.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, `\`, "/"))
	if key == "" {
		return "", ErrInvalidKey
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+key), "/")
	if cleaned == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}
