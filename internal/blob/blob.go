// Package blob stores uploaded article documents.
package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

// DefaultBucket holds every article PDF.
const DefaultBucket = "article-pdfs"

var ErrNotFound = errors.New("object not found")

// Store is the object-store collaborator.
type Store interface {
	// Upload writes data under key and returns the stored path.
	Upload(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error)
	// PublicURL returns a URL a browser can fetch the object from.
	PublicURL(ctx context.Context, bucket, path string) (string, error)
	Get(ctx context.Context, bucket, path string) ([]byte, error)
	Remove(ctx context.Context, bucket, path string) error
	// List returns every stored path in bucket.
	List(ctx context.Context, bucket string) ([]string, error)
}

const (
	maxFilename = 120
	maxExt      = 16
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename keeps the base name of an uploaded file, replacing runs
// of anything outside [A-Za-z0-9._-] with a single dash.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeChars.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-.")
	if name == "" {
		return "document.pdf"
	}
	if len(name) > maxFilename {
		ext := path.Ext(name)
		if len(ext) > maxExt {
			ext = ext[:maxExt]
		}
		name = name[:maxFilename-len(ext)] + ext
	}
	return name
}

// GenerateKey derives a collision-resistant object key from the upload time
// and the original filename.
func GenerateKey(now time.Time, filename string) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), SanitizeFilename(filename))
}
