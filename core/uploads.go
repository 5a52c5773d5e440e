package core

import (
	"context"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// UploadStore is any blob store keyed by stored filename.
type UploadStore interface {
	Save(ctx context.Context, key string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeFilename strips any path components and replaces characters outside
// [A-Za-z0-9._-] so the result is safe as a storage key segment.
func SafeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "upload"
	}
	return name
}

// UploadKey derives a unique storage key for an uploaded file.
func UploadKey(filename string) string {
	return uuid.New().String() + "_" + SafeFilename(filename)
}
