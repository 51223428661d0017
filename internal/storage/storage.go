// Package storage resolves media assets on local storage by sanitized id.
package storage

import (
	"errors"
	"io"
	"regexp"
	"time"
)

var (
	// ErrNotFound means the asset is not present on local storage.
	ErrNotFound = errors.New("asset not found")
	// ErrEmptyID means the id sanitized down to nothing.
	ErrEmptyID = errors.New("empty asset id")
)

// MediaAsset describes a locally resolved asset. Resolved fresh per
// request; never cached or persisted.
type MediaAsset struct {
	ID        string
	LocalPath string
	ByteSize  int64
	MimeType  string
	ModTime   time.Time
}

// Store is the storage collaborator: stat and open over sanitized ids.
// The filesystem implementation is the production one; tests substitute
// doubles to assert the gateway touches storage only after admission.
type Store interface {
	// Stat resolves an asset by id. Returns ErrNotFound when absent and
	// ErrEmptyID when the id sanitizes to nothing.
	Stat(id string) (MediaAsset, error)
	// Open opens the asset's content for reading. The caller owns the
	// handle and must close it on every exit path.
	Open(id string) (io.ReadSeekCloser, MediaAsset, error)
	// Exists reports whether a file with the exact (sanitized) name is
	// present, without resolving full asset metadata.
	Exists(name string) bool
}

var unsafeIDChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeID strips every character outside [A-Za-z0-9._-]. Path
// separators and parent references cannot survive, so a sanitized id can
// never escape the storage root.
func SanitizeID(id string) string {
	return unsafeIDChars.ReplaceAllString(id, "")
}
