package storage

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// FilesystemStore serves assets from a directory root.
type FilesystemStore struct {
	root string
}

// NewFilesystemStore creates a filesystem-backed store rooted at root.
func NewFilesystemStore(root string) *FilesystemStore {
	return &FilesystemStore{root: root}
}

// Stat resolves an asset by sanitized id.
func (s *FilesystemStore) Stat(id string) (MediaAsset, error) {
	clean := SanitizeID(id)
	if clean == "" {
		return MediaAsset{}, ErrEmptyID
	}

	path := filepath.Join(s.root, clean)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return MediaAsset{}, ErrNotFound
		}
		return MediaAsset{}, fmt.Errorf("stat %s: %w", clean, err)
	}
	if info.IsDir() {
		return MediaAsset{}, ErrNotFound
	}

	return MediaAsset{
		ID:        clean,
		LocalPath: path,
		ByteSize:  info.Size(),
		MimeType:  detectMime(path),
		ModTime:   info.ModTime(),
	}, nil
}

// Open opens an asset for reading. The returned handle must be closed by
// the caller.
func (s *FilesystemStore) Open(id string) (io.ReadSeekCloser, MediaAsset, error) {
	asset, err := s.Stat(id)
	if err != nil {
		return nil, MediaAsset{}, err
	}

	f, err := os.Open(asset.LocalPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, MediaAsset{}, ErrNotFound
		}
		return nil, MediaAsset{}, fmt.Errorf("open %s: %w", asset.ID, err)
	}
	return f, asset, nil
}

// Exists reports whether the exact sanitized name resolves to a file.
func (s *FilesystemStore) Exists(name string) bool {
	clean := SanitizeID(name)
	if clean == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(s.root, clean))
	return err == nil && !info.IsDir()
}

// detectMime prefers the extension table for the formats the gateway
// serves constantly, falling back to content sniffing for the rest.
// Sniffing reads file headers, so the fast path matters on the hot
// video route.
func detectMime(path string) string {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
		return byExt
	}
	if detected, err := mimetype.DetectFile(path); err == nil {
		return detected.String()
	}
	return "application/octet-stream"
}
