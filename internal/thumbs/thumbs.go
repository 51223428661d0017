// Package thumbs locates pre-generated video stills under the legacy
// naming conventions, or synthesizes a placeholder when none exists.
package thumbs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"porthole/internal/storage"
	"porthole/pkg/cache"
)

// Candidate is one (suffix, extension) naming convention.
type Candidate struct {
	Suffix string
	Ext    string
}

// DefaultCandidates covers every convention the thumbnail generators
// have used over the years, in probe order: suffixes crossed with
// extensions, newest convention first.
var DefaultCandidates = []Candidate{
	{"_thumbnail", ".jpg"}, {"_thumbnail", ".png"}, {"_thumbnail", ".webp"},
	{"_thumb", ".jpg"}, {"_thumb", ".png"}, {"_thumb", ".webp"},
	{"", ".jpg"}, {"", ".png"}, {"", ".webp"},
}

// BaseName strips the media extension from an asset id.
func BaseName(assetID string) string {
	if i := strings.LastIndex(assetID, "."); i > 0 {
		return assetID[:i]
	}
	return assetID
}

// CandidateNames expands a base name against a candidate list. Pure
// function so conventions stay testable and extensible.
func CandidateNames(base string, candidates []Candidate) []string {
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, base+c.Suffix+c.Ext)
	}
	return names
}

// Resolution is the outcome of a thumbnail lookup. Found=false means the
// caller serves a synthesized placeholder; the lookup itself never fails
// with "no thumbnail".
type Resolution struct {
	Found bool
	Asset storage.MediaAsset
}

// Resolver probes storage for thumbnail candidates, memoizing outcomes
// so a hot asset's nine-file probe happens once per TTL rather than once
// per request.
type Resolver struct {
	store      storage.Store
	candidates []Candidate
	cache      *cache.Cache
}

// NewResolver builds a resolver over the store using DefaultCandidates.
func NewResolver(store storage.Store) *Resolver {
	return &Resolver{
		store:      store,
		candidates: DefaultCandidates,
		cache: cache.New(cache.Options{
			TTL:         5 * time.Minute,
			NegativeTTL: 30 * time.Second,
			MaxEntries:  4096,
		}),
	}
}

// Resolve finds the thumbnail asset for a video id, or reports that a
// placeholder is needed. Storage errors other than absence surface to
// the caller.
func (r *Resolver) Resolve(ctx context.Context, assetID string) (Resolution, error) {
	base := BaseName(storage.SanitizeID(assetID))
	if base == "" {
		return Resolution{}, storage.ErrEmptyID
	}

	val, found, err := r.cache.Get(ctx, base, func(ctx context.Context, key string) (interface{}, bool, error) {
		for _, name := range CandidateNames(key, r.candidates) {
			if r.store.Exists(name) {
				return name, true, nil
			}
		}
		return nil, false, nil
	})
	if err != nil {
		return Resolution{}, err
	}
	if !found {
		return Resolution{Found: false}, nil
	}

	name := val.(string) //nolint:errcheck // loader only stores strings
	asset, err := r.store.Stat(name)
	if err != nil {
		// The file vanished between probe and stat. Drop the cached
		// name and fall back to the placeholder.
		r.cache.Invalidate(base)
		return Resolution{Found: false}, nil
	}
	return Resolution{Found: true, Asset: asset}, nil
}

// ETag derives a strong validator from what the filesystem already
// knows; content hashing would mean reading every thumbnail per request.
func ETag(asset storage.MediaAsset) string {
	return fmt.Sprintf("\"%x-%x\"", asset.ModTime.UnixNano(), asset.ByteSize)
}
