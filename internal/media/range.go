// Package media implements the byte-range arithmetic behind seekable
// playback.
package media

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrInvalidRange covers both malformed range syntax and ranges that
// cannot be satisfied against the asset size. Either way the response is
// 416 with no body.
var ErrInvalidRange = errors.New("invalid byte range")

// ByteRange is a validated, clamped span within an asset.
// Invariant: 0 <= Start <= End < Total.
type ByteRange struct {
	Start int64
	End   int64
	Total int64
}

// Length is the number of bytes the span covers.
func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange renders the Content-Range header value for a 206.
func (r ByteRange) ContentRange() string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, r.Total)
}

// UnsatisfiedContentRange renders the Content-Range header value a 416
// carries so the client learns the asset size.
func UnsatisfiedContentRange(total int64) string {
	return fmt.Sprintf("bytes */%d", total)
}

// ParseRange interprets a Range request header against an asset of the
// given size. An empty header means the whole asset was requested and
// yields (nil, nil).
//
// Accepted form is a single span, "bytes=<start>-<end>", where an
// omitted start means the beginning of the asset and an omitted end
// means its last byte. End is clamped to size-1. Multipart range sets
// are not honored: seekable playback only ever asks for one span, so
// they are rejected as invalid. A start at or past the asset size is
// unsatisfiable.
func ParseRange(header string, total int64) (*ByteRange, error) {
	if header == "" {
		return nil, nil
	}
	if total <= 0 {
		return nil, ErrInvalidRange
	}

	spec, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !ok {
		return nil, ErrInvalidRange
	}
	if strings.Contains(spec, ",") {
		return nil, ErrInvalidRange
	}

	startStr, endStr, ok := strings.Cut(strings.TrimSpace(spec), "-")
	if !ok {
		return nil, ErrInvalidRange
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)
	if startStr == "" && endStr == "" {
		return nil, ErrInvalidRange
	}

	start := int64(0)
	if startStr != "" {
		parsed, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil || parsed < 0 {
			return nil, ErrInvalidRange
		}
		start = parsed
	}

	end := total - 1
	if endStr != "" {
		parsed, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || parsed < 0 {
			return nil, ErrInvalidRange
		}
		// A requested end past the asset clamps rather than fails.
		if parsed < end {
			end = parsed
		}
	}

	if start >= total {
		return nil, ErrInvalidRange
	}
	if start > end {
		return nil, ErrInvalidRange
	}

	return &ByteRange{Start: start, End: end, Total: total}, nil
}

// CopyRange streams exactly the span from src to dst. src must be
// positioned at the asset's beginning.
func CopyRange(dst io.Writer, src io.ReadSeeker, r ByteRange) error {
	if _, err := src.Seek(r.Start, io.SeekStart); err != nil {
		return fmt.Errorf("seeking to range start: %w", err)
	}
	if _, err := io.CopyN(dst, src, r.Length()); err != nil {
		return fmt.Errorf("copying range: %w", err)
	}
	return nil
}
