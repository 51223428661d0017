package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetThumbnail(t *testing.T) {
	env := newTestEnv(t, nil)
	env.media.add("lesson-01.mp4", "video/mp4", []byte("0123456789"))
	env.media.add("lesson-01_thumbnail.jpg", "image/jpeg", []byte("jpeg-bytes"))

	w := env.do(withSession(browserRequest("GET", "/media/video/lesson-01.mp4/thumbnail", nil)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jpeg-bytes", w.Body.String())
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=3600, immutable", w.Header().Get("Cache-Control"))
	assert.NotEmpty(t, w.Header().Get("ETag"))
}

func TestGetThumbnailNotModified(t *testing.T) {
	env := newTestEnv(t, nil)
	env.media.add("lesson-01_thumbnail.jpg", "image/jpeg", []byte("jpeg-bytes"))

	first := env.do(withSession(browserRequest("GET", "/media/video/lesson-01.mp4/thumbnail", nil)))
	require.Equal(t, http.StatusOK, first.Code)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := withSession(browserRequest("GET", "/media/video/lesson-01.mp4/thumbnail", nil))
	req.Header.Set("If-None-Match", etag)
	w := env.do(req)

	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestGetThumbnailPlaceholder(t *testing.T) {
	env := newTestEnv(t, nil)
	env.media.add("lesson-01.mp4", "video/mp4", []byte("0123456789"))

	w := env.do(withSession(browserRequest("GET", "/media/video/lesson-01.mp4/thumbnail", nil)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "<svg"))
	assert.Contains(t, w.Body.String(), "lesson-01")
}

func TestGetThumbnailWithToken(t *testing.T) {
	env := newTestEnv(t, nil)
	env.media.add("lesson-01.jpg", "image/jpeg", []byte("legacy-thumb"))

	token := env.codec.Encode(env.codec.Issue("lesson-01.mp4", ""))
	w := env.do(browserRequest("GET", "/media/video/lesson-01.mp4/thumbnail?token="+url.QueryEscape(token), nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "legacy-thumb", w.Body.String())
}

func TestGetThumbnailWithoutCredentials(t *testing.T) {
	env := newTestEnv(t, nil)
	env.media.add("lesson-01_thumbnail.jpg", "image/jpeg", []byte("jpeg-bytes"))

	w := env.do(browserRequest("GET", "/media/video/lesson-01.mp4/thumbnail", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
