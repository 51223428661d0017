package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"porthole/internal/storage"
	"porthole/internal/thumbs"
	"porthole/pkg/ctxkeys"
	"porthole/pkg/middleware"
)

const (
	// Thumbnails carry no token in their cacheable form, so shared
	// caches may hold them briefly.
	thumbnailCacheControl   = "public, max-age=3600, immutable"
	placeholderCacheControl = "public, max-age=300"
)

// GetThumbnail serves a video's thumbnail image, or a generated
// placeholder when no image exists on disk. The endpoint never 404s:
// grids of thumbnails should render fully even for assets whose artwork
// was never uploaded.
func (h *Handlers) GetThumbnail(c *gin.Context) {
	log := middleware.GetContextLogger(c, h.logger)

	assetID := storage.SanitizeID(c.Param("id"))
	if assetID == "" {
		h.abort(c, http.StatusBadRequest, "invalid asset id")
		return
	}
	c.Set(string(ctxkeys.KeyAssetID), assetID)

	if _, _, ok := h.authorizeMedia(c, log, assetID); !ok {
		return
	}

	resolution, err := h.thumbs.Resolve(c.Request.Context(), assetID)
	if err != nil {
		log.WithError(err).WithField("asset_id", assetID).Warn("Thumbnail resolution failed, serving placeholder")
	}
	if err != nil || !resolution.Found {
		h.servePlaceholder(c, assetID)
		return
	}

	etag := thumbs.ETag(resolution.Asset)
	c.Header("Cache-Control", thumbnailCacheControl)
	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}

	f, asset, err := h.media.Open(resolution.Asset.ID)
	if err != nil {
		log.WithError(err).WithField("asset_id", assetID).Warn("Thumbnail vanished after resolution, serving placeholder")
		h.servePlaceholder(c, assetID)
		return
	}
	defer f.Close() //nolint:errcheck // read-only handle

	c.Header("Content-Type", asset.MimeType)
	c.Header("Content-Length", strconv.FormatInt(asset.ByteSize, 10))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, f); err != nil {
		log.WithError(err).Debug("Thumbnail stream ended early")
	}
}

func (h *Handlers) servePlaceholder(c *gin.Context, assetID string) {
	h.metrics.PlaceholderServed()
	c.Header("Cache-Control", placeholderCacheControl)
	c.Data(http.StatusOK, thumbs.PlaceholderMimeType, thumbs.Placeholder(assetID))
}
