package handlers

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"porthole/internal/guard"
	"porthole/internal/media"
	"porthole/internal/storage"
	"porthole/internal/tokens"
	"porthole/pkg/ctxkeys"
	"porthole/pkg/logging"
	"porthole/pkg/middleware"
)

// GetVideo streams a protected video, honoring single-span Range
// requests. Requests failing the abuse heuristics are rejected before
// any credential or disk work happens, and assets missing locally
// redirect to the origin server.
func (h *Handlers) GetVideo(c *gin.Context) {
	h.serveVideo(c, false)
}

// HeadVideo mirrors GetVideo's headers without a body. A locally
// missing asset is a plain 404; probes never mint origin tokens.
func (h *Handlers) HeadVideo(c *gin.Context) {
	h.serveVideo(c, true)
}

func (h *Handlers) serveVideo(c *gin.Context, headOnly bool) {
	log := middleware.GetContextLogger(c, h.logger)

	assetID := storage.SanitizeID(c.Param("id"))
	if assetID == "" {
		h.abort(c, http.StatusBadRequest, "invalid asset id")
		return
	}
	c.Set(string(ctxkeys.KeyAssetID), assetID)

	if !h.admit(c, log) {
		return
	}

	userID, suppliedToken, ok := h.authorizeMedia(c, log, assetID)
	if !ok {
		return
	}

	if !h.enforceRateLimit(c, h.mediaLimiter, rateLimitIdentity(c, userID)) {
		return
	}

	asset, err := h.media.Stat(assetID)
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrEmptyID) {
		if headOnly {
			h.abort(c, http.StatusNotFound, "not found")
			return
		}
		h.redirectToOrigin(c, log, assetID, userID, suppliedToken)
		return
	}
	if err != nil {
		log.WithError(err).WithField("asset_id", assetID).Error("Failed to stat media asset")
		h.abort(c, http.StatusInternalServerError, "internal error")
		return
	}

	h.streamAsset(c, log, h.media, asset, headOnly)
}

// admit runs the abuse heuristics against the request envelope. A
// rejection names the failed check, nothing more; the matched detail
// stays in logs and metrics.
func (h *Handlers) admit(c *gin.Context, log *logging.Entry) bool {
	verdict := h.filter.Check(guard.Request{
		Origin:    c.GetHeader("Origin"),
		Referer:   c.GetHeader("Referer"),
		Host:      c.Request.Host,
		UserAgent: c.Request.UserAgent(),
		ClientIP:  c.ClientIP(),
	})
	if verdict.Allowed {
		return true
	}

	h.metrics.HeuristicRejected(string(verdict.Reason))
	log.WithFields(logging.Fields{
		"check":     verdict.Reason,
		"detail":    verdict.Detail,
		"client_ip": c.ClientIP(),
	}).Warn("Request rejected by abuse heuristics")
	h.abort(c, http.StatusForbidden, "forbidden: "+string(verdict.Reason)+" check failed")
	return false
}

// authorizeMedia accepts either an Identity Service session or a signed
// playback token scoped to the asset. It returns the resolved user id
// (empty for anonymous tokens) and the token the caller supplied, so a
// still-valid token can be reused on an origin redirect.
func (h *Handlers) authorizeMedia(c *gin.Context, log *logging.Entry, assetID string) (userID, suppliedToken string, ok bool) {
	if userID := h.resolveSession(c); userID != "" {
		setIdentity(c, userID, ctxkeys.AuthTypeSession)
		return userID, "", true
	}

	if encoded := c.Query("token"); encoded != "" {
		t, err := h.codec.Validate(encoded, assetID)
		if err != nil {
			reason := tokenFailureReason(err)
			h.metrics.TokenFailed(reason)
			log.WithFields(logging.Fields{
				"asset_id": assetID,
				"reason":   reason,
			}).Info("Rejected media token")
			// A well-formed token naming the wrong asset, or one past
			// its lifetime, is an authorization failure. Garbage is an
			// authentication failure.
			status := http.StatusForbidden
			if reason == "malformed" {
				status = http.StatusUnauthorized
			}
			h.abort(c, status, "invalid token")
			return "", "", false
		}
		setIdentity(c, t.UserID, ctxkeys.AuthTypeToken)
		return t.UserID, encoded, true
	}

	h.metrics.AuthFailed()
	h.abort(c, http.StatusUnauthorized, "authentication required")
	return "", "", false
}

func tokenFailureReason(err error) string {
	switch {
	case errors.Is(err, tokens.ErrExpired):
		return "expired"
	case errors.Is(err, tokens.ErrAssetMismatch):
		return "scope"
	default:
		return "malformed"
	}
}

// redirectToOrigin hands the request to the origin server with a token
// it can validate. The caller's own token is reused when it got them
// this far; session callers get a freshly minted playback token, the
// short-lived grant for exactly one redirect hop.
func (h *Handlers) redirectToOrigin(c *gin.Context, log *logging.Entry, assetID, userID, suppliedToken string) {
	if h.cfg.OriginURL == "" {
		h.abort(c, http.StatusNotFound, "not found")
		return
	}

	encoded := suppliedToken
	if encoded == "" {
		encoded = h.codec.Encode(h.codec.Issue(assetID, userID))
	}

	target := strings.TrimSuffix(h.cfg.OriginURL, "/") +
		"/media/video/" + url.PathEscape(assetID) +
		"?token=" + url.QueryEscape(encoded)

	h.metrics.FallbackRedirect()
	log.WithField("asset_id", assetID).Info("Redirecting to origin server")
	c.Redirect(http.StatusTemporaryRedirect, target)
}

// streamAsset writes the asset, or the requested span of it, to the
// client. Media responses are never shared-cacheable: tokens in query
// strings make cached URLs replayable.
func (h *Handlers) streamAsset(c *gin.Context, log *logging.Entry, store storage.Store, asset storage.MediaAsset, headOnly bool) {
	c.Header("Accept-Ranges", "bytes")
	c.Header("Cache-Control", "private, no-store")

	byteRange, err := media.ParseRange(c.GetHeader("Range"), asset.ByteSize)
	if err != nil {
		h.metrics.RangeRequest("invalid")
		// 416 carries the asset size and nothing else.
		c.Header("Content-Range", media.UnsatisfiedContentRange(asset.ByteSize))
		c.AbortWithStatus(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	c.Header("Content-Type", asset.MimeType)
	c.Header("Last-Modified", asset.ModTime.UTC().Format(http.TimeFormat))

	status := http.StatusOK
	length := asset.ByteSize
	if byteRange != nil {
		status = http.StatusPartialContent
		length = byteRange.Length()
		c.Header("Content-Range", byteRange.ContentRange())
		h.metrics.RangeRequest("partial")
	} else {
		h.metrics.RangeRequest("full")
	}
	c.Header("Content-Length", strconv.FormatInt(length, 10))

	if headOnly {
		c.Status(status)
		return
	}

	f, _, err := store.Open(asset.ID)
	if err != nil {
		log.WithError(err).WithField("asset_id", asset.ID).Error("Failed to open media asset")
		h.abort(c, http.StatusInternalServerError, "internal error")
		return
	}
	defer f.Close() //nolint:errcheck // read-only handle

	c.Status(status)
	if byteRange != nil {
		err = media.CopyRange(c.Writer, f, *byteRange)
	} else {
		_, err = io.Copy(c.Writer, f)
	}
	if err != nil {
		// Headers are already on the wire; the usual cause is the
		// player seeking away mid-stream.
		log.WithError(err).WithField("asset_id", asset.ID).Debug("Media stream ended early")
		return
	}
	h.metrics.BytesStreamed(length)
}
