package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"porthole/internal/storage"
	"porthole/pkg/ctxkeys"
	"porthole/pkg/middleware"
)

// GetDocument serves a protected document. Documents have no playback
// token flow; only an Identity Service session opens them. The download
// query switches the disposition from inline viewing to a file save.
func (h *Handlers) GetDocument(c *gin.Context) {
	log := middleware.GetContextLogger(c, h.logger)

	assetID := storage.SanitizeID(c.Param("id"))
	if assetID == "" {
		h.abort(c, http.StatusBadRequest, "invalid asset id")
		return
	}
	c.Set(string(ctxkeys.KeyAssetID), assetID)

	userID := h.resolveSession(c)
	if userID == "" {
		h.metrics.AuthFailed()
		h.abort(c, http.StatusUnauthorized, "authentication required")
		return
	}
	setIdentity(c, userID, ctxkeys.AuthTypeSession)

	asset, err := h.documents.Stat(assetID)
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrEmptyID) {
		h.abort(c, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		log.WithError(err).WithField("asset_id", assetID).Error("Failed to stat document")
		h.abort(c, http.StatusInternalServerError, "internal error")
		return
	}

	disposition := "inline"
	if c.Query("download") == "true" {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, asset.ID))

	h.streamAsset(c, log, h.documents, asset, false)
}
