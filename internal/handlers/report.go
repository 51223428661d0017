package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"porthole/pkg/clients/lookout"
	"porthole/pkg/ctxkeys"
	"porthole/pkg/middleware"
)

type reportRequest struct {
	Type      string `json:"type" binding:"required"`
	UserID    string `json:"userId" binding:"required"`
	VideoID   string `json:"videoId"`
	Timestamp int64  `json:"timestamp" binding:"required"`
	Details   string `json:"details"`
}

// PostReport accepts an abuse report from an authenticated viewer and
// forwards it to the Lookout collector. Forwarding is best effort: the
// viewer gets an acceptance either way, since the report UI should not
// surface collector outages.
func (h *Handlers) PostReport(c *gin.Context) {
	log := middleware.GetContextLogger(c, h.logger)

	userID := h.resolveSession(c)
	if userID == "" {
		h.metrics.AuthFailed()
		h.abort(c, http.StatusUnauthorized, "authentication required")
		return
	}
	setIdentity(c, userID, ctxkeys.AuthTypeSession)

	if !h.enforceRateLimit(c, h.reportLimiter, userID) {
		return
	}

	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.abort(c, http.StatusBadRequest, "invalid report payload")
		return
	}

	// Reports are only accepted on the reporter's own behalf.
	if req.UserID != userID {
		log.WithField("claimed_user_id", req.UserID).Warn("Report user id does not match session")
		h.abort(c, http.StatusForbidden, "forbidden")
		return
	}

	report := lookout.Report{
		Type:      req.Type,
		UserID:    req.UserID,
		VideoID:   req.VideoID,
		Timestamp: req.Timestamp,
		Details:   req.Details,
		ClientIP:  c.ClientIP(),
	}

	if h.reports == nil {
		log.WithField("type", req.Type).Info("No report collector configured, dropping report")
		h.metrics.ReportForwarded("disabled")
	} else if err := h.reports.Submit(c.Request.Context(), report); err != nil {
		log.WithError(err).WithField("type", req.Type).Error("Failed to forward abuse report")
		h.metrics.ReportForwarded("error")
	} else {
		h.metrics.ReportForwarded("ok")
	}

	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}
