// Package handlers wires the gateway's HTTP surface: admission
// heuristics, identity or token gating, rate limiting, range-aware
// streaming, thumbnails, documents, and abuse reports.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"porthole/internal/config"
	"porthole/internal/guard"
	"porthole/internal/ratelimit"
	"porthole/internal/storage"
	"porthole/internal/thumbs"
	"porthole/internal/tokens"
	"porthole/pkg/clients/identity"
	"porthole/pkg/clients/lookout"
	"porthole/pkg/ctxkeys"
	"porthole/pkg/logging"
	"porthole/pkg/middleware"
)

// SessionCookieName carries the opaque session credential the Identity
// Service understands.
const SessionCookieName = "porthole_session"

// IdentityResolver is the slice of the identity client the handlers use.
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (identity.Identity, error)
}

// ReportSink forwards abuse reports to the external collector.
type ReportSink interface {
	Submit(ctx context.Context, report lookout.Report) error
}

// Handlers holds the gateway's request-scoped collaborators.
type Handlers struct {
	logger logging.Logger
	cfg    config.Config

	codec  *tokens.Codec
	filter *guard.Filter

	mediaLimiter  *ratelimit.Limiter
	reportLimiter *ratelimit.Limiter

	media     storage.Store
	documents storage.Store
	thumbs    *thumbs.Resolver

	identity IdentityResolver
	// reports is nil when no collector is configured; submissions are
	// then logged and dropped.
	reports ReportSink

	metrics *Metrics
}

// New assembles the handler set.
func New(
	logger logging.Logger,
	cfg config.Config,
	codec *tokens.Codec,
	filter *guard.Filter,
	mediaLimiter, reportLimiter *ratelimit.Limiter,
	media, documents storage.Store,
	thumbResolver *thumbs.Resolver,
	identityClient IdentityResolver,
	reportSink ReportSink,
	metrics *Metrics,
) *Handlers {
	return &Handlers{
		logger:        logger,
		cfg:           cfg,
		codec:         codec,
		filter:        filter,
		mediaLimiter:  mediaLimiter,
		reportLimiter: reportLimiter,
		media:         media,
		documents:     documents,
		thumbs:        thumbResolver,
		identity:      identityClient,
		reports:       reportSink,
		metrics:       metrics,
	}
}

// RegisterRoutes binds the HTTP surface onto the router.
func (h *Handlers) RegisterRoutes(r *gin.Engine) {
	mediaGroup := r.Group("/media")
	{
		mediaGroup.GET("/video/:id", h.GetVideo)
		mediaGroup.HEAD("/video/:id", h.HeadVideo)
		mediaGroup.GET("/video/:id/thumbnail", h.GetThumbnail)
		mediaGroup.GET("/document/:id", h.GetDocument)
	}
	r.POST("/security/report", h.PostReport)
}

// abort writes a terse error payload. Specifics stay in server logs;
// clients get at most a short reason phrase.
func (h *Handlers) abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// sessionCredential pulls the opaque session credential from the cookie,
// falling back to a bearer header for non-browser API consumers.
func sessionCredential(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}
	auth := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}

// resolveSession exchanges the request's session credential for a user
// id. Empty string means unauthenticated.
func (h *Handlers) resolveSession(c *gin.Context) string {
	credential := sessionCredential(c)
	if credential == "" {
		return ""
	}
	ident, err := h.identity.Resolve(c.Request.Context(), credential)
	if err != nil {
		middleware.GetContextLogger(c, h.logger).WithError(err).Debug("Session resolution failed")
		return ""
	}
	return ident.UserID
}

// setIdentity records the authenticated principal for request logging.
func setIdentity(c *gin.Context, userID, authType string) {
	c.Set(string(ctxkeys.KeyUserID), userID)
	c.Set(string(ctxkeys.KeyAuthType), authType)
}

// enforceRateLimit admits or rejects against the limiter, stamping the
// X-RateLimit-* headers either way.
func (h *Handlers) enforceRateLimit(c *gin.Context, limiter *ratelimit.Limiter, identityKey string) bool {
	allowed, remaining, resetSeconds := limiter.Allow(identityKey)

	c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Max()))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
	c.Header("X-RateLimit-Reset", strconv.Itoa(resetSeconds))

	if !allowed {
		h.metrics.RateLimited(c.FullPath())
		c.Header("Retry-After", strconv.Itoa(resetSeconds))
		h.abort(c, http.StatusTooManyRequests, "too many requests")
		return false
	}
	return true
}

// rateLimitIdentity keys the limiter by user when authenticated, by
// client address otherwise.
func rateLimitIdentity(c *gin.Context, userID string) string {
	if userID != "" {
		return userID
	}
	return c.ClientIP()
}
