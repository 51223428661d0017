package main

import (
	"net/http"
	"time"

	"porthole/internal/config"
	"porthole/internal/guard"
	"porthole/internal/handlers"
	"porthole/internal/ratelimit"
	"porthole/internal/storage"
	"porthole/internal/thumbs"
	"porthole/internal/tokens"
	"porthole/pkg/clients/identity"
	"porthole/pkg/clients/lookout"
	pkgconfig "porthole/pkg/config"
	"porthole/pkg/logging"
	"porthole/pkg/monitoring"
	"porthole/pkg/server"
	"porthole/pkg/version"
)

func main() {
	logger := logging.NewLoggerWithService("porthole")
	pkgconfig.LoadEnv(logger)

	cfg := config.Load()

	logger.WithFields(logging.Fields{
		"version":    version.Version,
		"commit":     version.GetShortCommit(),
		"media_root": cfg.MediaRoot,
	}).Info("Starting Porthole media gateway")

	codec := tokens.NewCodec(cfg.PlaybackTokenTTL, cfg.MediaURLTokenTTL, cfg.MediaURLTokenBucket)
	filter := guard.NewFilter(cfg.PublicHostname, cfg.UserAgentDenyList, cfg.BrowserTokens)

	mediaLimiter := ratelimit.New(ratelimit.Config{
		Max:    cfg.MediaRateLimit,
		Window: cfg.RateWindow,
		Logger: logger,
	})
	defer mediaLimiter.Stop()

	reportLimiter := ratelimit.New(ratelimit.Config{
		Max:    cfg.ReportRateLimit,
		Window: cfg.RateWindow,
		Logger: logger,
	})
	defer reportLimiter.Stop()

	mediaStore := storage.NewFilesystemStore(cfg.MediaRoot)
	documentStore := storage.NewFilesystemStore(cfg.DocumentRoot)
	thumbResolver := thumbs.NewResolver(mediaStore)

	identityClient := identity.NewClient(cfg.IdentityURL, identity.WithTimeout(cfg.IdentityTimeout))

	var reportSink handlers.ReportSink
	if cfg.LookoutURL != "" {
		reportSink = lookout.NewClient(cfg.LookoutURL)
	} else {
		logger.Warn("LOOKOUT_URL not set, abuse reports will be accepted but not forwarded")
	}

	healthChecker := monitoring.NewHealthChecker("porthole", version.Version)
	healthChecker.AddCheck("media_root", monitoring.DirectoryHealthCheck(cfg.MediaRoot))
	healthChecker.AddCheck("document_root", monitoring.DirectoryHealthCheck(cfg.DocumentRoot))
	healthChecker.AddCheck("identity", monitoring.HTTPHealthCheck(
		&http.Client{Timeout: 5 * time.Second},
		cfg.IdentityURL+"/health",
	))

	metricsCollector := monitoring.NewMetricsCollector("porthole", version.Version, version.GitCommit)

	h := handlers.New(
		logger, cfg, codec, filter,
		mediaLimiter, reportLimiter,
		mediaStore, documentStore,
		thumbResolver,
		identityClient, reportSink,
		handlers.NewMetrics(metricsCollector),
	)

	router := server.SetupRouter(logger)
	router.Use(metricsCollector.MetricsMiddleware())
	router.GET("/health", healthChecker.Handler())
	router.GET("/metrics", metricsCollector.Handler())
	h.RegisterRoutes(router)

	serverCfg := server.DefaultConfig("porthole", "18090")
	if err := server.Start(serverCfg, router, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
}
