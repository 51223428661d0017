package config

import (
	"time"

	pkgconfig "porthole/pkg/config"
)

// Config carries the gateway's runtime policy. The numeric knobs mirror
// the empirically tuned production values; none of them is a hard
// invariant, so every one is overridable from the environment.
type Config struct {
	// PublicHostname is the deployment's externally visible host,
	// accepted by the origin/referer check alongside localhost.
	PublicHostname string

	// MediaRoot holds video assets and their thumbnails.
	MediaRoot string
	// DocumentRoot holds course documents. Defaults under MediaRoot.
	DocumentRoot string

	// OriginURL is the upstream media origin used for fallback redirects.
	OriginURL string

	// IdentityURL is the external Identity Service base URL.
	IdentityURL     string
	IdentityTimeout time.Duration

	// LookoutURL is the abuse-report collector. Empty disables forwarding.
	LookoutURL string

	// PlaybackTokenTTL bounds tokens minted for playback redirects.
	PlaybackTokenTTL time.Duration
	// MediaURLTokenTTL bounds tokens embedded in general media URLs.
	MediaURLTokenTTL time.Duration
	// MediaURLTokenBucket periodizes media-URL token issuance so
	// otherwise-identical URLs stay cacheable.
	MediaURLTokenBucket time.Duration

	// MediaRateLimit and ReportRateLimit are per-identity request
	// ceilings within RateWindow.
	MediaRateLimit  int
	ReportRateLimit int
	RateWindow      time.Duration

	// UserAgentDenyList rejects known non-browser clients.
	UserAgentDenyList []string
	// BrowserTokens is the allow side of the user-agent check: at least
	// one must appear in the UA string.
	BrowserTokens []string
}

var defaultUserAgentDenyList = []string{
	"curl", "wget", "python-requests", "python-urllib", "go-http-client",
	"scrapy", "ffmpeg", "aria2", "youtube-dl", "yt-dlp", "httpie",
	"postman", "insomnia", "java/", "okhttp", "libwww", "winhttp",
	"axios", "node-fetch", "bot", "crawler", "spider", "headless",
}

var defaultBrowserTokens = []string{
	"mozilla", "gecko", "webkit", "chrome", "safari", "firefox", "edg", "opera",
}

// Load reads the gateway configuration from the environment.
func Load() Config {
	mediaRoot := pkgconfig.GetEnv("MEDIA_ROOT", "/var/lib/porthole/media")
	return Config{
		PublicHostname: pkgconfig.GetEnv("PUBLIC_HOSTNAME", ""),

		MediaRoot:    mediaRoot,
		DocumentRoot: pkgconfig.GetEnv("DOCUMENT_ROOT", mediaRoot+"/documents"),

		OriginURL: pkgconfig.GetEnv("ORIGIN_URL", ""),

		IdentityURL:     pkgconfig.GetEnv("IDENTITY_URL", "http://identity:18080"),
		IdentityTimeout: pkgconfig.GetEnvDuration("IDENTITY_TIMEOUT", 5*time.Second),

		LookoutURL: pkgconfig.GetEnv("LOOKOUT_URL", ""),

		PlaybackTokenTTL:    pkgconfig.GetEnvDuration("PLAYBACK_TOKEN_TTL", 20*time.Minute),
		MediaURLTokenTTL:    pkgconfig.GetEnvDuration("MEDIA_URL_TOKEN_TTL", 4*time.Hour),
		MediaURLTokenBucket: pkgconfig.GetEnvDuration("MEDIA_URL_TOKEN_BUCKET", 15*time.Minute),

		MediaRateLimit:  pkgconfig.GetEnvInt("MEDIA_RATE_LIMIT", 100),
		ReportRateLimit: pkgconfig.GetEnvInt("REPORT_RATE_LIMIT", 10),
		RateWindow:      pkgconfig.GetEnvDuration("RATE_WINDOW", time.Minute),

		UserAgentDenyList: pkgconfig.GetEnvList("UA_DENY_LIST", defaultUserAgentDenyList),
		BrowserTokens:     pkgconfig.GetEnvList("UA_BROWSER_TOKENS", defaultBrowserTokens),
	}
}
