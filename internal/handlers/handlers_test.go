package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"porthole/internal/config"
	"porthole/internal/guard"
	"porthole/internal/ratelimit"
	"porthole/internal/storage"
	"porthole/internal/thumbs"
	"porthole/internal/tokens"
	"porthole/pkg/clients/identity"
	"porthole/pkg/clients/lookout"
	"porthole/pkg/logging"
	"porthole/pkg/middleware"
)

const (
	testHost      = "media.example.test"
	testBrowserUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
)

type nopReadSeekCloser struct {
	*bytes.Reader
}

func (nopReadSeekCloser) Close() error { return nil }

// fakeStore serves assets from memory and counts accesses so tests can
// assert that storage stays untouched behind failed gates.
type fakeStore struct {
	files     map[string][]byte
	mimeTypes map[string]string
	modTime   time.Time

	statCalls int
	openCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		files:     make(map[string][]byte),
		mimeTypes: make(map[string]string),
		modTime:   time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
	}
}

func (s *fakeStore) add(name, mimeType string, content []byte) {
	s.files[name] = content
	s.mimeTypes[name] = mimeType
}

func (s *fakeStore) asset(name string) storage.MediaAsset {
	return storage.MediaAsset{
		ID:       name,
		ByteSize: int64(len(s.files[name])),
		MimeType: s.mimeTypes[name],
		ModTime:  s.modTime,
	}
}

func (s *fakeStore) Stat(id string) (storage.MediaAsset, error) {
	s.statCalls++
	if _, ok := s.files[id]; !ok {
		return storage.MediaAsset{}, storage.ErrNotFound
	}
	return s.asset(id), nil
}

func (s *fakeStore) Open(id string) (io.ReadSeekCloser, storage.MediaAsset, error) {
	s.openCalls++
	content, ok := s.files[id]
	if !ok {
		return nil, storage.MediaAsset{}, storage.ErrNotFound
	}
	return nopReadSeekCloser{bytes.NewReader(content)}, s.asset(id), nil
}

func (s *fakeStore) Exists(name string) bool {
	_, ok := s.files[name]
	return ok
}

type fakeIdentity struct {
	sessions map[string]string
}

func (f *fakeIdentity) Resolve(_ context.Context, credential string) (identity.Identity, error) {
	if userID, ok := f.sessions[credential]; ok {
		return identity.Identity{UserID: userID}, nil
	}
	return identity.Identity{}, identity.ErrUnauthenticated
}

type captureSink struct {
	reports []lookout.Report
	err     error
}

func (s *captureSink) Submit(_ context.Context, report lookout.Report) error {
	if s.err != nil {
		return s.err
	}
	s.reports = append(s.reports, report)
	return nil
}

type testEnv struct {
	router *gin.Engine
	codec  *tokens.Codec
	media  *fakeStore
	docs   *fakeStore
	sink   *captureSink
	cfg    config.Config
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Load()
	cfg.PublicHostname = testHost
	cfg.OriginURL = ""
	if mutate != nil {
		mutate(&cfg)
	}

	logger := logging.NewLogger()
	logger.SetOutput(io.Discard)

	codec := tokens.NewCodec(cfg.PlaybackTokenTTL, cfg.MediaURLTokenTTL, cfg.MediaURLTokenBucket)
	filter := guard.NewFilter(cfg.PublicHostname, cfg.UserAgentDenyList, cfg.BrowserTokens)

	mediaLimiter := ratelimit.New(ratelimit.Config{Max: cfg.MediaRateLimit, Window: cfg.RateWindow})
	reportLimiter := ratelimit.New(ratelimit.Config{Max: cfg.ReportRateLimit, Window: cfg.RateWindow})
	t.Cleanup(mediaLimiter.Stop)
	t.Cleanup(reportLimiter.Stop)

	media := newFakeStore()
	docs := newFakeStore()
	ident := &fakeIdentity{sessions: map[string]string{"session-abc": "user-1"}}
	sink := &captureSink{}

	h := New(
		logger, cfg, codec, filter,
		mediaLimiter, reportLimiter,
		media, docs,
		thumbs.NewResolver(media),
		ident, sink, nil,
	)

	router := gin.New()
	middleware.SetupCommonMiddleware(router, logger)
	h.RegisterRoutes(router)

	return &testEnv{router: router, codec: codec, media: media, docs: docs, sink: sink, cfg: cfg}
}

// browserRequest builds a request that passes the abuse heuristics.
func browserRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.Host = testHost
	req.Header.Set("User-Agent", testBrowserUA)
	req.Header.Set("Referer", "https://"+testHost+"/watch")
	return req
}

func withSession(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "session-abc"})
	return req
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}
