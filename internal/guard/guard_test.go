package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const chromeUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

func testFilter() *Filter {
	return NewFilter("media.example.com",
		[]string{"curl", "wget", "ffmpeg", "python-requests", "postman", "bot", "headless", "yt-dlp"},
		[]string{"mozilla", "gecko", "webkit", "chrome", "safari", "firefox"},
	)
}

func TestCheckOrigin(t *testing.T) {
	f := testFilter()

	cases := []struct {
		name    string
		req     Request
		allowed bool
	}{
		{
			name:    "origin matches public hostname and request host",
			req:     Request{Origin: "https://media.example.com", Host: "media.example.com"},
			allowed: true,
		},
		{
			name:    "referer fallback when origin absent",
			req:     Request{Referer: "https://media.example.com/courses/42", Host: "media.example.com"},
			allowed: true,
		},
		{
			name:    "localhost with port",
			req:     Request{Origin: "http://localhost:3000", Host: "localhost:3000"},
			allowed: true,
		},
		{
			name:    "loopback address",
			req:     Request{Origin: "http://127.0.0.1:8080", Host: "127.0.0.1:8080"},
			allowed: true,
		},
		{
			name:    "no origin and no referer",
			req:     Request{Host: "media.example.com"},
			allowed: false,
		},
		{
			name:    "foreign origin host",
			req:     Request{Origin: "https://scraper.example.net", Host: "media.example.com"},
			allowed: false,
		},
		{
			name:    "allowlisted origin but hot-linked from another deployment",
			req:     Request{Origin: "http://localhost", Host: "media.example.com"},
			allowed: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := f.CheckOrigin(tc.req)
			assert.Equal(t, tc.allowed, v.Allowed, "detail: %s", v.Detail)
			if !tc.allowed {
				assert.Equal(t, ReasonOrigin, v.Reason)
			}
		})
	}
}

func TestCheckUserAgent(t *testing.T) {
	f := testFilter()

	cases := []struct {
		name    string
		ua      string
		allowed bool
	}{
		{"real chrome", chromeUA, true},
		{"real firefox", "Mozilla/5.0 (Windows NT 10.0; rv:121.0) Gecko/20100101 Firefox/121.0", true},
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"curl", "curl/8.4.0", false},
		{"wget", "Wget/1.21", false},
		{"ffmpeg", "Lavf/60.3.100 ffmpeg", false},
		{"yt-dlp", "yt-dlp/2023.11.16", false},
		{"postman", "PostmanRuntime/7.36.0", false},
		{"headless browser", "Mozilla/5.0 HeadlessChrome/120.0", false},
		{"generic bot", "ExampleBot/1.0 (+http://example.com/bot)", false},
		{"no engine token", "SomeCustomPlayer/2.1", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := f.CheckUserAgent(tc.ua)
			assert.Equal(t, tc.allowed, v.Allowed, "detail: %s", v.Detail)
			if !tc.allowed {
				assert.Equal(t, ReasonUserAgent, v.Reason)
			}
		})
	}
}

func TestCheckClientIPAlwaysPasses(t *testing.T) {
	f := testFilter()

	for _, ip := range []string{"127.0.0.1", "10.0.0.5", "192.168.1.20", "203.0.113.9", "::1", "not-an-ip", ""} {
		v := f.CheckClientIP(ip)
		assert.True(t, v.Allowed, "ip %q", ip)
	}
}

func TestCheckStopsAtFirstFailure(t *testing.T) {
	f := testFilter()

	// Origin failure wins even when the UA is also bad.
	v := f.Check(Request{UserAgent: "curl/8.4.0", Host: "media.example.com"})
	assert.False(t, v.Allowed)
	assert.Equal(t, ReasonOrigin, v.Reason)

	// With a clean origin, the UA check reports.
	v = f.Check(Request{
		Origin:    "https://media.example.com",
		Host:      "media.example.com",
		UserAgent: "curl/8.4.0",
	})
	assert.False(t, v.Allowed)
	assert.Equal(t, ReasonUserAgent, v.Reason)

	// Fully clean request passes.
	v = f.Check(Request{
		Origin:    "https://media.example.com",
		Host:      "media.example.com",
		UserAgent: chromeUA,
		ClientIP:  "203.0.113.9",
	})
	assert.True(t, v.Allowed, "detail: %s", v.Detail)
}

func TestNewFilterWithoutPublicHostname(t *testing.T) {
	f := NewFilter("", []string{"curl"}, []string{"mozilla"})

	v := f.CheckOrigin(Request{Origin: "http://localhost:3000", Host: "localhost:3000"})
	assert.True(t, v.Allowed)

	v = f.CheckOrigin(Request{Origin: "https://media.example.com", Host: "media.example.com"})
	assert.False(t, v.Allowed)
}
