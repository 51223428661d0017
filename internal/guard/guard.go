// Package guard rejects obviously non-browser and cross-origin traffic
// before the gateway spends identity lookups or storage I/O on it.
package guard

import (
	"net"
	"net/url"
	"strings"
)

// Reason identifies which heuristic rejected a request. The client only
// ever sees the terse reason phrase; the specifics stay in server logs.
type Reason string

const (
	ReasonOrigin    Reason = "origin"
	ReasonUserAgent Reason = "user-agent"
	ReasonIP        Reason = "ip"
)

// Verdict is the outcome of an admission check.
type Verdict struct {
	Allowed bool
	Reason  Reason
	// Detail is for server-side logging only.
	Detail string
}

func allow() Verdict {
	return Verdict{Allowed: true}
}

func deny(reason Reason, detail string) Verdict {
	return Verdict{Reason: reason, Detail: detail}
}

// Request carries the inputs the heuristics inspect.
type Request struct {
	Origin    string
	Referer   string
	Host      string
	UserAgent string
	ClientIP  string
}

// Filter applies the three admission heuristics. All must pass.
type Filter struct {
	allowedHosts  map[string]bool
	denyTokens    []string
	browserTokens []string
}

// NewFilter builds a filter. publicHostname may be empty in development,
// in which case only localhost traffic passes the origin check.
func NewFilter(publicHostname string, denyTokens, browserTokens []string) *Filter {
	allowed := map[string]bool{
		"localhost": true,
		"127.0.0.1": true,
	}
	if h := strings.ToLower(strings.TrimSpace(publicHostname)); h != "" {
		allowed[h] = true
	}
	return &Filter{
		allowedHosts:  allowed,
		denyTokens:    lowerAll(denyTokens),
		browserTokens: lowerAll(browserTokens),
	}
}

// Check runs all heuristics in order and stops at the first rejection.
func (f *Filter) Check(r Request) Verdict {
	if v := f.CheckOrigin(r); !v.Allowed {
		return v
	}
	if v := f.CheckUserAgent(r.UserAgent); !v.Allowed {
		return v
	}
	return f.CheckClientIP(r.ClientIP)
}

// CheckOrigin requires an Origin or Referer header whose host is both
// allowlisted and equal to the request's own Host header. Requests
// carrying neither header are rejected: a browser playing embedded media
// always sends at least a referer.
func (f *Filter) CheckOrigin(r Request) Verdict {
	header := r.Origin
	if header == "" {
		header = r.Referer
	}
	if header == "" {
		return deny(ReasonOrigin, "no origin or referer header")
	}

	host := headerHost(header)
	if host == "" {
		return deny(ReasonOrigin, "unparseable origin/referer: "+header)
	}
	if !f.allowedHosts[host] {
		return deny(ReasonOrigin, "origin host not allowed: "+host)
	}

	// Hot-link defense: the page that embeds the media must be served
	// from the same host the media request arrives at.
	if ownHost := hostOnly(r.Host); ownHost != "" && host != ownHost {
		return deny(ReasonOrigin, "origin host "+host+" does not match request host "+ownHost)
	}

	return allow()
}

// CheckUserAgent rejects empty agents, deny-listed client tokens, and
// agents with no recognizable browser-engine token.
func (f *Filter) CheckUserAgent(ua string) Verdict {
	trimmed := strings.TrimSpace(ua)
	if trimmed == "" {
		return deny(ReasonUserAgent, "empty user agent")
	}

	lower := strings.ToLower(trimmed)
	for _, token := range f.denyTokens {
		if strings.Contains(lower, token) {
			return deny(ReasonUserAgent, "deny-listed client token: "+token)
		}
	}

	for _, token := range f.browserTokens {
		if strings.Contains(lower, token) {
			return allow()
		}
	}
	return deny(ReasonUserAgent, "no browser engine token in user agent")
}

// CheckClientIP is a placeholder for future IP reputation lookups.
// Loopback and private addresses are development traffic and always
// allowed; today everything else passes too.
func (f *Filter) CheckClientIP(clientIP string) Verdict {
	ip := net.ParseIP(clientIP)
	if ip != nil && (ip.IsLoopback() || ip.IsPrivate()) {
		return allow()
	}
	return allow()
}

// headerHost extracts the lowercase hostname from an Origin or Referer
// value, tolerating bare hosts without a scheme.
func headerHost(value string) string {
	u, err := url.Parse(value)
	if err == nil && u.Hostname() != "" {
		return strings.ToLower(u.Hostname())
	}
	return hostOnly(value)
}

// hostOnly strips an optional port from a host header value.
func hostOnly(hostport string) string {
	hostport = strings.TrimSpace(hostport)
	if hostport == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(hostport)
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.ToLower(strings.TrimSpace(s)); t != "" {
			out = append(out, t)
		}
	}
	return out
}
