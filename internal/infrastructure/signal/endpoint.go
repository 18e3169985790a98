package signal

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Endpoint is a parsed signaling server address. Parsing happens at client
// construction so a bad URL fails fast instead of at connect time.
type Endpoint struct {
	Secure bool
	Host   string
	Port   int
	Path   string
	Query  string
}

// ParseEndpoint accepts ws:// and wss:// URLs (scheme case-insensitive),
// applying default ports 80 and 443. Path and query are preserved. Any
// other scheme is rejected.
func ParseEndpoint(rawURL string) (Endpoint, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid signaling URL %q: %w", rawURL, err)
	}

	var secure bool
	switch strings.ToLower(u.Scheme) {
	case "ws":
		secure = false
	case "wss":
		secure = true
	default:
		return Endpoint{}, fmt.Errorf("unsupported signaling scheme %q: must be ws or wss", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return Endpoint{}, fmt.Errorf("signaling URL %q has no host", rawURL)
	}

	port := 80
	if secure {
		port = 443
	}
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return Endpoint{}, fmt.Errorf("signaling URL %q has invalid port %q", rawURL, p)
		}
	}

	return Endpoint{
		Secure: secure,
		Host:   host,
		Port:   port,
		Path:   u.Path,
		Query:  u.RawQuery,
	}, nil
}

// URL reassembles the endpoint into a dialable websocket URL.
func (e Endpoint) URL() string {
	scheme := "ws"
	if e.Secure {
		scheme = "wss"
	}
	s := fmt.Sprintf("%s://%s:%d%s", scheme, e.Host, e.Port, e.Path)
	if e.Query != "" {
		s += "?" + e.Query
	}
	return s
}
