package resolver

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Profile is one client identity presented to the remote site. Profiles
// are tried in declaration order; the default identity goes first so
// the common case costs a single attempt.
type Profile struct {
	Name      string
	UserAgent string
}

const (
	chromeAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	firefoxAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0"
)

// Profiles returns the resolution order. The first entry keeps the
// library's own default agent.
func Profiles() []Profile {
	return []Profile{
		{Name: "default"},
		{Name: "chrome", UserAgent: chromeAgent},
		{Name: "firefox", UserAgent: firefoxAgent},
	}
}

type agentTransport struct {
	agent string
	base  http.RoundTripper
}

func (t *agentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.agent)
	return t.base.RoundTrip(clone)
}

// HTTPClient builds the client for one profile. proxyURL may be empty;
// when set it must already have been validated as http or https.
func HTTPClient(profile Profile, proxyURL string, timeout time.Duration) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(parsed)
	}
	var rt http.RoundTripper = transport
	if profile.UserAgent != "" {
		rt = &agentTransport{agent: profile.UserAgent, base: transport}
	}
	return &http.Client{Transport: rt, Timeout: timeout}, nil
}
