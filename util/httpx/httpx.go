package httpx

import (
	"net"
	"net/http"
	"time"
)

const userAgent = "PawBit/1.0"

// uaTransport stamps outbound requests with the service user agent.
type uaTransport struct{ next http.RoundTripper }

func (t uaTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get("User-Agent") == "" {
		r = r.Clone(r.Context())
		r.Header.Set("User-Agent", userAgent)
	}
	return t.next.RoundTrip(r)
}

var defaultClient = &http.Client{
	Timeout: 10 * time.Second,
	Transport: uaTransport{next: &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
		MaxIdleConns:        100,
		MaxConnsPerHost:     100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}},
}

// Client is the shared outbound client used for the identity provider and
// the payment processor.
func Client() *http.Client { return defaultClient }
