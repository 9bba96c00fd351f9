package httpclient

import (
	"net/http"
	"time"
)

type Option func(*config)

// WithDialTimeout bounds connection establishment.
func WithDialTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.dialTimeout = timeout
	}
}

// WithRequestTimeout bounds the whole exchange. Zero leaves it to the caller's context.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.requestTimeout = timeout
	}
}

func WithTransport(fn TransportFunc) Option {
	return func(c *config) {
		c.transports = append(c.transports, fn)
	}
}

// WithStaticHeader sets a header on every outbound request.
func WithStaticHeader(key, value string) Option {
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return &headerTransport{key: key, value: value, transport: rt}
	})
}

// WithBearerToken authenticates every request. An empty token is a no-op.
func WithBearerToken(token string) Option {
	if token == "" {
		return func(*config) {}
	}
	return WithStaticHeader("Authorization", "Bearer "+token)
}

type headerTransport struct {
	key, value string
	transport  http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set(t.key, t.value)
	return t.transport.RoundTrip(clone)
}
