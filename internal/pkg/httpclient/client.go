package httpclient

import (
	"net"
	"net/http"
	"time"
)

type TransportFunc func(http.RoundTripper) http.RoundTripper

type config struct {
	dialTimeout         time.Duration
	requestTimeout      time.Duration
	keepAlive           time.Duration
	idleConnTimeout     time.Duration
	maxIdleConnsPerHost int
	transports          []TransportFunc
}

func defaultConfig() *config {
	return &config{
		dialTimeout:         10 * time.Second,
		keepAlive:           90 * time.Second,
		idleConnTimeout:     90 * time.Second,
		maxIdleConnsPerHost: 10,
	}
}

func newClient(opts ...Option) *http.Client {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	dialer := net.Dialer{
		Timeout:   cfg.dialTimeout,
		KeepAlive: cfg.keepAlive,
	}

	var transport http.RoundTripper = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		MaxIdleConnsPerHost: cfg.maxIdleConnsPerHost,
		IdleConnTimeout:     cfg.idleConnTimeout,
	}
	for _, wrap := range cfg.transports {
		transport = wrap(transport)
	}

	return &http.Client{
		Timeout:   cfg.requestTimeout,
		Transport: transport,
	}
}
