// Package transport builds the http.RoundTripper used for remote fetches.
//
// The returned transport keeps a pooled *http.Transport underneath and can
// add two layers on top of it:
//
//   - a caching DNS dialer (github.com/rs/dnscache), so repeated fetches of
//     the same host do not repeat lookups
//   - transparent response decompression (gzip, deflate, br, zstd, snappy)
//     through github.com/fereidani/httpdecompressor
//
// Request logging with a per-request correlation id is added when
// Options.Logger is set.
package transport

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	defaultMaxIdleConns          = 100
	defaultIdleConnTimeout       = 90 * time.Second
	defaultTLSHandshakeTimeout   = 10 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultDialTimeout           = 30 * time.Second
	defaultKeepAlive             = 30 * time.Second
	defaultDNSRefreshInterval    = 5 * time.Minute
)

// Options configures New.
type Options struct {
	DialTimeout         time.Duration
	KeepAlive           time.Duration
	MaxIdleConns        int
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration

	// DNSCache enables the caching resolver.
	DNSCache bool
	// DNSRefreshInterval is how often cached entries are refreshed while the
	// context passed to New is alive. Zero means five minutes.
	DNSRefreshInterval time.Duration

	// Decompress advertises Accept-Encoding and decodes response bodies.
	Decompress bool

	// Logger, when set, logs each request through NewLoggingTransport.
	Logger *slog.Logger

	// Base replaces the pooled transport. Used by tests.
	Base http.RoundTripper
}

// DefaultOptions returns options with DNS caching and decompression enabled.
func DefaultOptions() Options {
	return Options{
		DialTimeout:         defaultDialTimeout,
		KeepAlive:           defaultKeepAlive,
		MaxIdleConns:        defaultMaxIdleConns,
		IdleConnTimeout:     defaultIdleConnTimeout,
		TLSHandshakeTimeout: defaultTLSHandshakeTimeout,
		DNSCache:            true,
		DNSRefreshInterval:  defaultDNSRefreshInterval,
		Decompress:          true,
	}
}

// New returns a round tripper built from opts. When DNS caching is enabled the
// cache is refreshed in the background until ctx is done.
func New(ctx context.Context, opts Options) http.RoundTripper {
	var rt http.RoundTripper

	if opts.Base != nil {
		rt = opts.Base
	} else {
		rt = newTransport(ctx, opts)
	}

	if opts.Decompress {
		rt = NewDecompressor(rt)
	}

	if opts.Logger != nil {
		rt = NewLoggingTransport(rt, opts.Logger)
	}

	return rt
}

func newTransport(ctx context.Context, opts Options) *http.Transport {
	opts = withDefaults(opts)

	dialer := &net.Dialer{
		Timeout:   opts.DialTimeout,
		KeepAlive: opts.KeepAlive,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          opts.MaxIdleConns,
		IdleConnTimeout:       opts.IdleConnTimeout,
		TLSHandshakeTimeout:   opts.TLSHandshakeTimeout,
		ExpectContinueTimeout: defaultExpectContinueTimeout,
		// The decompressor decodes bodies itself, including gzip.
		DisableCompression: opts.Decompress,
	}

	if opts.DNSCache {
		resolver := newDNSResolver()
		transport.DialContext = resolver.dialContext(dialer)

		go resolver.refreshUntilDone(ctx, opts.DNSRefreshInterval)

		slog.Debug("DNS cache enabled", "refresh_interval", opts.DNSRefreshInterval)
	}

	return transport
}

func withDefaults(opts Options) Options {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}

	if opts.KeepAlive <= 0 {
		opts.KeepAlive = defaultKeepAlive
	}

	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = defaultMaxIdleConns
	}

	if opts.IdleConnTimeout <= 0 {
		opts.IdleConnTimeout = defaultIdleConnTimeout
	}

	if opts.TLSHandshakeTimeout <= 0 {
		opts.TLSHandshakeTimeout = defaultTLSHandshakeTimeout
	}

	if opts.DNSRefreshInterval <= 0 {
		opts.DNSRefreshInterval = defaultDNSRefreshInterval
	}

	return opts
}
