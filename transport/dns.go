package transport

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/rs/dnscache"
)

var errNoAddresses = errors.New("no addresses resolved")

type dnsResolver struct {
	resolver *dnscache.Resolver
}

func newDNSResolver() *dnsResolver {
	return &dnsResolver{resolver: &dnscache.Resolver{}}
}

// dialContext resolves through the cache and tries each address in turn.
func (r *dnsResolver) dialContext(dialer *net.Dialer) func(context.Context, string, string) (net.Conn, error) {
	return func(ctx context.Context, network string, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}

		ips, err := r.resolver.LookupHost(ctx, host)
		if err != nil {
			return nil, err
		}

		var errs []error

		for _, ip := range ips {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
			if err == nil {
				return conn, nil
			}

			errs = append(errs, err)
		}

		if len(errs) == 0 {
			return nil, &net.DNSError{Err: errNoAddresses.Error(), Name: host, IsNotFound: true}
		}

		return nil, errors.Join(errs...)
	}
}

// refreshUntilDone refreshes cached entries every interval, dropping hosts
// that were not used since the previous refresh.
func (r *dnsResolver) refreshUntilDone(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.resolver.Refresh(true)
		}
	}
}
