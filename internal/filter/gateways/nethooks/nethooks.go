// Package nethooks wires the hookable seam to the platform's real
// networking primitives: net.Resolver for resolution, crypto/tls for
// handshakes, and an http.RoundTripper for request dispatch. Hosts
// plug the adapters into their own clients and dialers; everything
// flowing through them is subject to whatever guards the registry has
// installed.
package nethooks

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/netip"

	"github.com/haukened/sinkhole/internal/filter/gateways/hooks"
)

// Options configures the underlying primitives. Zero values select
// the stdlib defaults.
type Options struct {
	Resolver  *net.Resolver     // defaults to net.DefaultResolver
	Transport http.RoundTripper // defaults to http.DefaultTransport
	TLSConfig *tls.Config       // base config cloned per handshake
	Dialer    *net.Dialer       // used by DialTLSContext
}

// Net exposes the three hook sites over real network primitives and
// adapts them back into the shapes Go networking code expects.
type Net struct {
	sites  *hooks.FuncSites
	dialer *net.Dialer
}

// New constructs the seam. The returned Net's Sites start out
// delegating directly to the primitives; nothing is filtered until a
// registry installs its guards.
func New(opts Options) *Net {
	resolver := opts.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	tlsConfig := opts.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{}
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}

	sites := hooks.NewFuncSites(
		func(ctx context.Context, host string) ([]netip.Addr, error) {
			return resolver.LookupNetIP(ctx, "ip", host)
		},
		func(ctx context.Context, conn net.Conn, serverName string) (net.Conn, error) {
			cfg := tlsConfig.Clone()
			cfg.ServerName = serverName
			tc := tls.Client(conn, cfg)
			if err := tc.HandshakeContext(ctx); err != nil {
				_ = conn.Close()
				return nil, err
			}
			return tc, nil
		},
		func(req *http.Request) (*http.Response, error) {
			return transport.RoundTrip(req)
		},
	)

	return &Net{sites: sites, dialer: dialer}
}

// Sites returns the hookable seam for registry installation.
func (n *Net) Sites() hooks.Sites { return n.sites }

// LookupNetIP resolves host through the current resolution site.
func (n *Net) LookupNetIP(ctx context.Context, host string) ([]netip.Addr, error) {
	return n.sites.Resolver()(ctx, host)
}

// RoundTrip dispatches req through the current request site, making
// Net usable as an http.RoundTripper.
func (n *Net) RoundTrip(req *http.Request) (*http.Response, error) {
	return n.sites.Requester()(req)
}

// DialTLSContext dials addr and performs the handshake through the
// current handshake site, making Net pluggable as a transport's
// DialTLSContext. The SNI value is the host part of addr.
func (n *Net) DialTLSContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	raw, err := n.dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	conn, err := n.sites.Handshaker()(ctx, raw, host)
	if err != nil {
		// the site closes raw on refusal or handshake failure; a second
		// Close here is harmless
		_ = raw.Close()
		return nil, err
	}
	return conn, nil
}

var _ http.RoundTripper = (*Net)(nil)
