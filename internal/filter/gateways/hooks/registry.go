// Package hooks installs and removes the three interception points
// against the host's network capabilities. Each installed guard asks
// the matcher before delegating to the captured original behavior.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"sync"

	"go.uber.org/multierr"

	"github.com/haukened/sinkhole/internal/filter/common/clock"
	logpkg "github.com/haukened/sinkhole/internal/filter/common/log"
	"github.com/haukened/sinkhole/internal/filter/common/utils"
	"github.com/haukened/sinkhole/internal/filter/domain"
)

// Decider maps a candidate hostname to an allow/block decision.
type Decider interface {
	Decide(hostname string) domain.Decision
}

// EventSink consumes block events for observability (metrics,
// journal). Sinks must not block; failures stay inside the sink.
type EventSink interface {
	BlockedEvent(ev domain.BlockEvent)
}

// NoopSink discards events.
type NoopSink struct{}

func (NoopSink) BlockedEvent(domain.BlockEvent) {}

// MultiSink fans one event out to several sinks.
type MultiSink []EventSink

func (m MultiSink) BlockedEvent(ev domain.BlockEvent) {
	for _, s := range m {
		s.BlockedEvent(ev)
	}
}

// ErrAlreadyInstalled is returned when Install is called twice without
// an intervening Remove. Installing twice would clobber the captured
// originals and corrupt the restoration path.
var ErrAlreadyInstalled = errors.New("hooks already installed")

// ErrNotInstallable is returned when a hook site has no underlying
// capability to wrap.
var ErrNotInstallable = errors.New("hook site not installable")

// Options configures a Registry.
type Options struct {
	Sites   Sites
	Decider Decider
	Sink    EventSink // optional; defaults to NoopSink
	Clock   clock.Clock
	Logger  logpkg.Logger
}

// Registry owns the installation state of the three hooks. Only one
// Registry may be active per Sites instance; the originals captured at
// install time are the restoration path.
type Registry struct {
	mu      sync.Mutex
	active  bool
	sites   Sites
	decider Decider
	sink    EventSink
	clock   clock.Clock
	logger  logpkg.Logger

	// originals captured at install, restored exactly on removal
	origResolve   ResolveFunc
	origHandshake HandshakeFunc
	origRequest   RequestFunc
}

// NewRegistry constructs a Registry; hooks start uninstalled. Sink,
// Clock, and Logger are optional and default to a discarding sink, the
// real clock, and the global logger.
func NewRegistry(opts Options) *Registry {
	sink := opts.Sink
	if sink == nil {
		sink = NoopSink{}
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.GetLogger()
	}
	return &Registry{
		sites:   opts.Sites,
		decider: opts.Decider,
		sink:    sink,
		clock:   clk,
		logger:  logger,
	}
}

// Active reports whether hooks are currently installed.
func (r *Registry) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Install captures the original behavior of all three sites and swaps
// in guarded versions. All sites are validated before any swap, so a
// failed Install leaves the host's behavior untouched; the error names
// every missing capability.
func (r *Registry) Install() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active {
		return ErrAlreadyInstalled
	}

	resolve := r.sites.Resolver()
	handshake := r.sites.Handshaker()
	request := r.sites.Requester()

	var err error
	if resolve == nil {
		err = multierr.Append(err, fmt.Errorf("%w: %s", ErrNotInstallable, domain.LayerResolve))
	}
	if handshake == nil {
		err = multierr.Append(err, fmt.Errorf("%w: %s", ErrNotInstallable, domain.LayerHandshake))
	}
	if request == nil {
		err = multierr.Append(err, fmt.Errorf("%w: %s", ErrNotInstallable, domain.LayerRequest))
	}
	if err != nil {
		return err
	}

	r.origResolve = resolve
	r.origHandshake = handshake
	r.origRequest = request

	r.sites.SetResolver(r.guardResolve(resolve))
	r.sites.SetHandshaker(r.guardHandshake(handshake))
	r.sites.SetRequester(r.guardRequest(request))

	r.active = true
	r.logger.Info(nil, "interception hooks installed")
	return nil
}

// Remove restores the captured originals. It is idempotent and always
// succeeds: calling it when nothing is installed is a no-op, so the
// lifecycle controller can run it unconditionally on every shutdown
// path.
func (r *Registry) Remove() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return
	}

	r.sites.SetResolver(r.origResolve)
	r.sites.SetHandshaker(r.origHandshake)
	r.sites.SetRequester(r.origRequest)

	r.origResolve = nil
	r.origHandshake = nil
	r.origRequest = nil
	r.active = false
	r.logger.Info(nil, "interception hooks removed, original behavior restored")
}

// observe records one block decision: info log (a block is the system
// working as intended, never an error) plus the event sink.
func (r *Registry) observe(layer domain.Layer, host string, dec domain.Decision) {
	r.logger.Info(map[string]any{
		"layer": layer.String(),
		"host":  host,
		"rule":  dec.MatchedRule,
	}, "blocked")
	r.sink.BlockedEvent(domain.BlockEvent{
		Layer: layer,
		Host:  host,
		Rule:  dec.MatchedRule,
		At:    r.clock.Now(),
	})
}

// guardResolve wraps the resolution capability. Blocked names resolve
// to a synthetic non-routable address instead of failing, mirroring a
// DNS sinkhole.
func (r *Registry) guardResolve(orig ResolveFunc) ResolveFunc {
	return func(ctx context.Context, host string) ([]netip.Addr, error) {
		if dec := r.decider.Decide(host); dec.Blocked {
			r.observe(domain.LayerResolve, utils.CanonicalHostname(host), dec)
			return []netip.Addr{netip.IPv4Unspecified()}, nil
		}
		return orig(ctx, host)
	}
}

// guardHandshake wraps the TLS handshake capability. A blocked server
// name closes the raw connection and refuses before any bytes are
// exchanged. An absent server name passes through; the matcher never
// blocks on missing information.
func (r *Registry) guardHandshake(orig HandshakeFunc) HandshakeFunc {
	return func(ctx context.Context, conn net.Conn, serverName string) (net.Conn, error) {
		if dec := r.decider.Decide(serverName); dec.Blocked {
			cn := utils.CanonicalHostname(serverName)
			r.observe(domain.LayerHandshake, cn, dec)
			if conn != nil {
				_ = conn.Close()
			}
			return nil, &domain.Refusal{Layer: domain.LayerHandshake, Host: cn, Rule: dec.MatchedRule}
		}
		return orig(ctx, conn, serverName)
	}
}

// guardRequest wraps HTTP request dispatch, keyed on the Host header.
// Interception happens before any connection is dialed for the
// request, so a refusal guarantees nothing reaches the wire.
func (r *Registry) guardRequest(orig RequestFunc) RequestFunc {
	return func(req *http.Request) (*http.Response, error) {
		host := req.Host
		if host == "" && req.URL != nil {
			host = req.URL.Host
		}
		if dec := r.decider.Decide(host); dec.Blocked {
			cn := utils.CanonicalHostname(host)
			r.observe(domain.LayerRequest, cn, dec)
			return nil, &domain.Refusal{Layer: domain.LayerRequest, Host: cn, Rule: dec.MatchedRule}
		}
		return orig(req)
	}
}
