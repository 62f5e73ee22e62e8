package lifecycle

import (
	"context"
	"net/netip"
	"time"
)

// wellKnownProbes are tracker hostnames common to the major public
// blocklists, tried first so the self-test exercises a realistic entry.
var wellKnownProbes = []string{
	"google-analytics.com",
	"stats.wp.com",
	"api.mixpanel.com",
}

const selfTestTimeout = 5 * time.Second

// selfTest resolves one blocked hostname through the installed hooks
// and logs whether the sinkhole address came back. It is diagnostic
// only; a failed probe never deactivates the filter.
func (c *Controller) selfTest(ctx context.Context) {
	if c.opts.Probe == nil {
		c.opts.Logger.Warn(nil, "self-test enabled but no probe is wired; skipping")
		return
	}

	candidate := c.probeCandidate()
	if candidate == "" {
		c.opts.Logger.Info(nil, "self-test skipped; blocklist is empty")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, selfTestTimeout)
	defer cancel()

	addrs, err := c.opts.Probe(ctx, candidate)
	if err != nil {
		c.opts.Logger.Warn(map[string]any{
			"host":  candidate,
			"error": err.Error(),
		}, "self-test probe failed")
		return
	}

	if sinkholed(addrs) {
		c.opts.Logger.Info(map[string]any{"host": candidate}, "self-test passed; blocked hostname resolved to the sinkhole address")
		return
	}
	c.opts.Logger.Warn(map[string]any{
		"host":  candidate,
		"addrs": len(addrs),
	}, "self-test probe returned real addresses; hooks may not be intercepting resolution")
}

// probeCandidate picks a hostname known to be on the blocklist,
// preferring the well-known trackers over an arbitrary entry.
func (c *Controller) probeCandidate() string {
	rs := c.opts.Rules.Current()
	for _, host := range wellKnownProbes {
		if rs.Blocked(host) {
			return host
		}
	}
	return rs.AnyBlocked()
}

func sinkholed(addrs []netip.Addr) bool {
	for _, a := range addrs {
		if a.IsUnspecified() {
			return true
		}
	}
	return false
}
