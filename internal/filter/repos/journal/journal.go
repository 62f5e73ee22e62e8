// Package journal persists block events so operators can inspect what
// the filter refused and when, across process restarts.
package journal

import (
	"github.com/haukened/sinkhole/internal/filter/domain"
)

// Stats summarizes the journal contents.
type Stats struct {
	Resolve       uint64 // events recorded at the resolution layer
	Handshake     uint64 // events recorded at the TLS handshake layer
	Request       uint64 // events recorded at the HTTP request layer
	LastEventUnix int64  // seconds since epoch of the newest event, 0 when empty
}

// Total returns the event count across all layers.
func (s Stats) Total() uint64 {
	return s.Resolve + s.Handshake + s.Request
}

// Journal is an append-only record of block events.
// Append must be cheap and must never fail a hook evaluation; callers
// treat errors as best-effort observability loss.
type Journal interface {
	Append(ev domain.BlockEvent) error
	Recent(n int) ([]domain.BlockEvent, error)
	Stats() Stats
	Close() error
}

// Noop is a Journal that records nothing, used when no journal path
// is configured.
type Noop struct{}

func (Noop) Append(domain.BlockEvent) error { return nil }

func (Noop) Recent(int) ([]domain.BlockEvent, error) { return nil, nil }

func (Noop) Stats() Stats { return Stats{} }

func (Noop) Close() error { return nil }

var _ Journal = Noop{}
