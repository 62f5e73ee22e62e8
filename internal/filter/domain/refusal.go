package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Layer identifies the interception point that produced a decision.
//
// resolve   - name-to-address resolution
// handshake - TLS client handshake (SNI)
// request   - plaintext HTTP request dispatch (Host header)
type Layer uint8

const (
	// LayerResolve is the name-resolution interception point.
	LayerResolve Layer = iota
	// LayerHandshake is the TLS handshake interception point.
	LayerHandshake
	// LayerRequest is the HTTP request interception point.
	LayerRequest
)

// String returns a stable string representation of the layer.
func (l Layer) String() string {
	switch l {
	case LayerResolve:
		return "resolve"
	case LayerHandshake:
		return "handshake"
	case LayerRequest:
		return "request"
	default:
		return fmt.Sprintf("Layer(%d)", l)
	}
}

// ParseLayer converts a string into a Layer. Accepts "resolve",
// "handshake", "request" (case-insensitive).
func ParseLayer(s string) (Layer, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "resolve":
		return LayerResolve, nil
	case "handshake":
		return LayerHandshake, nil
	case "request":
		return LayerRequest, nil
	default:
		return 0, fmt.Errorf("unsupported Layer: %q", s)
	}
}

// ErrRefused is the sentinel all policy refusals unwrap to. Callers
// use errors.Is(err, ErrRefused) to tell a deliberate refusal apart
// from a genuine transport fault.
var ErrRefused = errors.New("refused by policy")

// Refusal is the typed failure returned when a hook denies a call.
// It is an expected outcome, not an error condition: hooks log it at
// info severity and the host networking stack treats it as a refusal.
type Refusal struct {
	Layer Layer  // interception point that refused
	Host  string // canonical hostname that was evaluated
	Rule  string // blocked suffix that matched
}

// Error implements the error interface.
func (r *Refusal) Error() string {
	return fmt.Sprintf("%s blocked at %s layer (rule %s)", r.Host, r.Layer, r.Rule)
}

// Unwrap makes errors.Is(err, ErrRefused) succeed for any Refusal.
func (r *Refusal) Unwrap() error { return ErrRefused }

// AsRefusal extracts a Refusal from an error chain.
func AsRefusal(err error) (*Refusal, bool) {
	var r *Refusal
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// BlockEvent is the observability record emitted for every block
// decision taken by a hook.
type BlockEvent struct {
	Layer Layer
	Host  string
	Rule  string
	At    time.Time
}
