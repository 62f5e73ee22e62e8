package hooks

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"sync/atomic"
)

// ResolveFunc performs name-to-address resolution for a hostname.
type ResolveFunc func(ctx context.Context, host string) ([]netip.Addr, error)

// HandshakeFunc performs a TLS client handshake over conn for the
// given server name and returns the secured connection.
type HandshakeFunc func(ctx context.Context, conn net.Conn, serverName string) (net.Conn, error)

// RequestFunc dispatches one outbound HTTP request.
type RequestFunc func(req *http.Request) (*http.Response, error)

// Sites is the hookable seam: the three network capabilities the host
// supplies and the registry intercepts. Getters return the behavior
// currently in effect; setters swap it. Implementations must make the
// get/set pairs safe against concurrent callers, because hook
// evaluations run on whatever goroutines the host networking stack
// uses.
type Sites interface {
	Resolver() ResolveFunc
	SetResolver(ResolveFunc)

	Handshaker() HandshakeFunc
	SetHandshaker(HandshakeFunc)

	Requester() RequestFunc
	SetRequester(RequestFunc)
}

// FuncSites is a Sites implementation holding the three capabilities
// in atomic pointers, so swaps by the lifecycle controller never race
// with in-flight hook calls.
type FuncSites struct {
	resolve   atomic.Pointer[ResolveFunc]
	handshake atomic.Pointer[HandshakeFunc]
	request   atomic.Pointer[RequestFunc]
}

// NewFuncSites builds a FuncSites over the provided capabilities. Any
// of them may be nil, in which case installation against that site
// fails.
func NewFuncSites(r ResolveFunc, h HandshakeFunc, q RequestFunc) *FuncSites {
	s := &FuncSites{}
	s.SetResolver(r)
	s.SetHandshaker(h)
	s.SetRequester(q)
	return s
}

func (s *FuncSites) Resolver() ResolveFunc {
	if p := s.resolve.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *FuncSites) SetResolver(r ResolveFunc) {
	if r == nil {
		s.resolve.Store(nil)
		return
	}
	s.resolve.Store(&r)
}

func (s *FuncSites) Handshaker() HandshakeFunc {
	if p := s.handshake.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *FuncSites) SetHandshaker(h HandshakeFunc) {
	if h == nil {
		s.handshake.Store(nil)
		return
	}
	s.handshake.Store(&h)
}

func (s *FuncSites) Requester() RequestFunc {
	if p := s.request.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *FuncSites) SetRequester(q RequestFunc) {
	if q == nil {
		s.request.Store(nil)
		return
	}
	s.request.Store(&q)
}

var _ Sites = (*FuncSites)(nil)
