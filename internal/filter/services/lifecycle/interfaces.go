package lifecycle

import (
	"context"
	"net/netip"

	"github.com/haukened/sinkhole/internal/filter/domain"
)

// RuleLoader builds a fresh RuleSet snapshot from the rule sources.
// Loading never fails; unreadable sources degrade to empty sides.
type RuleLoader interface {
	Load() *domain.RuleSet
}

// RulePublisher owns the published RuleSet reference. Only the
// controller calls Swap.
type RulePublisher interface {
	Swap(rs *domain.RuleSet)
	Current() *domain.RuleSet
}

// HookInstaller installs and removes the interception hooks. Remove
// must be idempotent and must always restore the captured originals.
type HookInstaller interface {
	Install() error
	Remove()
}

// ProbeFunc resolves a hostname through the currently-installed
// resolution path, used by the activation self-test.
type ProbeFunc func(ctx context.Context, host string) ([]netip.Addr, error)
