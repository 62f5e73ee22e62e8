// Package matcher maps candidate hostnames to allow/block decisions
// against the current RuleSet snapshot.
package matcher

import (
	"strings"
	"sync"
	"sync/atomic"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"

	"github.com/haukened/sinkhole/internal/filter/common/utils"
	"github.com/haukened/sinkhole/internal/filter/domain"
)

// bloomFPRate is the target false-positive rate for the per-snapshot
// prefilter. False positives only cost a set lookup; false negatives
// cannot occur.
const bloomFPRate = 0.001

// snapshot pairs an immutable RuleSet with the Bloom prefilter built
// over its blocked entries. Replaced wholesale on every swap so a
// single load yields a consistent pair.
type snapshot struct {
	rules *domain.RuleSet
	bloom *bitsbloom.BloomFilter
}

// Matcher evaluates hostnames against the published RuleSet. Reads
// are lock-free: hooks load the current snapshot once per evaluation
// and every evaluation sees either the entirely-old or entirely-new
// rule set, never a mix.
type Matcher struct {
	current atomic.Pointer[snapshot]
	mu      sync.Mutex // serializes Swap
	cache   DecisionCache
}

// New constructs a Matcher starting from an empty RuleSet (blocks
// nothing). cache must not be nil; use NewCache(0) to disable caching.
func New(cache DecisionCache) *Matcher {
	m := &Matcher{cache: cache}
	m.current.Store(newSnapshot(domain.EmptyRuleSet()))
	return m
}

// newSnapshot builds the bloom prefilter for a rule set. Empty blocked
// sets carry no filter.
func newSnapshot(rs *domain.RuleSet) *snapshot {
	snap := &snapshot{rules: rs}
	if n := rs.BlockedCount(); n > 0 {
		bf := bitsbloom.NewWithEstimates(uint(n), bloomFPRate)
		rs.VisitBlocked(func(name string) bool {
			bf.AddString(name)
			return true
		})
		snap.bloom = bf
	}
	return snap
}

// Swap atomically publishes a new RuleSet and purges the decision
// cache. In-flight evaluations holding the previous snapshot complete
// against it untouched.
func (m *Matcher) Swap(rs *domain.RuleSet) {
	m.mu.Lock()
	m.current.Store(newSnapshot(rs))
	m.cache.Purge()
	m.mu.Unlock()
}

// Current returns the RuleSet snapshot in effect.
func (m *Matcher) Current() *domain.RuleSet {
	return m.current.Load().rules
}

// CacheStats exposes decision-cache counters for introspection.
func (m *Matcher) CacheStats() (hits, misses, evictions uint64, size int) {
	hits, misses, evictions = m.cache.Stats()
	return hits, misses, evictions, m.cache.Len()
}

// Decide returns the block decision for a candidate hostname.
//
// Semantics:
//   - empty or absent hostname is never blocked; some call sites
//     (e.g. TLS without SNI) cannot supply one
//   - the hostname is canonicalized (lower-case, port and trailing
//     dots stripped) before comparison
//   - an exact allowed match wins over any block match, including
//     suffix matches; there is no suffix-level allow override
//   - otherwise every dot-suffix of the hostname is checked against
//     the blocked set, most-specific first, down to the bare
//     top-level label
func (m *Matcher) Decide(hostname string) domain.Decision {
	cn := utils.CanonicalHostname(hostname)
	if cn == "" {
		return domain.EmptyDecision()
	}

	snap := m.current.Load()
	if snap.rules.Allowed(cn) {
		return domain.EmptyDecision()
	}

	if d, ok := m.cache.Get(cn); ok {
		return d
	}

	dec := snap.decide(cn)
	m.cache.Put(cn, dec)
	// A swap may have purged the cache between the snapshot load above
	// and the fill. The entry would then hold a decision from a retired
	// rule set, so it must not survive.
	if m.current.Load() != snap {
		m.cache.Remove(cn)
	}
	return dec
}

// decide walks the dot-suffixes of a canonical name against one
// consistent snapshot.
func (s *snapshot) decide(cn string) domain.Decision {
	for name := cn; ; {
		if s.maybeBlocked(name) && s.rules.Blocked(name) {
			return domain.Decision{Blocked: true, MatchedRule: name}
		}
		idx := strings.IndexByte(name, '.')
		if idx < 0 {
			break
		}
		name = name[idx+1:]
	}
	return domain.EmptyDecision()
}

// maybeBlocked consults the bloom prefilter; a negative answer is
// definitive, a positive one still needs the set lookup.
func (s *snapshot) maybeBlocked(name string) bool {
	if s.bloom == nil {
		return s.rules.BlockedCount() > 0
	}
	return s.bloom.TestString(name)
}
