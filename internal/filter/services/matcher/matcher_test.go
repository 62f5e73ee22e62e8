package matcher

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/sinkhole/internal/filter/domain"
)

func newTestMatcher(t *testing.T, blocked, allowed []string) *Matcher {
	t.Helper()
	cache, err := NewCache(128)
	require.NoError(t, err)
	m := New(cache)
	m.Swap(domain.NewRuleSet(blocked, allowed))
	return m
}

func TestDecide_EmptyRuleSetBlocksNothing(t *testing.T) {
	m := newTestMatcher(t, nil, nil)
	for _, h := range []string{"example.com", "ads.example.com", "com", "localhost", ""} {
		assert.False(t, m.Decide(h).Blocked, "isBlocked(%q, empty) must be false", h)
	}
}

func TestDecide_EmptyHostnameNeverBlocked(t *testing.T) {
	m := newTestMatcher(t, []string{"example.com"}, nil)
	assert.False(t, m.Decide("").Blocked)
	assert.False(t, m.Decide("   ").Blocked)
}

func TestDecide_SuffixMatching(t *testing.T) {
	m := newTestMatcher(t, []string{"example.com"}, nil)

	tests := []struct {
		host    string
		blocked bool
	}{
		// the rule itself and any depth of subdomain
		{"example.com", true},
		{"track.example.com", true},
		{"a.b.c.example.com", true},
		// not dot-suffixes: embedded occurrences, sibling labels,
		// names shorter than the rule
		{"example.com.evil.net", false},
		{"notexample.com", false},
		{"example.net", false},
		{"com", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.blocked, m.Decide(tt.host).Blocked, "host %q", tt.host)
	}
}

func TestDecide_MatchedRuleIsTheSuffix(t *testing.T) {
	m := newTestMatcher(t, []string{"example.com"}, nil)
	d := m.Decide("stats.sub.example.com")
	require.True(t, d.Blocked)
	assert.Equal(t, "example.com", d.MatchedRule)
}

func TestDecide_MostSpecificSuffixWins(t *testing.T) {
	m := newTestMatcher(t, []string{"sub.example.com", "example.com"}, nil)
	d := m.Decide("stats.sub.example.com")
	require.True(t, d.Blocked)
	// suffixes are checked from the full hostname down
	assert.Equal(t, "sub.example.com", d.MatchedRule)
}

func TestDecide_AllowListPrecedence(t *testing.T) {
	// an exact allow entry overrides a broader block suffix; siblings
	// and deeper names stay blocked
	m := newTestMatcher(t, []string{"example.com"}, []string{"track.example.com"})

	assert.False(t, m.Decide("track.example.com").Blocked, "exact allow overrides suffix block")
	assert.True(t, m.Decide("other.example.com").Blocked, "allow does not extend to siblings")
	assert.True(t, m.Decide("sub.track.example.com").Blocked, "allow is exact, not suffix-level")
}

func TestDecide_AllowWinsRegardlessOfBlockedContents(t *testing.T) {
	m := newTestMatcher(t,
		[]string{"track.example.com", "example.com", "com"},
		[]string{"track.example.com"})
	assert.False(t, m.Decide("track.example.com").Blocked)
}

func TestDecide_CaseInsensitive(t *testing.T) {
	m := newTestMatcher(t, []string{"ads.example.com"}, nil)
	assert.Equal(t, m.Decide("ads.example.com").Blocked, m.Decide("Ads.Example.COM").Blocked)
	assert.True(t, m.Decide("ADS.EXAMPLE.COM").Blocked)
}

func TestDecide_BareTLDRuleBlocksWholeTLD(t *testing.T) {
	// preserved literal algorithm: a bare TLD entry matches everything
	// under it
	m := newTestMatcher(t, []string{"com"}, nil)
	assert.True(t, m.Decide("example.com").Blocked)
	assert.True(t, m.Decide("deep.sub.example.com").Blocked)
	assert.False(t, m.Decide("example.net").Blocked)
}

func TestDecide_PortStripped(t *testing.T) {
	m := newTestMatcher(t, []string{"example.com"}, nil)
	assert.True(t, m.Decide("ads.example.com:443").Blocked)
}

func TestSwap_PurgesDecisionCache(t *testing.T) {
	m := newTestMatcher(t, []string{"example.com"}, nil)

	assert.True(t, m.Decide("ads.example.com").Blocked)
	// same query again comes from cache
	assert.True(t, m.Decide("ads.example.com").Blocked)

	m.Swap(domain.NewRuleSet(nil, nil))
	assert.False(t, m.Decide("ads.example.com").Blocked, "stale cached decision survived the swap")
}

func TestSwap_OldSnapshotUnaffected(t *testing.T) {
	// an evaluation that captured the previous RuleSet keeps seeing it
	// in full
	m := newTestMatcher(t, []string{"example.com"}, nil)
	old := m.Current()

	m.Swap(domain.NewRuleSet([]string{"tracker.net"}, nil))

	assert.True(t, old.Blocked("example.com"), "old snapshot mutated by swap")
	assert.False(t, old.Blocked("tracker.net"))
	assert.True(t, m.Current().Blocked("tracker.net"))
}

// swapDuringFillCache injects a rule-set swap between Decide's
// snapshot load and its cache fill, the narrow window where a stale
// decision could be written into a freshly purged cache.
type swapDuringFillCache struct {
	DecisionCache
	m    *Matcher
	once sync.Once
}

func (c *swapDuringFillCache) Put(name string, d domain.Decision) {
	c.once.Do(func() {
		c.m.Swap(domain.EmptyRuleSet())
	})
	c.DecisionCache.Put(name, d)
}

func TestDecide_SwapDuringEvaluationLeavesNoStaleEntry(t *testing.T) {
	inner, err := NewCache(128)
	require.NoError(t, err)
	trap := &swapDuringFillCache{DecisionCache: inner}
	m := New(trap)
	trap.m = m
	m.Swap(domain.NewRuleSet([]string{"example.com"}, nil))

	// the in-flight evaluation completes against the set it captured
	assert.True(t, m.Decide("ads.example.com").Blocked)

	// but its decision must not be served after the swap: the active
	// rule set is now empty
	assert.False(t, m.Decide("ads.example.com").Blocked,
		"decision from a retired rule set was served from the cache")
}

func TestDecide_ConcurrentWithSwaps(t *testing.T) {
	m := newTestMatcher(t, []string{"example.com"}, nil)

	var readers, swapper sync.WaitGroup
	stop := make(chan struct{})

	swapper.Add(1)
	go func() {
		defer swapper.Done()
		sets := []*domain.RuleSet{
			domain.NewRuleSet([]string{"example.com"}, nil),
			domain.NewRuleSet([]string{"tracker.net"}, nil),
			domain.NewRuleSet(nil, nil),
		}
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
				m.Swap(sets[i%len(sets)])
			}
		}
	}()

	for i := 0; i < 4; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for j := 0; j < 1000; j++ {
				// decisions flip as the set swaps, but every call must
				// be internally consistent and never panic
				d := m.Decide("ads.example.com")
				if d.Blocked {
					assert.Equal(t, "example.com", d.MatchedRule)
				}
			}
		}()
	}

	readers.Wait()
	close(stop)
	swapper.Wait()
}

func TestCache_Disabled(t *testing.T) {
	cache, err := NewCache(0)
	require.NoError(t, err)
	m := New(cache)
	m.Swap(domain.NewRuleSet([]string{"example.com"}, nil))

	assert.True(t, m.Decide("ads.example.com").Blocked)
	hits, misses, evictions, size := m.CacheStats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)
	assert.Zero(t, evictions)
	assert.Zero(t, size)
}

func TestCacheStats_CountsHitsAndMisses(t *testing.T) {
	m := newTestMatcher(t, []string{"example.com"}, nil)

	m.Decide("ads.example.com") // miss, then cached
	m.Decide("ads.example.com") // hit

	hits, misses, _, size := m.CacheStats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, 1, size)
}
