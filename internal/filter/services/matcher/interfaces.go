package matcher

import "github.com/haukened/sinkhole/internal/filter/domain"

// DecisionCache caches final decisions by canonical hostname with
// basic metrics. Implementations must be safe for concurrent use;
// hook call sites evaluate from whatever goroutine the host uses.
type DecisionCache interface {
	Get(name string) (domain.Decision, bool)
	Put(name string, d domain.Decision)
	Remove(name string)
	Len() int
	Purge()
	Stats() (hits, misses, evictions uint64)
}
