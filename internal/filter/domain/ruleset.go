package domain

import "strings"

// RuleSet is an immutable snapshot of blocked and allowed hostnames.
//
// Notes:
//   - Entries are expected to be canonical (lower-case, no trailing
//     dot, no wildcard marker); normalization happens in the loader.
//   - A RuleSet is never mutated after construction. Publishers replace
//     the whole snapshot by reference, so concurrent readers can never
//     observe a partially-updated set.
type RuleSet struct {
	blocked map[string]struct{}
	allowed map[string]struct{}
}

// NewRuleSet constructs a RuleSet from two entry slices. Empty entries
// are dropped; duplicates collapse under set semantics. The input
// slices are not retained.
func NewRuleSet(blocked, allowed []string) *RuleSet {
	rs := &RuleSet{
		blocked: make(map[string]struct{}, len(blocked)),
		allowed: make(map[string]struct{}, len(allowed)),
	}
	for _, b := range blocked {
		if b = strings.TrimSpace(b); b != "" {
			rs.blocked[b] = struct{}{}
		}
	}
	for _, a := range allowed {
		if a = strings.TrimSpace(a); a != "" {
			rs.allowed[a] = struct{}{}
		}
	}
	return rs
}

// EmptyRuleSet returns a RuleSet that blocks nothing and allows nothing.
func EmptyRuleSet() *RuleSet {
	return NewRuleSet(nil, nil)
}

// Blocked reports whether name is an exact member of the blocked set.
func (rs *RuleSet) Blocked(name string) bool {
	_, ok := rs.blocked[name]
	return ok
}

// Allowed reports whether name is an exact member of the allowed set.
func (rs *RuleSet) Allowed(name string) bool {
	_, ok := rs.allowed[name]
	return ok
}

// BlockedCount returns the number of blocked entries.
func (rs *RuleSet) BlockedCount() int { return len(rs.blocked) }

// AllowedCount returns the number of allowed entries.
func (rs *RuleSet) AllowedCount() int { return len(rs.allowed) }

// VisitBlocked invokes visit for each blocked entry until visit
// returns false. Iteration order is unspecified.
func (rs *RuleSet) VisitBlocked(visit func(name string) bool) {
	for name := range rs.blocked {
		if !visit(name) {
			return
		}
	}
}

// AnyBlocked returns an arbitrary blocked entry, or "" when the
// blocked set is empty. Used by the activation self-test to find a
// probe candidate.
func (rs *RuleSet) AnyBlocked() string {
	for name := range rs.blocked {
		return name
	}
	return ""
}

// Equal reports whether both snapshots have identical blocked and
// allowed membership.
func (rs *RuleSet) Equal(other *RuleSet) bool {
	if other == nil {
		return false
	}
	if len(rs.blocked) != len(other.blocked) || len(rs.allowed) != len(other.allowed) {
		return false
	}
	for name := range rs.blocked {
		if _, ok := other.blocked[name]; !ok {
			return false
		}
	}
	for name := range rs.allowed {
		if _, ok := other.allowed[name]; !ok {
			return false
		}
	}
	return true
}
