package domain

// Decision represents the outcome of evaluating a hostname against a
// RuleSet. Pure value type, no external dependencies.
type Decision struct {
	Blocked     bool   // true if the name is blocked by any rule
	MatchedRule string // the blocked suffix that matched, canonical form
}

// IsBlocked is a convenience accessor.
func (d Decision) IsBlocked() bool { return d.Blocked }

// EmptyDecision returns a not-blocked decision.
func EmptyDecision() Decision { return Decision{Blocked: false} }
