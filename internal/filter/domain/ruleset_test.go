package domain

import "testing"

func TestNewRuleSet_SetSemantics(t *testing.T) {
	rs := NewRuleSet(
		[]string{"example.com", "example.com", "ads.example.net", "", "  "},
		[]string{"safe.example.com", "safe.example.com"},
	)

	if got := rs.BlockedCount(); got != 2 {
		t.Errorf("BlockedCount() = %d; want 2", got)
	}
	if got := rs.AllowedCount(); got != 1 {
		t.Errorf("AllowedCount() = %d; want 1", got)
	}
	if !rs.Blocked("example.com") {
		t.Error("Blocked(example.com) = false; want true")
	}
	if rs.Blocked("") {
		t.Error("Blocked(\"\") = true; want false")
	}
	if !rs.Allowed("safe.example.com") {
		t.Error("Allowed(safe.example.com) = false; want true")
	}
}

func TestEmptyRuleSet(t *testing.T) {
	rs := EmptyRuleSet()
	if rs.BlockedCount() != 0 || rs.AllowedCount() != 0 {
		t.Errorf("EmptyRuleSet() has %d blocked / %d allowed entries", rs.BlockedCount(), rs.AllowedCount())
	}
	if rs.AnyBlocked() != "" {
		t.Errorf("AnyBlocked() = %q; want empty", rs.AnyBlocked())
	}
}

func TestRuleSet_Equal(t *testing.T) {
	tests := []struct {
		name string
		a, b *RuleSet
		want bool
	}{
		{
			name: "identical membership independent of order and duplicates",
			a:    NewRuleSet([]string{"a.com", "b.com"}, []string{"c.com"}),
			b:    NewRuleSet([]string{"b.com", "a.com", "a.com"}, []string{"c.com"}),
			want: true,
		},
		{
			name: "different blocked membership",
			a:    NewRuleSet([]string{"a.com"}, nil),
			b:    NewRuleSet([]string{"b.com"}, nil),
			want: false,
		},
		{
			name: "different allowed membership",
			a:    NewRuleSet([]string{"a.com"}, []string{"x.com"}),
			b:    NewRuleSet([]string{"a.com"}, []string{"y.com"}),
			want: false,
		},
		{
			name: "nil other",
			a:    EmptyRuleSet(),
			b:    nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestRuleSet_VisitBlocked_StopsEarly(t *testing.T) {
	rs := NewRuleSet([]string{"a.com", "b.com", "c.com"}, nil)
	calls := 0
	rs.VisitBlocked(func(string) bool {
		calls++
		return false
	})
	if calls != 1 {
		t.Errorf("visit called %d times; want 1", calls)
	}
}

func TestRuleSet_AnyBlocked_ReturnsMember(t *testing.T) {
	rs := NewRuleSet([]string{"tracker.example.com"}, nil)
	if got := rs.AnyBlocked(); got != "tracker.example.com" {
		t.Errorf("AnyBlocked() = %q; want tracker.example.com", got)
	}
}
