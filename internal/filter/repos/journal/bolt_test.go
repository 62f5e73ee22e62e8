package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/haukened/sinkhole/internal/filter/domain"
)

func openTestJournal(t *testing.T) Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestBoltJournal_AppendAndStats(t *testing.T) {
	j := openTestJournal(t)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	events := []domain.BlockEvent{
		{Layer: domain.LayerResolve, Host: "a.example.com", Rule: "example.com", At: at},
		{Layer: domain.LayerResolve, Host: "b.example.com", Rule: "example.com", At: at.Add(time.Second)},
		{Layer: domain.LayerHandshake, Host: "c.example.com", Rule: "example.com", At: at.Add(2 * time.Second)},
		{Layer: domain.LayerRequest, Host: "d.example.com", Rule: "example.com", At: at.Add(3 * time.Second)},
	}
	for _, ev := range events {
		if err := j.Append(ev); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	st := j.Stats()
	if st.Resolve != 2 || st.Handshake != 1 || st.Request != 1 {
		t.Errorf("Stats() = %+v; want resolve=2 handshake=1 request=1", st)
	}
	if st.Total() != 4 {
		t.Errorf("Total() = %d; want 4", st.Total())
	}
	if want := at.Add(3 * time.Second).Unix(); st.LastEventUnix != want {
		t.Errorf("LastEventUnix = %d; want %d", st.LastEventUnix, want)
	}
}

func TestBoltJournal_RecentNewestFirst(t *testing.T) {
	j := openTestJournal(t)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, host := range []string{"first.example.com", "second.example.com", "third.example.com"} {
		ev := domain.BlockEvent{
			Layer: domain.LayerResolve,
			Host:  host,
			Rule:  "example.com",
			At:    at.Add(time.Duration(i) * time.Second),
		}
		if err := j.Append(ev); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := j.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent(2) returned %d events", len(got))
	}
	if got[0].Host != "third.example.com" || got[1].Host != "second.example.com" {
		t.Errorf("Recent order = [%s, %s]; want newest first", got[0].Host, got[1].Host)
	}
	if got[0].Layer != domain.LayerResolve {
		t.Errorf("layer round-trip failed: %v", got[0].Layer)
	}
}

func TestBoltJournal_RecentBounds(t *testing.T) {
	j := openTestJournal(t)

	got, err := j.Recent(5)
	if err != nil {
		t.Fatalf("Recent on empty journal: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Recent on empty journal returned %d events", len(got))
	}

	if got, _ := j.Recent(0); got != nil {
		t.Error("Recent(0) should return nil")
	}
	if got, _ := j.Recent(-1); got != nil {
		t.Error("Recent(-1) should return nil")
	}
}

func TestBoltJournal_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ev := domain.BlockEvent{Layer: domain.LayerRequest, Host: "x.example.com", Rule: "example.com", At: time.Now()}
	if err := j.Append(ev); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	j2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j2.Close()
	if st := j2.Stats(); st.Request != 1 {
		t.Errorf("Stats after reopen = %+v; want request=1", st)
	}
}

func TestNoopJournal(t *testing.T) {
	var j Journal = Noop{}
	if err := j.Append(domain.BlockEvent{}); err != nil {
		t.Errorf("Noop.Append returned %v", err)
	}
	if st := j.Stats(); st.Total() != 0 {
		t.Errorf("Noop.Stats() = %+v; want zero", st)
	}
	if err := j.Close(); err != nil {
		t.Errorf("Noop.Close returned %v", err)
	}
}
