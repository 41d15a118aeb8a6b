package state

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func tempStateFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "bot_state.json")
}

func TestRoundTrip(t *testing.T) {
	path := tempStateFile(t)

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	m.RecordPrice("SPY", 512.34, "2026-03-02")
	m.RecordPrice("QQQ", 430.10, "2026-03-02")
	m.RecordPrice("SPY", 515.00, "2026-03-03")
	m.Subscribe("1001", "alice", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	m.MarkDailySent("2026-03-03")

	reloaded, err := NewManager(path)
	if err != nil {
		t.Fatalf("reload manager: %v", err)
	}

	if p, ok := reloaded.LastPrice("SPY"); !ok || p != 515.00 {
		t.Errorf("SPY last price after reload: %.2f ok=%v", p, ok)
	}
	if !reflect.DeepEqual(reloaded.History("SPY"), map[string]float64{
		"2026-03-02": 512.34,
		"2026-03-03": 515.00,
	}) {
		t.Errorf("SPY history after reload: %v", reloaded.History("SPY"))
	}
	if reloaded.LastNotification() != "2026-03-03" {
		t.Errorf("last notification after reload: %q", reloaded.LastNotification())
	}
	subs := reloaded.Subscribers()
	if len(subs) != 1 || !subs["1001"].Active || subs["1001"].DisplayName != "alice" {
		t.Errorf("subscribers after reload: %v", subs)
	}
}

func TestMissingFileYieldsDefaults(t *testing.T) {
	m, err := NewManager(tempStateFile(t))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, ok := m.LastPrice("SPY"); ok {
		t.Error("expected no prices in fresh state")
	}
	if m.LastNotification() != "" {
		t.Error("expected empty last notification in fresh state")
	}
}

func TestCorruptFileYieldsDefaults(t *testing.T) {
	path := tempStateFile(t)
	if err := os.WriteFile(path, []byte("{not valid json"), 0644); err != nil {
		t.Fatal(err)
	}
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("corrupt file must not fail manager creation: %v", err)
	}
	if _, ok := m.LastPrice("SPY"); ok {
		t.Error("expected empty defaults after corrupt file")
	}
}

func TestResubscribePreservesSubscribedAt(t *testing.T) {
	m, err := NewManager(tempStateFile(t))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	first := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	later := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	m.Subscribe("1001", "alice", first)
	if !m.Unsubscribe("1001") {
		t.Fatal("unsubscribe of existing subscriber must succeed")
	}
	if m.Subscribers()["1001"].Active {
		t.Error("expected inactive after unsubscribe")
	}

	m.Subscribe("1001", "alice", later)
	sub := m.Subscribers()["1001"]
	if !sub.Active {
		t.Error("expected active after re-subscribe")
	}
	if !sub.SubscribedAt.Equal(first) {
		t.Errorf("re-subscribe must keep the original subscribed-at, got %v", sub.SubscribedAt)
	}
}

func TestUnsubscribeUnknown(t *testing.T) {
	m, err := NewManager(tempStateFile(t))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if m.Unsubscribe("9999") {
		t.Error("unsubscribe of unknown chat id must report false")
	}
}

func TestActiveSubscribersDeduplicatesAdmins(t *testing.T) {
	m, err := NewManager(tempStateFile(t))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	now := time.Now()
	m.Subscribe("2002", "bob", now)
	m.Subscribe("1001", "alice", now) // also an admin
	m.Subscribe("3003", "carol", now)
	m.Unsubscribe("3003")

	got := m.ActiveSubscribers([]string{"1001", "5005"})
	want := []string{"1001", "5005", "2002"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("active subscribers: got %v, want %v", got, want)
	}
}
