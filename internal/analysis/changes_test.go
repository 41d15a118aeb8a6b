package analysis

import (
	"math"
	"testing"
)

// memStore is an in-memory PriceStore for detector tests.
type memStore struct {
	prices  map[string]float64
	history map[string]map[string]float64
}

func newMemStore() *memStore {
	return &memStore{
		prices:  make(map[string]float64),
		history: make(map[string]map[string]float64),
	}
}

func (m *memStore) LastPrice(symbol string) (float64, bool) {
	p, ok := m.prices[symbol]
	return p, ok
}

func (m *memStore) RecordPrice(symbol string, price float64, date string) {
	m.prices[symbol] = price
	if m.history[symbol] == nil {
		m.history[symbol] = make(map[string]float64)
	}
	m.history[symbol][date] = price
}

func TestDetect_FirstObservationEstablishesBaseline(t *testing.T) {
	store := newMemStore()
	d := NewChangeDetector(0.02, store)

	if rec := d.Detect("S&P 500", "SPY", 500, "2026-03-02"); rec != nil {
		t.Errorf("first observation must not emit a record, got %+v", rec)
	}
	if p, ok := store.LastPrice("SPY"); !ok || p != 500 {
		t.Errorf("baseline not recorded: %.2f ok=%v", p, ok)
	}
	if store.history["SPY"]["2026-03-02"] != 500 {
		t.Error("price history not updated with the baseline")
	}
}

func TestDetect_ThresholdCrossing(t *testing.T) {
	tests := []struct {
		name     string
		previous float64
		current  float64
		emit     bool
		wantPct  float64
	}{
		{"exactly at threshold", 100, 102, true, 2.0},
		{"below threshold", 100, 101.5, false, 0},
		{"negative crossing", 100, 97, true, -3.0},
		{"tiny move", 100, 100.1, false, 0},
	}
	for _, tt := range tests {
		store := newMemStore()
		d := NewChangeDetector(0.02, store)
		d.Detect("S&P 500", "SPY", tt.previous, "2026-03-01")

		rec := d.Detect("S&P 500", "SPY", tt.current, "2026-03-02")
		if tt.emit {
			if rec == nil {
				t.Errorf("%s: expected a change record", tt.name)
				continue
			}
			if math.Abs(rec.ChangePct-tt.wantPct) > 1e-9 {
				t.Errorf("%s: change pct %.6f, want %.1f", tt.name, rec.ChangePct, tt.wantPct)
			}
			if rec.Previous != tt.previous || rec.Current != tt.current {
				t.Errorf("%s: prices %+v", tt.name, rec)
			}
		} else if rec != nil {
			t.Errorf("%s: unexpected record %+v", tt.name, rec)
		}
	}
}

func TestDetect_BaselineUpdatedUnconditionally(t *testing.T) {
	store := newMemStore()
	d := NewChangeDetector(0.02, store)

	d.Detect("S&P 500", "SPY", 100, "2026-03-01")
	d.Detect("S&P 500", "SPY", 101, "2026-03-02") // below threshold, still becomes baseline

	// 101 -> 103.5 is ~2.5% against the latest baseline, not 100.
	rec := d.Detect("S&P 500", "SPY", 103.5, "2026-03-03")
	if rec == nil {
		t.Fatal("expected record against updated baseline")
	}
	if rec.Previous != 101 {
		t.Errorf("threshold must compare against the immediately preceding observation, got previous=%.2f", rec.Previous)
	}
}
