package analysis

import (
	"math"
	"testing"
	"time"

	"ETFSentinel/internal/model"
)

// dailyBars builds count consecutive daily bars ending yesterday
// relative to now, all at the given close with lows 1% beneath.
func dailyBars(now time.Time, count int, close float64) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		bars[i] = model.OHLCV{
			Time:   now.AddDate(0, 0, -(count - i)),
			Open:   close,
			High:   close * 1.01,
			Low:    close * 0.99,
			Close:  close,
			Volume: 1000000,
		}
	}
	return bars
}

func TestAnalyzeLows_EmptyBars(t *testing.T) {
	_, err := AnalyzeLows(nil, time.Now(), []int{30}, 0.015)
	if err == nil {
		t.Fatal("expected error for empty bar series")
	}
}

func TestAnalyzeLows_SingleBarNoChange(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	bars := []model.OHLCV{{Time: now.AddDate(0, 0, -1), Low: 99, Close: 100}}
	res, err := AnalyzeLows(bars, now, []int{30}, 0.015)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Change1D != 0 {
		t.Errorf("expected zero 1d change with a single bar, got %.4f", res.Change1D)
	}
}

func TestAnalyzeLows_Change1D(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	bars := dailyBars(now, 40, 100)
	bars[len(bars)-1].Close = 102
	res, err := AnalyzeLows(bars, now, []int{30}, 0.015)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(res.Change1D-2.0) > 1e-9 {
		t.Errorf("expected 1d change 2.0%%, got %.6f", res.Change1D)
	}
	if res.Current != 102 || res.PrevClose != 100 {
		t.Errorf("unexpected prices: current=%.2f prev=%.2f", res.Current, res.PrevClose)
	}
}

func TestAnalyzeLows_PeriodFieldsJointPresence(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	bars := dailyBars(now, 40, 100)
	res, err := AnalyzeLows(bars, now, []int{30, 360}, 0.015)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 30-day window holds ~30 bars, above the 15 required.
	p30, ok := res.Periods[30]
	if !ok || p30 == nil {
		t.Fatal("expected 30d period to be present")
	}
	if p30.LowPrice == 0 || p30.LowDate.IsZero() || p30.Days != 30 {
		t.Errorf("30d period fields not jointly populated: %+v", p30)
	}

	// 360-day window needs 180 bars; only 40 exist.
	p360, ok := res.Periods[360]
	if !ok {
		t.Fatal("expected 360d period entry to exist")
	}
	if p360 != nil {
		t.Errorf("expected 360d period to be absent with 40 bars, got %+v", p360)
	}
}

func TestAnalyzeLows_AtLowToleranceBoundary(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		current float64
		atLow   bool
	}{
		{"well above tolerance", 103, false},
		{"just above tolerance", 101.51, false},
		{"exact boundary inclusive", 101.5, true},
		{"inside tolerance", 101, true},
		{"at the low", 99, true},
	}
	for _, tt := range tests {
		bars := dailyBars(now, 40, 100)
		for i := range bars {
			bars[i].Low = 100 // window low 100, boundary 100*1.015 = 101.5
		}
		bars[len(bars)-1].Close = tt.current
		res, err := AnalyzeLows(bars, now, []int{30}, 0.015)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		p := res.Periods[30]
		if p == nil {
			t.Fatalf("%s: expected 30d period present", tt.name)
		}
		if p.AtLow != tt.atLow {
			t.Errorf("%s: current=%.2f low=100 tol=0.015: atLow=%v, want %v",
				tt.name, tt.current, p.AtLow, tt.atLow)
		}
	}
}

func TestAnalyzeLows_TieBrokenByEarliestLow(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	bars := dailyBars(now, 40, 100)
	first := len(bars) - 20
	second := len(bars) - 5
	bars[first].Low = 90
	bars[second].Low = 90
	res, err := AnalyzeLows(bars, now, []int{30}, 0.015)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := res.Periods[30]
	if p == nil {
		t.Fatal("expected 30d period present")
	}
	if !p.LowDate.Equal(bars[first].Time) {
		t.Errorf("expected earliest low date %v, got %v", bars[first].Time, p.LowDate)
	}
	if p.DaysSinceLow != 20 {
		t.Errorf("expected 20 days since low, got %d", p.DaysSinceLow)
	}
}

func TestAnalyzeLows_NormalizesNowIntoBarLocation(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	nowLocal := time.Date(2026, 3, 2, 8, 0, 0, 0, loc)
	bars := dailyBars(nowLocal, 40, 100)

	// Same instant expressed in UTC must yield the same result.
	resUTC, err := AnalyzeLows(bars, nowLocal.UTC(), []int{30}, 0.015)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resLocal, err := AnalyzeLows(bars, nowLocal, []int{30}, 0.015)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pu, pl := resUTC.Periods[30], resLocal.Periods[30]
	if pu == nil || pl == nil {
		t.Fatal("expected 30d period present in both runs")
	}
	if pu.DaysSinceLow != pl.DaysSinceLow || pu.LowPrice != pl.LowPrice {
		t.Errorf("timezone-dependent result: utc=%+v local=%+v", pu, pl)
	}
}
