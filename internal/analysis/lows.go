package analysis

import (
	"errors"
	"math"
	"time"

	"ETFSentinel/internal/model"
)

// priceEps absorbs float64 rounding so the at-low comparison stays
// inclusive at the exact tolerance boundary.
const priceEps = 1e-9

// ErrNoBars is returned when a symbol has no price history at all.
var ErrNoBars = errors.New("no bars available")

// AnalyzeLows computes the rolling-low record for one symbol from its
// daily bar series. Bars must be ordered ascending by time. now is
// normalized into the bar series' time location before any window
// filtering or calendar math. A period with fewer than
// max(10, round(0.5*days)) observed bars inside its window is marked
// absent (nil entry), which is distinct from "not at the low".
func AnalyzeLows(bars []model.OHLCV, now time.Time, periods []int, lowTolerance float64) (*model.LowAnalysis, error) {
	if len(bars) == 0 {
		return nil, ErrNoBars
	}

	now = now.In(bars[len(bars)-1].Time.Location())

	last := bars[len(bars)-1]
	result := &model.LowAnalysis{
		Current: last.Close,
		Volume:  last.Volume,
		Periods: make(map[int]*model.PeriodLow, len(periods)),
	}

	if len(bars) >= 2 {
		prev := bars[len(bars)-2].Close
		result.PrevClose = prev
		if prev != 0 {
			result.Change1D = (last.Close - prev) / prev * 100
		}
	}

	for _, days := range periods {
		cutoff := now.AddDate(0, 0, -days)

		start := len(bars)
		for i := len(bars) - 1; i >= 0; i-- {
			if bars[i].Time.Before(cutoff) {
				break
			}
			start = i
		}
		window := bars[start:]

		if len(window) < minRequiredBars(days) {
			result.Periods[days] = nil
			continue
		}

		lowPrice := math.Inf(1)
		var lowDate time.Time
		for _, b := range window {
			if b.Low < lowPrice {
				lowPrice = b.Low
				lowDate = b.Time
			}
		}

		result.Periods[days] = &model.PeriodLow{
			Days:         days,
			LowPrice:     lowPrice,
			LowDate:      lowDate,
			DaysSinceLow: calendarDaysBetween(lowDate, now),
			AtLow:        last.Close-lowPrice*(1+lowTolerance) <= priceEps,
		}
	}

	return result, nil
}

// minRequiredBars is the minimum observed trading days a period needs
// to be statistically meaningful; shorter windows tolerate sparser
// coverage.
func minRequiredBars(days int) int {
	required := int(math.Round(0.5 * float64(days)))
	if required < 10 {
		required = 10
	}
	return required
}

// calendarDaysBetween counts whole calendar days from a to b in b's location.
func calendarDaysBetween(a, b time.Time) int {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
