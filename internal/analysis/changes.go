package analysis

import (
	"math"

	"ETFSentinel/internal/model"
)

// PriceStore is the persisted last-price view the change detector needs.
// RecordPrice must update the last price and the dated price history
// together.
type PriceStore interface {
	LastPrice(symbol string) (float64, bool)
	RecordPrice(symbol string, price float64, date string)
}

// ChangeDetector compares the current price against the last persisted
// observation and flags threshold crossings. Threshold is a fraction
// (0.02 means 2%).
type ChangeDetector struct {
	Threshold float64
	Store     PriceStore
}

// NewChangeDetector creates a detector backed by the given store.
func NewChangeDetector(threshold float64, store PriceStore) *ChangeDetector {
	return &ChangeDetector{Threshold: threshold, Store: store}
}

// Detect records current as the new baseline for symbol and returns a
// ChangeRecord when the move against the previous baseline is at or
// beyond the threshold. The first-ever observation only establishes the
// baseline and never produces a record.
func (d *ChangeDetector) Detect(name, symbol string, current float64, date string) *model.ChangeRecord {
	previous, ok := d.Store.LastPrice(symbol)
	d.Store.RecordPrice(symbol, current, date)
	if !ok || previous == 0 {
		return nil
	}

	changePct := (current - previous) / previous
	if math.Abs(changePct) < d.Threshold {
		return nil
	}

	return &model.ChangeRecord{
		Name:      name,
		Symbol:    symbol,
		Previous:  previous,
		Current:   current,
		ChangePct: changePct * 100,
	}
}
