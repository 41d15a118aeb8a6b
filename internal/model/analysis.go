package model

import "time"

// PeriodLow holds the rolling-low result for one lookback period.
// All four fields are populated together; a period with insufficient
// history is represented by a nil *PeriodLow in LowAnalysis.Periods.
type PeriodLow struct {
	Days         int
	LowPrice     float64
	LowDate      time.Time
	DaysSinceLow int
	AtLow        bool
}

// LowAnalysis is the per-symbol result of the rolling-low engine.
// Change1D is a signed percentage; prices are unrounded (rounding
// happens at formatting).
type LowAnalysis struct {
	Name      string
	Symbol    string
	Current   float64
	PrevClose float64
	Change1D  float64
	Volume    float64
	Periods   map[int]*PeriodLow
}

// SymbolReport pairs a tracked symbol with its analysis.
// Analysis is nil when no data could be fetched for the symbol.
type SymbolReport struct {
	Name     string
	Symbol   string
	Analysis *LowAnalysis
}

// ChangeRecord describes a threshold-crossing price move since the
// last persisted observation. ChangePct is a signed percentage.
type ChangeRecord struct {
	Name      string
	Symbol    string
	Previous  float64
	Current   float64
	ChangePct float64
}
