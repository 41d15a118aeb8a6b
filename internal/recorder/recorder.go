package recorder

import "ETFSentinel/internal/model"

// Delivery summarizes one outgoing broadcast.
type Delivery struct {
	Kind       string // "DAILY_REPORT", "CHANGE_ALERT", "TEST"
	Recipients int
	Failed     int
}

// Recorder persists analysis and notification history for offline
// inspection. Implementations must be safe for concurrent use.
type Recorder interface {
	RecordAnalysis(rep *model.SymbolReport) error
	RecordChange(rec *model.ChangeRecord) error
	RecordDelivery(d *Delivery) error
	Close() error
}
