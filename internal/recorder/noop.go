package recorder

import "ETFSentinel/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordAnalysis(_ *model.SymbolReport) error { return nil }
func (n *NoopRecorder) RecordChange(_ *model.ChangeRecord) error   { return nil }
func (n *NoopRecorder) RecordDelivery(_ *Delivery) error           { return nil }
func (n *NoopRecorder) Close() error                               { return nil }
