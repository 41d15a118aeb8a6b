package state

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"ETFSentinel/internal/model"
)

// Manager owns the persisted bot state with concurrency safety.
// Every mutation is written through to disk; a failed write keeps the
// in-memory state and is retried on the next mutation.
type Manager struct {
	mu       sync.Mutex
	state    *model.BotState
	filePath string
}

// NewManager creates a Manager, loading state from disk. A missing or
// corrupt file falls back to empty defaults rather than failing.
func NewManager(filePath string) (*Manager, error) {
	state, err := loadState(filePath)
	if err != nil {
		return nil, err
	}
	return &Manager{state: state, filePath: filePath}, nil
}

// loadState reads the state file. Missing file yields empty defaults;
// a corrupt file is logged and also yields empty defaults.
func loadState(filePath string) (*model.BotState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return model.NewBotState(), nil
		}
		return nil, err
	}
	state := model.NewBotState()
	if err := json.Unmarshal(data, state); err != nil {
		log.Printf("[WARN] state file %s is corrupt, starting fresh: %v", filePath, err)
		return model.NewBotState(), nil
	}
	if state.LastPrices == nil {
		state.LastPrices = make(map[string]float64)
	}
	if state.PriceHistory == nil {
		state.PriceHistory = make(map[string]map[string]float64)
	}
	if state.Subscribers == nil {
		state.Subscribers = make(map[string]model.Subscriber)
	}
	return state, nil
}

func (m *Manager) save() {
	m.state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		log.Printf("[ERROR] marshal state: %v", err)
		return
	}
	if dir := filepath.Dir(m.filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("[ERROR] create state dir: %v", err)
			return
		}
	}
	if err := os.WriteFile(m.filePath, data, 0644); err != nil {
		log.Printf("[ERROR] save state to %s: %v", m.filePath, err)
	}
}

// LastPrice returns the last persisted price for a symbol.
func (m *Manager) LastPrice(symbol string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.state.LastPrices[symbol]
	return p, ok
}

// RecordPrice stores price as the new baseline for symbol and appends
// it to the dated price history. Both maps change under one lock and
// one write-through save.
func (m *Manager) RecordPrice(symbol string, price float64, date string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.LastPrices[symbol] = price
	if m.state.PriceHistory[symbol] == nil {
		m.state.PriceHistory[symbol] = make(map[string]float64)
	}
	m.state.PriceHistory[symbol][date] = price
	m.save()
}

// History returns a copy of the dated price history for a symbol.
func (m *Manager) History(symbol string) map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	hist := make(map[string]float64, len(m.state.PriceHistory[symbol]))
	for date, price := range m.state.PriceHistory[symbol] {
		hist[date] = price
	}
	return hist
}

// ShouldSendDaily reports whether the daily report has not yet been
// sent for today (exact date-string equality).
func (m *Manager) ShouldSendDaily(today string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.LastNotification != today
}

// MarkDailySent records today as the last daily-report date.
func (m *Manager) MarkDailySent(today string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.LastNotification = today
	m.save()
}

// LastNotification returns the last daily-report date, empty if never sent.
func (m *Manager) LastNotification() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.LastNotification
}

// Subscribe upserts a subscriber and marks it active. Re-subscribing
// after an unsubscribe keeps the original SubscribedAt.
func (m *Manager) Subscribe(chatID, displayName string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, exists := m.state.Subscribers[chatID]
	if !exists {
		sub.SubscribedAt = now
	}
	if displayName != "" {
		sub.DisplayName = displayName
	}
	sub.Active = true
	m.state.Subscribers[chatID] = sub
	m.save()
}

// Unsubscribe deactivates a subscriber, keeping the record. Returns
// false when the chat id was never subscribed.
func (m *Manager) Unsubscribe(chatID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, exists := m.state.Subscribers[chatID]
	if !exists {
		return false
	}
	sub.Active = false
	m.state.Subscribers[chatID] = sub
	m.save()
	return true
}

// ActiveSubscribers returns the union of the admin allow-list and all
// active subscribers, deduplicated, admins first then subscriber ids
// in sorted order.
func (m *Manager) ActiveSubscribers(admins []string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool, len(admins)+len(m.state.Subscribers))
	ids := make([]string, 0, len(admins)+len(m.state.Subscribers))
	for _, id := range admins {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	subs := make([]string, 0, len(m.state.Subscribers))
	for id, sub := range m.state.Subscribers {
		if sub.Active && !seen[id] {
			seen[id] = true
			subs = append(subs, id)
		}
	}
	sort.Strings(subs)
	return append(ids, subs...)
}

// Subscribers returns a copy of the full subscriber registry.
func (m *Manager) Subscribers() map[string]model.Subscriber {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]model.Subscriber, len(m.state.Subscribers))
	for id, sub := range m.state.Subscribers {
		out[id] = sub
	}
	return out
}

// FileExists reports whether the state file is present on disk.
func (m *Manager) FileExists() bool {
	_, err := os.Stat(m.filePath)
	return err == nil
}
