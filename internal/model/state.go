package model

import "time"

// Subscriber is one registered delivery destination.
// Unsubscribing sets Active to false but keeps the record, so a
// re-subscription retains the original SubscribedAt.
type Subscriber struct {
	DisplayName  string    `json:"display_name"`
	SubscribedAt time.Time `json:"subscribed_at"`
	Active       bool      `json:"active"`
}

// BotState is the single persisted state document.
// PriceHistory maps symbol -> date (2006-01-02) -> closing price.
// LastNotification is the date of the last daily report, compared by
// exact string equality against "today" in the scheduler's timezone.
type BotState struct {
	LastPrices       map[string]float64            `json:"last_prices"`
	PriceHistory     map[string]map[string]float64 `json:"price_history"`
	LastNotification string                        `json:"last_notification"`
	Subscribers      map[string]Subscriber         `json:"subscribers"`
	UpdatedAt        time.Time                     `json:"updated_at"`
}

// NewBotState returns an empty state with all maps initialized.
func NewBotState() *BotState {
	return &BotState{
		LastPrices:   make(map[string]float64),
		PriceHistory: make(map[string]map[string]float64),
		Subscribers:  make(map[string]Subscriber),
	}
}
