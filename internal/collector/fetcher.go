package collector

import "ETFSentinel/internal/model"

// Fetcher defines the interface for fetching market data.
// FetchHistory returns daily bars ordered ascending by time, trying
// progressively shorter lookback windows until one yields usable data.
type Fetcher interface {
	FetchHistory(symbol string) ([]model.OHLCV, error)
	FetchCurrentPrice(symbol string) (float64, error)
	Name() string
}
