package collector

import (
	"fmt"
	"log"
	"sync"
	"time"

	"ETFSentinel/internal/analysis"
	"ETFSentinel/internal/config"
	"ETFSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price       float64
	History     []model.OHLCV
	FailSymbols map[string]bool
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchHistory(symbol string) ([]model.OHLCV, error) {
	if m.FailSymbols[symbol] {
		return nil, fmt.Errorf("mock: %s unavailable", symbol)
	}
	if m.History != nil {
		return m.History, nil
	}
	return GenerateMockBars(m.Price, 400), nil
}

func (m *MockFetcher) FetchCurrentPrice(symbol string) (float64, error) {
	if m.FailSymbols[symbol] {
		return 0, fmt.Errorf("mock: %s unavailable", symbol)
	}
	return m.Price, nil
}

// GenerateMockBars builds a synthetic daily series ending yesterday.
func GenerateMockBars(basePrice float64, count int) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   time.Now().AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// Quote is one symbol's current price observation.
type Quote struct {
	Name   string
	Symbol string
	Price  float64
}

// Collector orchestrates data fetching and low analysis for the
// tracked symbol set.
type Collector struct {
	Fetcher      Fetcher
	Symbols      []config.Symbol
	Periods      []int
	LowTolerance float64
	Workers      int
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, symbols []config.Symbol, periods []int, lowTolerance float64, workers int) *Collector {
	if workers < 1 {
		workers = 1
	}
	return &Collector{
		Fetcher:      fetcher,
		Symbols:      symbols,
		Periods:      periods,
		LowTolerance: lowTolerance,
		Workers:      workers,
	}
}

// CollectReports fetches history and runs the low analysis for every
// tracked symbol on a bounded worker pool. Results keep symbol
// declaration order regardless of fetch completion order; a symbol
// whose fetch or analysis fails gets a nil Analysis and is counted in
// failed rather than aborting the batch.
func (c *Collector) CollectReports(now time.Time) (reports []model.SymbolReport, failed int) {
	reports = make([]model.SymbolReport, len(c.Symbols))
	sem := make(chan struct{}, c.Workers)
	var wg sync.WaitGroup

	for i, sym := range c.Symbols {
		wg.Add(1)
		go func(i int, sym config.Symbol) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			reports[i] = model.SymbolReport{Name: sym.Name, Symbol: sym.Ticker}

			bars, err := c.Fetcher.FetchHistory(sym.Ticker)
			if err != nil {
				log.Printf("[WARN] fetch history for %s: %v", sym.Ticker, err)
				return
			}
			res, err := analysis.AnalyzeLows(bars, now, c.Periods, c.LowTolerance)
			if err != nil {
				log.Printf("[WARN] analyze %s: %v", sym.Ticker, err)
				return
			}
			res.Name = sym.Name
			res.Symbol = sym.Ticker
			reports[i].Analysis = res
		}(i, sym)
	}
	wg.Wait()

	for _, r := range reports {
		if r.Analysis == nil {
			failed++
		}
	}
	return reports, failed
}

// CollectQuotes fetches the current price for every tracked symbol in
// declaration order. Per-symbol failures are logged and counted, never
// fatal to the batch.
func (c *Collector) CollectQuotes() (quotes []Quote, failed int) {
	for _, sym := range c.Symbols {
		price, err := c.Fetcher.FetchCurrentPrice(sym.Ticker)
		if err != nil {
			log.Printf("[WARN] fetch current price for %s: %v", sym.Ticker, err)
			failed++
			continue
		}
		quotes = append(quotes, Quote{Name: sym.Name, Symbol: sym.Ticker, Price: price})
	}
	return quotes, failed
}
