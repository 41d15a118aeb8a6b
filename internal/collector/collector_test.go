package collector

import (
	"testing"
	"time"

	"ETFSentinel/internal/config"
)

var testSymbols = []config.Symbol{
	{Name: "S&P 500 (SPY)", Ticker: "SPY"},
	{Name: "NASDAQ 100 (QQQ)", Ticker: "QQQ"},
	{Name: "Europe (IEUR)", Ticker: "IEUR"},
}

func TestCollectReports_OrderAndFailures(t *testing.T) {
	fetcher := &MockFetcher{
		Price:       100,
		FailSymbols: map[string]bool{"QQQ": true},
	}
	c := NewCollector(fetcher, testSymbols, []int{30, 60}, 0.015, 2)

	reports, failed := c.CollectReports(time.Now())
	if len(reports) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(reports))
	}
	if failed != 1 {
		t.Errorf("expected 1 failed symbol, got %d", failed)
	}
	for i, sym := range testSymbols {
		if reports[i].Name != sym.Name || reports[i].Symbol != sym.Ticker {
			t.Errorf("report %d out of declaration order: %+v", i, reports[i])
		}
	}
	if reports[1].Analysis != nil {
		t.Error("failed symbol must carry a nil analysis")
	}
	if reports[0].Analysis == nil || reports[2].Analysis == nil {
		t.Error("healthy symbols must carry an analysis")
	}
	if reports[0].Analysis.Periods[30] == nil {
		t.Error("expected 30d period present for mock history")
	}
}

func TestCollectReports_AllSymbolsFail(t *testing.T) {
	fetcher := &MockFetcher{
		FailSymbols: map[string]bool{"SPY": true, "QQQ": true, "IEUR": true},
	}
	c := NewCollector(fetcher, testSymbols, []int{30}, 0.015, 4)

	reports, failed := c.CollectReports(time.Now())
	if failed != 3 {
		t.Errorf("expected all 3 symbols failed, got %d", failed)
	}
	for _, r := range reports {
		if r.Analysis != nil {
			t.Errorf("expected nil analysis for %s", r.Symbol)
		}
	}
}

func TestCollectQuotes_PartialFailure(t *testing.T) {
	fetcher := &MockFetcher{
		Price:       250,
		FailSymbols: map[string]bool{"IEUR": true},
	}
	c := NewCollector(fetcher, testSymbols, []int{30}, 0.015, 1)

	quotes, failed := c.CollectQuotes()
	if failed != 1 {
		t.Errorf("expected 1 failed quote, got %d", failed)
	}
	if len(quotes) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(quotes))
	}
	if quotes[0].Symbol != "SPY" || quotes[1].Symbol != "QQQ" {
		t.Errorf("quotes out of declaration order: %+v", quotes)
	}
	if quotes[0].Price != 250 {
		t.Errorf("unexpected quote price: %+v", quotes[0])
	}
}
