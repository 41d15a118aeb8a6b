package notifier

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"ETFSentinel/internal/model"
)

// notableMovePct is the daily move magnitude (percent) highlighted in
// the report summary section.
const notableMovePct = 2.0

// FormatReport renders the market report. Deterministic for the same
// inputs and timestamp; yields a valid non-empty message even when no
// symbol data is available.
func FormatReport(reports []model.SymbolReport, periods []int, failed int, now time.Time, detailed bool) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Market Report</b> | %s\n\n", now.Format("02/01/2006 15:04")))

	var atLows []string
	var notableMoves []string
	hasData := false

	for _, rep := range reports {
		data := rep.Analysis
		if data == nil {
			if detailed {
				b.WriteString(fmt.Sprintf("❌ <b>%s</b> (%s): Data unavailable\n\n", rep.Name, rep.Symbol))
			}
			continue
		}
		hasData = true

		var lowPeriods []string
		for _, days := range periods {
			if p := data.Periods[days]; p != nil && p.AtLow {
				lowPeriods = append(lowPeriods, fmt.Sprintf("%dD", days))
			}
		}
		if len(lowPeriods) > 0 {
			atLows = append(atLows, fmt.Sprintf("🔻 <b>%s</b>: At %s low(s)", rep.Name, strings.Join(lowPeriods, ", ")))
		}

		if data.Change1D >= notableMovePct || data.Change1D <= -notableMovePct {
			emoji := "🟢"
			if data.Change1D < 0 {
				emoji = "🔴"
			}
			notableMoves = append(notableMoves, fmt.Sprintf("%s <b>%s</b>: %+.1f%%", emoji, rep.Name, data.Change1D))
		}

		if detailed {
			b.WriteString(fmt.Sprintf("📈 <b>%s</b> (%s)\n", rep.Name, rep.Symbol))
			b.WriteString(fmt.Sprintf("💰 Current: $%.2f (%+.1f%%)\n", data.Current, data.Change1D))
			for _, days := range periods {
				p := data.Periods[days]
				switch {
				case p == nil:
					b.WriteString(fmt.Sprintf("❔ %dD: No data\n", days))
				case p.AtLow:
					b.WriteString(fmt.Sprintf("🔻 <b>At %dD Low</b>: $%.2f\n", days, p.LowPrice))
				default:
					b.WriteString(fmt.Sprintf("✅ Above %dD low: $%.2f (%dd ago)\n", days, p.LowPrice, p.DaysSinceLow))
				}
			}
			b.WriteString("\n")
		}
	}

	if !hasData {
		b.WriteString("❌ No symbol data available right now.\n")
	}
	if failed > 0 {
		b.WriteString(fmt.Sprintf("⚠️ %d symbol(s) unavailable\n", failed))
	}

	if len(atLows) > 0 || len(notableMoves) > 0 {
		b.WriteString("\n🚨 <b>KEY ALERTS</b>\n\n")
		if len(atLows) > 0 {
			b.WriteString("💡 <b>At Historical Lows:</b>\n")
			for _, alert := range atLows {
				b.WriteString(alert + "\n")
			}
			b.WriteString("\n")
		}
		if len(notableMoves) > 0 {
			b.WriteString("📈 <b>Notable Moves Today:</b>\n")
			for _, move := range notableMoves {
				b.WriteString(move + "\n")
			}
			b.WriteString("\n")
		}
	}

	if !detailed {
		b.WriteString("\nUse /detailed for full analysis\n")
	}
	b.WriteString("\n📝 <b>Note:</b> Prices are for ETFs tracking the indices/sectors")
	return b.String()
}

// FormatChangeAlert renders an aggregate threshold-crossing alert.
// detailed includes the old and new prices per symbol.
func FormatChangeAlert(changes []model.ChangeRecord, detailed bool) string {
	var b strings.Builder
	if detailed {
		b.WriteString("🚨 <b>Significant Changes Detected:</b>\n\n")
	} else {
		b.WriteString("🚨 <b>Market Alert - Significant Changes:</b>\n\n")
	}
	for _, c := range changes {
		emoji := "🟢"
		if c.ChangePct < 0 {
			emoji = "🔴"
		}
		if detailed {
			b.WriteString(fmt.Sprintf("%s <b>%s</b>\n$%.2f → $%.2f (%+.1f%%)\n\n", emoji, c.Name, c.Previous, c.Current, c.ChangePct))
		} else {
			b.WriteString(fmt.Sprintf("%s <b>%s</b>: %+.1f%%\n", emoji, c.Name, c.ChangePct))
		}
	}
	return b.String()
}

// FormatHistory renders the persisted price history for one symbol,
// most recent first, capped at the last 14 observations.
func FormatHistory(name, symbol string, history map[string]float64) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📜 <b>%s</b> (%s) price history\n\n", name, symbol))

	if len(history) == 0 {
		b.WriteString("No observations recorded yet.")
		return b.String()
	}

	dates := make([]string, 0, len(history))
	for date := range history {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	if len(dates) > 14 {
		dates = dates[:14]
	}
	for _, date := range dates {
		b.WriteString(fmt.Sprintf("%s: $%.2f\n", date, history[date]))
	}
	return b.String()
}

// FormatStatus renders bot status facts for the /status command.
func FormatStatus(tracked int, periods []int, lastNotification string, stateFileOK bool, schedulerState string, uptime time.Duration, now time.Time) string {
	if lastNotification == "" {
		lastNotification = "Never"
	}
	stateFile := "❌ Missing"
	if stateFileOK {
		stateFile = "✅ OK"
	}
	periodStrs := make([]string, len(periods))
	for i, p := range periods {
		periodStrs[i] = fmt.Sprintf("%d", p)
	}

	var b strings.Builder
	b.WriteString("📊 <b>Bot Status</b>\n\n")
	b.WriteString(fmt.Sprintf("🕐 Current Time: %s\n", now.Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("⏱ Uptime: %s\n", uptime.Round(time.Second)))
	b.WriteString(fmt.Sprintf("📈 Tracking: %d ETFs\n", tracked))
	b.WriteString(fmt.Sprintf("⚙️ Scheduler: %s\n", schedulerState))
	b.WriteString(fmt.Sprintf("📅 Last Daily Report: %s\n", lastNotification))
	b.WriteString(fmt.Sprintf("💾 State File: %s\n", stateFile))
	b.WriteString(fmt.Sprintf("\n<b>Periods Analyzed:</b> %s days", strings.Join(periodStrs, ", ")))
	return b.String()
}

// FormatSubscribers renders the subscriber registry for administrators.
func FormatSubscribers(subs map[string]model.Subscriber) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("👥 <b>Subscribers</b> (%d)\n\n", len(subs)))

	ids := make([]string, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		sub := subs[id]
		status := "✅ active"
		if !sub.Active {
			status = "💤 inactive"
		}
		name := sub.DisplayName
		if name == "" {
			name = "-"
		}
		b.WriteString(fmt.Sprintf("%s (%s): %s, since %s\n", id, name, status, sub.SubscribedAt.Format("2006-01-02")))
	}
	if len(ids) == 0 {
		b.WriteString("No subscribers yet.")
	}
	return b.String()
}

// FormatWelcome renders the /start and /help text.
func FormatWelcome() string {
	return `🤖 <b>ETF Market Tracker Bot</b>

Commands:
/report - Quick market summary
/detailed - Full detailed report
/alerts - Check for significant changes
/history SYMBOL - Persisted price history
/subscribe - Receive scheduled notifications
/unsubscribe - Stop receiving notifications
/status - Bot status and stats
/help - Show this help

I'll automatically notify you of:
• ETFs hitting historical lows
• Significant price movements
• Daily market summaries`
}
