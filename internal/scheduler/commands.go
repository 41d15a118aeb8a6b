package scheduler

import (
	"fmt"
	"log"
	"strings"
	"time"

	"ETFSentinel/internal/model"
	"ETFSentinel/internal/notifier"
	"ETFSentinel/internal/recorder"
)

// HandleCommand processes a user command and returns a reply for the
// originating chat.
func (s *Scheduler) HandleCommand(chatID, from, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i] // "/report@BotName" in group chats
	}

	switch cmd {
	case "/start", "/help":
		return notifier.FormatWelcome()

	case "/report":
		s.ack(chatID, "⏳ Generating market summary...")
		return s.buildReport(false)

	case "/detailed":
		s.ack(chatID, "⏳ Building detailed analysis...")
		return s.buildReport(true)

	case "/alerts":
		s.ack(chatID, "🔍 Checking for significant changes...")
		return s.checkAlertsNow()

	case "/history":
		if len(fields) < 2 {
			return "Usage: /history SYMBOL (e.g. /history SPY)"
		}
		return s.historyFor(fields[1])

	case "/subscribe":
		s.Store.Subscribe(chatID, from, s.Now())
		return "✅ Subscribed. You'll receive daily reports and market alerts."

	case "/unsubscribe":
		if s.Store.Unsubscribe(chatID) {
			return "💤 Unsubscribed. Use /subscribe to resume notifications."
		}
		return "You weren't subscribed."

	case "/status":
		return notifier.FormatStatus(
			len(s.cfg.Symbols), s.cfg.Analysis.Periods,
			s.Store.LastNotification(), s.Store.FileExists(),
			s.CurrentState().String(), time.Since(s.startedAt), s.Now())

	case "/subscribers":
		if !s.cfg.IsAdmin(chatID) {
			return "⛔ Administrators only."
		}
		return notifier.FormatSubscribers(s.Store.Subscribers())

	case "/test":
		if !s.cfg.IsAdmin(chatID) {
			return "⛔ Administrators only."
		}
		ids := s.Store.ActiveSubscribers(s.cfg.Telegram.AdminChatIDs)
		sent, failed := notifier.Broadcast(s.Ctx, s.Notifier, ids, "🔔 Test notification from ETFSentinel")
		if err := s.Recorder.RecordDelivery(&recorder.Delivery{Kind: "TEST", Recipients: sent, Failed: failed}); err != nil {
			log.Printf("[ERROR] record delivery: %v", err)
		}
		return fmt.Sprintf("Test notification: %d delivered, %d failed", sent, failed)

	default:
		return "Unknown command. Use /help to list available commands."
	}
}

// ack sends a best-effort progress message before a slow operation.
func (s *Scheduler) ack(chatID, text string) {
	if err := s.Notifier.SendTo(s.Ctx, chatID, text); err != nil {
		log.Printf("[WARN] send ack to %s: %v", chatID, err)
	}
}

func (s *Scheduler) buildReport(detailed bool) string {
	now := s.Now()
	reports, failed := s.Collector.CollectReports(now)
	return notifier.FormatReport(reports, s.cfg.Analysis.Periods, failed, now, detailed)
}

// checkAlertsNow runs an on-demand change check and reports the result
// to the requester only.
func (s *Scheduler) checkAlertsNow() string {
	today := s.Now().Format("2006-01-02")

	quotes, failedFetch := s.Collector.CollectQuotes()
	var changes []model.ChangeRecord
	for _, q := range quotes {
		if rec := s.Detector.Detect(q.Name, q.Symbol, q.Price, today); rec != nil {
			changes = append(changes, *rec)
		}
	}

	for i := range changes {
		if err := s.Recorder.RecordChange(&changes[i]); err != nil {
			log.Printf("[ERROR] record change for %s: %v", changes[i].Symbol, err)
		}
	}

	if len(changes) == 0 {
		msg := "✅ No significant changes detected since last check."
		if failedFetch > 0 {
			msg += fmt.Sprintf(" (%d symbol(s) unavailable)", failedFetch)
		}
		return msg
	}
	return notifier.FormatChangeAlert(changes, true)
}

// historyFor resolves a symbol query against the tracked list and
// renders its persisted price history.
func (s *Scheduler) historyFor(query string) string {
	q := strings.ToUpper(query)
	for _, sym := range s.cfg.Symbols {
		if strings.ToUpper(sym.Ticker) == q {
			return notifier.FormatHistory(sym.Name, sym.Ticker, s.Store.History(sym.Ticker))
		}
	}

	tickers := make([]string, len(s.cfg.Symbols))
	for i, sym := range s.cfg.Symbols {
		tickers[i] = sym.Ticker
	}
	return fmt.Sprintf("❌ Unknown symbol %q. Tracked: %s", query, strings.Join(tickers, ", "))
}
