package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"ETFSentinel/internal/analysis"
	"ETFSentinel/internal/collector"
	"ETFSentinel/internal/config"
	"ETFSentinel/internal/model"
	"ETFSentinel/internal/notifier"
	"ETFSentinel/internal/recorder"
	"ETFSentinel/internal/state"

	"github.com/robfig/cron/v3"
)

// State is the notification loop's current phase.
type State int

const (
	// StateIdle: between ticks, after startup or a completed send.
	StateIdle State = iota
	// StateAwaitingWindow: last tick fell outside every firing rule.
	StateAwaitingWindow
	// StateSending: a report or alert delivery is in flight.
	StateSending
	// StateBackoff: a tick failed; ticking is suppressed until backoffUntil.
	StateBackoff
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingWindow:
		return "awaiting window"
	case StateSending:
		return "sending"
	case StateBackoff:
		return "backoff"
	default:
		return "unknown"
	}
}

// backoffDuration is how long ticking is suppressed after a tick failure.
const backoffDuration = 5 * time.Minute

// Scheduler drives the daily-report and periodic-alert rules from a
// once-per-minute cron tick. All wall-clock reads go through Now so
// the state machine is testable with a virtual clock.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Detector  *analysis.ChangeDetector
	Store     *state.Manager
	Notifier  notifier.Sender
	Recorder  recorder.Recorder
	Ctx       context.Context
	Now       func() time.Time

	cfg       *config.Config
	loc       *time.Location
	startedAt time.Time

	mu           sync.Mutex
	machine      State
	backoffUntil time.Time
}

// NewScheduler creates a new Scheduler. The config must already be validated.
func NewScheduler(ctx context.Context, cfg *config.Config, col *collector.Collector, det *analysis.ChangeDetector, store *state.Manager, sender notifier.Sender, rec recorder.Recorder) *Scheduler {
	loc, err := cfg.Location()
	if err != nil {
		loc = time.Local
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Collector: col,
		Detector:  det,
		Store:     store,
		Notifier:  sender,
		Recorder:  rec,
		Ctx:       ctx,
		Now:       func() time.Time { return time.Now().In(loc) },
		cfg:       cfg,
		loc:       loc,
		startedAt: time.Now(),
		machine:   StateIdle,
	}
}

// Register wires the per-minute tick into cron.
func (s *Scheduler) Register() error {
	if _, err := s.Cron.AddFunc("0 * * * * *", func() { s.Tick(s.Now()) }); err != nil {
		return fmt.Errorf("register minute tick: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// CurrentState returns the machine state for status reporting.
func (s *Scheduler) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine
}

func (s *Scheduler) setState(st State) {
	s.mu.Lock()
	s.machine = st
	s.mu.Unlock()
}

// Tick evaluates the firing rules for one wall-clock minute. Any
// failure, including a panic, moves the machine into backoff instead
// of terminating the loop.
func (s *Scheduler) Tick(now time.Time) {
	now = now.In(s.loc)

	s.mu.Lock()
	if s.machine == StateBackoff {
		if now.Before(s.backoffUntil) {
			s.mu.Unlock()
			return
		}
		s.machine = StateIdle
		log.Println("[INFO] scheduler resuming after backoff")
	}
	s.mu.Unlock()

	if err := s.safeTick(now); err != nil {
		log.Printf("[ERROR] scheduler tick: %v, backing off for %v", err, backoffDuration)
		s.mu.Lock()
		s.machine = StateBackoff
		s.backoffUntil = now.Add(backoffDuration)
		s.mu.Unlock()
	}
}

func (s *Scheduler) safeTick(now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panic: %v", r)
		}
	}()
	return s.runTick(now)
}

func (s *Scheduler) runTick(now time.Time) error {
	today := now.Format("2006-01-02")
	sched := s.cfg.Schedule

	if now.Hour() == sched.DailyReportHour && now.Minute() == sched.DailyReportMinute &&
		s.Store.ShouldSendDaily(today) {
		s.setState(StateSending)
		defer s.setState(StateIdle)
		return s.sendDailyReport(now, today)
	}

	if now.Hour() >= sched.AlertWindowStartHour && now.Hour() <= sched.AlertWindowEndHour &&
		now.Minute()%sched.AlertIntervalMinutes == 0 {
		s.setState(StateSending)
		defer s.setState(StateIdle)
		return s.runAlertCheck(now)
	}

	s.setState(StateAwaitingWindow)
	return nil
}

// sendDailyReport builds and broadcasts the daily report. The
// last-notification date is marked after the broadcast attempt
// regardless of per-subscriber failures (at-most-once delivery).
func (s *Scheduler) sendDailyReport(now time.Time, today string) error {
	log.Println("[INFO] sending daily report")

	reports, failedFetch := s.Collector.CollectReports(now)
	text := notifier.FormatReport(reports, s.cfg.Analysis.Periods, failedFetch, now, false)

	ids := s.Store.ActiveSubscribers(s.cfg.Telegram.AdminChatIDs)
	sent, failedSend := notifier.BroadcastWithRetry(s.Ctx, s.Notifier, ids, text, 2)
	s.Store.MarkDailySent(today)

	for i := range reports {
		if err := s.Recorder.RecordAnalysis(&reports[i]); err != nil {
			log.Printf("[ERROR] record analysis for %s: %v", reports[i].Symbol, err)
		}
	}
	if err := s.Recorder.RecordDelivery(&recorder.Delivery{Kind: "DAILY_REPORT", Recipients: sent, Failed: failedSend}); err != nil {
		log.Printf("[ERROR] record delivery: %v", err)
	}

	log.Printf("[INFO] daily report delivered to %d subscriber(s), %d failed", sent, failedSend)
	if sent == 0 && failedSend > 0 {
		return fmt.Errorf("daily report delivery failed for all %d subscriber(s)", failedSend)
	}
	return nil
}

// runAlertCheck runs change detection across all tracked symbols and
// broadcasts an aggregate alert when any threshold crossing occurred.
func (s *Scheduler) runAlertCheck(now time.Time) error {
	today := now.Format("2006-01-02")

	quotes, failedFetch := s.Collector.CollectQuotes()
	if failedFetch > 0 {
		log.Printf("[WARN] alert check: %d symbol(s) failed to fetch", failedFetch)
	}

	var changes []model.ChangeRecord
	for _, q := range quotes {
		if rec := s.Detector.Detect(q.Name, q.Symbol, q.Price, today); rec != nil {
			changes = append(changes, *rec)
		}
	}
	if len(changes) == 0 {
		return nil
	}

	for i := range changes {
		if err := s.Recorder.RecordChange(&changes[i]); err != nil {
			log.Printf("[ERROR] record change for %s: %v", changes[i].Symbol, err)
		}
	}

	text := notifier.FormatChangeAlert(changes, false)
	ids := s.Store.ActiveSubscribers(s.cfg.Telegram.AdminChatIDs)
	sent, failedSend := notifier.Broadcast(s.Ctx, s.Notifier, ids, text)
	if err := s.Recorder.RecordDelivery(&recorder.Delivery{Kind: "CHANGE_ALERT", Recipients: sent, Failed: failedSend}); err != nil {
		log.Printf("[ERROR] record delivery: %v", err)
	}

	log.Printf("[INFO] change alert (%d symbol(s)) delivered to %d subscriber(s), %d failed", len(changes), sent, failedSend)
	if sent == 0 && failedSend > 0 {
		return fmt.Errorf("change alert delivery failed for all %d subscriber(s)", failedSend)
	}
	return nil
}

// RunDailyNow sends the daily report immediately (manual trigger / RUN_ON_START).
func (s *Scheduler) RunDailyNow() {
	now := s.Now()
	if err := s.sendDailyReport(now, now.Format("2006-01-02")); err != nil {
		log.Printf("[ERROR] manual daily report: %v", err)
	}
}
