package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ETFSentinel/internal/analysis"
	"ETFSentinel/internal/collector"
	"ETFSentinel/internal/config"
	"ETFSentinel/internal/notifier"
	"ETFSentinel/internal/recorder"
	"ETFSentinel/internal/scheduler"
	"ETFSentinel/internal/state"

	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] ETFSentinel starting...")

	// .env is optional; real env vars win either way.
	if err := godotenv.Load(); err == nil {
		log.Println("[INFO] loaded .env")
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init fetcher
	var fetcher collector.Fetcher = collector.NewYahooFetcher(cfg.Proxy)
	if os.Getenv("USE_MOCK_DATA") == "true" {
		fetcher = &collector.MockFetcher{Price: 100}
	}
	log.Printf("[INFO] data source: %s", fetcher.Name())

	// Init state manager
	store, err := state.NewManager(cfg.State.File)
	if err != nil {
		log.Fatalf("[FATAL] init state manager: %v", err)
	}

	// Init Telegram notifier
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Proxy)

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Init collector and change detector
	col := collector.NewCollector(fetcher, cfg.Symbols, cfg.Analysis.Periods, cfg.Analysis.LowTolerance, cfg.Analysis.FetchWorkers)
	det := analysis.NewChangeDetector(cfg.Analysis.ChangeThreshold, store)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, cfg, col, det, store, tn, rec)
	if err := sched.Register(); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Println("[INFO] Telegram polling started")

	// Optional: send a report immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, sending daily report now")
		go sched.RunDailyNow()
	}

	log.Printf("[INFO] ETFSentinel is running, tracking %d symbols. Press Ctrl+C to stop.", len(cfg.Symbols))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] ETFSentinel stopped")
}
