package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Symbol maps a display name to the provider ticker. Declaration order
// in the config file is the report order.
type Symbol struct {
	Name   string `yaml:"name"`
	Ticker string `yaml:"ticker"`
}

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken     string   `yaml:"bot_token"`
		AdminChatIDs []string `yaml:"admin_chat_ids"`
	} `yaml:"telegram"`
	Symbols  []Symbol `yaml:"symbols"`
	Analysis struct {
		Periods         []int   `yaml:"periods"`
		ChangeThreshold float64 `yaml:"change_threshold"`
		LowTolerance    float64 `yaml:"low_tolerance"`
		FetchWorkers    int     `yaml:"fetch_workers"`
	} `yaml:"analysis"`
	Schedule struct {
		Timezone             string `yaml:"timezone"`
		DailyReportHour      int    `yaml:"daily_report_hour"`
		DailyReportMinute    int    `yaml:"daily_report_minute"`
		AlertWindowStartHour int    `yaml:"alert_window_start_hour"`
		AlertWindowEndHour   int    `yaml:"alert_window_end_hour"`
		AlertIntervalMinutes int    `yaml:"alert_interval_minutes"`
	} `yaml:"schedule"`
	State struct {
		File string `yaml:"file"`
	} `yaml:"state"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// defaultSymbols is the tracked ETF universe used when the config file
// doesn't declare its own.
var defaultSymbols = []Symbol{
	{Name: "S&P 500 (SPY)", Ticker: "SPY"},
	{Name: "NASDAQ 100 (QQQ)", Ticker: "QQQ"},
	{Name: "Russell 2000 (IWM)", Ticker: "IWM"},
	{Name: "Total Market (VTI)", Ticker: "VTI"},
	{Name: "ACWI", Ticker: "ACWI"},
	{Name: "Europe (IEUR)", Ticker: "IEUR"},
	{Name: "Emerging Markets (EEM)", Ticker: "EEM"},
	{Name: "China A Shares (ASHR)", Ticker: "ASHR"},
	{Name: "Japan (EWJ)", Ticker: "EWJ"},
	{Name: "Technology (VGT)", Ticker: "VGT"},
	{Name: "Healthcare (VHT)", Ticker: "VHT"},
	{Name: "Financials (VFH)", Ticker: "VFH"},
	{Name: "Energy (VDE)", Ticker: "VDE"},
	{Name: "Real Estate (VNQ)", Ticker: "VNQ"},
	{Name: "Clean Energy (ICLN)", Ticker: "ICLN"},
	{Name: "Cybersecurity (HACK)", Ticker: "HACK"},
	{Name: "AI & Robotics (BOTZ)", Ticker: "BOTZ"},
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_ADMIN_CHAT_IDS"); v != "" {
		cfg.Telegram.AdminChatIDs = nil
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				cfg.Telegram.AdminChatIDs = append(cfg.Telegram.AdminChatIDs, id)
			}
		}
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("STATE_FILE"); v != "" {
		cfg.State.File = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("TIMEZONE"); v != "" {
		cfg.Schedule.Timezone = v
	}

	// Defaults
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = defaultSymbols
	}
	if len(cfg.Analysis.Periods) == 0 {
		cfg.Analysis.Periods = []int{30, 60, 180, 360}
	}
	if cfg.Analysis.ChangeThreshold == 0 {
		cfg.Analysis.ChangeThreshold = 0.02
	}
	if cfg.Analysis.LowTolerance == 0 {
		cfg.Analysis.LowTolerance = 0.015
	}
	if cfg.Analysis.FetchWorkers == 0 {
		cfg.Analysis.FetchWorkers = 4
	}
	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "Local"
	}
	if cfg.Schedule.DailyReportHour == 0 && cfg.Schedule.DailyReportMinute == 0 {
		cfg.Schedule.DailyReportHour = 9
	}
	if cfg.Schedule.AlertWindowStartHour == 0 {
		cfg.Schedule.AlertWindowStartHour = 9
	}
	if cfg.Schedule.AlertWindowEndHour == 0 {
		cfg.Schedule.AlertWindowEndHour = 16
	}
	if cfg.Schedule.AlertIntervalMinutes == 0 {
		cfg.Schedule.AlertIntervalMinutes = 30
	}
	if cfg.State.File == "" {
		cfg.State.File = "data/bot_state.json"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/etf_sentinel.db"
	}

	return cfg, nil
}

// Validate checks that all required fields are set and consistent.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one tracked symbol is required")
	}
	for _, s := range c.Symbols {
		if s.Name == "" || s.Ticker == "" {
			return fmt.Errorf("symbol entries need both name and ticker")
		}
	}
	for _, p := range c.Analysis.Periods {
		if p <= 0 {
			return fmt.Errorf("analysis.periods must be positive day counts")
		}
	}
	if c.Analysis.ChangeThreshold <= 0 {
		return fmt.Errorf("analysis.change_threshold must be positive")
	}
	if c.Analysis.LowTolerance < 0 {
		return fmt.Errorf("analysis.low_tolerance must not be negative")
	}
	if c.Schedule.DailyReportHour < 0 || c.Schedule.DailyReportHour > 23 ||
		c.Schedule.DailyReportMinute < 0 || c.Schedule.DailyReportMinute > 59 {
		return fmt.Errorf("schedule daily report time out of range")
	}
	if c.Schedule.AlertWindowStartHour > c.Schedule.AlertWindowEndHour {
		return fmt.Errorf("schedule.alert_window_start_hour must not exceed end hour")
	}
	if c.Schedule.AlertIntervalMinutes < 1 || c.Schedule.AlertIntervalMinutes > 60 {
		return fmt.Errorf("schedule.alert_interval_minutes must be within 1..60")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	return nil
}

// Location resolves the configured scheduler timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Schedule.Timezone == "" || c.Schedule.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Schedule.Timezone)
}

// IsAdmin reports whether the chat id is on the administrator allow-list.
func (c *Config) IsAdmin(chatID string) bool {
	for _, id := range c.Telegram.AdminChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}
