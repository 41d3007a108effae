package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/neomorfeo/innkeep/internal/app"
	"github.com/neomorfeo/innkeep/internal/integrity"
	"github.com/neomorfeo/innkeep/internal/rules"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port         string
	DatabasePath string
	LogLevel     slog.Level
	LogFormat    string // "json" or "text"

	RulesCacheTTL    time.Duration
	IntegrityTimeout time.Duration
	ShutdownTimeout  time.Duration

	// SweepSchedule is a cron spec; empty disables periodic sweeps.
	SweepSchedule string
	Sweep         app.SweepConfig
	Validator     app.ValidatorConfig

	// SeedDemo loads a demo property with reservations on startup.
	SeedDemo bool
}

// loadConfig reads Config from the environment. Every malformed value is
// reported, not just the first.
func loadConfig() (Config, error) {
	p := &envParser{}

	sweep := app.DefaultSweepConfig()
	sweep.PendingTimeout = p.duration("SWEEP_PENDING_TIMEOUT", sweep.PendingTimeout)
	sweep.NoShowGrace = p.duration("SWEEP_NO_SHOW_GRACE", sweep.NoShowGrace)
	sweep.Concurrency = p.int("SWEEP_CONCURRENCY", sweep.Concurrency)

	validator := app.DefaultValidatorConfig()
	validator.NoShowMinHours = p.float("NO_SHOW_MIN_HOURS", validator.NoShowMinHours)
	validator.NoShowWarnHours = p.float("NO_SHOW_WARN_HOURS", validator.NoShowWarnHours)
	validator.EarlyCheckInDays = p.int("EARLY_CHECK_IN_DAYS", validator.EarlyCheckInDays)
	validator.LateCheckInDays = p.int("LATE_CHECK_IN_DAYS", validator.LateCheckInDays)
	validator.EarlyCheckOutDays = p.int("EARLY_CHECK_OUT_DAYS", validator.EarlyCheckOutDays)
	validator.LateCheckOutDays = p.int("LATE_CHECK_OUT_DAYS", validator.LateCheckOutDays)
	validator.ConfirmMinPaidPercent = p.float("CONFIRM_MIN_PAID_PERCENT", validator.ConfirmMinPaidPercent)
	validator.CheckInMinPaidPercent = p.float("CHECK_IN_MIN_PAID_PERCENT", validator.CheckInMinPaidPercent)

	schedule, ok := os.LookupEnv("SWEEP_SCHEDULE")
	if !ok {
		schedule = "*/15 * * * *"
	}

	cfg := Config{
		Port:             envOrDefault("PORT", "8080"),
		DatabasePath:     envOrDefault("DATABASE_PATH", "innkeep.db"),
		LogLevel:         p.level("LOG_LEVEL", slog.LevelInfo),
		LogFormat:        envOrDefault("LOG_FORMAT", "json"),
		RulesCacheTTL:    p.duration("RULES_CACHE_TTL", rules.DefaultCacheTTL),
		IntegrityTimeout: p.duration("INTEGRITY_TIMEOUT", integrity.DefaultTimeout),
		ShutdownTimeout:  p.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		SweepSchedule:    schedule,
		Sweep:            sweep,
		Validator:        validator,
		SeedDemo:         p.bool("SEED_DEMO", false),
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		p.errs = append(p.errs, fmt.Errorf("LOG_FORMAT: unsupported format %q (use \"json\" or \"text\")", cfg.LogFormat))
	}
	if err := errors.Join(p.errs...); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envParser reads typed values and collects parse errors.
type envParser struct {
	errs []error
}

func (p *envParser) fail(key, value string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s=%q: %w", key, value, err))
}

func (p *envParser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return d
}

func (p *envParser) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return n
}

func (p *envParser) float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return f
}

func (p *envParser) bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return b
}

func (p *envParser) level(key string, fallback slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return l
}
