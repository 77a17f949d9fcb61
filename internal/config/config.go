package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the server.
type Config struct {
	// DBPath is the SQLite database location.
	DBPath string
	// ListenAddr is the HTTP listen address.
	ListenAddr string
	// JWTSecret signs and verifies API tokens (HS256).
	JWTSecret string

	// DecayUnit is the wall-clock span of one decay step.
	DecayUnit time.Duration
	// DecayRatePerUnit is the vitality lost per elapsed decay unit.
	DecayRatePerUnit int

	// QualifyingMinutes is the minimum completed-session duration that
	// unlocks task completion.
	QualifyingMinutes int
	// SessionRewardMinutes is the minimum duration that earns the
	// session-completion award.
	SessionRewardMinutes int
	// SessionRewardGems is paid for each rewarded session stop.
	SessionRewardGems int
	// TaskRewardGems is paid for each gated task completion.
	TaskRewardGems int

	// HistoryLimit caps the session-history page size.
	HistoryLimit int

	// DigestCron is the aggregator cadence (cron expression, UTC).
	DigestCron string
	// DigestWindow is the summary window for users with no prior digest.
	DigestWindow time.Duration

	// LogUseCases enables service-level telemetry logging.
	LogUseCases bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DBPath:               "pettrack.db",
		ListenAddr:           ":4000",
		JWTSecret:            "",
		DecayUnit:            time.Hour,
		DecayRatePerUnit:     2,
		QualifyingMinutes:    25,
		SessionRewardMinutes: 25,
		SessionRewardGems:    5,
		TaskRewardGems:       3,
		HistoryLimit:         50,
		DigestCron:           "0 */6 * * *",
		DigestWindow:         6 * time.Hour,
		LogUseCases:          true,
	}
}

// LoadConfig reads configuration from environment variables, falling back to
// defaults for any unset values.
func LoadConfig() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("PETTRACK_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("PETTRACK_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("PETTRACK_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("PETTRACK_DECAY_UNIT_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DecayUnit = time.Duration(n) * time.Minute
		}
	}
	if v := os.Getenv("PETTRACK_DECAY_RATE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DecayRatePerUnit = n
		}
	}
	if v := os.Getenv("PETTRACK_QUALIFYING_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.QualifyingMinutes = n
		}
	}
	if v := os.Getenv("PETTRACK_SESSION_REWARD_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionRewardMinutes = n
		}
	}
	if v := os.Getenv("PETTRACK_SESSION_REWARD_GEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.SessionRewardGems = n
		}
	}
	if v := os.Getenv("PETTRACK_TASK_REWARD_GEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.TaskRewardGems = n
		}
	}
	if v := os.Getenv("PETTRACK_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryLimit = n
		}
	}
	if v := os.Getenv("PETTRACK_DIGEST_CRON"); v != "" {
		cfg.DigestCron = v
	}
	if v := os.Getenv("PETTRACK_DIGEST_WINDOW_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DigestWindow = time.Duration(n) * time.Minute
		}
	}
	if v := os.Getenv("PETTRACK_LOG_USE_CASES"); v != "" {
		cfg.LogUseCases, _ = strconv.ParseBool(v)
	}

	return cfg
}
