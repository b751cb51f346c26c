package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string

	// Ledger configuration
	SignupBonus        int64 // credited to every new account
	ReferralBonus      int64 // credited to the referrer on the referee's first approved deposit
	ReferralMinDeposit int64 // first deposit must reach this for the referral bonus
	MinDeposit         int64
	MinWithdrawal      int64
	MinBet             int64
	FixedOdds          int64 // payout multiple for winning bets

	// Bet summary trailing window
	SummaryWindow time.Duration

	// Reconciliation sweep schedule (cron spec)
	SweepSchedule string

	// Operator identities allowed to approve requests and settle
	OperatorID int64

	// Metrics HTTP server port
	MetricsPort string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	config := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Ledger defaults
		SignupBonus:        30,
		ReferralBonus:      10,
		ReferralMinDeposit: 100,
		MinDeposit:         50,
		MinWithdrawal:      100,
		MinBet:             10,
		FixedOdds:          2,

		SummaryWindow: 30 * time.Minute,
		SweepSchedule: "@every 2m",

		MetricsPort: "9090",
		Environment: os.Getenv("ENVIRONMENT"),
	}

	for env, dst := range map[string]*int64{
		"SIGNUP_BONUS":         &config.SignupBonus,
		"REFERRAL_BONUS":       &config.ReferralBonus,
		"REFERRAL_MIN_DEPOSIT": &config.ReferralMinDeposit,
		"MIN_DEPOSIT":          &config.MinDeposit,
		"MIN_WITHDRAWAL":       &config.MinWithdrawal,
		"MIN_BET":              &config.MinBet,
		"FIXED_ODDS":           &config.FixedOdds,
		"OPERATOR_ID":          &config.OperatorID,
	} {
		if v := os.Getenv(env); v != "" {
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", env, err)
			}
			*dst = parsed
		}
	}

	if v := os.Getenv("SUMMARY_WINDOW"); v != "" {
		window, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SUMMARY_WINDOW: %w", err)
		}
		config.SummaryWindow = window
	}
	if v := os.Getenv("SWEEP_SCHEDULE"); v != "" {
		config.SweepSchedule = v
	}
	if v := os.Getenv("METRICS_PORT"); v != "" {
		config.MetricsPort = v
	}

	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}
