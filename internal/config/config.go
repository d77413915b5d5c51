package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config keeps runtime settings for the planner.
type Config struct {
	TelegramToken string
	DatabaseURL   string
	// Timezone is the IANA zone used for users without their own.
	Timezone string
	// SummaryTime is the HH:MM at which the daily summary is sent.
	SummaryTime string
	// RefreshInterval controls how often reminders are resynchronized.
	RefreshInterval time.Duration
	Verbose         bool
}

// Load reads configuration from PLANNER_* environment variables and an
// optional planner.yaml, with sane defaults. TELEGRAM_TOKEN and DATABASE_URL
// are accepted without the prefix.
func Load() (Config, error) {
	v := viper.New()
	v.SetDefault("database_url", "routine_planner.db")
	v.SetDefault("timezone", "Local")
	v.SetDefault("summary_time", "08:00")
	v.SetDefault("refresh_interval", "1h")
	v.SetDefault("verbose", false)

	v.SetConfigName("planner")
	v.SetEnvPrefix("PLANNER")
	v.AutomaticEnv()
	if override := os.Getenv("PLANNER_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		TelegramToken:   strings.TrimSpace(v.GetString("telegram_token")),
		DatabaseURL:     strings.TrimSpace(v.GetString("database_url")),
		Timezone:        strings.TrimSpace(v.GetString("timezone")),
		SummaryTime:     strings.TrimSpace(v.GetString("summary_time")),
		RefreshInterval: v.GetDuration("refresh_interval"),
		Verbose:         v.GetBool("verbose"),
	}
	if cfg.TelegramToken == "" {
		cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN"))
	}
	if raw := strings.TrimSpace(os.Getenv("DATABASE_URL")); raw != "" && os.Getenv("PLANNER_DATABASE_URL") == "" {
		cfg.DatabaseURL = raw
	}

	if _, err := cfg.Location(); err != nil {
		return cfg, err
	}
	if _, err := time.Parse("15:04", cfg.SummaryTime); err != nil {
		return cfg, fmt.Errorf("invalid summary time %q, expected HH:MM", cfg.SummaryTime)
	}
	return cfg, nil
}

// Validate checks the settings needed to run the bot.
func (c Config) Validate() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("refresh interval must not be negative")
	}
	return nil
}

// Location resolves the configured default timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
