// ABOUTME: Centralized configuration for the h2c CLI and MCP server
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Sync backends for the synced scope
const (
	SyncCharm = "charm"
	SyncLocal = "local"
)

// Config holds all configuration for h2c
type Config struct {
	// Destination and remote endpoints
	DestinationURL string
	VerifyURL      string
	CheckoutURL    string
	VerifyTimeout  time.Duration

	// Delivery timing
	BackupDelay   time.Duration
	RetryInterval time.Duration
	MaxTries      int

	// Menu rebuild debounce
	MenuDebounce time.Duration

	// History caps
	FreeHistoryCap int
	ProHistoryCap  int

	// Browser settings
	ChromeBin        string
	ChromeControlURL string
	Headless         bool

	// Storage settings
	DataDir     string
	SyncBackend string
	CharmHost   string
	CharmDBName string

	// DevPassphrase unlocks the entitlement override; empty disables it
	DevPassphrase string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		// Defaults
		DestinationURL:   getEnv("H2C_DESTINATION_URL", "https://chatgpt.com/"),
		VerifyURL:        getEnv("H2C_VERIFY_URL", "https://uxhblqxzmiobvbntnpsh.functions.supabase.co/verify-license"),
		CheckoutURL:      getEnv("H2C_CHECKOUT_URL", "https://rajujutsu.gumroad.com/l/wjptpf"),
		VerifyTimeout:    getEnvDuration("H2C_VERIFY_TIMEOUT", 15*time.Second),
		BackupDelay:      getEnvDuration("H2C_BACKUP_DELAY", 1500*time.Millisecond),
		RetryInterval:    getEnvDuration("H2C_RETRY_INTERVAL", 200*time.Millisecond),
		MaxTries:         getEnvInt("H2C_MAX_TRIES", 120),
		MenuDebounce:     getEnvDuration("H2C_MENU_DEBOUNCE", 50*time.Millisecond),
		FreeHistoryCap:   getEnvInt("H2C_FREE_HISTORY_CAP", 200),
		ProHistoryCap:    getEnvInt("H2C_PRO_HISTORY_CAP", 2000),
		ChromeBin:        os.Getenv("H2C_CHROME_BIN"),
		ChromeControlURL: os.Getenv("H2C_CHROME_CONTROL_URL"),
		Headless:         getEnvBool("H2C_HEADLESS", false),
		DataDir:          os.Getenv("H2C_DATA_DIR"),
		SyncBackend:      getEnv("H2C_SYNC", SyncCharm),
		CharmHost:        getEnv("CHARM_HOST", "charm.2389.dev"),
		CharmDBName:      getEnv("H2C_CHARM_DB", "h2c"),
		DevPassphrase:    os.Getenv("H2C_DEV_PASSPHRASE"),
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if u, err := url.Parse(c.DestinationURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("H2C_DESTINATION_URL must be an absolute URL, got %q", c.DestinationURL)
	}
	if c.MaxTries < 1 || c.MaxTries > 10000 {
		return fmt.Errorf("H2C_MAX_TRIES must be 1-10000, got %d", c.MaxTries)
	}
	if c.RetryInterval <= 0 {
		return fmt.Errorf("H2C_RETRY_INTERVAL must be positive, got %v", c.RetryInterval)
	}
	if c.BackupDelay < 0 {
		return fmt.Errorf("H2C_BACKUP_DELAY must not be negative, got %v", c.BackupDelay)
	}
	if c.MenuDebounce < 0 {
		return fmt.Errorf("H2C_MENU_DEBOUNCE must not be negative, got %v", c.MenuDebounce)
	}
	if c.FreeHistoryCap < 1 {
		return fmt.Errorf("H2C_FREE_HISTORY_CAP must be positive, got %d", c.FreeHistoryCap)
	}
	if c.ProHistoryCap < c.FreeHistoryCap {
		return fmt.Errorf("H2C_PRO_HISTORY_CAP (%d) must be at least H2C_FREE_HISTORY_CAP (%d)", c.ProHistoryCap, c.FreeHistoryCap)
	}
	if c.SyncBackend != SyncCharm && c.SyncBackend != SyncLocal {
		return fmt.Errorf("H2C_SYNC must be %q or %q, got %q", SyncCharm, SyncLocal, c.SyncBackend)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
