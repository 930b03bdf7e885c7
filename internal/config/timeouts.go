package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timeout values.
// These values can be customized via environment variables.
type Timeouts struct {
	ReloadWait        time.Duration // Dwell after reload before reconnecting
	CommandTimeout    time.Duration // Maximum wait for one CLI reply
	DialTimeout       time.Duration // TCP connect and SSH handshake timeout
	RetryMaxAttempts  int           // Maximum number of connection attempts
	RetryInitialDelay time.Duration // Initial delay between attempts
	FailoverSettle    time.Duration // Pause between failover and role check
	TransferTimeout   time.Duration // Maximum duration of one image upload
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - FWUPGRADE_RELOAD_WAIT (default: 5m)
//   - FWUPGRADE_COMMAND_TIMEOUT (default: 2m)
//   - FWUPGRADE_DIAL_TIMEOUT (default: 10s)
//   - FWUPGRADE_RETRY_MAX_ATTEMPTS (default: 5)
//   - FWUPGRADE_RETRY_INITIAL_DELAY (default: 5s)
//   - FWUPGRADE_FAILOVER_SETTLE (default: 10s)
//   - FWUPGRADE_TRANSFER_TIMEOUT (default: 30m)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		ReloadWait:        parseDuration("FWUPGRADE_RELOAD_WAIT", 5*time.Minute),
		CommandTimeout:    parseDuration("FWUPGRADE_COMMAND_TIMEOUT", 2*time.Minute),
		DialTimeout:       parseDuration("FWUPGRADE_DIAL_TIMEOUT", 10*time.Second),
		RetryMaxAttempts:  parseInt("FWUPGRADE_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay: parseDuration("FWUPGRADE_RETRY_INITIAL_DELAY", 5*time.Second),
		FailoverSettle:    parseDuration("FWUPGRADE_FAILOVER_SETTLE", 10*time.Second),
		TransferTimeout:   parseDuration("FWUPGRADE_TRANSFER_TIMEOUT", 30*time.Minute),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}

	return i
}
