package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timeout and polling interval values.
// These values can be customized via environment variables.
type Timeouts struct {
	Provision        time.Duration // Timeout for terraform apply/destroy
	Install          time.Duration // Timeout for the CI server Helm install
	Endpoint         time.Duration // Timeout for waiting for the CI endpoint
	EndpointInterval time.Duration // Interval between endpoint probes
	Pipeline         time.Duration // Timeout for pipeline run completion
	PipelineInterval time.Duration // Interval between run status polls

	RetryMaxAttempts  int           // Maximum number of retry attempts for transient API errors
	RetryInitialDelay time.Duration // Initial delay between retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - GREENSWITCH_TIMEOUT_PROVISION (default: 30m)
//   - GREENSWITCH_TIMEOUT_INSTALL (default: 10m)
//   - GREENSWITCH_TIMEOUT_ENDPOINT (default: 10m)
//   - GREENSWITCH_INTERVAL_ENDPOINT (default: 10s)
//   - GREENSWITCH_TIMEOUT_PIPELINE (default: 20m)
//   - GREENSWITCH_INTERVAL_PIPELINE (default: 10s)
//   - GREENSWITCH_RETRY_MAX_ATTEMPTS (default: 5)
//   - GREENSWITCH_RETRY_INITIAL_DELAY (default: 1s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Provision:         parseDuration("GREENSWITCH_TIMEOUT_PROVISION", 30*time.Minute),
		Install:           parseDuration("GREENSWITCH_TIMEOUT_INSTALL", 10*time.Minute),
		Endpoint:          parseDuration("GREENSWITCH_TIMEOUT_ENDPOINT", 10*time.Minute),
		EndpointInterval:  parseDuration("GREENSWITCH_INTERVAL_ENDPOINT", 10*time.Second),
		Pipeline:          parseDuration("GREENSWITCH_TIMEOUT_PIPELINE", 20*time.Minute),
		PipelineInterval:  parseDuration("GREENSWITCH_INTERVAL_PIPELINE", 10*time.Second),
		RetryMaxAttempts:  parseInt("GREENSWITCH_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay: parseDuration("GREENSWITCH_RETRY_INITIAL_DELAY", 1*time.Second),
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
	if err != nil {
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
	if err != nil {
		return defaultVal
	}

	return i
}
