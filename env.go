package mezport

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment variables read by ConfigFromEnv. Durations are given in
// seconds; MEZMO_RETRY_DELAY accepts fractional seconds.
const (
	EnvAPIKey           = "MEZMO_API_KEY"
	EnvBaseURL          = "MEZMO_API_BASE_URL"
	EnvRequestTimeout   = "MEZMO_REQUEST_TIMEOUT"
	EnvMaxRetries       = "MEZMO_MAX_RETRIES"
	EnvRetryDelay       = "MEZMO_RETRY_DELAY"
	EnvMaxRetryDelay    = "MEZMO_MAX_RETRY_DELAY"
	EnvFailureThreshold = "MEZMO_BREAKER_FAILURE_THRESHOLD"
	EnvRecoveryTimeout  = "MEZMO_BREAKER_RECOVERY_TIMEOUT"
)

// Config carries process-level settings for constructing a Client. It is
// typically filled once at startup by ConfigFromEnv and handed to New via
// Options; the client itself never reads the environment.
type Config struct {
	APIKey           string
	BaseURL          string
	RequestTimeout   time.Duration
	MaxRetries       int
	RetryDelay       time.Duration
	MaxRetryDelay    time.Duration
	FailureThreshold int
	RecoveryTimeout  time.Duration
}

// DefaultConfig returns the deployment defaults used when the environment
// leaves a knob unset.
func DefaultConfig() Config {
	return Config{
		BaseURL:          DefaultBaseURL,
		RequestTimeout:   DefaultTimeout,
		MaxRetries:       DefaultMaxRetries,
		RetryDelay:       DefaultBaseDelay,
		MaxRetryDelay:    DefaultMaxDelay,
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
	}
}

// ConfigFromEnv reads configuration from MEZMO_* environment variables.
// MEZMO_API_KEY is required; everything else falls back to DefaultConfig.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.APIKey = os.Getenv(EnvAPIKey)
	if cfg.APIKey == "" {
		return Config{}, fmt.Errorf("mezport: %s is not set", EnvAPIKey)
	}

	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}

	var err error
	if cfg.RequestTimeout, err = envSeconds(EnvRequestTimeout, cfg.RequestTimeout); err != nil {
		return Config{}, err
	}
	if cfg.MaxRetries, err = envInt(EnvMaxRetries, cfg.MaxRetries); err != nil {
		return Config{}, err
	}
	if cfg.RetryDelay, err = envFloatSeconds(EnvRetryDelay, cfg.RetryDelay); err != nil {
		return Config{}, err
	}
	if cfg.MaxRetryDelay, err = envSeconds(EnvMaxRetryDelay, cfg.MaxRetryDelay); err != nil {
		return Config{}, err
	}
	if cfg.FailureThreshold, err = envInt(EnvFailureThreshold, cfg.FailureThreshold); err != nil {
		return Config{}, err
	}
	if cfg.RecoveryTimeout, err = envSeconds(EnvRecoveryTimeout, cfg.RecoveryTimeout); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Options expands the config into client options for New.
func (cfg Config) Options() []Option {
	return []Option{
		WithAPIKey(cfg.APIKey),
		WithBaseURL(cfg.BaseURL),
		WithTimeout(cfg.RequestTimeout),
		WithMaxRetries(cfg.MaxRetries),
		WithInitialBackoff(cfg.RetryDelay),
		WithMaxBackoff(cfg.MaxRetryDelay),
		WithCircuitBreaker(CircuitBreakerConfig{
			FailureThreshold: cfg.FailureThreshold,
			RecoveryTimeout:  cfg.RecoveryTimeout,
		}),
	}
}

func envInt(name string, fallback int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("mezport: %s must be an integer, got %q", name, v)
	}
	return n, nil
}

func envSeconds(name string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("mezport: %s must be an integer number of seconds, got %q", name, v)
	}
	return time.Duration(n) * time.Second, nil
}

func envFloatSeconds(name string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("mezport: %s must be a number of seconds, got %q", name, v)
	}
	return time.Duration(f * float64(time.Second)), nil
}
