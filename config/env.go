package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

const (
	// BadgerPathEnv name
	BadgerPathEnv = "BADGER_PATH"
	// PushoverAPITokenEnv name
	PushoverAPITokenEnv = "PUSHOVER_API_TOKEN"
	// PushoverUserKeyEnv name
	PushoverUserKeyEnv = "PUSHOVER_USER_KEY"
	// PushoverDeviceEnv name
	PushoverDeviceEnv = "PUSHOVER_DEVICE"
	// GeminiAPIKeyEnv name
	GeminiAPIKeyEnv = "GEMINI_API_KEY"
	// GeminiModelEnv name
	GeminiModelEnv = "GEMINI_MODEL"
	// GeminiBaseURLEnv name
	GeminiBaseURLEnv = "GEMINI_BASE_URL"
	// CheckIntervalEnv name
	CheckIntervalEnv = "CHECK_INTERVAL"
	// ListenAddrEnv name
	ListenAddrEnv = "LISTEN_ADDR"
	// LogLevelEnv name
	LogLevelEnv = "LOG_LEVEL"
)

var (
	// ErrEnvVariableNotSet occurs when an environment variable is not set
	ErrEnvVariableNotSet = errors.New("environment variable is not set")
	// ErrInvalidValue occurs when a setting can not be parsed
	ErrInvalidValue = errors.New("invalid configuration value")
)

// Env variable Config implementation
type Env struct {
}

func (e *Env) required(name, what string) (string, error) {
	val, ok := os.LookupEnv(name)
	if !ok || val == "" {
		return "", fmt.Errorf(
			"unable to get %s from env variable %s: %w",
			what,
			name,
			ErrEnvVariableNotSet,
		)
	}

	return val, nil
}

func (e *Env) optional(name, fallback string) string {
	if val, ok := os.LookupEnv(name); ok && val != "" {
		return val
	}

	return fallback
}

// BadgerPath for the database directory
func (e *Env) BadgerPath() (string, error) {
	return e.required(BadgerPathEnv, "badger path")
}

// PushoverAPIToken getter
func (e *Env) PushoverAPIToken() (string, error) {
	return e.required(PushoverAPITokenEnv, "pushover API token")
}

// PushoverUserKey getter
func (e *Env) PushoverUserKey() (string, error) {
	return e.required(PushoverUserKeyEnv, "pushover user key")
}

// PushoverDevice getter, empty means every device of the user
func (e *Env) PushoverDevice() (string, error) {
	return e.optional(PushoverDeviceEnv, ""), nil
}

// GeminiAPIKey getter
func (e *Env) GeminiAPIKey() (string, error) {
	return e.required(GeminiAPIKeyEnv, "gemini API key")
}

// GeminiModel getter
func (e *Env) GeminiModel() (string, error) {
	return e.optional(GeminiModelEnv, DefaultGeminiModel), nil
}

// GeminiBaseURL getter
func (e *Env) GeminiBaseURL() (string, error) {
	return e.optional(GeminiBaseURLEnv, DefaultGeminiBaseURL), nil
}

// CheckInterval between scheduler ticks
func (e *Env) CheckInterval() (time.Duration, error) {
	raw := e.optional(CheckIntervalEnv, "")
	if raw == "" {
		return DefaultCheckInterval, nil
	}

	return parseInterval(CheckIntervalEnv, raw)
}

// ListenAddr for the HTTP API
func (e *Env) ListenAddr() (string, error) {
	return e.optional(ListenAddrEnv, DefaultListenAddr), nil
}

// LogLevel getter
func (e *Env) LogLevel() (string, error) {
	return e.optional(LogLevelEnv, DefaultLogLevel), nil
}

func parseInterval(name, raw string) (time.Duration, error) {
	interval, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("unable to parse %s value %q: %w", name, raw, ErrInvalidValue)
	}

	if interval < time.Second {
		return 0, fmt.Errorf("%s must be at least one second, got %s: %w", name, interval, ErrInvalidValue)
	}

	return interval, nil
}
