package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix for variables overriding values of a config file
const EnvPrefix = "MEDILENS_"

const (
	keyBadgerPath       = "badger.path"
	keyPushoverAPIToken = "pushover.api_token"
	keyPushoverUserKey  = "pushover.user_key"
	keyPushoverDevice   = "pushover.device"
	keyGeminiAPIKey     = "gemini.api_key"
	keyGeminiModel      = "gemini.model"
	keyGeminiBaseURL    = "gemini.base_url"
	keyCheckInterval    = "scheduler.interval"
	keyListenAddr       = "server.listen_addr"
	keyLogLevel         = "log.level"
)

// File Config implementation backed by a YAML file.
//
// Environment variables prefixed with MEDILENS_ take precedence over the
// file, the first underscore after the prefix separates the section:
//
//	MEDILENS_GEMINI_API_KEY -> gemini.api_key
//	MEDILENS_SCHEDULER_INTERVAL -> scheduler.interval
type File struct {
	k *koanf.Koanf
}

// LoadFile reads the YAML config at path. A missing file is not an error,
// the environment and defaults are used instead.
func LoadFile(path string) (*File, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}

		case errors.Is(err, os.ErrNotExist):

		default:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return &File{k: k}, nil
}

func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))

	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}

	return parts[0] + "." + parts[1]
}

func (f *File) required(key string) (string, error) {
	val := strings.TrimSpace(f.k.String(key))
	if val == "" {
		return "", fmt.Errorf("unable to get %s from config file: %w", key, ErrEnvVariableNotSet)
	}

	return val, nil
}

func (f *File) optional(key, fallback string) string {
	if val := strings.TrimSpace(f.k.String(key)); val != "" {
		return val
	}

	return fallback
}

// BadgerPath for the database directory
func (f *File) BadgerPath() (string, error) {
	return f.required(keyBadgerPath)
}

// PushoverAPIToken getter
func (f *File) PushoverAPIToken() (string, error) {
	return f.required(keyPushoverAPIToken)
}

// PushoverUserKey getter
func (f *File) PushoverUserKey() (string, error) {
	return f.required(keyPushoverUserKey)
}

// PushoverDevice getter
func (f *File) PushoverDevice() (string, error) {
	return f.optional(keyPushoverDevice, ""), nil
}

// GeminiAPIKey getter
func (f *File) GeminiAPIKey() (string, error) {
	return f.required(keyGeminiAPIKey)
}

// GeminiModel getter
func (f *File) GeminiModel() (string, error) {
	return f.optional(keyGeminiModel, DefaultGeminiModel), nil
}

// GeminiBaseURL getter
func (f *File) GeminiBaseURL() (string, error) {
	return f.optional(keyGeminiBaseURL, DefaultGeminiBaseURL), nil
}

// CheckInterval between scheduler ticks
func (f *File) CheckInterval() (time.Duration, error) {
	raw := f.optional(keyCheckInterval, "")
	if raw == "" {
		return DefaultCheckInterval, nil
	}

	return parseInterval(keyCheckInterval, raw)
}

// ListenAddr for the HTTP API
func (f *File) ListenAddr() (string, error) {
	return f.optional(keyListenAddr, DefaultListenAddr), nil
}

// LogLevel getter
func (f *File) LogLevel() (string, error) {
	return f.optional(keyLogLevel, DefaultLogLevel), nil
}
