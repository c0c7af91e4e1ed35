package config

import "time"

const (
	// DefaultGeminiModel used for lookups when none is configured
	DefaultGeminiModel = "gemini-3-flash-preview"
	// DefaultGeminiBaseURL of the generative language API
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// DefaultCheckInterval between reminder evaluations
	DefaultCheckInterval = 30 * time.Second
	// DefaultListenAddr for the HTTP API
	DefaultListenAddr = ":8080"
	// DefaultLogLevel for the zap logger
	DefaultLogLevel = "info"
)

// Config for application setup
type Config interface {
	BadgerPath() (string, error)
	PushoverAPIToken() (string, error)
	PushoverUserKey() (string, error)
	PushoverDevice() (string, error)
	GeminiAPIKey() (string, error)
	GeminiModel() (string, error)
	GeminiBaseURL() (string, error)
	CheckInterval() (time.Duration, error)
	ListenAddr() (string, error)
	LogLevel() (string, error)
}
