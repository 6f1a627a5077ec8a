package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates the service configuration.
type Config struct {
	Server ServerConfig
	Log    LogConfig
	Chat   ChatConfig
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Log: loadLogConfig(), Chat: chat}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// ":8080" and "127.0.0.1:8080" are taken as is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// LogConfig selects the log handler and level.
type LogConfig struct {
	Env   string
	Level string
}

// Dev reports whether the human-readable console handler should be used.
func (c LogConfig) Dev() bool {
	switch strings.ToLower(c.Env) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Env:   getEnvOrDefault("APP_ENV", "dev"),
		Level: getEnvOrDefault("LOG_LEVEL", "info"),
	}
}

// ChatConfig tunes the support chat core and its HTTP surface.
type ChatConfig struct {
	ResponseDelay time.Duration
	ResetText     string
	PreviewLimit  int
	SendRPS       float64
	SendBurst     int
	EventBuffer   int
}

func loadChatConfig() (ChatConfig, error) {
	delay, err := parseDurationEnv("CHAT_RESPONSE_DELAY", 1500*time.Millisecond)
	if err != nil {
		return ChatConfig{}, err
	}

	preview, err := parseIntEnv("CHAT_PREVIEW_LIMIT", 30)
	if err != nil {
		return ChatConfig{}, err
	}

	rps, err := parseOptionalFloatEnv("CHAT_SEND_RPS")
	if err != nil {
		return ChatConfig{}, err
	}
	sendRPS := 2.0
	if rps != nil {
		sendRPS = *rps
	}

	burst, err := parseIntEnv("CHAT_SEND_BURST", 5)
	if err != nil {
		return ChatConfig{}, err
	}

	buffer, err := parseIntEnv("CHAT_EVENT_BUFFER", 64)
	if err != nil {
		return ChatConfig{}, err
	}

	if delay < 0 {
		return ChatConfig{}, fmt.Errorf("invalid CHAT_RESPONSE_DELAY value %q: must not be negative", delay)
	}
	if preview < 1 {
		return ChatConfig{}, fmt.Errorf("invalid CHAT_PREVIEW_LIMIT value %d: must be positive", preview)
	}
	if buffer < 1 {
		buffer = 1
	}

	return ChatConfig{
		ResponseDelay: delay,
		ResetText:     strings.TrimSpace(os.Getenv("CHAT_RESET_TEXT")),
		PreviewLimit:  preview,
		SendRPS:       sendRPS,
		SendBurst:     burst,
		EventBuffer:   buffer,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	val, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return defaultValue, nil
	}
	return *val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
