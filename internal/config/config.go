package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime settings for the freepace backend.
type Config struct {
	Database *DatabaseConfig `yaml:"database"`
	HTTP     *HTTPConfig     `yaml:"http"`
	Relay    *RelayConfig    `yaml:"relay"`
	GenAI    *GenAIConfig    `yaml:"genai"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	Path    string        `yaml:"path"`
	Timeout time.Duration `yaml:"timeout"`
}

// HTTPConfig configures the shared HTTP server.
type HTTPConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RelayConfig configures the classroom real-time relay.
// MessagesPerSecond bounds inbound traffic per connection; a burst of
// the same size is allowed so a quick series of card updates passes.
type RelayConfig struct {
	PingInterval      time.Duration `yaml:"ping_interval"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	SendBuffer        int           `yaml:"send_buffer"`
	MessagesPerSecond int           `yaml:"messages_per_second"`
}

// GenAIConfig configures the generative-AI completion client.
// Models is a fallback list tried in order; APIKeyEnv names the
// environment variable holding the key so the key itself never lands
// in a config file.
type GenAIConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	Models      []string      `yaml:"models"`
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
	Timeout     time.Duration `yaml:"timeout"`
}

// DefaultConfig returns settings sized for a single classroom
// deployment: local SQLite file, 30s heartbeat with a 60s read
// deadline, and a small fixed retry budget for AI calls.
func DefaultConfig() *Config {
	return &Config{
		Database: &DatabaseConfig{
			Path:    "./freepace.db",
			Timeout: 30 * time.Second,
		},
		HTTP: &HTTPConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Relay: &RelayConfig{
			PingInterval:      30 * time.Second,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      10 * time.Second,
			SendBuffer:        100,
			MessagesPerSecond: 10,
		},
		GenAI: &GenAIConfig{
			BaseURL:     "https://generativelanguage.googleapis.com/v1beta",
			APIKeyEnv:   "FREEPACE_GENAI_API_KEY",
			Models:      []string{"gemini-2.0-flash", "gemini-1.5-flash"},
			MaxAttempts: 3,
			Backoff:     time.Second,
			Timeout:     60 * time.Second,
		},
	}
}

// Validate rejects configurations that would fail at runtime.
func (c *Config) Validate() error {
	if c.Database == nil {
		return fmt.Errorf("database configuration is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Database.Timeout <= 0 {
		return fmt.Errorf("database timeout must be positive")
	}

	if c.HTTP == nil {
		return fmt.Errorf("HTTP configuration is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP timeouts must be positive")
	}

	if c.Relay == nil {
		return fmt.Errorf("relay configuration is required")
	}
	if c.Relay.PingInterval <= 0 {
		return fmt.Errorf("relay ping interval must be positive")
	}
	if c.Relay.ReadTimeout <= c.Relay.PingInterval {
		return fmt.Errorf("relay read timeout must exceed the ping interval")
	}
	if c.Relay.WriteTimeout <= 0 {
		return fmt.Errorf("relay write timeout must be positive")
	}
	if c.Relay.SendBuffer <= 0 {
		return fmt.Errorf("relay send buffer must be positive")
	}
	if c.Relay.MessagesPerSecond <= 0 {
		return fmt.Errorf("relay message rate must be positive")
	}

	if c.GenAI == nil {
		return fmt.Errorf("genai configuration is required")
	}
	if c.GenAI.BaseURL == "" {
		return fmt.Errorf("genai base URL cannot be empty")
	}
	if len(c.GenAI.Models) == 0 {
		return fmt.Errorf("genai model list cannot be empty")
	}
	if c.GenAI.MaxAttempts <= 0 {
		return fmt.Errorf("genai max attempts must be positive")
	}
	if c.GenAI.Backoff <= 0 || c.GenAI.Timeout <= 0 {
		return fmt.Errorf("genai backoff and timeout must be positive")
	}

	return nil
}

// LoadFromEnv returns defaults overridden by FREEPACE_* environment
// variables. Unparseable values fall back to the default silently so a
// bad variable never prevents startup.
func LoadFromEnv() *Config {
	config := DefaultConfig()

	if host := os.Getenv("FREEPACE_HTTP_HOST"); host != "" {
		config.HTTP.Host = host
	}
	if port := os.Getenv("FREEPACE_HTTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.HTTP.Port = p
		}
	}
	if readTimeout := os.Getenv("FREEPACE_HTTP_READ_TIMEOUT"); readTimeout != "" {
		if timeout, err := time.ParseDuration(readTimeout); err == nil {
			config.HTTP.ReadTimeout = timeout
		}
	}
	if writeTimeout := os.Getenv("FREEPACE_HTTP_WRITE_TIMEOUT"); writeTimeout != "" {
		if timeout, err := time.ParseDuration(writeTimeout); err == nil {
			config.HTTP.WriteTimeout = timeout
		}
	}

	if dbPath := os.Getenv("FREEPACE_DATABASE_PATH"); dbPath != "" {
		config.Database.Path = dbPath
	}
	if dbTimeout := os.Getenv("FREEPACE_DATABASE_TIMEOUT"); dbTimeout != "" {
		if timeout, err := time.ParseDuration(dbTimeout); err == nil {
			config.Database.Timeout = timeout
		}
	}

	if pingInterval := os.Getenv("FREEPACE_RELAY_PING_INTERVAL"); pingInterval != "" {
		if interval, err := time.ParseDuration(pingInterval); err == nil {
			config.Relay.PingInterval = interval
		}
	}
	if readTimeout := os.Getenv("FREEPACE_RELAY_READ_TIMEOUT"); readTimeout != "" {
		if timeout, err := time.ParseDuration(readTimeout); err == nil {
			config.Relay.ReadTimeout = timeout
		}
	}
	if writeTimeout := os.Getenv("FREEPACE_RELAY_WRITE_TIMEOUT"); writeTimeout != "" {
		if timeout, err := time.ParseDuration(writeTimeout); err == nil {
			config.Relay.WriteTimeout = timeout
		}
	}
	if sendBuffer := os.Getenv("FREEPACE_RELAY_SEND_BUFFER"); sendBuffer != "" {
		if size, err := strconv.Atoi(sendBuffer); err == nil {
			config.Relay.SendBuffer = size
		}
	}
	if rate := os.Getenv("FREEPACE_RELAY_MESSAGES_PER_SECOND"); rate != "" {
		if n, err := strconv.Atoi(rate); err == nil {
			config.Relay.MessagesPerSecond = n
		}
	}

	if baseURL := os.Getenv("FREEPACE_GENAI_BASE_URL"); baseURL != "" {
		config.GenAI.BaseURL = baseURL
	}
	if attempts := os.Getenv("FREEPACE_GENAI_MAX_ATTEMPTS"); attempts != "" {
		if n, err := strconv.Atoi(attempts); err == nil {
			config.GenAI.MaxAttempts = n
		}
	}

	return config
}

// configFile mirrors Config for YAML parsing, with durations as
// strings ("30s", "1m") because yaml.v3 has no native duration support.
type configFile struct {
	Database *struct {
		Path    string `yaml:"path"`
		Timeout string `yaml:"timeout"`
	} `yaml:"database"`
	HTTP *struct {
		Host         string `yaml:"host"`
		Port         int    `yaml:"port"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
	} `yaml:"http"`
	Relay *struct {
		PingInterval      string `yaml:"ping_interval"`
		ReadTimeout       string `yaml:"read_timeout"`
		WriteTimeout      string `yaml:"write_timeout"`
		SendBuffer        int    `yaml:"send_buffer"`
		MessagesPerSecond int    `yaml:"messages_per_second"`
	} `yaml:"relay"`
	GenAI *struct {
		BaseURL     string   `yaml:"base_url"`
		APIKeyEnv   string   `yaml:"api_key_env"`
		Models      []string `yaml:"models"`
		MaxAttempts int      `yaml:"max_attempts"`
		Backoff     string   `yaml:"backoff"`
		Timeout     string   `yaml:"timeout"`
	} `yaml:"genai"`
}

// setDuration parses raw into dst when raw is non-empty and parseable.
func setDuration(dst *time.Duration, raw string) {
	if raw == "" {
		return
	}
	if d, err := time.ParseDuration(raw); err == nil {
		*dst = d
	}
}

// LoadFromFile parses a YAML config file over the defaults and
// validates the result.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config := DefaultConfig()

	if file.Database != nil {
		if file.Database.Path != "" {
			config.Database.Path = file.Database.Path
		}
		setDuration(&config.Database.Timeout, file.Database.Timeout)
	}

	if file.HTTP != nil {
		if file.HTTP.Host != "" {
			config.HTTP.Host = file.HTTP.Host
		}
		if file.HTTP.Port != 0 {
			config.HTTP.Port = file.HTTP.Port
		}
		setDuration(&config.HTTP.ReadTimeout, file.HTTP.ReadTimeout)
		setDuration(&config.HTTP.WriteTimeout, file.HTTP.WriteTimeout)
	}

	if file.Relay != nil {
		setDuration(&config.Relay.PingInterval, file.Relay.PingInterval)
		setDuration(&config.Relay.ReadTimeout, file.Relay.ReadTimeout)
		setDuration(&config.Relay.WriteTimeout, file.Relay.WriteTimeout)
		if file.Relay.SendBuffer > 0 {
			config.Relay.SendBuffer = file.Relay.SendBuffer
		}
		if file.Relay.MessagesPerSecond > 0 {
			config.Relay.MessagesPerSecond = file.Relay.MessagesPerSecond
		}
	}

	if file.GenAI != nil {
		if file.GenAI.BaseURL != "" {
			config.GenAI.BaseURL = file.GenAI.BaseURL
		}
		if file.GenAI.APIKeyEnv != "" {
			config.GenAI.APIKeyEnv = file.GenAI.APIKeyEnv
		}
		if len(file.GenAI.Models) > 0 {
			config.GenAI.Models = file.GenAI.Models
		}
		if file.GenAI.MaxAttempts > 0 {
			config.GenAI.MaxAttempts = file.GenAI.MaxAttempts
		}
		setDuration(&config.GenAI.Backoff, file.GenAI.Backoff)
		setDuration(&config.GenAI.Timeout, file.GenAI.Timeout)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	return config, nil
}

// Load resolves configuration with precedence: file > environment >
// defaults. A missing or broken file is ignored so environment and
// defaults still work.
func Load(path string) *Config {
	config := LoadFromEnv()

	if path != "" {
		if fileConfig, err := LoadFromFile(path); err == nil {
			config = fileConfig
		}
	}

	return config
}
