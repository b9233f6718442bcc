package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"go.yaml.in/yaml/v4"
)

// Config is the application configuration. It is built once at the entry
// point and passed to the components that need it.
type Config struct {
	LogLevel      string `yaml:"log_level"`
	Protocol      string `yaml:"protocol"` // "imap" or "pop3"
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	UseTLS        *bool  `yaml:"use_tls"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	Sender        string `yaml:"sender"`
	Folder        string `yaml:"folder"`
	LookbackHours int    `yaml:"lookback_hours"`
	StateFile     string `yaml:"state_file"`
	StatField     string `yaml:"stat_field"`
}

// Environment variables recognised by Load.
const (
	EnvConfigPath = "MAILSTAT_CONFIG"
	EnvEmail      = "EMAIL"
	EnvPassword   = "PASSWORD"
	EnvSender     = "SENDER"
	EnvHost       = "MAIL_HOST"
	EnvPort       = "MAIL_PORT"
	EnvProtocol   = "MAIL_PROTOCOL"
)

// DefaultPath is used when MAILSTAT_CONFIG is unset.
const DefaultPath = "config.yaml"

// Path returns the configuration file path from the environment.
func Path() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the optional YAML file at path and overlays the environment.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{
		LogLevel: "info",
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvEmail, &c.Username)
	set(EnvPassword, &c.Password)
	set(EnvSender, &c.Sender)
	set(EnvHost, &c.Host)
	set(EnvProtocol, &c.Protocol)

	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.Port = port
	}
	return nil
}

// Credentials and sender are not checked here: a missing value
// surfaces as an authentication failure.
func (c *Config) validate() error {
	switch c.GetProtocol() {
	case "imap", "pop3":
	default:
		return fmt.Errorf("protocol must be imap or pop3, got %q", c.Protocol)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.LookbackHours < 0 {
		return fmt.Errorf("lookback_hours must not be negative")
	}
	return nil
}

// GetProtocol returns the retrieval protocol, defaulting to "imap".
func (c *Config) GetProtocol() string {
	if c.Protocol == "" {
		return "imap"
	}
	return c.Protocol
}

// GetHost returns the mail server host, defaulting to imap.gmail.com.
func (c *Config) GetHost() string {
	if c.Host == "" {
		return "imap.gmail.com"
	}
	return c.Host
}

// GetPort returns the server port, defaulting to the implicit-TLS port of
// the protocol.
func (c *Config) GetPort() int {
	if c.Port != 0 {
		return c.Port
	}
	secure := c.TLSEnabled()
	switch {
	case c.GetProtocol() == "pop3" && secure:
		return 995
	case c.GetProtocol() == "pop3":
		return 110
	case secure:
		return 993
	default:
		return 143
	}
}

// TLSEnabled reports whether to connect over TLS. Defaults to true.
func (c *Config) TLSEnabled() bool {
	if c.UseTLS == nil {
		return true
	}
	return *c.UseTLS
}

// GetFolder returns the IMAP folder name, defaulting to "INBOX".
func (c *Config) GetFolder() string {
	if c.Folder == "" {
		return "INBOX"
	}
	return c.Folder
}

// Lookback returns the search window, defaulting to 24 hours.
func (c *Config) Lookback() time.Duration {
	if c.LookbackHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.LookbackHours) * time.Hour
}

// GetStateFile returns the processed-ID file location.
func (c *Config) GetStateFile() string {
	if c.StateFile == "" {
		return "processed_emails.json"
	}
	return c.StateFile
}

// GetStatField returns the payload key whose first value is reported.
func (c *Config) GetStatField() string {
	if c.StatField == "" {
		return "NumberStat"
	}
	return c.StatField
}
