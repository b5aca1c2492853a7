package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const FileName = "phasegate.yml"

// Config models phasegate.yml.
type Config struct {
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Auth struct {
		JWTSecret       string `yaml:"jwt_secret"`
		Issuer          string `yaml:"issuer"`
		Audience        string `yaml:"audience"`
		TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
		DevLogin        bool   `yaml:"dev_login"`
		SSOSharedSecret string `yaml:"sso_shared_secret"`
		AllowUserHeader bool   `yaml:"allow_user_header"`
	} `yaml:"auth"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Notifications struct {
		PollIntervalSeconds int       `yaml:"poll_interval_seconds"`
		Webhooks            []Webhook `yaml:"webhooks"`
	} `yaml:"notifications"`
}

// Webhook is one notification target. Events holds exact types or
// "prefix.*" patterns; empty means every event.
type Webhook struct {
	URL            string   `yaml:"url"`
	Events         []string `yaml:"events"`
	ProjectID      string   `yaml:"project_id"`
	Secret         string   `yaml:"secret"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Enabled        *bool    `yaml:"enabled"`
}

func (w Webhook) IsEnabled() bool {
	return w.Enabled == nil || *w.Enabled
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json", "logfmt"}
)

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	if c.Auth.TokenTTLMinutes < 0 {
		return fmt.Errorf("config.auth.token_ttl_minutes must be positive")
	}
	if c.Logging.Level != "" && !contains(logLevels, c.Logging.Level) {
		return fmt.Errorf("config.logging.level must be one of %s", strings.Join(logLevels, ", "))
	}
	if c.Logging.Format != "" && !contains(logFormats, c.Logging.Format) {
		return fmt.Errorf("config.logging.format must be one of %s", strings.Join(logFormats, ", "))
	}
	if c.Notifications.PollIntervalSeconds < 0 {
		return fmt.Errorf("config.notifications.poll_interval_seconds must be positive")
	}
	for i, wh := range c.Notifications.Webhooks {
		if strings.TrimSpace(wh.URL) == "" {
			return fmt.Errorf("config.notifications.webhooks[%d].url is required", i)
		}
		if wh.TimeoutSeconds < 0 {
			return fmt.Errorf("config.notifications.webhooks[%d].timeout_seconds must be positive", i)
		}
		for _, evt := range wh.Events {
			if strings.TrimSpace(evt) == "" {
				return fmt.Errorf("config.notifications.webhooks[%d] has empty event pattern", i)
			}
		}
	}
	return nil
}

// applyDefaults fills zero values after parsing.
func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8080"
	}
	if c.Server.BasePath == "" {
		c.Server.BasePath = "/v0"
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "phasegate"
	}
	if c.Auth.Audience == "" {
		c.Auth.Audience = "phasegate"
	}
	if c.Auth.TokenTTLMinutes == 0 {
		c.Auth.TokenTTLMinutes = 60
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Notifications.PollIntervalSeconds == 0 {
		c.Notifications.PollIntervalSeconds = 2
	}
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config %s not found; create one with phasegate config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns Default() if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the config used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// DefaultTemplate is written by `phasegate config init`.
const DefaultTemplate = `server:
  addr: 127.0.0.1:8080
  base_path: /v0

auth:
  # Override with PHASEGATE_JWT_SECRET.
  jwt_secret: ""
  token_ttl_minutes: 60
  dev_login: false
  sso_shared_secret: ""
  allow_user_header: false

logging:
  level: info
  format: text

notifications:
  poll_interval_seconds: 2
  webhooks: []
  # - url: https://hooks.example.com/phasegate
  #   events: [quality_gate.*, workflow.initialized]
  #   secret: change-me
  #   timeout_seconds: 5
`
