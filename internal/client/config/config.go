package config

import (
	"time"
)

// Config holds the client settings.
type Config struct {
	ServerURL    string
	Token        string
	RefreshToken string
	Timeout      time.Duration
}

// LoadDefaults populates c with defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "ws://localhost:8000"
	c.Timeout = 2 * time.Minute
}

// LoadConfig builds a Config from defaults, the JSON file named in args and
// the environment, in that order.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
