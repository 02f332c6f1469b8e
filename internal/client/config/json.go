package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/mathsolver/internal/flagx"
	"github.com/dmitrijs2005/mathsolver/internal/timex"
)

type jsonConfig struct {
	ServerURL    string         `json:"server_url"`
	Token        string         `json:"token"`
	RefreshToken string         `json:"refresh_token"`
	Timeout      timex.Duration `json:"timeout"`
}

// parseJSON overlays cfg with the non-empty values of the JSON file named
// by -c/-config in args. No file flag means nothing to do.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.Token != "" {
		cfg.Token = jc.Token
	}
	if jc.RefreshToken != "" {
		cfg.RefreshToken = jc.RefreshToken
	}
	if jc.Timeout.Duration > 0 {
		cfg.Timeout = jc.Timeout.Duration
	}
	return nil
}
