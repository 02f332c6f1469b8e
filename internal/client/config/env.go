package config

import (
	"errors"
	"time"

	"github.com/joeshaw/envdecode"
)

type envConfig struct {
	ServerURL    string        `env:"MATHSOLVER_SERVER"`
	Token        string        `env:"MATHSOLVER_TOKEN"`
	RefreshToken string        `env:"MATHSOLVER_REFRESH_TOKEN"`
	Timeout      time.Duration `env:"MATHSOLVER_TIMEOUT"`
}

func parseEnv(cfg *Config) error {
	e := &envConfig{
		ServerURL:    cfg.ServerURL,
		Token:        cfg.Token,
		RefreshToken: cfg.RefreshToken,
		Timeout:      cfg.Timeout,
	}

	if err := envdecode.Decode(e); err != nil {
		if errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
			return nil
		}
		return err
	}

	cfg.ServerURL = e.ServerURL
	cfg.Token = e.Token
	cfg.RefreshToken = e.RefreshToken
	cfg.Timeout = e.Timeout
	return nil
}
