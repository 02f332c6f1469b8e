package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseEnv(t *testing.T) {
	t.Run("set variables override", func(t *testing.T) {
		t.Setenv("SOLVER_HTTP_ADDR", ":9999")
		t.Setenv("SOLVER_PROVIDER_TIMEOUT", "90s")
		t.Setenv("OPENAI_API_KEY", "sk-env")

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg)

		assert.Equal(t, ":9999", cfg.EndpointAddrHTTP)
		assert.Equal(t, 90*time.Second, cfg.ProviderTimeout)
		assert.Equal(t, "sk-env", cfg.OpenAIAPIKey)
		assert.Equal(t, ":50051", cfg.EndpointAddrGRPC, "unset variables keep their value")
	})

	t.Run("nothing set is not an error", func(t *testing.T) {
		cfg := &Config{EndpointAddrHTTP: "keep"}
		require.NotPanics(t, func() { parseEnv(cfg) })
		assert.Equal(t, "keep", cfg.EndpointAddrHTTP)
	})

	t.Run("bad duration panics", func(t *testing.T) {
		t.Setenv("SOLVER_USER_CACHE_TTL", "forever")
		cfg := &Config{}
		require.Panics(t, func() { parseEnv(cfg) })
	})
}
