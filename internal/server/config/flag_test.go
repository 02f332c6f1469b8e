package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{
			"-a", "127.0.0.1:9090", "-G", "127.0.0.1:9091", "-d", "db", "-R", "redis:6379", "-s", "secret",
			"-t", "1", "-r", "3", "-k", "sk-test", "-m", "gpt-test", "-o", "30",
			"-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint", "-l", "debug",
		}, expectPanic: false,
			expected: &Config{
				EndpointAddrHTTP:             "127.0.0.1:9090",
				EndpointAddrGRPC:             "127.0.0.1:9091",
				DatabaseDSN:                  "db",
				RedisAddr:                    "redis:6379",
				SecretKey:                    "secret",
				AccessTokenValidityDuration:  1 * time.Minute,
				RefreshTokenValidityDuration: 3 * time.Minute,
				OpenAIAPIKey:                 "sk-test",
				OpenAIModel:                  "gpt-test",
				ProviderTimeout:              30 * time.Second,
				S3RootUser:                   "user",
				S3RootPassword:               "password",
				S3Bucket:                     "bucket",
				S3Region:                     "us-west-1",
				S3BaseEndpoint:               "http://endpoint",
				LogLevel:                     "debug",
			}},
		{name: "bad int panics", args: []string{"-t", "soon"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config, tt.args) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config, tt.args) })
			}
		})
	}
}

func TestParseFlags_DurationsUntouchedWhenAbsent(t *testing.T) {
	config := &Config{ProviderTimeout: 1500 * time.Millisecond, AccessTokenValidityDuration: 90 * time.Second}

	parseFlags(config, []string{"-a", ":1", "-x", "ignored"})

	assert.Equal(t, ":1", config.EndpointAddrHTTP)
	assert.Equal(t, 1500*time.Millisecond, config.ProviderTimeout)
	assert.Equal(t, 90*time.Second, config.AccessTokenValidityDuration)
}
