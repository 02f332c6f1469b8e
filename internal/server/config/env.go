package config

import (
	"errors"
	"time"

	"github.com/joeshaw/envdecode"
)

// EnvConfig maps environment variables onto Config. Only variables that are
// set override the current value.
type EnvConfig struct {
	EndpointAddrHTTP             string        `env:"SOLVER_HTTP_ADDR"`
	EndpointAddrGRPC             string        `env:"SOLVER_GRPC_ADDR"`
	DatabaseDSN                  string        `env:"SOLVER_DATABASE_DSN"`
	RedisAddr                    string        `env:"SOLVER_REDIS_ADDR"`
	UserCacheTTL                 time.Duration `env:"SOLVER_USER_CACHE_TTL"`
	SecretKey                    string        `env:"SOLVER_JWT_SECRET"`
	AccessTokenValidityDuration  time.Duration `env:"SOLVER_ACCESS_TOKEN_TTL"`
	RefreshTokenValidityDuration time.Duration `env:"SOLVER_REFRESH_TOKEN_TTL"`
	OpenAIAPIKey                 string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL                string        `env:"OPENAI_BASE_URL"`
	OpenAIModel                  string        `env:"SOLVER_OPENAI_MODEL"`
	ProviderTimeout              time.Duration `env:"SOLVER_PROVIDER_TIMEOUT"`
	MaxImageBytes                int64         `env:"SOLVER_MAX_IMAGE_BYTES"`
	ResultRetention              time.Duration `env:"SOLVER_RESULT_RETENTION"`
	S3RootUser                   string        `env:"SOLVER_S3_ROOT_USER"`
	S3RootPassword               string        `env:"SOLVER_S3_ROOT_PASSWORD"`
	S3Bucket                     string        `env:"SOLVER_S3_BUCKET"`
	S3Region                     string        `env:"SOLVER_S3_REGION"`
	S3BaseEndpoint               string        `env:"SOLVER_S3_BASE_ENDPOINT"`
	LogLevel                     string        `env:"SOLVER_LOG_LEVEL"`
}

// parseEnv overlays environment variables onto config. An environment with
// none of the variables set is not an error; any decoding failure panics,
// the same way a broken JSON file does.
func parseEnv(config *Config) {
	e := &EnvConfig{
		EndpointAddrHTTP:             config.EndpointAddrHTTP,
		EndpointAddrGRPC:             config.EndpointAddrGRPC,
		DatabaseDSN:                  config.DatabaseDSN,
		RedisAddr:                    config.RedisAddr,
		UserCacheTTL:                 config.UserCacheTTL,
		SecretKey:                    config.SecretKey,
		AccessTokenValidityDuration:  config.AccessTokenValidityDuration,
		RefreshTokenValidityDuration: config.RefreshTokenValidityDuration,
		OpenAIAPIKey:                 config.OpenAIAPIKey,
		OpenAIBaseURL:                config.OpenAIBaseURL,
		OpenAIModel:                  config.OpenAIModel,
		ProviderTimeout:              config.ProviderTimeout,
		MaxImageBytes:                config.MaxImageBytes,
		ResultRetention:              config.ResultRetention,
		S3RootUser:                   config.S3RootUser,
		S3RootPassword:               config.S3RootPassword,
		S3Bucket:                     config.S3Bucket,
		S3Region:                     config.S3Region,
		S3BaseEndpoint:               config.S3BaseEndpoint,
		LogLevel:                     config.LogLevel,
	}

	if err := envdecode.Decode(e); err != nil {
		if errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
			return
		}
		panic(err)
	}

	config.EndpointAddrHTTP = e.EndpointAddrHTTP
	config.EndpointAddrGRPC = e.EndpointAddrGRPC
	config.DatabaseDSN = e.DatabaseDSN
	config.RedisAddr = e.RedisAddr
	config.UserCacheTTL = e.UserCacheTTL
	config.SecretKey = e.SecretKey
	config.AccessTokenValidityDuration = e.AccessTokenValidityDuration
	config.RefreshTokenValidityDuration = e.RefreshTokenValidityDuration
	config.OpenAIAPIKey = e.OpenAIAPIKey
	config.OpenAIBaseURL = e.OpenAIBaseURL
	config.OpenAIModel = e.OpenAIModel
	config.ProviderTimeout = e.ProviderTimeout
	config.MaxImageBytes = e.MaxImageBytes
	config.ResultRetention = e.ResultRetention
	config.S3RootUser = e.S3RootUser
	config.S3RootPassword = e.S3RootPassword
	config.S3Bucket = e.S3Bucket
	config.S3Region = e.S3Region
	config.S3BaseEndpoint = e.S3BaseEndpoint
	config.LogLevel = e.LogLevel
}
