package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/mathsolver/internal/flagx"
	"github.com/dmitrijs2005/mathsolver/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// Duration fields use timex.Duration, which accepts both "90s"-style strings
// and integer nanoseconds.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  string         `json:"database_dsn"`
	RedisAddr                    string         `json:"redis_addr"`
	UserCacheTTL                 timex.Duration `json:"user_cache_ttl"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	OpenAIAPIKey                 string         `json:"openai_api_key"`
	OpenAIBaseURL                string         `json:"openai_base_url"`
	OpenAIModel                  string         `json:"openai_model"`
	SolvePrompt                  string         `json:"solve_prompt"`
	ProviderTimeout              timex.Duration `json:"provider_timeout"`
	MaxImageBytes                int64          `json:"max_image_bytes"`
	ResultRetention              timex.Duration `json:"result_retention"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	LogLevel                     string         `json:"log_level"`
}

// parseJson overlays values from the JSON file named by -c/-config onto
// config. Keys missing from the file keep their current values, because the
// file is decoded on top of a snapshot of config.
//
// If no file is named nothing happens. If the file cannot be read or holds
// invalid JSON, parseJson panics.
func parseJson(config *Config, args []string) {

	jsonConfigFile := flagx.ConfigFile(args)

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	fromJson(config, c)
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		EndpointAddrHTTP:             c.EndpointAddrHTTP,
		EndpointAddrGRPC:             c.EndpointAddrGRPC,
		DatabaseDSN:                  c.DatabaseDSN,
		RedisAddr:                    c.RedisAddr,
		UserCacheTTL:                 timex.Duration{Duration: c.UserCacheTTL},
		SecretKey:                    c.SecretKey,
		AccessTokenValidityDuration:  timex.Duration{Duration: c.AccessTokenValidityDuration},
		RefreshTokenValidityDuration: timex.Duration{Duration: c.RefreshTokenValidityDuration},
		OpenAIAPIKey:                 c.OpenAIAPIKey,
		OpenAIBaseURL:                c.OpenAIBaseURL,
		OpenAIModel:                  c.OpenAIModel,
		SolvePrompt:                  c.SolvePrompt,
		ProviderTimeout:              timex.Duration{Duration: c.ProviderTimeout},
		MaxImageBytes:                c.MaxImageBytes,
		ResultRetention:              timex.Duration{Duration: c.ResultRetention},
		S3RootUser:                   c.S3RootUser,
		S3RootPassword:               c.S3RootPassword,
		S3Bucket:                     c.S3Bucket,
		S3Region:                     c.S3Region,
		S3BaseEndpoint:               c.S3BaseEndpoint,
		LogLevel:                     c.LogLevel,
	}
}

func fromJson(config *Config, c *JsonConfig) {
	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.EndpointAddrGRPC = c.EndpointAddrGRPC
	config.DatabaseDSN = c.DatabaseDSN
	config.RedisAddr = c.RedisAddr
	config.UserCacheTTL = c.UserCacheTTL.Duration
	config.SecretKey = c.SecretKey
	config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	config.OpenAIAPIKey = c.OpenAIAPIKey
	config.OpenAIBaseURL = c.OpenAIBaseURL
	config.OpenAIModel = c.OpenAIModel
	config.SolvePrompt = c.SolvePrompt
	config.ProviderTimeout = c.ProviderTimeout.Duration
	config.MaxImageBytes = c.MaxImageBytes
	config.ResultRetention = c.ResultRetention.Duration
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.LogLevel = c.LogLevel
}
