// Package config loads runtime configuration for the mathsolver client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Environment variables (MATHSOLVER_SERVER, MATHSOLVER_TOKEN,
//     MATHSOLVER_REFRESH_TOKEN, MATHSOLVER_TIMEOUT).
//
// Command-line flags are applied last by the client binary itself.
//
// # JSON schema
//
//	{
//	  "server_url": "ws://localhost:8000",
//	  "token": "eyJ...",
//	  "refresh_token": "eyJ...",
//	  "timeout": "2m"
//	}
package config
