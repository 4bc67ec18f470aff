// Package config loads runtime configuration for the mediagate CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Environment variables prefixed with MEDIAGATE_ (see parseEnv).
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// The merged Config is validated with go-playground/validator.
//
// Supported flags
//
//	-s string   homeserver base URL
//	-t int      request timeout (seconds)
//	-m string   seal policy (permissive | sealed-only)
//	-j string   scan journal path
//	-o string   export directory
//	-p int      parallel scans in batch mode
//	-l string   log level
//
// # JSON schema
//
// Intervals use timex.Duration, so they can be strings like "30s" or integer
// nanoseconds:
//
//	{
//	  "homeserver_url": "https://matrix.example.org",
//	  "request_timeout": "30s",
//	  "seal_policy": "sealed-only",
//	  "s3_bucket": "quarantine",
//	  "s3_region": "eu-west-3"
//	}
package config
