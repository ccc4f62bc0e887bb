// Package config loads the sift configuration file.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/sift/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. Empty endpoint and api_key are filled from MEILISEARCH_ENDPOINT and
//     MEILISEARCH_API_KEY
//  5. The result is validated; invalid values fail Load
//
// # Example Configuration
//
//	endpoint = "http://127.0.0.1:7700"
//	api_key = "masterKey"
//	request_timeout = "10s"
//	request_ids = false
//	poll_interval = "5s"
//	poll_attempts = 10
//	log_level = "warn"
//	log_encoding = "console"
//	metrics_addr = "127.0.0.1:9090"
//
// Durations use Go duration syntax. metrics_addr is optional; when set, the
// CLI serves Prometheus metrics there while it runs.
//
// # Error Handling
//
// A missing file is not an error. Unreadable files, TOML syntax errors,
// malformed durations and failed validation are returned wrapped with
// "open config", "read config", "parse config" or "validate config".
package config
