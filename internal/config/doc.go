// Package config loads Stream-Log settings.
//
// Values come from, highest precedence first: command-line flags that were
// explicitly set, STREAMLOG_* environment variables, an optional config file
// in any format viper understands (YAML, TOML, JSON), and built-in defaults.
//
// Example config.yaml:
//
//	log_root: ~/Logger/Master
//	image_root: ~/Camera/Captures
//	log_file: logging.log
//	poll_interval: 2s
//	tail_lines: 100
//	port: 9000
//
// Load returns a plain Config struct; nothing is kept in package state, so
// callers pass the struct to the components that need it.
package config
