// Package config provides loading and environment overlay for the server
// configuration. It exposes a Default() baseline, JSON/YAML file loading and
// an AESD_* environment overlay.
//
// Example:
//
//	cfg, err := config.Load("/etc/aesdsocket.yaml")
//	if err != nil { /* handle */ }
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil { /* fatal startup error */ }
package config
