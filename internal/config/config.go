// Package config provides configuration for the weft binaries.
package config

import (
	"github.com/xyproto/env/v2"
)

// Config holds binary configuration.
type Config struct {
	// RulesPath is a YAML analysis-rules file loaded into the registry.
	RulesPath string
	// SchemasPath is an operator declaration file, one schema per line.
	SchemasPath string
	// Listen is the address the playground listens on (e.g., ":8490").
	Listen string
	// Debug enables a verbose database dump after every build.
	Debug bool
	// MaxRequestBytes caps the size of requests accepted over the wire.
	MaxRequestBytes int
	// Version is the tool version string.
	Version string
}

// FromEnv creates a Config from environment variables.
func FromEnv() *Config {
	return &Config{
		RulesPath:       env.Str("WEFT_RULES"),
		SchemasPath:     env.Str("WEFT_SCHEMAS"),
		Listen:          env.Str("WEFT_LISTEN", ":8490"),
		Debug:           env.Bool("WEFT_DEBUG"),
		MaxRequestBytes: env.Int("WEFT_MAX_REQUEST_BYTES", 1<<20),
		Version:         env.Str("WEFT_VERSION", "0.3.0"),
	}
}

// FromArgs creates a Config from explicit paths, with env fallbacks.
func FromArgs(rulesPath, schemasPath string) *Config {
	cfg := FromEnv()
	if rulesPath != "" {
		cfg.RulesPath = rulesPath
	}
	if schemasPath != "" {
		cfg.SchemasPath = schemasPath
	}
	return cfg
}
