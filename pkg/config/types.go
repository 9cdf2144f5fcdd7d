package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent genie configuration stored as config.toml
// in the .genie/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int          `toml:"version"`
	Client  ClientConfig `toml:"client"`
	Serve   ServeConfig  `toml:"serve"`
}

// ClientConfig holds settings for commands that talk to a running agent
// backend (genie chat, genie ui). APITarget is a full URL (scheme + host +
// port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
	Model     string `toml:"model,omitempty"`
	Product   string `toml:"product,omitempty"`
	DeepThink bool   `toml:"deep_think,omitempty"`
}

// ServeConfig holds dev agent server settings.
type ServeConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
	"client.model": {
		get: func(c *Config) string { return c.Client.Model },
		set: func(c *Config, v string) error { c.Client.Model = v; return nil },
	},
	"client.product": {
		get: func(c *Config) string { return c.Client.Product },
		set: func(c *Config, v string) error {
			if v != "agent" && v != "dataAgent" {
				return fmt.Errorf("invalid value for client.product: %q (available: agent, dataAgent)", v)
			}
			c.Client.Product = v
			return nil
		},
	},
	"client.deep_think": {
		get: func(c *Config) string { return strconv.FormatBool(c.Client.DeepThink) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for client.deep_think: %w", err)
			}
			c.Client.DeepThink = b
			return nil
		},
	},
	"serve.listen": {
		get: func(c *Config) string { return c.Serve.Listen },
		set: func(c *Config, v string) error { c.Serve.Listen = v; return nil },
	},
}
