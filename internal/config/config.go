// Package config holds the client configuration and its TOML loader.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config carries everything the client needs to reach a domain.
type Config struct {
	// SignalingURL is the domain's WebSocket signaling endpoint, e.g.
	// wss://domain.example:40102/ws.
	SignalingURL string

	// Location is the domain location string sent in connect requests.
	Location string

	// CheckinInterval is the period of domain check-ins.
	CheckinInterval time.Duration

	// InterestSet names the node types the client asks the domain to
	// report ("audio-mixer", "avatar-mixer", ...).
	InterestSet []string

	// StunServers used for ICE gathering. Empty uses the defaults.
	StunServers []string

	// Debug enables debug logging.
	Debug bool
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		CheckinInterval: time.Second,
		InterestSet: []string{
			"audio-mixer", "avatar-mixer", "entity-server", "messages-mixer",
		},
	}
}

type fileConfig struct {
	SignalingURL    string   `toml:"signaling_url"`
	Location        string   `toml:"location"`
	CheckinInterval string   `toml:"checkin_interval"`
	InterestSet     []string `toml:"interest_set"`
	StunServers     []string `toml:"stun_servers"`
	Debug           bool     `toml:"debug"`
}

// Load reads a TOML file onto the defaults. Only keys present in the
// file override.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load client config: %w", err)
	}

	if meta.IsDefined("signaling_url") {
		cfg.SignalingURL = strings.TrimSpace(raw.SignalingURL)
	}

	if meta.IsDefined("location") {
		cfg.Location = strings.TrimSpace(raw.Location)
	}

	if meta.IsDefined("checkin_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.CheckinInterval))
		if err != nil {
			return Config{}, fmt.Errorf("parse checkin_interval: %w", err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("checkin_interval must be positive, got %v", d)
		}
		cfg.CheckinInterval = d
	}

	if meta.IsDefined("interest_set") {
		cfg.InterestSet = normalizeNames(raw.InterestSet)
	}

	if meta.IsDefined("stun_servers") {
		cfg.StunServers = normalizeNames(raw.StunServers)
	}

	if meta.IsDefined("debug") {
		cfg.Debug = raw.Debug
	}

	return cfg, nil
}

// normalizeNames trims entries and drops empty ones.
func normalizeNames(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
