package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "client.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
signaling_url = "wss://domain.example:40102/ws"
location = "hifi://welcome"
checkin_interval = "250ms"
interest_set = ["audio-mixer", " avatar-mixer ", ""]
stun_servers = ["stun:stun.example:3478"]
debug = true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.SignalingURL != "wss://domain.example:40102/ws" {
		t.Errorf("SignalingURL = %q", cfg.SignalingURL)
	}
	if cfg.Location != "hifi://welcome" {
		t.Errorf("Location = %q", cfg.Location)
	}
	if cfg.CheckinInterval != 250*time.Millisecond {
		t.Errorf("CheckinInterval = %v", cfg.CheckinInterval)
	}
	want := []string{"audio-mixer", "avatar-mixer"}
	if len(cfg.InterestSet) != len(want) {
		t.Fatalf("InterestSet = %v, want %v", cfg.InterestSet, want)
	}
	for i := range want {
		if cfg.InterestSet[i] != want[i] {
			t.Errorf("InterestSet[%d] = %q, want %q", i, cfg.InterestSet[i], want[i])
		}
	}
	if len(cfg.StunServers) != 1 || cfg.StunServers[0] != "stun:stun.example:3478" {
		t.Errorf("StunServers = %v", cfg.StunServers)
	}
	if !cfg.Debug {
		t.Error("Debug not set")
	}
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeConfig(t, `location = "hifi://welcome"`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	def := Default()
	if cfg.CheckinInterval != def.CheckinInterval {
		t.Errorf("CheckinInterval = %v, want default %v", cfg.CheckinInterval, def.CheckinInterval)
	}
	if len(cfg.InterestSet) != len(def.InterestSet) {
		t.Errorf("InterestSet = %v, want default %v", cfg.InterestSet, def.InterestSet)
	}
	if cfg.Debug {
		t.Error("Debug should default to false")
	}
}

func TestLoadRejectsBadInterval(t *testing.T) {
	for _, interval := range []string{`"soon"`, `"-1s"`, `"0s"`} {
		path := writeConfig(t, "checkin_interval = "+interval)
		if _, err := Load(path); err == nil {
			t.Errorf("interval %s: expected error", interval)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}
