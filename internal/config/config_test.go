package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CAMDASH_DATA_DIR", "CAMDASH_LISTEN_ADDR", "CAMDASH_API_TOKEN", "CAMDASH_MCP_TOKEN",
		"CAMDASH_SHEET_URL", "CAMDASH_SHEET_GID", "CAMDASH_CREDENTIALS_FILE", "CAMDASH_WATCH_FILE",
		"CAMDASH_REFRESH_SCHEDULE", "CAMDASH_CACHE_TTL", "CAMDASH_WORKERS", "CAMDASH_WINDOW_DAYS",
		"CAMDASH_SNMP_COMMUNITY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()

	if cfg.DataDir != DefaultDataDir {
		t.Errorf("Expected data dir %s, got %s", DefaultDataDir, cfg.DataDir)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("Expected listen addr %s, got %s", DefaultListenAddr, cfg.ListenAddr)
	}
	if cfg.SheetGID != "0" {
		t.Errorf("Expected gid 0, got %s", cfg.SheetGID)
	}
	if cfg.RefreshSchedule != DefaultRefreshSchedule {
		t.Errorf("Expected schedule %q, got %q", DefaultRefreshSchedule, cfg.RefreshSchedule)
	}
	if cfg.CacheTTL != DefaultCacheTTL {
		t.Errorf("Expected ttl %s, got %s", DefaultCacheTTL, cfg.CacheTTL)
	}
	if cfg.Workers != DefaultWorkers || cfg.WindowDays != DefaultWindowDays {
		t.Errorf("Expected default workers and window, got %d and %d", cfg.Workers, cfg.WindowDays)
	}
	if cfg.SNMPCommunity != DefaultSNMPCommunity {
		t.Errorf("Expected community %s, got %s", DefaultSNMPCommunity, cfg.SNMPCommunity)
	}
	if cfg.HasSheet() || cfg.IsAPIAuthEnabled() || cfg.IsMCPEnabled() {
		t.Error("Expected no sheet and no auth by default")
	}
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CAMDASH_DATA_DIR", "/var/lib/camdash")
	t.Setenv("CAMDASH_LISTEN_ADDR", ":9090")
	t.Setenv("CAMDASH_API_TOKEN", "api")
	t.Setenv("CAMDASH_MCP_TOKEN", "mcp")
	t.Setenv("CAMDASH_SHEET_URL", "https://docs.google.com/spreadsheets/d/abc/edit")
	t.Setenv("CAMDASH_SHEET_GID", "42")
	t.Setenv("CAMDASH_CACHE_TTL", " 300 ")
	t.Setenv("CAMDASH_WORKERS", "4")
	t.Setenv("CAMDASH_WINDOW_DAYS", "14")

	cfg := Load()

	if cfg.DataDir != "/var/lib/camdash" || cfg.ListenAddr != ":9090" {
		t.Errorf("Unexpected dirs: %s %s", cfg.DataDir, cfg.ListenAddr)
	}
	if !cfg.IsAPIAuthEnabled() || !cfg.IsMCPEnabled() {
		t.Error("Expected both tokens to enable auth")
	}
	if !cfg.HasSheet() || cfg.SheetGID != "42" {
		t.Errorf("Expected sheet gid 42, got %q", cfg.SheetGID)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("Expected ttl 5m, got %s", cfg.CacheTTL)
	}
	if cfg.Workers != 4 || cfg.WindowDays != 14 {
		t.Errorf("Expected workers 4 and window 14, got %d and %d", cfg.Workers, cfg.WindowDays)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		check func(*Config) bool
	}{
		{"non-numeric workers", "CAMDASH_WORKERS", "many", func(c *Config) bool { return c.Workers == DefaultWorkers }},
		{"zero workers", "CAMDASH_WORKERS", "0", func(c *Config) bool { return c.Workers == DefaultWorkers }},
		{"negative window", "CAMDASH_WINDOW_DAYS", "-3", func(c *Config) bool { return c.WindowDays == DefaultWindowDays }},
		{"zero ttl", "CAMDASH_CACHE_TTL", "0", func(c *Config) bool { return c.CacheTTL == DefaultCacheTTL }},
		{"blank schedule", "CAMDASH_REFRESH_SCHEDULE", "   ", func(c *Config) bool { return c.RefreshSchedule == DefaultRefreshSchedule }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if cfg := Load(); !tt.check(cfg) {
				t.Errorf("Expected %s=%q to fall back to the default, got %+v", tt.key, tt.value, cfg)
			}
		})
	}
}

func TestFromCommand_Nil(t *testing.T) {
	clearEnv(t)
	t.Setenv("CAMDASH_WATCH_FILE", "inventory.xlsx")

	cfg := FromCommand(nil)
	if cfg.WatchFile != "inventory.xlsx" {
		t.Errorf("Expected watch file from env, got %q", cfg.WatchFile)
	}
}

func TestCoalesce(t *testing.T) {
	if got := coalesce("", "b", "c"); got != "b" {
		t.Errorf("Expected b, got %q", got)
	}
	if got := coalesce("", ""); got != "" {
		t.Errorf("Expected empty, got %q", got)
	}
}
