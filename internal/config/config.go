package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/paularlott/cli"
)

// Config holds the application configuration
type Config struct {
	DataDir    string
	ListenAddr string

	APIAuthToken string
	MCPAuthToken string

	// Google Sheet source. SheetURL may be the browser URL of the sheet or a
	// direct CSV export URL.
	SheetURL        string
	SheetGID        string
	CredentialsFile string

	// WatchFile is a local .xlsx/.csv file served as the "file" source and
	// reloaded whenever it changes on disk.
	WatchFile string

	RefreshSchedule string // cron spec
	CacheTTL        time.Duration
	Workers         int

	WindowDays    int
	SNMPCommunity string
}

const (
	DefaultDataDir         = "./data"
	DefaultListenAddr      = ":8080"
	DefaultRefreshSchedule = "@every 60s"
	DefaultCacheTTL        = 60 * time.Second
	DefaultWorkers         = 2
	DefaultWindowDays      = 7
	DefaultSNMPCommunity   = "public"
)

// Load builds the configuration from environment variables and defaults.
// Values from a .env file are visible here once env.Load has run.
func Load() *Config {
	cfg := &Config{
		DataDir:         getEnv("CAMDASH_DATA_DIR", DefaultDataDir),
		ListenAddr:      getEnv("CAMDASH_LISTEN_ADDR", DefaultListenAddr),
		APIAuthToken:    os.Getenv("CAMDASH_API_TOKEN"),
		MCPAuthToken:    os.Getenv("CAMDASH_MCP_TOKEN"),
		SheetURL:        os.Getenv("CAMDASH_SHEET_URL"),
		SheetGID:        getEnv("CAMDASH_SHEET_GID", "0"),
		CredentialsFile: os.Getenv("CAMDASH_CREDENTIALS_FILE"),
		WatchFile:       os.Getenv("CAMDASH_WATCH_FILE"),
		RefreshSchedule: getEnv("CAMDASH_REFRESH_SCHEDULE", DefaultRefreshSchedule),
		CacheTTL:        time.Duration(getEnvInt("CAMDASH_CACHE_TTL", int(DefaultCacheTTL/time.Second))) * time.Second,
		Workers:         getEnvInt("CAMDASH_WORKERS", DefaultWorkers),
		WindowDays:      getEnvInt("CAMDASH_WINDOW_DAYS", DefaultWindowDays),
		SNMPCommunity:   getEnv("CAMDASH_SNMP_COMMUNITY", DefaultSNMPCommunity),
	}
	cfg.normalize()
	return cfg
}

// GetFlags returns the server flags. Each flag falls back to its
// environment variable, then to the default.
func GetFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:         "data-dir",
			Usage:        "Directory for the upload database",
			DefaultValue: DefaultDataDir,
			EnvVars:      []string{"CAMDASH_DATA_DIR"},
		},
		&cli.StringFlag{
			Name:         "listen-addr",
			Usage:        "HTTP listen address",
			DefaultValue: DefaultListenAddr,
			EnvVars:      []string{"CAMDASH_LISTEN_ADDR"},
		},
		&cli.StringFlag{
			Name:    "api-token",
			Usage:   "Bearer token required on /api/ routes",
			EnvVars: []string{"CAMDASH_API_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "mcp-token",
			Usage:   "Bearer token required on the MCP endpoint",
			EnvVars: []string{"CAMDASH_MCP_TOKEN"},
		},
		&cli.StringFlag{
			Name:         "refresh-schedule",
			Usage:        "Cron spec for re-fetching remote sources",
			DefaultValue: DefaultRefreshSchedule,
			EnvVars:      []string{"CAMDASH_REFRESH_SCHEDULE"},
		},
		&cli.IntFlag{
			Name:         "cache-ttl",
			Usage:        "Seconds before a fetched snapshot is stale",
			DefaultValue: int(DefaultCacheTTL / time.Second),
			EnvVars:      []string{"CAMDASH_CACHE_TTL"},
		},
		&cli.IntFlag{
			Name:         "workers",
			Usage:        "Concurrent source fetches",
			DefaultValue: DefaultWorkers,
			EnvVars:      []string{"CAMDASH_WORKERS"},
		},
		&cli.StringFlag{
			Name:    "watch-file",
			Usage:   "Local .xlsx or .csv inventory reloaded on change",
			EnvVars: []string{"CAMDASH_WATCH_FILE"},
		},
	}
	return append(flags, SourceFlags()...)
}

// SourceFlags are shared by every command that reads the inventory.
func SourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "sheet-url",
			Aliases: []string{"sheet"},
			Usage:   "Google Sheet URL (or CSV export URL)",
			EnvVars: []string{"CAMDASH_SHEET_URL"},
		},
		&cli.StringFlag{
			Name:         "sheet-gid",
			Usage:        "Worksheet gid within the sheet",
			DefaultValue: "0",
			EnvVars:      []string{"CAMDASH_SHEET_GID"},
		},
		&cli.StringFlag{
			Name:    "credentials",
			Usage:   "Google service account JSON file",
			EnvVars: []string{"CAMDASH_CREDENTIALS_FILE"},
		},
		&cli.IntFlag{
			Name:         "window-days",
			Usage:        "Recent changes window in days",
			DefaultValue: DefaultWindowDays,
			EnvVars:      []string{"CAMDASH_WINDOW_DAYS"},
		},
	}
}

// FromCommand reads the server flags over the env defaults.
func FromCommand(cmd *cli.Command) *Config {
	cfg := Load()
	if cmd == nil {
		return cfg
	}

	cfg.DataDir = coalesce(cmd.GetString("data-dir"), cfg.DataDir)
	cfg.ListenAddr = coalesce(cmd.GetString("listen-addr"), cfg.ListenAddr)
	cfg.APIAuthToken = coalesce(cmd.GetString("api-token"), cfg.APIAuthToken)
	cfg.MCPAuthToken = coalesce(cmd.GetString("mcp-token"), cfg.MCPAuthToken)
	cfg.RefreshSchedule = coalesce(cmd.GetString("refresh-schedule"), cfg.RefreshSchedule)
	cfg.WatchFile = coalesce(cmd.GetString("watch-file"), cfg.WatchFile)
	if v := cmd.GetInt("cache-ttl"); v > 0 {
		cfg.CacheTTL = time.Duration(v) * time.Second
	}
	if v := cmd.GetInt("workers"); v > 0 {
		cfg.Workers = v
	}

	cfg.ApplySourceFlags(cmd)
	return cfg
}

// ApplySourceFlags overlays the flags declared by SourceFlags.
func (c *Config) ApplySourceFlags(cmd *cli.Command) {
	c.SheetURL = coalesce(cmd.GetString("sheet-url"), c.SheetURL)
	c.SheetGID = coalesce(cmd.GetString("sheet-gid"), c.SheetGID)
	c.CredentialsFile = coalesce(cmd.GetString("credentials"), c.CredentialsFile)
	if v := cmd.GetInt("window-days"); v > 0 {
		c.WindowDays = v
	}
	c.normalize()
}

func (c *Config) normalize() {
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.Workers < 1 {
		c.Workers = DefaultWorkers
	}
	if c.WindowDays < 1 {
		c.WindowDays = DefaultWindowDays
	}
	if strings.TrimSpace(c.RefreshSchedule) == "" {
		c.RefreshSchedule = DefaultRefreshSchedule
	}
}

// IsAPIAuthEnabled checks if API authentication is configured
func (c *Config) IsAPIAuthEnabled() bool {
	return c.APIAuthToken != ""
}

// IsMCPEnabled checks if MCP authentication is configured
func (c *Config) IsMCPEnabled() bool {
	return c.MCPAuthToken != ""
}

// HasSheet reports whether a Google Sheet source is configured.
func (c *Config) HasSheet() bool {
	return c.SheetURL != ""
}

func (c *Config) String() string {
	return fmt.Sprintf("data_dir=%s listen=%s sheet=%t watch_file=%q refresh=%q ttl=%s",
		c.DataDir, c.ListenAddr, c.HasSheet(), c.WatchFile, c.RefreshSchedule, c.CacheTTL)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

// coalesce returns the first non-empty string value
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
