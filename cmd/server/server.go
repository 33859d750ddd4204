package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/martinsuchenak/camdash/internal/api"
	"github.com/martinsuchenak/camdash/internal/cache"
	"github.com/martinsuchenak/camdash/internal/config"
	"github.com/martinsuchenak/camdash/internal/log"
	"github.com/martinsuchenak/camdash/internal/mcp"
	"github.com/martinsuchenak/camdash/internal/registry"
	"github.com/martinsuchenak/camdash/internal/source"
	"github.com/martinsuchenak/camdash/internal/storage"
	"github.com/martinsuchenak/camdash/internal/ui"
	"github.com/martinsuchenak/camdash/internal/worker"
	"github.com/paularlott/cli"
)

// FileSourceID is the source id of the watched local file
const FileSourceID = "file"

const shutdownTimeout = 10 * time.Second

// BuildRegistry registers the configured sheet, the watched file and every
// stored upload. A source that cannot be created is logged and skipped so
// the dashboard still starts.
func BuildRegistry(ctx context.Context, cfg *config.Config, uploads storage.UploadStorage) (*registry.Registry, error) {
	reg := registry.New()

	if cfg.HasSheet() {
		sheet, err := source.NewSheetSource(ctx, cfg.SheetURL, cfg.SheetGID, cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("configuring sheet source: %w", err)
		}
		if err := reg.Register(sheet); err != nil {
			return nil, err
		}
		log.Info("Sheet source configured", "export_url", sheet.ExportURL(), "credentials", cfg.CredentialsFile != "")
	}

	if cfg.WatchFile != "" {
		file, err := source.NewFileSource(FileSourceID, cfg.WatchFile)
		if err != nil {
			return nil, fmt.Errorf("configuring file source: %w", err)
		}
		if err := reg.Register(file); err != nil {
			return nil, err
		}
		log.Info("File source configured", "path", cfg.WatchFile)
	}

	if uploads != nil {
		stored, err := uploads.ListUploads()
		if err != nil {
			return nil, fmt.Errorf("listing uploads: %w", err)
		}
		for _, u := range stored {
			src, err := source.NewUploadSource(u, uploads)
			if err != nil {
				log.Warn("Skipping stored upload", "id", u.ID, "name", u.Name, "error", err)
				continue
			}
			if err := reg.Register(src); err != nil {
				log.Warn("Skipping stored upload", "id", u.ID, "error", err)
			}
		}
		log.Info("Stored uploads registered", "count", len(stored))
	}

	if len(reg.IDs()) == 0 {
		log.Warn("No inventory source configured; upload a spreadsheet through the dashboard")
	}
	return reg, nil
}

// ServerConfig holds configuration for running the server
type ServerConfig struct {
	Config          *config.Config
	MCPServer       *mcp.Server
	APIHandler      *api.Handler
	CustomUIHandler http.HandlerFunc // Optional: override default UI handler
}

// NewMux wires the API, MCP and UI routes with the middleware applied
func NewMux(cfg *ServerConfig) http.Handler {
	mux := http.NewServeMux()

	// API routes
	cfg.APIHandler.RegisterRoutes(mux)

	// MCP endpoint
	mux.HandleFunc("/mcp", cfg.MCPServer.GetHTTPHandler())

	// Serve web UI at root (handles all / and /assets/* requests)
	uiHandler := cfg.CustomUIHandler
	if uiHandler == nil {
		uiHandler = ui.AssetHandler()
	}
	mux.Handle("/", uiHandler)

	// Apply middleware
	var handler http.Handler = mux
	if cfg.Config.IsAPIAuthEnabled() {
		handler = api.AuthMiddleware(cfg.Config.APIAuthToken, handler)
	}
	return api.SecurityHeadersMiddleware(handler)
}

// RunServer serves until ctx is cancelled or the process is signalled
func RunServer(ctx context.Context, cfg *ServerConfig) error {
	server := &http.Server{
		Addr:              cfg.Config.ListenAddr,
		Handler:           NewMux(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Handle shutdown gracefully
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("Graceful shutdown failed, closing", "error", err)
			server.Close()
		}
	}()

	// Log startup info
	log.Info("Starting camdash server", "addr", cfg.Config.ListenAddr)
	log.Info("Dashboard available", "url", "http://localhost"+cfg.Config.ListenAddr)
	log.Info("API available", "url", "http://localhost"+cfg.Config.ListenAddr+"/api/")
	log.Info("MCP available", "url", "http://localhost"+cfg.Config.ListenAddr+"/mcp")
	if cfg.Config.IsAPIAuthEnabled() {
		log.Info("API authentication enabled")
	}
	cfg.MCPServer.LogStartup()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Server error", "error", err)
		return err
	}

	log.Info("Server stopped")
	return nil
}

func Command() *cli.Command {
	return &cli.Command{
		Name:        "server",
		Usage:       "Start the dashboard server",
		Description: "Start the HTTP server with the dashboard UI, JSON API and MCP endpoint",
		Flags:       config.GetFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.FromCommand(cmd)
			log.Info("Configuration loaded", "config", cfg.String())

			store, err := storage.NewSQLiteStorage(cfg.DataDir)
			if err != nil {
				log.Error("Failed to initialize storage", "error", err)
				return err
			}
			defer store.Close()
			log.Info("Storage initialized", "backend", "SQLite", "path", store.Path())

			reg, err := BuildRegistry(ctx, cfg, store)
			if err != nil {
				return err
			}

			pool := worker.NewWorkerPool(cfg.Workers)
			refresher := worker.NewRefresher(reg, cache.New(cfg.CacheTTL), pool)
			if err := refresher.Start(cfg.RefreshSchedule); err != nil {
				return err
			}
			defer refresher.Stop()

			watchCtx, cancelWatch := context.WithCancel(ctx)
			defer cancelWatch()
			if cfg.WatchFile != "" {
				go func() {
					if err := refresher.Watch(watchCtx, FileSourceID, cfg.WatchFile); err != nil {
						log.Error("File watcher stopped", "path", cfg.WatchFile, "error", err)
					}
				}()
			}

			return RunServer(ctx, &ServerConfig{
				Config:     cfg,
				MCPServer:  mcp.NewServer(refresher, cfg.MCPAuthToken, cfg.WindowDays),
				APIHandler: api.NewHandler(refresher, store, cfg.WindowDays),
			})
		},
	}
}
