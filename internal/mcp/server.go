package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/martinsuchenak/camdash/internal/api"
	"github.com/martinsuchenak/camdash/internal/cache"
	"github.com/martinsuchenak/camdash/internal/log"
	"github.com/martinsuchenak/camdash/internal/metrics"
	"github.com/martinsuchenak/camdash/internal/model"
	"github.com/paularlott/mcp"
)

// Inventory is the snapshot layer the tools read from
type Inventory interface {
	Snapshot(ctx context.Context, id string) (*model.Snapshot, error)
	Refresh(ctx context.Context, id string) (*model.Snapshot, error)
	Status() []model.SourceStatus
}

// Server wraps the MCP server with the inventory snapshots
type Server struct {
	mcpServer   *mcp.Server
	inventory   Inventory
	bearerToken string
	windowDays  int
	now         func() time.Time
}

// NewServer creates a new MCP server for the inventory dashboard
func NewServer(inv Inventory, bearerToken string, windowDays int) *Server {
	s := &Server{
		mcpServer:   mcp.NewServer("camdash", "1.0.0"),
		inventory:   inv,
		bearerToken: bearerToken,
		windowDays:  windowDays,
		now:         time.Now,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	// inventory_report - Headline figures for a view
	s.mcpServer.RegisterTool(
		mcp.NewTool("inventory_report", "Summarise the camera/NVR inventory: totals, status, coverage, age alerts and firmware",
			mcp.String("source", "Source ID (default: the live sheet)"),
			mcp.String("location", "plant (1F) or ho; empty for all"),
			mcp.String("area", "Plant area to narrow the view to"),
			mcp.String("window_days", "Days counted as recent (default 7)"),
			mcp.String("format", "text or json"),
		),
		s.handleReport,
	)

	// inventory_alerts - Devices near or past replacement age
	s.mcpServer.RegisterTool(
		mcp.NewTool("inventory_alerts", "List devices in the high (5y11m+) or mild (5y6m+) age alert tier",
			mcp.String("source", "Source ID (default: the live sheet)"),
			mcp.String("tier", "high or mild; empty for both"),
		),
		s.handleAlerts,
	)

	// firmware_pending - Devices still waiting on an update
	s.mcpServer.RegisterTool(
		mcp.NewTool("firmware_pending", "List devices whose firmware status is not OK or no more updates",
			mcp.String("source", "Source ID (default: the live sheet)"),
		),
		s.handleFirmwarePending,
	)

	// recent_changes - Rows updated inside the window
	s.mcpServer.RegisterTool(
		mcp.NewTool("recent_changes", "List devices updated recently and those whose status changed away from live",
			mcp.String("source", "Source ID (default: the live sheet)"),
			mcp.String("window_days", "Days counted as recent (default 7)"),
		),
		s.handleRecentChanges,
	)

	// list_sources - Configured sources and cache state
	s.mcpServer.RegisterTool(
		mcp.NewTool("list_sources", "List inventory sources with their last fetch time and staleness"),
		s.handleListSources,
	)

	// refresh_source - Force a re-fetch
	s.mcpServer.RegisterTool(
		mcp.NewTool("refresh_source", "Discard the cached snapshot of a source and fetch it again",
			mcp.String("id", "Source ID", mcp.Required()),
		),
		s.handleRefreshSource,
	)
}

// HandleRequest handles MCP HTTP requests with optional bearer token authentication
func (s *Server) HandleRequest(w http.ResponseWriter, r *http.Request) {
	log.Debug("MCP request received", "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)

	if s.bearerToken != "" {
		if !api.CheckBearer(r, s.bearerToken) {
			log.Warn("MCP request unauthorized", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	s.mcpServer.HandleRequest(w, r)
}

// buildReport loads a snapshot and evaluates it with the request's filter
func (s *Server) buildReport(ctx context.Context, req *mcp.ToolRequest) (*model.Report, error) {
	opts, err := s.reportOptions(
		req.StringOr("location", ""),
		req.StringOr("area", ""),
		req.StringOr("window_days", ""),
	)
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams(err.Error())
	}

	id := req.StringOr("source", "")
	snap, err := s.inventory.Snapshot(ctx, id)
	if err != nil {
		return nil, toolError(id, err)
	}

	opts.Source = snap.Source
	opts.Missing = snap.Missing
	return metrics.BuildReport(snap.Devices, s.now(), opts), nil
}

// reportOptions validates the filter parameters
func (s *Server) reportOptions(location, area, windowDays string) (metrics.Options, error) {
	opts := metrics.Options{WindowDays: s.windowDays}

	filter, err := metrics.ParseLocationFilter(location, area)
	if err != nil {
		return opts, err
	}
	opts.Filter = filter

	if windowDays = strings.TrimSpace(windowDays); windowDays != "" {
		n, err := strconv.Atoi(windowDays)
		if err != nil || n < 1 {
			return opts, fmt.Errorf("window_days must be a positive integer, got %q", windowDays)
		}
		opts.WindowDays = n
	}
	return opts, nil
}

func toolError(id string, err error) error {
	if errors.Is(err, cache.ErrSourceNotFound) {
		return mcp.NewToolErrorInvalidParams(fmt.Sprintf("unknown source %q", id))
	}
	log.Error("MCP snapshot failed", "source", id, "error", err)
	return mcp.NewToolErrorInternal("failed to load inventory: " + err.Error())
}

func (s *Server) handleReport(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	report, err := s.buildReport(ctx, req)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(req.StringOr("format", ""), "json") {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, mcp.NewToolErrorInternal("encoding report: " + err.Error())
		}
		return mcp.NewToolResponseText(string(data)), nil
	}

	log.Debug("MCP report served", "source", report.Source, "devices", report.KPIs.Total)
	return mcp.NewToolResponseText(formatReport(report)), nil
}

func (s *Server) handleAlerts(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	tier := strings.ToLower(strings.TrimSpace(req.StringOr("tier", "")))
	if tier != "" && tier != string(model.AlertHigh) && tier != string(model.AlertMild) {
		return nil, mcp.NewToolErrorInvalidParams("tier must be high or mild")
	}

	report, err := s.buildReport(ctx, req)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	if tier != string(model.AlertMild) {
		writeGroup(&b, "High alert (over 5 years 11 months)", report.HighAlert)
	}
	if tier != string(model.AlertHigh) {
		writeGroup(&b, "Mild alert (5 years 6 months to 5 years 11 months)", report.MildAlert)
	}
	return mcp.NewToolResponseText(b.String()), nil
}

func (s *Server) handleFirmwarePending(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	report, err := s.buildReport(ctx, req)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	writeWarnings(&b, report.Warnings)
	writeGroup(&b, "Firmware update pending", report.Firmware)
	return mcp.NewToolResponseText(b.String()), nil
}

func (s *Server) handleRecentChanges(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	report, err := s.buildReport(ctx, req)
	if err != nil {
		return nil, err
	}

	recent := report.Recent
	if len(recent.Devices) == 0 {
		return mcp.NewToolResponseText(fmt.Sprintf("No changes in the last %d days", recent.WindowDays)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Changes in the last %d days: %d\n", recent.WindowDays, len(recent.Devices))
	for _, d := range recent.Devices {
		b.WriteString(formatDeviceLine(d))
	}
	if len(recent.StatusChanges) > 0 {
		fmt.Fprintf(&b, "\nStatus changes: %d\n", len(recent.StatusChanges))
		for _, d := range recent.StatusChanges {
			b.WriteString(formatDeviceLine(d))
		}
	}
	return mcp.NewToolResponseText(b.String()), nil
}

func (s *Server) handleListSources(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	sources := s.inventory.Status()
	if len(sources) == 0 {
		return mcp.NewToolResponseText("No sources configured"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d source(s):\n\n", len(sources))
	for _, src := range sources {
		b.WriteString(formatSource(src))
		b.WriteString("\n")
	}
	return mcp.NewToolResponseText(b.String()), nil
}

func (s *Server) handleRefreshSource(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	id, err := req.String("id")
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("id is required: " + err.Error())
	}

	snap, err := s.inventory.Refresh(ctx, id)
	if err != nil {
		return nil, toolError(id, err)
	}

	log.Info("MCP source refreshed", "source", snap.Source, "devices", len(snap.Devices))
	return mcp.NewToolResponseText(fmt.Sprintf("Source %s refreshed: %d devices", snap.Source, len(snap.Devices))), nil
}

// GetHTTPHandler returns the HTTP handler for the MCP server
func (s *Server) GetHTTPHandler() http.HandlerFunc {
	return s.HandleRequest
}

// LogStartup logs MCP server startup information
func (s *Server) LogStartup() {
	log.Info("MCP Server initialized", "version", "1.0.0")
	if s.bearerToken != "" {
		log.Info("MCP authentication enabled", "type", "Bearer token")
	} else {
		log.Info("MCP authentication disabled")
	}
	tools := s.mcpServer.ListTools()
	log.Info("MCP tools registered", "count", len(tools))
	for _, tool := range tools {
		log.Debug("MCP tool registered", "name", tool.Name, "description", tool.Description)
	}
}
