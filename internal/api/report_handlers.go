package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/martinsuchenak/camdash/internal/metrics"
	"github.com/martinsuchenak/camdash/internal/model"
)

// reportQuery holds the query parameters shared by the report views
type reportQuery struct {
	source string
	opts   metrics.Options
}

// parseReportQuery reads source, location, area and window_days
func (h *Handler) parseReportQuery(q url.Values) (reportQuery, error) {
	rq := reportQuery{source: strings.TrimSpace(q.Get("source"))}

	filter, err := metrics.ParseLocationFilter(q.Get("location"), q.Get("area"))
	if err != nil {
		return rq, err
	}
	rq.opts.Filter = filter

	rq.opts.WindowDays = h.windowDays
	if v := q.Get("window_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return rq, fmt.Errorf("window_days must be a positive integer")
		}
		rq.opts.WindowDays = n
	}
	return rq, nil
}

// buildReport loads the snapshot named by the request and evaluates it
func (h *Handler) buildReport(w http.ResponseWriter, r *http.Request) (*model.Report, bool) {
	rq, err := h.parseReportQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	snap, err := h.inventory.Snapshot(r.Context(), rq.source)
	if err != nil {
		h.sourceError(w, err)
		return nil, false
	}

	rq.opts.Source = snap.Source
	rq.opts.Missing = snap.Missing
	return metrics.BuildReport(snap.Devices, h.now(), rq.opts), true
}

// getReport handles GET /api/report
func (h *Handler) getReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.buildReport(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// listDevices handles GET /api/devices
func (h *Handler) listDevices(w http.ResponseWriter, r *http.Request) {
	report, ok := h.buildReport(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, report.Devices)
}

// listAlerts handles GET /api/alerts
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	tier := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("tier")))
	if tier != "" && tier != string(model.AlertHigh) && tier != string(model.AlertMild) {
		h.writeError(w, http.StatusBadRequest, "tier must be high or mild")
		return
	}

	report, ok := h.buildReport(w, r)
	if !ok {
		return
	}

	switch model.AlertTier(tier) {
	case model.AlertHigh:
		h.writeJSON(w, http.StatusOK, report.HighAlert)
	case model.AlertMild:
		h.writeJSON(w, http.StatusOK, report.MildAlert)
	default:
		h.writeJSON(w, http.StatusOK, map[string]model.DeviceGroup{
			"high": report.HighAlert,
			"mild": report.MildAlert,
		})
	}
}

// listFirmwarePending handles GET /api/firmware
func (h *Handler) listFirmwarePending(w http.ResponseWriter, r *http.Request) {
	report, ok := h.buildReport(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"pending":  report.Firmware,
		"warnings": report.Warnings,
	})
}

// listRecentChanges handles GET /api/recent
func (h *Handler) listRecentChanges(w http.ResponseWriter, r *http.Request) {
	report, ok := h.buildReport(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, report.Recent)
}
