package metrics

import (
	"fmt"
	"time"

	"github.com/martinsuchenak/camdash/internal/model"
)

// Options tune BuildReport. Zero values select the dashboard defaults.
type Options struct {
	Source      string
	Filter      model.LocationFilter
	WindowDays  int
	OldAgeYears float64
	// Missing lists columns absent from the sheet; sections that depend on
	// them are reported empty with a warning.
	Missing []model.Field
}

func (o Options) missing(f model.Field) bool {
	for _, m := range o.Missing {
		if m == f {
			return true
		}
	}
	return false
}

// BuildReport computes every dashboard aggregate for one snapshot at now.
// The devices slice is not modified; the same input and now always give the
// same report.
func BuildReport(devices []model.Device, now time.Time, opts Options) *model.Report {
	if opts.WindowDays <= 0 {
		opts.WindowDays = DefaultWindowDays
	}
	if opts.OldAgeYears <= 0 {
		opts.OldAgeYears = OldAgeYears
	}

	r := &model.Report{
		GeneratedAt:    now,
		Source:         opts.Source,
		Filter:         opts.Filter,
		InventoryTotal: len(devices),
		Departments:    SplitLocation(devices),
		NonActive:      NonActiveShare(devices),
		Areas:          Areas(devices),
	}
	for _, f := range opts.Missing {
		r.Warnings = append(r.Warnings, fmt.Sprintf("column for %s not found; related figures are empty", f))
	}

	enriched := Enrich(devices, now)

	if opts.missing(model.FieldFirmwareStatus) {
		r.Firmware = Group(nil)
	} else {
		r.Firmware = Group(Enrich(FirmwarePending(devices), now))
	}
	r.Repair = Group(Enrich(FilterStatus(devices, model.StatusRepair), now))
	r.Discard = Group(Enrich(FilterStatus(devices, model.StatusDiscard), now))
	r.HighAlert = Group(FilterTier(enriched, model.AlertHigh))
	r.MildAlert = Group(FilterTier(enriched, model.AlertMild))

	recent := RecentChanges(devices, now, opts.WindowDays)
	r.Recent = model.RecentChanges{
		WindowDays:    opts.WindowDays,
		Devices:       Enrich(recent, now),
		StatusChanges: Enrich(StatusChanges(recent), now),
	}

	view := FilterLocation(devices, opts.Filter)
	viewEnriched := Enrich(view, now)

	r.KPIs = ComputeKPIs(view)
	r.Status = SummarizeStatus(view)
	r.Locations = SummarizeLocation(view)
	r.Coverage = CoverageSummary(view)
	r.AverageAgeByType = AverageAgeByType(viewEnriched)
	r.OldDevices = OlderThan(viewEnriched, opts.OldAgeYears)
	r.AgeDistribution = AgeDistribution(viewEnriched)
	r.Devices = viewEnriched

	return r
}
