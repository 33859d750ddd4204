package mcp

import (
	"fmt"
	"strings"
	"time"

	"github.com/martinsuchenak/camdash/internal/model"
)

func formatReport(r *model.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Source: %s\n", r.Source)
	if r.Filter.Main != "" {
		view := r.Filter.Main
		if r.Filter.Area != "" {
			view += " / " + r.Filter.Area
		}
		fmt.Fprintf(&b, "View: %s\n", view)
	}
	writeWarnings(&b, r.Warnings)

	k := r.KPIs
	fmt.Fprintf(&b, "\nDevices: %d (inventory %d; plant %d, HO %d)\n",
		k.Total, r.InventoryTotal, r.Departments.Plant, r.Departments.HO)
	fmt.Fprintf(&b, "Active: %d (%.1f%%)\n", k.Active, k.ActivePercent)
	fmt.Fprintf(&b, "Covered by AMC or warranty: %d (%.1f%%)\n", k.Covered, k.CoveredPercent)
	if k.TopLocation != "" {
		fmt.Fprintf(&b, "Top location: %s (%d)\n", k.TopLocation, k.TopLocationCount)
	}

	if len(r.Status) > 0 {
		b.WriteString("\nStatus:\n")
		writeCounts(&b, r.Status)
	}

	c := r.Coverage
	fmt.Fprintf(&b, "\nCoverage: AMC %d, warranty %d, none %d\n", c.UnderAMC, c.UnderWarranty, c.NoCoverage)

	n := r.NonActive
	fmt.Fprintf(&b, "Non-active: discard %d (%.1f%%), repair %d (%.1f%%)\n",
		n.Discard, n.DiscardPercent, n.Repair, n.RepairPercent)

	fmt.Fprintf(&b, "\nHigh alert: %d (plant %d, HO %d)\n", r.HighAlert.Count, r.HighAlert.Split.Plant, r.HighAlert.Split.HO)
	fmt.Fprintf(&b, "Mild alert: %d (plant %d, HO %d)\n", r.MildAlert.Count, r.MildAlert.Split.Plant, r.MildAlert.Split.HO)
	fmt.Fprintf(&b, "Firmware pending: %d (plant %d, HO %d)\n", r.Firmware.Count, r.Firmware.Split.Plant, r.Firmware.Split.HO)
	fmt.Fprintf(&b, "Changed in the last %d days: %d\n", r.Recent.WindowDays, len(r.Recent.Devices))

	if len(r.AverageAgeByType) > 0 {
		b.WriteString("\nAverage age by type:\n")
		for _, t := range r.AverageAgeByType {
			fmt.Fprintf(&b, "  - %s: %.1f years (%d devices)\n", t.Type, t.AverageAge, t.WithAgeData)
		}
	}
	return b.String()
}

func writeCounts(b *strings.Builder, counts []model.Count) {
	for _, c := range counts {
		fmt.Fprintf(b, "  - %s: %d (%.1f%%)\n", c.Key, c.Count, c.Percent)
	}
}

func writeWarnings(b *strings.Builder, warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(b, "Warning: %s\n", w)
	}
}

func writeGroup(b *strings.Builder, title string, g model.DeviceGroup) {
	fmt.Fprintf(b, "%s: %d (plant %d, HO %d)\n", title, g.Count, g.Split.Plant, g.Split.HO)
	for _, d := range g.Devices {
		b.WriteString(formatDeviceLine(d))
	}
	b.WriteString("\n")
}

// formatDeviceLine renders one device as a list item
func formatDeviceLine(d model.EnrichedDevice) string {
	var parts []string
	for _, p := range []string{d.Name, d.Model, d.Type} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("row %d", d.Row))
	}

	line := "  - " + strings.Join(parts, " / ")
	if loc := strings.TrimSpace(d.Location + " " + d.Area); loc != "" {
		line += " @ " + loc
	}
	if d.IPAddress != "" {
		line += " [" + d.IPAddress + "]"
	}
	if d.AgeYears != nil {
		line += fmt.Sprintf(", %.1f years", *d.AgeYears)
	}
	if d.Status != "" {
		line += ", " + d.Status
	}
	if d.LastUpdated != nil {
		line += ", updated " + d.LastUpdated.Format("2006-01-02")
	}
	return line + "\n"
}

func formatSource(s model.SourceStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ID: %s\n", s.ID)
	fmt.Fprintf(&b, "Kind: %s\n", s.Kind)
	if s.FetchedAt != nil {
		fmt.Fprintf(&b, "Fetched: %s (%d devices)\n", s.FetchedAt.Format(time.RFC3339), s.Devices)
	} else {
		b.WriteString("Fetched: never\n")
	}
	if s.Stale {
		b.WriteString("Stale: yes\n")
	}
	if len(s.Missing) > 0 {
		missing := make([]string, len(s.Missing))
		for i, f := range s.Missing {
			missing[i] = string(f)
		}
		fmt.Fprintf(&b, "Missing columns: %s\n", strings.Join(missing, ", "))
	}
	if s.LastError != "" {
		fmt.Fprintf(&b, "Last error: %s\n", s.LastError)
	}
	return b.String()
}
