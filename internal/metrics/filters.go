package metrics

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/martinsuchenak/camdash/internal/model"
)

// DefaultWindowDays is the recent-changes window used when none is given.
const DefaultWindowDays = 7

// Firmware statuses that need no action. Anything else, blank included, is
// an update pending.
var firmwareDone = map[string]bool{
	"no more updates": true,
	"ok":              true,
}

// FirmwarePending returns the devices still waiting on a firmware update.
func FirmwarePending(devices []model.Device) []model.Device {
	out := make([]model.Device, 0)
	for _, d := range devices {
		if !firmwareDone[FirmwareKey(d)] {
			out = append(out, d)
		}
	}
	return out
}

// CoverageSummary counts the warranty/AMC buckets with independent
// case-insensitive substring tests. A "Warranty + AMC" row is counted in both
// UnderAMC and UnderWarranty but only once in Covered.
func CoverageSummary(devices []model.Device) model.Coverage {
	var c model.Coverage
	for _, d := range devices {
		text := strings.ToLower(d.Coverage)
		amc := strings.Contains(text, "amc")
		warranty := strings.Contains(text, "warranty")
		if amc {
			c.UnderAMC++
		}
		if warranty {
			c.UnderWarranty++
		}
		if strings.Contains(text, "not in") {
			c.NoCoverage++
		}
		if amc || warranty {
			c.Covered++
		}
	}
	c.CoveredPercent = Round1(Percentage(c.Covered, len(devices)))
	c.ValueBreakdown = CountBy(devices,
		func(d model.Device) string { return normalizeLower(d.Coverage) },
		func(d model.Device) string { return strings.TrimSpace(d.Coverage) },
	)
	return c
}

// RecentChanges returns devices updated at or after now minus windowDays,
// most recent first. Devices without a Last Updated time are left out. A
// non-positive window uses DefaultWindowDays.
func RecentChanges(devices []model.Device, now time.Time, windowDays int) []model.Device {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	cutoff := now.Add(-time.Duration(windowDays) * 24 * time.Hour)

	out := make([]model.Device, 0)
	for _, d := range devices {
		if d.LastUpdated == nil || d.LastUpdated.Before(cutoff) {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastUpdated.After(*out[j].LastUpdated)
	})
	return out
}

// StatusChanges narrows recent changes to devices that are no longer live.
func StatusChanges(recent []model.Device) []model.Device {
	out := make([]model.Device, 0)
	for _, d := range recent {
		if StatusKey(d) != model.StatusLive {
			out = append(out, d)
		}
	}
	return out
}

// ErrInvalidLocation is returned for a location view other than plant or ho.
var ErrInvalidLocation = errors.New("location must be plant or ho")

// ParseLocationFilter validates a requested view. Empty and "all" select the
// whole inventory; "plant", "1F" and "ho" are accepted in any case.
func ParseLocationFilter(location, area string) (model.LocationFilter, error) {
	f := model.LocationFilter{Area: strings.TrimSpace(area)}
	switch loc := normalizeLower(location); loc {
	case "", "all":
	case "plant", "1f", "ho":
		f.Main = loc
	default:
		return model.LocationFilter{}, fmt.Errorf("%w, got %q", ErrInvalidLocation, strings.TrimSpace(location))
	}
	return f, nil
}

// FilterLocation applies the dashboard location filter. Main accepts
// "plant"/"1F" or "ho"; anything else keeps every device. Area only narrows a
// plant view and compares case-insensitively.
func FilterLocation(devices []model.Device, f model.LocationFilter) []model.Device {
	var want string
	switch normalizeLower(f.Main) {
	case "plant", "1f":
		want = model.LocationPlant
	case "ho":
		want = model.LocationHO
	default:
		out := make([]model.Device, len(devices))
		copy(out, devices)
		return out
	}

	area := normalizeLower(f.Area)
	out := make([]model.Device, 0)
	for _, d := range devices {
		if LocationKey(d) != want {
			continue
		}
		if want == model.LocationPlant && area != "" && AreaKey(d) != area {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Areas returns the sorted distinct areas of plant devices.
func Areas(devices []model.Device) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, d := range devices {
		if LocationKey(d) != model.LocationPlant {
			continue
		}
		a := strings.TrimSpace(d.Area)
		if a == "" || seen[strings.ToLower(a)] {
			continue
		}
		seen[strings.ToLower(a)] = true
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
