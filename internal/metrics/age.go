// Package metrics derives device age, alert tiers and the dashboard
// aggregates from an inventory snapshot. Every function is pure: inputs are
// never modified and the only notion of time is the now argument.
package metrics

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/martinsuchenak/camdash/internal/model"
)

const (
	// SecondsPerYear uses the 365.25-day year.
	SecondsPerYear = 365.25 * 24 * 60 * 60

	// ReplacementAge is the age at which a device is due for replacement.
	ReplacementAge = 6.0

	// HighThreshold: older than one month before replacement age.
	HighThreshold = ReplacementAge - 1.0/12
	// MildThreshold: older than six months before replacement age.
	MildThreshold = ReplacementAge - 0.5
)

// Day-first layouts tried in order. Four-digit years come before two-digit
// years so "15/03/2019" never matches "2/1/06".
var dateLayouts = []string{
	"2/1/2006",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2-1-2006",
	"2-1-2006 15:04:05",
	"2-1-2006 15:04",
	"2.1.2006",
	"2.1.2006 15:04:05",
	"2/1/06",
	"2-1-06",
	"2.1.06",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"2 Jan 2006",
	"2-Jan-2006",
	"2 January 2006",
	"2-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
}

// Excel stores dates as days since 1899-12-30. Anything outside this range is
// treated as an ordinary number rather than a date.
const (
	minExcelSerial = 10000   // 1927-05-18
	maxExcelSerial = 2958465 // 9999-12-31
)

var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ParseDate parses sheet text day-first in the local time zone. Blank or
// unparsable text returns nil.
func ParseDate(text string) *time.Time {
	return ParseDateIn(text, time.Local)
}

// ParseDateIn is ParseDate with an explicit location for zone-less text.
func ParseDateIn(text string, loc *time.Location) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" || strings.EqualFold(text, "nan") || strings.EqualFold(text, "n/a") {
		return nil
	}

	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return &t
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, text, loc); err == nil {
			return &t
		}
	}

	if serial, err := strconv.ParseFloat(text, 64); err == nil {
		if serial >= minExcelSerial && serial <= maxExcelSerial {
			days := math.Floor(serial)
			secs := math.Round((serial - days) * 86400)
			u := excelEpoch.AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second)
			t := time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), u.Minute(), u.Second(), 0, loc)
			return &t
		}
	}

	return nil
}

// ComputeAge returns the device age in years at now, or nil without a PO date.
func ComputeAge(d model.Device, now time.Time) *float64 {
	if d.PODate == nil {
		return nil
	}
	age := secondsBetween(*d.PODate, now) / SecondsPerYear
	return &age
}

// secondsBetween is t1 - t0 in seconds. time.Duration saturates at about
// 292 years, so the difference is taken on Unix seconds instead.
func secondsBetween(t0, t1 time.Time) float64 {
	return float64(t1.Unix()-t0.Unix()) + float64(t1.Nanosecond()-t0.Nanosecond())/1e9
}

// ClassifyAlert maps an age to its alert tier. Both boundaries are strict:
// exactly HighThreshold is mild and exactly MildThreshold is none.
func ClassifyAlert(age *float64) model.AlertTier {
	switch {
	case age == nil:
		return model.AlertNone
	case *age > HighThreshold:
		return model.AlertHigh
	case *age > MildThreshold:
		return model.AlertMild
	default:
		return model.AlertNone
	}
}

// EnrichDevice attaches the derived fields to a copy of d.
func EnrichDevice(d model.Device, now time.Time) model.EnrichedDevice {
	age := ComputeAge(d, now)
	return model.EnrichedDevice{
		Device:    d,
		AgeYears:  age,
		AlertTier: ClassifyAlert(age),
	}
}

// Enrich returns a new slice of enriched devices in input order.
func Enrich(devices []model.Device, now time.Time) []model.EnrichedDevice {
	out := make([]model.EnrichedDevice, len(devices))
	for i, d := range devices {
		out[i] = EnrichDevice(d, now)
	}
	return out
}
