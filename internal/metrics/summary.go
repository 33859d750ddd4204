package metrics

import (
	"math"
	"strings"

	"github.com/martinsuchenak/camdash/internal/model"
)

// Percentage returns count as a percentage of total, or 0 for an empty total.
func Percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) * 100 / float64(total)
}

// Round1 rounds to one decimal place for display. Categories are rounded
// independently, so a partition's rounded percentages need not sum to 100.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// CountBy partitions devices with key and returns one Count per non-blank key
// in first-seen order. The label is the trimmed spelling of the first device
// seen for that key; percentages are over len(devices).
func CountBy(devices []model.Device, key func(model.Device) string, label func(model.Device) string) []model.Count {
	p := PartitionBy(devices, key)
	out := make([]model.Count, 0, p.Len())
	for _, k := range p.Keys() {
		if k == "" {
			continue
		}
		group := p.Get(k)
		out = append(out, model.Count{
			Key:     label(group[0]),
			Count:   len(group),
			Percent: Round1(Percentage(len(group), len(devices))),
		})
	}
	return out
}

// SummarizeStatus counts devices per status. Statuses group
// case-insensitively; blank statuses are not counted.
func SummarizeStatus(devices []model.Device) []model.Count {
	return CountBy(devices, StatusKey, func(d model.Device) string {
		return strings.TrimSpace(d.Status)
	})
}

// SummarizeLocation counts devices per normalized location code.
func SummarizeLocation(devices []model.Device) []model.Count {
	return CountBy(devices, LocationKey, LocationKey)
}

// StatusCount returns the count for one status, compared case-insensitively.
func StatusCount(devices []model.Device, status string) int {
	want := normalizeLower(status)
	n := 0
	for _, d := range devices {
		if StatusKey(d) == want {
			n++
		}
	}
	return n
}

// FilterStatus returns the devices whose status matches, case-insensitively.
func FilterStatus(devices []model.Device, status string) []model.Device {
	want := normalizeLower(status)
	out := make([]model.Device, 0)
	for _, d := range devices {
		if StatusKey(d) == want {
			out = append(out, d)
		}
	}
	return out
}

// SplitLocation counts plant (1F) and head office (HO) devices.
func SplitLocation(devices []model.Device) model.LocationSplit {
	var s model.LocationSplit
	for _, d := range devices {
		switch LocationKey(d) {
		case model.LocationPlant:
			s.Plant++
		case model.LocationHO:
			s.HO++
		}
	}
	return s
}

// NonActiveShare reports discard and repair counts over the whole inventory.
func NonActiveShare(devices []model.Device) model.NonActive {
	discard := StatusCount(devices, model.StatusDiscard)
	repair := StatusCount(devices, model.StatusRepair)
	return model.NonActive{
		Discard:        discard,
		DiscardPercent: Round1(Percentage(discard, len(devices))),
		Repair:         repair,
		RepairPercent:  Round1(Percentage(repair, len(devices))),
	}
}

// ComputeKPIs returns the quick stats of a view. The top location is the most
// frequent normalized location; ties go to the one seen first.
func ComputeKPIs(devices []model.Device) model.KPIs {
	total := len(devices)
	active := StatusCount(devices, model.StatusLive)
	covered := CoverageSummary(devices).Covered

	k := model.KPIs{
		Total:          total,
		Active:         active,
		ActivePercent:  Round1(Percentage(active, total)),
		Covered:        covered,
		CoveredPercent: Round1(Percentage(covered, total)),
	}

	for _, c := range SummarizeLocation(devices) {
		if c.Count > k.TopLocationCount {
			k.TopLocation = c.Key
			k.TopLocationCount = c.Count
		}
	}
	return k
}
