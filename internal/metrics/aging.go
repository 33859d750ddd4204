package metrics

import (
	"math"
	"sort"

	"github.com/martinsuchenak/camdash/internal/model"
)

// OldAgeYears is the age report threshold for "old" devices.
const OldAgeYears = 5.0

var ageBuckets = []model.AgeBucket{
	{Label: "0-2 years", Min: 0, Max: 2},
	{Label: "2-5 years", Min: 2, Max: 5},
	{Label: "5+ years", Min: 5},
}

// AverageAgeByType returns the mean age per device type, rounded to one
// decimal, in first-seen type order. Types with no dated devices are left out.
func AverageAgeByType(devices []model.EnrichedDevice) []model.TypeAge {
	p := PartitionBy(devices, Enriched(TypeKey))
	out := make([]model.TypeAge, 0, p.Len())
	for _, t := range p.Keys() {
		if t == "" {
			continue
		}
		var sum float64
		var n int
		for _, d := range p.Get(t) {
			if d.AgeYears != nil {
				sum += *d.AgeYears
				n++
			}
		}
		if n == 0 {
			continue
		}
		out = append(out, model.TypeAge{
			Type:        t,
			AverageAge:  Round1(sum / float64(n)),
			WithAgeData: n,
		})
	}
	return out
}

// OlderThan returns devices strictly older than years, oldest first.
func OlderThan(devices []model.EnrichedDevice, years float64) []model.EnrichedDevice {
	out := make([]model.EnrichedDevice, 0)
	for _, d := range devices {
		if d.AgeYears != nil && *d.AgeYears > years {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].AgeYears > *out[j].AgeYears
	})
	return out
}

// AgeDistribution counts devices per age range. Percentages are over every
// device in the view, including those without a PO date.
func AgeDistribution(devices []model.EnrichedDevice) []model.AgeBucket {
	out := make([]model.AgeBucket, len(ageBuckets))
	copy(out, ageBuckets)
	for _, d := range devices {
		if d.AgeYears == nil {
			continue
		}
		for i := range out {
			upper := out[i].Max
			if upper == 0 {
				upper = math.Inf(1)
			}
			if *d.AgeYears >= out[i].Min && *d.AgeYears < upper {
				out[i].Count++
				break
			}
		}
	}
	for i := range out {
		out[i].Percent = Round1(Percentage(out[i].Count, len(devices)))
	}
	return out
}

// FilterTier returns the devices in the given alert tier.
func FilterTier(devices []model.EnrichedDevice, tier model.AlertTier) []model.EnrichedDevice {
	return PartitionBy(devices, AlertKey).Get(string(tier))
}

// Group wraps a device list with its count and plant/HO split.
func Group(devices []model.EnrichedDevice) model.DeviceGroup {
	plain := make([]model.Device, len(devices))
	for i, d := range devices {
		plain[i] = d.Device
	}
	if devices == nil {
		devices = []model.EnrichedDevice{}
	}
	return model.DeviceGroup{
		Count:   len(devices),
		Split:   SplitLocation(plain),
		Devices: devices,
	}
}
