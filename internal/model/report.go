package model

import "time"

// Count is one category of a partition with its share of the partition total.
type Count struct {
	Key     string  `json:"key"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// LocationSplit counts devices at the plant (1F) and head office (HO).
type LocationSplit struct {
	Plant int `json:"plant"`
	HO    int `json:"ho"`
}

// DeviceGroup is a named list of devices with its plant/HO split.
type DeviceGroup struct {
	Count   int              `json:"count"`
	Split   LocationSplit    `json:"split"`
	Devices []EnrichedDevice `json:"devices"`
}

// Coverage holds the warranty/AMC buckets. The buckets are independent
// substring matches, so a device can appear in more than one.
type Coverage struct {
	UnderAMC       int     `json:"under_amc"`
	UnderWarranty  int     `json:"under_warranty"`
	NoCoverage     int     `json:"no_coverage"`
	Covered        int     `json:"covered"`
	CoveredPercent float64 `json:"covered_percent"`
	ValueBreakdown []Count `json:"value_breakdown"`
}

// KPIs are the quick stats for the filtered view.
type KPIs struct {
	Total            int     `json:"total"`
	Active           int     `json:"active"`
	ActivePercent    float64 `json:"active_percent"`
	Covered          int     `json:"covered"`
	CoveredPercent   float64 `json:"covered_percent"`
	TopLocation      string  `json:"top_location,omitempty"`
	TopLocationCount int     `json:"top_location_count"`
}

// NonActive is the share of discarded and repair devices in the inventory.
type NonActive struct {
	Discard        int     `json:"discard"`
	DiscardPercent float64 `json:"discard_percent"`
	Repair         int     `json:"repair"`
	RepairPercent  float64 `json:"repair_percent"`
}

// TypeAge is the mean age of one device type.
type TypeAge struct {
	Type        string  `json:"type"`
	AverageAge  float64 `json:"average_age"`
	WithAgeData int     `json:"with_age_data"`
}

// AgeBucket is one range of the age distribution, [Min, Max).
type AgeBucket struct {
	Label   string  `json:"label"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"` // 0 means unbounded
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// RecentChanges lists rows updated inside the window, most recent first.
type RecentChanges struct {
	WindowDays    int              `json:"window_days"`
	Devices       []EnrichedDevice `json:"devices"`
	StatusChanges []EnrichedDevice `json:"status_changes"`
}

// LocationFilter selects the dashboard view. Main is "plant", "ho" or empty
// for the whole inventory. Area only narrows a plant view.
type LocationFilter struct {
	Main string `json:"main,omitempty"`
	Area string `json:"area,omitempty"`
}

// Report is every aggregate the dashboard renders for one snapshot.
// Inventory-wide sections ignore the location filter, view sections honour it.
type Report struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Source      string         `json:"source,omitempty"`
	Filter      LocationFilter `json:"filter"`
	Warnings    []string       `json:"warnings,omitempty"`

	// Inventory-wide
	InventoryTotal int           `json:"inventory_total"`
	Departments    LocationSplit `json:"departments"`
	NonActive      NonActive     `json:"non_active"`
	Firmware       DeviceGroup   `json:"firmware_pending"`
	Repair         DeviceGroup   `json:"repair"`
	Discard        DeviceGroup   `json:"discard"`
	HighAlert      DeviceGroup   `json:"high_alert"`
	MildAlert      DeviceGroup   `json:"mild_alert"`
	Recent         RecentChanges `json:"recent_changes"`
	Areas          []string      `json:"areas"`

	// Filtered view
	KPIs             KPIs             `json:"kpis"`
	Status           []Count          `json:"status"`
	Locations        []Count          `json:"locations"`
	Coverage         Coverage         `json:"coverage"`
	AverageAgeByType []TypeAge        `json:"average_age_by_type"`
	OldDevices       []EnrichedDevice `json:"old_devices"`
	AgeDistribution  []AgeBucket      `json:"age_distribution"`
	Devices          []EnrichedDevice `json:"devices"`
}
