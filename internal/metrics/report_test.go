package metrics

import (
	"reflect"
	"testing"
	"time"

	"github.com/martinsuchenak/camdash/internal/model"
)

func sampleInventory() []model.Device {
	return []model.Device{
		{Row: 1, Name: "Gate Cam 1", Type: "Camera", Model: "DS-2CD2143", Status: "Live", Location: "1F", Area: "Gate",
			PODate: ptrTime(yearsBefore(testNow, 7)), FirmwareStatus: "OK", Coverage: "Not in AMC and warranty",
			LastUpdated: ptrTime(testNow.AddDate(0, 0, -2))},
		{Row: 2, Name: "Gate Cam 2", Type: "Camera", Model: "DS-2CD2143", Status: "Repair", Location: "1F", Area: "Gate",
			PODate: ptrTime(yearsBefore(testNow, 5.8)), FirmwareStatus: "Update available", Coverage: "Under Warranty",
			LastUpdated: ptrTime(testNow.AddDate(0, 0, -10))},
		{Row: 3, Name: "Store NVR", Type: "NVR", Model: "NVR-32", Status: "Live", Location: "1F", Area: "Warehouse",
			PODate: ptrTime(yearsBefore(testNow, 1)), FirmwareStatus: "No more updates", Coverage: "AMC"},
		{Row: 4, Name: "Lobby Cam", Type: "Camera", Model: "IPC-HFW", Status: "Discard", Location: "HO",
			PODate: ptrTime(yearsBefore(testNow, 3)), Coverage: "AMC",
			LastUpdated: ptrTime(testNow.AddDate(0, 0, -1))},
		{Row: 5, Name: "HO NVR", Type: "NVR", Model: "NVR-16", Status: "Live", Location: "HO",
			FirmwareStatus: "ok"},
	}
}

func TestBuildReport_InventoryWide(t *testing.T) {
	r := BuildReport(sampleInventory(), testNow, Options{Source: "sheet"})

	if r.InventoryTotal != 5 {
		t.Errorf("Expected 5 devices, got %d", r.InventoryTotal)
	}
	if r.Source != "sheet" || !r.GeneratedAt.Equal(testNow) {
		t.Errorf("Unexpected report header: source=%q generated=%v", r.Source, r.GeneratedAt)
	}
	if r.Departments.Plant != 3 || r.Departments.HO != 2 {
		t.Errorf("Unexpected departments: %+v", r.Departments)
	}
	if r.NonActive.Discard != 1 || r.NonActive.Repair != 1 || r.NonActive.RepairPercent != 20 {
		t.Errorf("Unexpected non-active share: %+v", r.NonActive)
	}

	// Row 2 has an update available, row 4 has no firmware status at all.
	if r.Firmware.Count != 2 || r.Firmware.Split.Plant != 1 || r.Firmware.Split.HO != 1 {
		t.Errorf("Unexpected firmware group: %+v", r.Firmware)
	}
	if r.Repair.Count != 1 || r.Repair.Devices[0].Row != 2 {
		t.Errorf("Unexpected repair group: %+v", r.Repair)
	}
	if r.Discard.Count != 1 || r.Discard.Devices[0].Row != 4 {
		t.Errorf("Unexpected discard group: %+v", r.Discard)
	}
	if r.HighAlert.Count != 1 || r.HighAlert.Devices[0].Row != 1 || r.HighAlert.Split.Plant != 1 {
		t.Errorf("Unexpected high alert group: %+v", r.HighAlert)
	}
	if r.MildAlert.Count != 1 || r.MildAlert.Devices[0].Row != 2 {
		t.Errorf("Unexpected mild alert group: %+v", r.MildAlert)
	}

	if r.Recent.WindowDays != DefaultWindowDays {
		t.Errorf("Expected default window, got %d", r.Recent.WindowDays)
	}
	if len(r.Recent.Devices) != 2 || r.Recent.Devices[0].Row != 4 || r.Recent.Devices[1].Row != 1 {
		t.Errorf("Unexpected recent changes: %+v", r.Recent.Devices)
	}
	if len(r.Recent.StatusChanges) != 1 || r.Recent.StatusChanges[0].Row != 4 {
		t.Errorf("Unexpected status changes: %+v", r.Recent.StatusChanges)
	}

	if !reflect.DeepEqual(r.Areas, []string{"Gate", "Warehouse"}) {
		t.Errorf("Unexpected areas: %v", r.Areas)
	}
}

func TestBuildReport_View(t *testing.T) {
	r := BuildReport(sampleInventory(), testNow, Options{
		Filter: model.LocationFilter{Main: "plant", Area: "gate"},
	})

	if r.KPIs.Total != 2 || r.KPIs.Active != 1 || r.KPIs.ActivePercent != 50 {
		t.Errorf("Unexpected KPIs: %+v", r.KPIs)
	}
	if r.KPIs.Covered != 2 || r.KPIs.TopLocation != "1F" {
		t.Errorf("Unexpected coverage KPIs: %+v", r.KPIs)
	}
	if len(r.Devices) != 2 {
		t.Fatalf("Expected 2 devices in view, got %d", len(r.Devices))
	}
	if len(r.AverageAgeByType) != 1 || r.AverageAgeByType[0].Type != "Camera" || r.AverageAgeByType[0].AverageAge != 6.4 {
		t.Errorf("Unexpected average age by type: %+v", r.AverageAgeByType)
	}
	if len(r.OldDevices) != 2 || r.OldDevices[0].Row != 1 {
		t.Errorf("Expected both gate cameras as old devices, oldest first: %+v", r.OldDevices)
	}
	if r.AgeDistribution[2].Count != 2 || r.AgeDistribution[2].Percent != 100 {
		t.Errorf("Unexpected 5+ bucket: %+v", r.AgeDistribution[2])
	}
	// Inventory-wide figures ignore the filter.
	if r.InventoryTotal != 5 || r.HighAlert.Count != 1 {
		t.Errorf("Inventory-wide figures were filtered: total=%d high=%d", r.InventoryTotal, r.HighAlert.Count)
	}
}

func TestBuildReport_EmptyInventory(t *testing.T) {
	r := BuildReport(nil, testNow, Options{})

	if r.InventoryTotal != 0 || r.KPIs.Total != 0 {
		t.Errorf("Expected zero totals, got %d / %d", r.InventoryTotal, r.KPIs.Total)
	}
	if r.KPIs.ActivePercent != 0 || r.Coverage.CoveredPercent != 0 || r.NonActive.DiscardPercent != 0 {
		t.Errorf("Expected 0%% everywhere, got %+v", r.KPIs)
	}
	if r.Firmware.Count != 0 || r.Firmware.Devices == nil {
		t.Errorf("Expected empty firmware group with a non-nil list, got %+v", r.Firmware)
	}
	for _, b := range r.AgeDistribution {
		if b.Count != 0 || b.Percent != 0 {
			t.Errorf("Expected empty age bucket, got %+v", b)
		}
	}
}

func TestBuildReport_MissingFirmwareColumn(t *testing.T) {
	devices := []model.Device{{Row: 1, Status: "Live"}, {Row: 2, Status: "Live"}}

	withColumn := BuildReport(devices, testNow, Options{})
	if withColumn.Firmware.Count != 2 {
		t.Errorf("Expected blank firmware cells to count as pending, got %d", withColumn.Firmware.Count)
	}

	without := BuildReport(devices, testNow, Options{Missing: []model.Field{model.FieldFirmwareStatus}})
	if without.Firmware.Count != 0 {
		t.Errorf("Expected firmware section skipped without the column, got %d", without.Firmware.Count)
	}
	if len(without.Warnings) != 1 {
		t.Errorf("Expected a warning for the missing column, got %v", without.Warnings)
	}
}

func TestBuildReport_Deterministic(t *testing.T) {
	devices := sampleInventory()
	first := BuildReport(devices, testNow, Options{Filter: model.LocationFilter{Main: "plant"}})
	second := BuildReport(devices, testNow, Options{Filter: model.LocationFilter{Main: "plant"}})

	if !reflect.DeepEqual(first, second) {
		t.Error("Expected identical reports for the same snapshot and time")
	}
	if !reflect.DeepEqual(devices, sampleInventory()) {
		t.Error("BuildReport modified its input")
	}
}

func TestAgeDistribution(t *testing.T) {
	devices := Enrich([]model.Device{
		{PODate: ptrTime(yearsBefore(testNow, 0.5))},
		{PODate: ptrTime(yearsBefore(testNow, 2))},
		{PODate: ptrTime(yearsBefore(testNow, 4.9))},
		{PODate: ptrTime(yearsBefore(testNow, 9))},
		{},
	}, testNow)

	got := AgeDistribution(devices)
	wantCounts := []int{1, 2, 1}
	for i, want := range wantCounts {
		if got[i].Count != want {
			t.Errorf("Bucket %s: expected %d, got %d", got[i].Label, want, got[i].Count)
		}
	}
	if got[1].Percent != 40 {
		t.Errorf("Expected 2-5 bucket at 40%% of all devices, got %v", got[1].Percent)
	}
}

func TestOlderThan_StrictAndSorted(t *testing.T) {
	devices := []model.EnrichedDevice{
		{Device: model.Device{Row: 1}, AgeYears: ptrFloat(5)},
		{Device: model.Device{Row: 2}, AgeYears: ptrFloat(5.5)},
		{Device: model.Device{Row: 3}, AgeYears: ptrFloat(8)},
		{Device: model.Device{Row: 4}},
	}
	got := OlderThan(devices, 5)
	if len(got) != 2 || got[0].Row != 3 || got[1].Row != 2 {
		t.Errorf("Expected rows 3 then 2, got %+v", got)
	}
}

func TestPartitionBy_PreservesFirstSeenOrder(t *testing.T) {
	devices := []model.Device{
		{Row: 1, Location: "ho"},
		{Row: 2, Location: "1F"},
		{Row: 3, Location: " HO"},
		{Row: 4},
	}
	p := PartitionBy(devices, LocationKey)

	if !reflect.DeepEqual(p.Keys(), []string{"HO", "1F", ""}) {
		t.Errorf("Unexpected key order: %v", p.Keys())
	}
	if p.Count("HO") != 2 || p.Get("HO")[1].Row != 3 {
		t.Errorf("Unexpected HO group: %+v", p.Get("HO"))
	}
	if p.Len() != 3 {
		t.Errorf("Expected 3 keys, got %d", p.Len())
	}

	keys := p.Keys()
	keys[0] = "changed"
	if p.Keys()[0] != "HO" {
		t.Error("Keys exposed internal state")
	}
}

func TestRecentChangesWindowBoundary(t *testing.T) {
	devices := []model.Device{
		{Row: 1, LastUpdated: ptrTime(testNow.Add(-8 * 24 * time.Hour))},
		{Row: 2, LastUpdated: ptrTime(testNow.Add(-6 * 24 * time.Hour))},
	}
	got := RecentChanges(devices, testNow, 7)
	if len(got) != 1 || got[0].Row != 2 {
		t.Errorf("Expected only the 6 day old update, got %+v", got)
	}
}

func TestAverageAgeByType(t *testing.T) {
	age := func(v float64) *float64 { return &v }
	devices := []model.EnrichedDevice{
		{Device: model.Device{Type: "NVR"}, AgeYears: age(2)},
		{Device: model.Device{Type: "Camera"}, AgeYears: age(1)},
		{Device: model.Device{Type: "Camera"}, AgeYears: age(2.5)},
		{Device: model.Device{Type: "Camera"}},
		{Device: model.Device{Type: "Switch"}},
		{Device: model.Device{}, AgeYears: age(9)},
	}

	want := []model.TypeAge{
		{Type: "NVR", AverageAge: 2, WithAgeData: 1},
		{Type: "Camera", AverageAge: 1.8, WithAgeData: 2},
	}
	if got := AverageAgeByType(devices); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}
