package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/martinsuchenak/camdash/internal/model"
)

func TestFirmwarePending(t *testing.T) {
	devices := []model.Device{
		{Row: 1, FirmwareStatus: "OK"},
		{Row: 2, FirmwareStatus: " ok "},
		{Row: 3, FirmwareStatus: "No More Updates"},
		{Row: 4, FirmwareStatus: "no more updates  "},
		{Row: 5, FirmwareStatus: ""},
		{Row: 6, FirmwareStatus: "Update available"},
		{Row: 7, FirmwareStatus: "okay"},
		{Row: 8},
	}

	got := FirmwarePending(devices)

	wantRows := []int{5, 6, 7, 8}
	if len(got) != len(wantRows) {
		t.Fatalf("Expected %d pending devices, got %d: %+v", len(wantRows), len(got), got)
	}
	for i, row := range wantRows {
		if got[i].Row != row {
			t.Errorf("Pending device %d: expected row %d, got %d", i, row, got[i].Row)
		}
	}
}

func TestFirmwarePending_Empty(t *testing.T) {
	got := FirmwarePending(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", got)
	}
}

func TestCoverageSummary(t *testing.T) {
	devices := []model.Device{
		{Coverage: "AMC"},
		{Coverage: "Under warranty"},
		{Coverage: "Not in AMC and warranty"},
		{Coverage: "WARRANTY"},
		{Coverage: ""},
		{},
	}

	got := CoverageSummary(devices)

	if got.UnderAMC != 2 {
		t.Errorf("Expected 2 under AMC, got %d", got.UnderAMC)
	}
	if got.UnderWarranty != 3 {
		t.Errorf("Expected 3 under warranty, got %d", got.UnderWarranty)
	}
	if got.NoCoverage != 1 {
		t.Errorf("Expected 1 without coverage, got %d", got.NoCoverage)
	}
	if got.Covered != 4 || got.CoveredPercent != 66.7 {
		t.Errorf("Expected 4 covered (66.7%%), got %d (%v%%)", got.Covered, got.CoveredPercent)
	}
	if len(got.ValueBreakdown) != 4 {
		t.Errorf("Expected 4 distinct coverage values, got %+v", got.ValueBreakdown)
	}
}

func TestCoverageSummary_BucketsAreNotExclusive(t *testing.T) {
	got := CoverageSummary([]model.Device{{Coverage: "Warranty + AMC"}})
	if got.UnderAMC != 1 || got.UnderWarranty != 1 || got.Covered != 1 {
		t.Errorf("Expected one device in both AMC and warranty buckets, got %+v", got)
	}
}

func TestRecentChanges(t *testing.T) {
	devices := []model.Device{
		{Row: 1, LastUpdated: ptrTime(testNow.AddDate(0, 0, -8))},
		{Row: 2, LastUpdated: ptrTime(testNow.AddDate(0, 0, -6))},
		{Row: 3},
		{Row: 4, LastUpdated: ptrTime(testNow.Add(-time.Hour))},
		{Row: 5, LastUpdated: ptrTime(testNow.Add(-7 * 24 * time.Hour))},
	}

	got := RecentChanges(devices, testNow, 7)

	wantRows := []int{4, 2, 5}
	if len(got) != len(wantRows) {
		t.Fatalf("Expected %d recent devices, got %d: %+v", len(wantRows), len(got), got)
	}
	for i, row := range wantRows {
		if got[i].Row != row {
			t.Errorf("Recent device %d: expected row %d, got %d", i, row, got[i].Row)
		}
	}

	if devices[0].Row != 1 || devices[1].Row != 2 {
		t.Error("Input order was modified")
	}
}

func TestRecentChanges_DefaultWindow(t *testing.T) {
	devices := []model.Device{
		{Row: 1, LastUpdated: ptrTime(testNow.AddDate(0, 0, -6))},
		{Row: 2, LastUpdated: ptrTime(testNow.AddDate(0, 0, -8))},
	}
	got := RecentChanges(devices, testNow, 0)
	if len(got) != 1 || got[0].Row != 1 {
		t.Errorf("Expected only row 1 with the default window, got %+v", got)
	}
}

func TestStatusChanges(t *testing.T) {
	recent := []model.Device{
		{Row: 1, Status: "Live"},
		{Row: 2, Status: "Repair"},
		{Row: 3, Status: " live"},
		{Row: 4, Status: "Discard"},
		{Row: 5},
	}
	got := StatusChanges(recent)
	if len(got) != 3 || got[0].Row != 2 || got[1].Row != 4 || got[2].Row != 5 {
		t.Errorf("Expected rows 2, 4 and 5, got %+v", got)
	}
}

func TestFilterLocation(t *testing.T) {
	devices := []model.Device{
		{Row: 1, Location: "1F", Area: "Gate"},
		{Row: 2, Location: "1f", Area: "Warehouse"},
		{Row: 3, Location: "HO", Area: "Gate"},
		{Row: 4, Location: " 1F ", Area: "gate "},
		{Row: 5},
	}

	tests := []struct {
		name     string
		filter   model.LocationFilter
		wantRows []int
	}{
		{"all", model.LocationFilter{}, []int{1, 2, 3, 4, 5}},
		{"plant", model.LocationFilter{Main: "plant"}, []int{1, 2, 4}},
		{"plant by code", model.LocationFilter{Main: "1F"}, []int{1, 2, 4}},
		{"plant area", model.LocationFilter{Main: "Plant", Area: "GATE"}, []int{1, 4}},
		{"ho", model.LocationFilter{Main: "HO"}, []int{3}},
		{"ho ignores area", model.LocationFilter{Main: "ho", Area: "Warehouse"}, []int{3}},
		{"unknown area", model.LocationFilter{Main: "plant", Area: "Roof"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterLocation(devices, tt.filter)
			if len(got) != len(tt.wantRows) {
				t.Fatalf("Expected %d devices, got %d: %+v", len(tt.wantRows), len(got), got)
			}
			for i, row := range tt.wantRows {
				if got[i].Row != row {
					t.Errorf("Device %d: expected row %d, got %d", i, row, got[i].Row)
				}
			}
		})
	}
}

func TestParseLocationFilter(t *testing.T) {
	tests := []struct {
		location string
		area     string
		want     model.LocationFilter
		wantErr  bool
	}{
		{"", "", model.LocationFilter{}, false},
		{" all ", "Gate", model.LocationFilter{Area: "Gate"}, false},
		{"Plant", " Gate ", model.LocationFilter{Main: "plant", Area: "Gate"}, false},
		{"1f", "", model.LocationFilter{Main: "1f"}, false},
		{"Ho", "", model.LocationFilter{Main: "ho"}, false},
		{"warehouse", "", model.LocationFilter{}, true},
	}

	for _, tt := range tests {
		got, err := ParseLocationFilter(tt.location, tt.area)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidLocation) {
				t.Errorf("ParseLocationFilter(%q) error = %v, want ErrInvalidLocation", tt.location, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseLocationFilter(%q, %q) = %+v, %v; want %+v", tt.location, tt.area, got, err, tt.want)
		}
	}
}

func TestAreas(t *testing.T) {
	devices := []model.Device{
		{Location: "1F", Area: "Warehouse"},
		{Location: "1F", Area: "Gate"},
		{Location: "1F", Area: "gate"},
		{Location: "HO", Area: "Lobby"},
		{Location: "1F"},
	}
	got := Areas(devices)
	if len(got) != 2 || got[0] != "Gate" || got[1] != "Warehouse" {
		t.Errorf("Expected [Gate Warehouse], got %v", got)
	}
}
