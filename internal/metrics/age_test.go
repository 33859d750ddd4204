package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/martinsuchenak/camdash/internal/model"
)

var testNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func ptrTime(t time.Time) *time.Time { return &t }
func ptrFloat(f float64) *float64    { return &f }

// yearsBefore returns now minus the given number of 365.25-day years, to the
// nearest second.
func yearsBefore(now time.Time, years float64) time.Time {
	return now.Add(-time.Duration(years*SecondsPerYear) * time.Second)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantNil   bool
		wantYear  int
		wantMonth time.Month
		wantDay   int
	}{
		{"day first slash", "15/03/2019", false, 2019, time.March, 15},
		{"ambiguous is day first", "04/05/2020", false, 2020, time.May, 4},
		{"single digits", "4/5/2020", false, 2020, time.May, 4},
		{"dash", "01-12-2018", false, 2018, time.December, 1},
		{"dots", "31.01.2017", false, 2017, time.January, 31},
		{"two digit year", "15/03/19", false, 2019, time.March, 15},
		{"with time", "15/03/2019 10:30:00", false, 2019, time.March, 15},
		{"iso", "2019-03-15", false, 2019, time.March, 15},
		{"iso with time", "2019-03-15 08:00:00", false, 2019, time.March, 15},
		{"rfc3339", "2019-03-15T08:00:00Z", false, 2019, time.March, 15},
		{"month name", "15 Mar 2019", false, 2019, time.March, 15},
		{"long month name", "15 March 2019", false, 2019, time.March, 15},
		{"excel serial", "43539", false, 2019, time.March, 15},
		{"surrounding space", "  15/03/2019 ", false, 2019, time.March, 15},
		{"blank", "", true, 0, 0, 0},
		{"whitespace", "   ", true, 0, 0, 0},
		{"nan", "NaN", true, 0, 0, 0},
		{"text", "not a date", true, 0, 0, 0},
		{"invalid day", "32/01/2019", true, 0, 0, 0},
		{"small number", "42", true, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDateIn(tt.input, time.UTC)
			if tt.wantNil {
				if got != nil {
					t.Errorf("ParseDate(%q) = %v, want nil", tt.input, *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("ParseDate(%q) = nil, want %d-%d-%d", tt.input, tt.wantYear, tt.wantMonth, tt.wantDay)
			}
			if got.Year() != tt.wantYear || got.Month() != tt.wantMonth || got.Day() != tt.wantDay {
				t.Errorf("ParseDate(%q) = %s, want %d-%02d-%02d", tt.input, got.Format("2006-01-02"), tt.wantYear, tt.wantMonth, tt.wantDay)
			}
		})
	}
}

func TestComputeAge(t *testing.T) {
	if age := ComputeAge(model.Device{}, testNow); age != nil {
		t.Errorf("Expected nil age without PO date, got %v", *age)
	}

	po := testNow.AddDate(-2, 0, 0)
	age := ComputeAge(model.Device{PODate: &po}, testNow)
	if age == nil {
		t.Fatal("Expected an age for a dated device")
	}
	want := testNow.Sub(po).Seconds() / (365.25 * 86400)
	if math.Abs(*age-want) > 1e-9 {
		t.Errorf("Expected age %v, got %v", want, *age)
	}
	if *age < 1.99 || *age > 2.01 {
		t.Errorf("Expected roughly two years, got %v", *age)
	}

	future := testNow.AddDate(1, 0, 0)
	if age := ComputeAge(model.Device{PODate: &future}, testNow); age == nil || *age >= 0 {
		t.Errorf("Expected a negative age for a future PO date, got %v", age)
	}
}

func TestComputeAge_BeyondDurationRange(t *testing.T) {
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"year 1700", "01/01/1700", 325.41},
		{"year 1", "01/01/0001", 2024.37},
		{"year 9999", "31/12/9999", -7974.42},
		{"largest excel serial", "2958465", -7974.42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			po := ParseDateIn(tt.input, time.UTC)
			if po == nil {
				t.Fatalf("ParseDate(%q) = nil", tt.input)
			}
			age := ComputeAge(model.Device{PODate: po}, now)
			if age == nil {
				t.Fatal("Expected an age")
			}
			if math.Abs(*age-tt.want) > 0.01 {
				t.Errorf("Expected age %.2f, got %.2f", tt.want, *age)
			}
		})
	}
}

func TestClassifyAlert(t *testing.T) {
	const eps = 1e-9

	tests := []struct {
		name string
		age  *float64
		want model.AlertTier
	}{
		{"no age", nil, model.AlertNone},
		{"new device", ptrFloat(1), model.AlertNone},
		{"exactly mild threshold", ptrFloat(6 - 0.5), model.AlertNone},
		{"just above mild threshold", ptrFloat(6 - 0.5 + eps), model.AlertMild},
		{"between thresholds", ptrFloat(5.7), model.AlertMild},
		{"exactly high threshold", ptrFloat(6 - 1.0/12), model.AlertMild},
		{"just above high threshold", ptrFloat(6 - 1.0/12 + eps), model.AlertHigh},
		{"past replacement", ptrFloat(8), model.AlertHigh},
		{"negative", ptrFloat(-1), model.AlertNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyAlert(tt.age); got != tt.want {
				t.Errorf("ClassifyAlert() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyAlert_FromPODateAtThreshold(t *testing.T) {
	// 71/12 years of 365.25 days is a whole number of seconds, so the age
	// lands exactly on the high threshold.
	atHigh := testNow.Add(-186715800 * time.Second)
	age := ComputeAge(model.Device{PODate: &atHigh}, testNow)
	if *age != HighThreshold {
		t.Fatalf("Expected age exactly %v, got %v", HighThreshold, *age)
	}
	if got := ClassifyAlert(age); got != model.AlertMild {
		t.Errorf("Expected mild at exactly 5y11m, got %s", got)
	}

	overHigh := atHigh.Add(-time.Hour)
	if got := ClassifyAlert(ComputeAge(model.Device{PODate: &overHigh}, testNow)); got != model.AlertHigh {
		t.Errorf("Expected high just past 5y11m, got %s", got)
	}

	atMild := testNow.Add(-173566800 * time.Second)
	age = ComputeAge(model.Device{PODate: &atMild}, testNow)
	if *age != MildThreshold {
		t.Fatalf("Expected age exactly %v, got %v", MildThreshold, *age)
	}
	if got := ClassifyAlert(age); got != model.AlertNone {
		t.Errorf("Expected none at exactly 5y6m, got %s", got)
	}

	overMild := atMild.Add(-time.Hour)
	if got := ClassifyAlert(ComputeAge(model.Device{PODate: &overMild}, testNow)); got != model.AlertMild {
		t.Errorf("Expected mild just past 5y6m, got %s", got)
	}
}

func TestEnrich_DoesNotModifyInput(t *testing.T) {
	po := yearsBefore(testNow, 7)
	devices := []model.Device{
		{Row: 1, Model: "DS-2CD", PODate: &po},
		{Row: 2, Model: "NVR-16"},
	}
	before := append([]model.Device(nil), devices...)

	enriched := Enrich(devices, testNow)

	if len(enriched) != 2 {
		t.Fatalf("Expected 2 enriched devices, got %d", len(enriched))
	}
	if enriched[0].AlertTier != model.AlertHigh {
		t.Errorf("Expected high alert for 7 year old device, got %s", enriched[0].AlertTier)
	}
	if enriched[1].AgeYears != nil || enriched[1].AlertTier != model.AlertNone {
		t.Errorf("Expected no age and no alert for undated device, got %+v", enriched[1])
	}
	for i := range devices {
		if devices[i] != before[i] {
			t.Errorf("Input device %d was modified", i)
		}
	}
}
