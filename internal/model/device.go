package model

import (
	"time"
)

// Device is one row of the inventory sheet. Every field is optional: an empty
// string or nil pointer means the cell was blank, unparsable or the column
// was missing from the sheet.
type Device struct {
	Row            int        `json:"row"`
	Name           string     `json:"name,omitempty"`
	Model          string     `json:"model,omitempty"`
	Type           string     `json:"type,omitempty"`
	Status         string     `json:"status,omitempty"`
	Location       string     `json:"location,omitempty"` // "1F" (plant) or "HO"
	Area           string     `json:"area,omitempty"`     // only meaningful for 1F
	IPAddress      string     `json:"ip_address,omitempty"`
	PODate         *time.Time `json:"po_date,omitempty"`
	LastUpdated    *time.Time `json:"last_updated,omitempty"`
	FirmwareStatus string     `json:"firmware_status,omitempty"`
	Coverage       string     `json:"coverage,omitempty"`
}

// AlertTier is the age alert level of a device.
type AlertTier string

const (
	AlertNone AlertTier = "none"
	AlertMild AlertTier = "mild"
	AlertHigh AlertTier = "high"
)

// EnrichedDevice is a Device with the fields derived at evaluation time.
type EnrichedDevice struct {
	Device
	AgeYears  *float64  `json:"age_years,omitempty"`
	AlertTier AlertTier `json:"alert_tier"`
}

// Location codes as written in the sheet.
const (
	LocationPlant = "1F"
	LocationHO    = "HO"
)

// Status values the dashboard singles out.
const (
	StatusLive    = "live"
	StatusRepair  = "repair"
	StatusDiscard = "discard"
)

// Field names a Device column independent of the sheet header spelling.
type Field string

const (
	FieldName           Field = "name"
	FieldModel          Field = "model"
	FieldType           Field = "type"
	FieldStatus         Field = "status"
	FieldLocation       Field = "location"
	FieldArea           Field = "area"
	FieldIPAddress      Field = "ip_address"
	FieldPODate         Field = "po_date"
	FieldLastUpdated    Field = "last_updated"
	FieldFirmwareStatus Field = "firmware_status"
	FieldCoverage       Field = "coverage"
)

// AllFields lists every Device column in display order.
var AllFields = []Field{
	FieldName, FieldModel, FieldType, FieldStatus, FieldLocation, FieldArea,
	FieldIPAddress, FieldPODate, FieldLastUpdated, FieldFirmwareStatus, FieldCoverage,
}

// Snapshot is one read of a source. Missing lists the columns the sheet did
// not carry; those fields are absent on every device.
type Snapshot struct {
	Source    string    `json:"source"`
	Devices   []Device  `json:"devices"`
	Missing   []Field   `json:"missing,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Has reports whether the sheet carried the column for f.
func (s *Snapshot) Has(f Field) bool {
	for _, m := range s.Missing {
		if m == f {
			return false
		}
	}
	return true
}
