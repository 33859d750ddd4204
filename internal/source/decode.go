package source

import (
	"fmt"
	"strings"
	"time"

	"github.com/martinsuchenak/camdash/internal/metrics"
	"github.com/martinsuchenak/camdash/internal/model"
)

// Header spellings accepted for each field. Matching ignores case, spaces and
// punctuation, so "Initial status" and "INITIAL_STATUS" both map to status.
var headerAliases = map[model.Field][]string{
	model.FieldName:           {"Camera name", "Name", "Device name"},
	model.FieldModel:          {"Model"},
	model.FieldType:           {"Types", "Type"},
	model.FieldStatus:         {"Initial Status", "Status"},
	model.FieldLocation:       {"Camera & NVR(1F or HO)", "Location"},
	model.FieldArea:           {"Area"},
	model.FieldIPAddress:      {"Camera or NVR IP", "IP", "IP Address"},
	model.FieldPODate:         {"PO Date"},
	model.FieldLastUpdated:    {"Last Updated"},
	model.FieldFirmwareStatus: {"Firmware available or not", "Firmware"},
	model.FieldCoverage:       {"AMC, Warranty,Not in AMC and warranty", "Coverage", "AMC/Warranty"},
}

var headerIndex = buildHeaderIndex()

func buildHeaderIndex() map[string]model.Field {
	idx := make(map[string]model.Field)
	for f, aliases := range headerAliases {
		for _, a := range aliases {
			idx[headerKey(a)] = f
		}
	}
	return idx
}

// headerKey keeps only letters and digits, lower-cased.
func headerKey(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FieldForHeader returns the field a header cell maps to.
func FieldForHeader(h string) (model.Field, bool) {
	f, ok := headerIndex[headerKey(h)]
	return f, ok
}

// Decode maps a table onto devices. Unknown columns are ignored and missing
// ones are listed in Snapshot.Missing. Blank rows are skipped; Device.Row is
// the sheet row number with the header on row 1.
//
// The table is invalid if the header is blank, if two columns map to the same
// field, or if a row carries values beyond the header.
func Decode(t *Table) (*model.Snapshot, error) {
	return DecodeIn(t, time.Local)
}

// DecodeIn is Decode with an explicit time zone for dates without one.
func DecodeIn(t *Table, loc *time.Location) (*model.Snapshot, error) {
	if t == nil || blankRow(t.Header) {
		return nil, fmt.Errorf("%w: no header row", ErrInvalidTable)
	}

	columns := make(map[model.Field]int)
	for i, h := range t.Header {
		f, ok := FieldForHeader(h)
		if !ok {
			continue
		}
		if prev, dup := columns[f]; dup {
			return nil, fmt.Errorf("%w: columns %q and %q both map to %s", ErrInvalidTable, t.Header[prev], h, f)
		}
		columns[f] = i
	}

	snap := &model.Snapshot{Devices: make([]model.Device, 0, len(t.Rows))}
	for _, f := range model.AllFields {
		if _, ok := columns[f]; !ok {
			snap.Missing = append(snap.Missing, f)
		}
	}

	for i, row := range t.Rows {
		if len(row) > len(t.Header) && !blankRow(row[len(t.Header):]) {
			return nil, fmt.Errorf("%w: row %d has %d cells but the header has %d", ErrInvalidTable, i+2, len(row), len(t.Header))
		}
		if blankRow(row) {
			continue
		}

		cell := func(f model.Field) string {
			idx, ok := columns[f]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		snap.Devices = append(snap.Devices, model.Device{
			Row:            i + 2,
			Name:           cell(model.FieldName),
			Model:          cell(model.FieldModel),
			Type:           cell(model.FieldType),
			Status:         cell(model.FieldStatus),
			Location:       cell(model.FieldLocation),
			Area:           cell(model.FieldArea),
			IPAddress:      cell(model.FieldIPAddress),
			PODate:         metrics.ParseDateIn(cell(model.FieldPODate), loc),
			LastUpdated:    metrics.ParseDateIn(cell(model.FieldLastUpdated), loc),
			FirmwareStatus: cell(model.FieldFirmwareStatus),
			Coverage:       cell(model.FieldCoverage),
		})
	}

	return snap, nil
}
