package model

import "time"

// SourceStatus describes a registered inventory source and its cached
// snapshot.
type SourceStatus struct {
	ID        string     `json:"id"`
	Kind      string     `json:"kind"` // "sheet", "file" or "upload"
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
	Stale     bool       `json:"stale"`
	Devices   int        `json:"devices"`
	Missing   []Field    `json:"missing,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}
