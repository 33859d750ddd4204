package metrics

import (
	"strings"

	"github.com/martinsuchenak/camdash/internal/model"
)

// Partition groups items by a normalized key, remembering the order in which
// keys were first seen.
type Partition[T any] struct {
	keys   []string
	groups map[string][]T
}

// PartitionBy groups items by key(item). Items with an empty key are grouped
// under "".
func PartitionBy[T any](items []T, key func(T) string) *Partition[T] {
	p := &Partition[T]{groups: make(map[string][]T)}
	for _, item := range items {
		k := key(item)
		if _, ok := p.groups[k]; !ok {
			p.keys = append(p.keys, k)
		}
		p.groups[k] = append(p.groups[k], item)
	}
	return p
}

// Keys returns the keys in first-seen order.
func (p *Partition[T]) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Get returns the items grouped under key.
func (p *Partition[T]) Get(key string) []T {
	return p.groups[key]
}

// Count returns the number of items grouped under key.
func (p *Partition[T]) Count(key string) int {
	return len(p.groups[key])
}

// Len returns the number of distinct keys.
func (p *Partition[T]) Len() int {
	return len(p.keys)
}

// Key functions. Locations compare upper-cased, statuses and firmware
// lower-cased, everything after trimming whitespace.

func LocationKey(d model.Device) string { return normalizeUpper(d.Location) }
func StatusKey(d model.Device) string   { return normalizeLower(d.Status) }
func FirmwareKey(d model.Device) string { return normalizeLower(d.FirmwareStatus) }
func AreaKey(d model.Device) string     { return normalizeLower(d.Area) }
func TypeKey(d model.Device) string     { return strings.TrimSpace(d.Type) }

func AlertKey(d model.EnrichedDevice) string { return string(d.AlertTier) }

// Enriched adapts a Device key function to enriched devices.
func Enriched(key func(model.Device) string) func(model.EnrichedDevice) string {
	return func(d model.EnrichedDevice) string { return key(d.Device) }
}

func normalizeUpper(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
func normalizeLower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
