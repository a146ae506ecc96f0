package metrics

import (
	"time"

	"github.com/vahanboard/vahanboard/pkg/types"
)

// Filter selects records by closed date interval and allowed category labels.
type Filter struct {
	// Start and End bound the record date by calendar day, both inclusive.
	Start time.Time
	End   time.Time

	// VehicleTypes and Manufacturers are the allowed label sets.
	// An empty set matches nothing.
	VehicleTypes  []string
	Manufacturers []string
}

// FilterRecords returns the records matching f, in input order. The result is
// a new, non-nil slice; records is never modified.
func FilterRecords(records []types.Record, f Filter) []types.Record {
	out := make([]types.Record, 0)
	if len(f.VehicleTypes) == 0 || len(f.Manufacturers) == 0 {
		return out
	}

	start, end := types.Day(f.Start), types.Day(f.End)
	vt := toSet(f.VehicleTypes)
	mf := toSet(f.Manufacturers)

	for _, r := range records {
		d := types.Day(r.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		if _, ok := vt[r.VehicleType]; !ok {
			continue
		}
		if _, ok := mf[r.Manufacturer]; !ok {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Options describes the value space of a table, used to populate filter
// widgets and as the default (match-everything) filter.
type Options struct {
	MinDate       time.Time
	MaxDate       time.Time
	VehicleTypes  []string
	Manufacturers []string
}

// OptionsOf returns the date span and the distinct labels of records, labels
// in order of first appearance. The zero Options is returned for no records.
func OptionsOf(records []types.Record) Options {
	var o Options
	seenVT := make(map[string]struct{})
	seenMf := make(map[string]struct{})
	for i, r := range records {
		if i == 0 || r.Date.Before(o.MinDate) {
			o.MinDate = r.Date
		}
		if i == 0 || r.Date.After(o.MaxDate) {
			o.MaxDate = r.Date
		}
		if _, ok := seenVT[r.VehicleType]; !ok {
			seenVT[r.VehicleType] = struct{}{}
			o.VehicleTypes = append(o.VehicleTypes, r.VehicleType)
		}
		if _, ok := seenMf[r.Manufacturer]; !ok {
			seenMf[r.Manufacturer] = struct{}{}
			o.Manufacturers = append(o.Manufacturers, r.Manufacturer)
		}
	}
	return o
}

// Filter returns the filter that keeps every record described by o.
func (o Options) Filter() Filter {
	return Filter{
		Start:         o.MinDate,
		End:           o.MaxDate,
		VehicleTypes:  o.VehicleTypes,
		Manufacturers: o.Manufacturers,
	}
}

func toSet(vals []string) map[string]struct{} {
	m := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		m[v] = struct{}{}
	}
	return m
}
