package metrics

import (
	"sort"
	"time"

	"github.com/vahanboard/vahanboard/pkg/types"
)

// DefaultTopN is the number of manufacturers returned when n <= 0.
const DefaultTopN = 5

// Trend labels for a growth value.
const (
	TrendPositive = "positive"
	TrendNegative = "negative"
	TrendFlat     = "flat"
	TrendUnknown  = "unknown"
)

// Point is one entry of a registrations time series.
type Point struct {
	Date          time.Time `json:"date"`
	Registrations int64     `json:"registrations"`
}

// Headline is the overview summary of a filtered table.
type Headline struct {
	Total     int64
	Periods   int
	YoYGrowth *float64
	QoQGrowth *float64
}

// TotalRegistrations sums registrations over records.
func TotalRegistrations(records []types.Record) int64 {
	var total int64
	for _, r := range records {
		total += r.Registrations
	}
	return total
}

// TopManufacturers returns up to n manufacturer names ordered by descending
// summed registrations. Ties keep the order in which the manufacturers first
// appear in records. n <= 0 selects DefaultTopN.
func TopManufacturers(records []types.Record, n int) []string {
	if n <= 0 {
		n = DefaultTopN
	}

	sums := make(map[string]int64)
	var names []string
	for _, r := range records {
		if _, ok := sums[r.Manufacturer]; !ok {
			names = append(names, r.Manufacturer)
		}
		sums[r.Manufacturer] += r.Registrations
	}

	sort.SliceStable(names, func(i, j int) bool {
		return sums[names[i]] > sums[names[j]]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}

// SumByDate collapses records into one point per date, sorted chronologically.
// Dates are keyed in UTC so one instant in two locations is one point.
func SumByDate(records []types.Record) []Point {
	sums := make(map[time.Time]int64)
	for _, r := range records {
		sums[r.Date.UTC()] += r.Registrations
	}
	out := make([]Point, 0, len(sums))
	for d, v := range sums {
		out = append(out, Point{Date: d, Registrations: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// AggregateBy sums registrations per (date, cols...). Label columns not listed
// in cols are left blank in the result. Rows come out sorted by date, then by
// the cols values.
func AggregateBy(records []types.Record, cols []types.Column) []types.Record {
	type key struct {
		date time.Time
		vt   string
		mf   string
	}
	keep := make(map[types.Column]bool, len(cols))
	for _, c := range cols {
		keep[c] = true
	}

	sums := make(map[key]int64)
	for _, r := range records {
		k := key{date: r.Date.UTC()}
		if keep[types.ColVehicleType] {
			k.vt = r.VehicleType
		}
		if keep[types.ColManufacturer] {
			k.mf = r.Manufacturer
		}
		sums[k] += r.Registrations
	}

	out := make([]types.Record, 0, len(sums))
	for k, v := range sums {
		out = append(out, types.Record{
			Date:          k.date,
			VehicleType:   k.vt,
			Manufacturer:  k.mf,
			Registrations: v,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.VehicleType != b.VehicleType {
			return a.VehicleType < b.VehicleType
		}
		return a.Manufacturer < b.Manufacturer
	})
	return out
}

// HeadlineOf computes the overview numbers for records. Growth compares the
// last point of the overall trend with the point 1 (QoQ) or 4 (YoY) positions
// earlier, and is nil when the series is too short or the base is zero.
func HeadlineOf(records []types.Record) Headline {
	pts := SumByDate(records)
	h := Headline{
		Total:   TotalRegistrations(records),
		Periods: len(pts),
	}
	last := len(pts) - 1
	if len(pts) > yoyPeriods {
		h.YoYGrowth = PctChange(pts[last-yoyPeriods].Registrations, pts[last].Registrations)
	}
	if len(pts) > qoqPeriods {
		h.QoQGrowth = PctChange(pts[last-qoqPeriods].Registrations, pts[last].Registrations)
	}
	return h
}

// Trend classifies a growth value for display.
func Trend(v *float64) string {
	switch {
	case v == nil:
		return TrendUnknown
	case *v > 0:
		return TrendPositive
	case *v < 0:
		return TrendNegative
	default:
		return TrendFlat
	}
}

// Restrict returns the records whose manufacturer is one of names, in input order.
func Restrict(records []types.Record, names []string) []types.Record {
	allowed := toSet(names)
	out := make([]types.Record, 0)
	for _, r := range records {
		if _, ok := allowed[r.Manufacturer]; ok {
			out = append(out, r)
		}
	}
	return out
}
