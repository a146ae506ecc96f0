package types

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-day layout used for dates on the wire and in CSV files.
const DateLayout = "2006-01-02"

// Record is one row of registration statistics.
type Record struct {
	Date          time.Time `json:"date"`
	VehicleType   string    `json:"vehicle_type"`
	Manufacturer  string    `json:"manufacturer"`
	Registrations int64     `json:"registrations"`
}

// Year returns the calendar year of the record's date.
func (r Record) Year() int { return r.Date.Year() }

// Quarter returns "Q1".."Q4" for the record's date.
func (r Record) Quarter() string {
	return fmt.Sprintf("Q%d", QuarterOf(r.Date))
}

// GrowthRecord is a Record augmented with period-over-period growth.
// A nil pointer means the growth is undefined for that row.
type GrowthRecord struct {
	Record
	YoYGrowth *float64 `json:"yoy_growth"`
	QoQGrowth *float64 `json:"qoq_growth"`
}

// Dataset is the output of one successful fetch from a data source.
type Dataset struct {
	SourceID  string
	FetchedAt time.Time
	Records   []Record
}

// Column names a grouping-key column.
type Column string

// Grouping-key columns.
const (
	ColVehicleType  Column = "vehicle_type"
	ColManufacturer Column = "manufacturer"
)

// Value returns the label of r held in column c.
func (c Column) Value(r Record) string {
	switch c {
	case ColVehicleType:
		return r.VehicleType
	case ColManufacturer:
		return r.Manufacturer
	default:
		return ""
	}
}

// ParseColumn maps a column name to a Column. Dashes, spaces and case are
// tolerated so "Vehicle Type" and "vehicle-type" both resolve.
func ParseColumn(s string) (Column, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	switch Column(norm) {
	case ColVehicleType, ColManufacturer:
		return Column(norm), nil
	default:
		return "", fmt.Errorf("types: unknown column %q: want vehicle_type|manufacturer", s)
	}
}

// ParseColumns parses a comma-separated list of column names.
// An empty string yields no columns.
func ParseColumns(s string) ([]Column, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []Column
	for _, part := range strings.Split(s, ",") {
		c, err := ParseColumn(part)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// QuarterOf returns the quarter number (1-4) of t.
func QuarterOf(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

// QuarterIndex returns a monotonically increasing index of t's quarter, so
// two dates in adjacent quarters differ by exactly one.
func QuarterIndex(t time.Time) int {
	t = t.UTC()
	return t.Year()*4 + QuarterOf(t) - 1
}

// QuarterEnd truncates t to UTC midnight on the last day of its quarter.
func QuarterEnd(t time.Time) time.Time {
	t = t.UTC()
	firstOfNext := time.Date(t.Year(), time.Month(QuarterOf(t)*3+1), 1, 0, 0, 0, 0, time.UTC)
	return firstOfNext.AddDate(0, 0, -1)
}

// Day truncates t to UTC midnight of its calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
