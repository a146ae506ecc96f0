package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vahanboard/vahanboard/pkg/types"
)

func sampleTable() []types.Record {
	var out []types.Record
	out = append(out, series("2W", "Hero", 100, 110, 120, 130)...)
	out = append(out, series("2W", "Honda", 90, 80, 70, 60)...)
	out = append(out, series("4W", "Maruti", 300, 310, 320, 330)...)
	return out
}

func allFilter(recs []types.Record) Filter { return OptionsOf(recs).Filter() }

func TestFilterRecords_AllDefaultsKeepsEverything(t *testing.T) {
	tbl := sampleTable()
	got := FilterRecords(tbl, allFilter(tbl))
	assert.Equal(t, tbl, got)
}

func TestFilterRecords_EmptyVehicleTypes(t *testing.T) {
	tbl := sampleTable()
	flt := allFilter(tbl)
	flt.VehicleTypes = []string{}

	got := FilterRecords(tbl, flt)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFilterRecords_EmptyManufacturers(t *testing.T) {
	tbl := sampleTable()
	flt := allFilter(tbl)
	flt.Manufacturers = nil
	assert.Empty(t, FilterRecords(tbl, flt))
}

func TestFilterRecords_DateRangeOutsideSpan(t *testing.T) {
	tbl := sampleTable()
	flt := allFilter(tbl)
	flt.Start = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	flt.End = time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, FilterRecords(tbl, flt))

	flt.Start = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	flt.End = time.Date(2001, 12, 31, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, FilterRecords(tbl, flt))
}

func TestFilterRecords_InclusiveBounds(t *testing.T) {
	tbl := sampleTable()
	flt := allFilter(tbl)
	flt.Start = quarter(1)
	flt.End = quarter(2)

	got := FilterRecords(tbl, flt)
	assert.Len(t, got, 6)
	for _, r := range got {
		assert.True(t, r.Date.Equal(quarter(1)) || r.Date.Equal(quarter(2)), "unexpected date %s", r.Date)
	}
}

func TestFilterRecords_EndBoundIgnoresTimeOfDay(t *testing.T) {
	tbl := sampleTable()
	flt := allFilter(tbl)
	flt.End = quarter(0).Add(-time.Hour) // previous day, 23:00
	assert.Empty(t, FilterRecords(tbl, flt))

	flt.End = quarter(0).Add(23 * time.Hour)
	assert.Len(t, FilterRecords(tbl, flt), 3)
}

func TestFilterRecords_Categories(t *testing.T) {
	tbl := sampleTable()
	flt := allFilter(tbl)
	flt.VehicleTypes = []string{"2W"}
	flt.Manufacturers = []string{"Honda", "Maruti"}

	got := FilterRecords(tbl, flt)
	require.Len(t, got, 4)
	for _, r := range got {
		assert.Equal(t, "Honda", r.Manufacturer)
	}
}

func TestFilterRecords_Idempotent(t *testing.T) {
	tbl := sampleTable()
	flt := allFilter(tbl)
	flt.Start = quarter(1)
	flt.VehicleTypes = []string{"2W"}

	once := FilterRecords(tbl, flt)
	twice := FilterRecords(once, flt)
	assert.Equal(t, once, twice)
}

func TestFilterRecords_DoesNotMutateInput(t *testing.T) {
	tbl := sampleTable()
	snapshot := append([]types.Record(nil), tbl...)
	flt := allFilter(tbl)
	flt.Manufacturers = []string{"Hero"}

	FilterRecords(tbl, flt)
	assert.Equal(t, snapshot, tbl)
}

func TestOptionsOf(t *testing.T) {
	tbl := sampleTable()
	o := OptionsOf(tbl)
	assert.True(t, o.MinDate.Equal(quarter(0)))
	assert.True(t, o.MaxDate.Equal(quarter(3)))
	assert.Equal(t, []string{"2W", "4W"}, o.VehicleTypes)
	assert.Equal(t, []string{"Hero", "Honda", "Maruti"}, o.Manufacturers)

	assert.Equal(t, Options{}, OptionsOf(nil))
}
