package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vahanboard/vahanboard/pkg/types"
)

// quarter returns the quarter-end date n quarters after Q1 2020.
func quarter(n int) time.Time {
	return types.QuarterEnd(time.Date(2020, time.Month(1+3*n), 1, 0, 0, 0, 0, time.UTC))
}

// series builds consecutive quarterly records for one (vehicle type, manufacturer).
func series(vt, mf string, vals ...int64) []types.Record {
	out := make([]types.Record, len(vals))
	for i, v := range vals {
		out[i] = types.Record{Date: quarter(i), VehicleType: vt, Manufacturer: mf, Registrations: v}
	}
	return out
}

func f(v float64) *float64 { return &v }

func growthValues(rows []types.GrowthRecord, yoy bool) []*float64 {
	out := make([]*float64, len(rows))
	for i, r := range rows {
		if yoy {
			out[i] = r.YoYGrowth
		} else {
			out[i] = r.QoQGrowth
		}
	}
	return out
}

func TestComputeGrowth_QoQ(t *testing.T) {
	rows := ComputeGrowth(series("2W", "Hero", 100, 110, 121), []types.Column{types.ColVehicleType})
	require.Len(t, rows, 3)
	assert.Equal(t, []*float64{nil, f(10), f(10)}, growthValues(rows, false))
}

func TestComputeGrowth_YoY(t *testing.T) {
	rows := ComputeGrowth(series("4W", "Tata", 100, 100, 100, 100, 200, 100), []types.Column{types.ColVehicleType})
	require.Len(t, rows, 6)

	for i := 0; i < 4; i++ {
		assert.Nil(t, rows[i].YoYGrowth, "YoY[%d]", i)
	}
	require.NotNil(t, rows[4].YoYGrowth)
	assert.Equal(t, 100.0, *rows[4].YoYGrowth)
	require.NotNil(t, rows[5].YoYGrowth)
	assert.Equal(t, 0.0, *rows[5].YoYGrowth)

	// QoQ for index 5 is (100-200)/200.
	require.NotNil(t, rows[5].QoQGrowth)
	assert.Equal(t, -50.0, *rows[5].QoQGrowth)
}

func TestComputeGrowth_RowCountPreserved(t *testing.T) {
	in := append(series("2W", "Hero", 1, 2, 3, 4, 5), series("3W", "Bajaj", 7, 8)...)
	in = append(in, series("2W", "Honda", 9)...)

	for _, groupBy := range [][]types.Column{
		nil,
		{types.ColVehicleType},
		{types.ColManufacturer},
		{types.ColVehicleType, types.ColManufacturer},
	} {
		assert.Len(t, ComputeGrowth(in, groupBy), len(in), "groupBy=%v", groupBy)
	}
}

func TestComputeGrowth_DoesNotMutateInput(t *testing.T) {
	in := series("2W", "Hero", 300, 200, 100)
	// Reverse so the function must sort.
	in[0], in[2] = in[2], in[0]
	snapshot := append([]types.Record(nil), in...)

	ComputeGrowth(in, []types.Column{types.ColManufacturer})
	assert.Equal(t, snapshot, in)
}

func TestComputeGrowth_SortsByDateThenGroup(t *testing.T) {
	in := []types.Record{
		{Date: quarter(1), VehicleType: "4W", Manufacturer: "Kia", Registrations: 20},
		{Date: quarter(0), VehicleType: "4W", Manufacturer: "Kia", Registrations: 10},
		{Date: quarter(1), VehicleType: "2W", Manufacturer: "Hero", Registrations: 40},
		{Date: quarter(0), VehicleType: "2W", Manufacturer: "Hero", Registrations: 50},
	}
	rows := ComputeGrowth(in, []types.Column{types.ColVehicleType})
	require.Len(t, rows, 4)

	assert.Equal(t, "2W", rows[0].VehicleType)
	assert.Equal(t, "4W", rows[1].VehicleType)
	assert.Equal(t, "2W", rows[2].VehicleType)
	assert.Equal(t, "4W", rows[3].VehicleType)

	require.NotNil(t, rows[2].QoQGrowth)
	assert.Equal(t, -20.0, *rows[2].QoQGrowth)
	require.NotNil(t, rows[3].QoQGrowth)
	assert.Equal(t, 100.0, *rows[3].QoQGrowth)
}

func TestComputeGrowth_GroupsAreIndependent(t *testing.T) {
	in := append(series("2W", "Hero", 100, 150), series("2W", "Honda", 10, 5)...)
	rows := ComputeGrowth(in, []types.Column{types.ColManufacturer})

	got := map[string][]*float64{}
	for _, r := range rows {
		got[r.Manufacturer] = append(got[r.Manufacturer], r.QoQGrowth)
	}
	assert.Equal(t, []*float64{nil, f(50)}, got["Hero"])
	assert.Equal(t, []*float64{nil, f(-50)}, got["Honda"])
}

func TestComputeGrowth_ZeroPriorIsNil(t *testing.T) {
	rows := ComputeGrowth(series("3W", "Piaggio", 0, 50, 0, 0, 10), nil)
	assert.Nil(t, rows[1].QoQGrowth, "division by zero prior must be nil")
	require.NotNil(t, rows[2].QoQGrowth)
	assert.Equal(t, -100.0, *rows[2].QoQGrowth)
	assert.Nil(t, rows[4].YoYGrowth, "YoY against a zero quarter must be nil")
}

func TestComputeGrowth_SingleRecordGroup(t *testing.T) {
	rows := ComputeGrowth(series("2W", "TVS", 42), []types.Column{types.ColManufacturer})
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].QoQGrowth)
	assert.Nil(t, rows[0].YoYGrowth)
}

func TestComputeGrowth_MissingQuarterIsNil(t *testing.T) {
	in := []types.Record{
		{Date: quarter(0), Manufacturer: "Hero", Registrations: 100},
		{Date: quarter(1), Manufacturer: "Hero", Registrations: 120},
		// quarter(2) missing
		{Date: quarter(3), Manufacturer: "Hero", Registrations: 150},
		{Date: quarter(4), Manufacturer: "Hero", Registrations: 200},
	}
	rows := ComputeGrowth(in, []types.Column{types.ColManufacturer})
	require.Len(t, rows, 4)
	require.NotNil(t, rows[1].QoQGrowth)
	assert.Equal(t, 20.0, *rows[1].QoQGrowth)
	assert.Nil(t, rows[2].QoQGrowth, "QoQ across a gap")
	require.NotNil(t, rows[3].QoQGrowth)
	assert.InDelta(t, 33.333, *rows[3].QoQGrowth, 0.001)
}

func TestComputeGrowth_Empty(t *testing.T) {
	rows := ComputeGrowth(nil, []types.Column{types.ColVehicleType})
	assert.Empty(t, rows)
}

func TestPctChange(t *testing.T) {
	assert.Nil(t, PctChange(0, 10))
	assert.Equal(t, f(10), PctChange(110, 121))
	assert.Equal(t, f(-100), PctChange(5, 0))
}
