package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vahanboard/vahanboard/pkg/types"
)

func hintKeys(hints []Hint) []string {
	out := make([]string, len(hints))
	for i, h := range hints {
		out[i] = h.Key
	}
	return out
}

func TestDiagnose_NoData(t *testing.T) {
	hints := Diagnose(nil, nil)
	require.Len(t, hints, 1)
	assert.Equal(t, "no_data", hints[0].Key)
	assert.Equal(t, LevelCritical, hints[0].Level)
}

func TestDiagnose_CleanHistory(t *testing.T) {
	hints := Diagnose(series("2W", "Hero", 1, 2, 3, 4, 5, 6), []types.Column{types.ColManufacturer})
	assert.Empty(t, hints)
}

func TestDiagnose_GapAndShortHistory(t *testing.T) {
	tbl := []types.Record{
		{Date: quarter(0), Manufacturer: "Kia", Registrations: 10},
		{Date: quarter(3), Manufacturer: "Kia", Registrations: 12},
	}
	hints := Diagnose(tbl, []types.Column{types.ColManufacturer})
	assert.Equal(t, []string{"quarter_gap", "short_history"}, hintKeys(hints))

	gap := hints[0]
	assert.Equal(t, LevelWarning, gap.Level)
	assert.Equal(t, "Kia", gap.Group)
	require.NotNil(t, gap.Value)
	assert.Equal(t, 2.0, *gap.Value)
}

func TestDiagnose_ZeroBase(t *testing.T) {
	hints := Diagnose(series("3W", "Piaggio", 5, 0, 7, 8, 9), []types.Column{types.ColVehicleType})
	assert.Equal(t, []string{"zero_base"}, hintKeys(hints))
	assert.Equal(t, "3W", hints[0].Group)
}
