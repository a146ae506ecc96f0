package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vahanboard/vahanboard/pkg/types"
)

// Hint levels, most severe first.
const (
	LevelCritical = "critical"
	LevelWarning  = "warning"
	LevelInfo     = "info"
)

// Hint is one human-readable observation about a table.
type Hint struct {
	// Key is a stable machine-readable identifier.
	Key string `json:"key"`
	// Level is "critical" | "warning" | "info".
	Level string `json:"level"`
	// Group names the grouping-key values the hint applies to; empty for the whole table.
	Group  string   `json:"group,omitempty"`
	Title  string   `json:"title"`
	Detail string   `json:"detail"`
	Value  *float64 `json:"value,omitempty"`
}

// Diagnose inspects records grouped by groupBy and explains why growth values
// come out undefined. Hints are ordered critical, then warning, then info.
func Diagnose(records []types.Record, groupBy []types.Column) []Hint {
	if len(records) == 0 {
		return []Hint{{
			Key:    "no_data",
			Level:  LevelCritical,
			Title:  "No data",
			Detail: "The data source returned no registration records for this selection, so no trends or growth figures can be shown.",
		}}
	}

	rows := ComputeGrowth(records, groupBy)
	byGroup := make(map[string][]types.GrowthRecord)
	var order []string
	for _, r := range rows {
		k := groupLabel(r.Record, groupBy)
		if _, ok := byGroup[k]; !ok {
			order = append(order, k)
		}
		byGroup[k] = append(byGroup[k], r)
	}

	var hints []Hint
	for _, g := range order {
		seq := byGroup[g]

		for i := 1; i < len(seq); i++ {
			gap := types.QuarterIndex(seq[i].Date) - types.QuarterIndex(seq[i-1].Date)
			if gap > 1 {
				missing := gap - 1
				v := float64(missing)
				hints = append(hints, Hint{
					Key:   "quarter_gap",
					Level: LevelWarning,
					Group: g,
					Title: fmt.Sprintf("%d missing quarter(s)", missing),
					Detail: fmt.Sprintf(
						"There is no data between %s and %s. Growth for the rows that "+
							"would compare across this gap is left empty instead of comparing "+
							"non-adjacent periods.",
						quarterLabel(seq[i-1].Date), quarterLabel(seq[i].Date)),
					Value: &v,
				})
			}
			if seq[i-1].Registrations == 0 && gap == 1 {
				hints = append(hints, Hint{
					Key:   "zero_base",
					Level: LevelInfo,
					Group: g,
					Title: "Zero baseline",
					Detail: fmt.Sprintf(
						"%s has zero registrations, so the percentage change into %s is undefined.",
						quarterLabel(seq[i-1].Date), quarterLabel(seq[i].Date)),
				})
			}
		}

		if len(seq) <= yoyPeriods {
			v := float64(len(seq))
			hints = append(hints, Hint{
				Key:   "short_history",
				Level: LevelInfo,
				Group: g,
				Title: fmt.Sprintf("%d period(s) only", len(seq)),
				Detail: "Year-over-year growth needs at least five quarters of history; " +
					"it stays empty until more data arrives.",
				Value: &v,
			})
		}
	}

	sort.SliceStable(hints, func(i, j int) bool {
		return levelRank(hints[i].Level) < levelRank(hints[j].Level)
	})
	return hints
}

func groupLabel(r types.Record, cols []types.Column) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c.Value(r)
	}
	return strings.Join(parts, " / ")
}

func quarterLabel(t time.Time) string {
	return fmt.Sprintf("Q%d %d", types.QuarterOf(t), t.Year())
}

func levelRank(level string) int {
	switch level {
	case LevelCritical:
		return 0
	case LevelWarning:
		return 1
	default:
		return 2
	}
}
