package metrics

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vahanboard/vahanboard/pkg/types"
)

// Period offsets used by the growth columns.
const (
	qoqPeriods = 1
	yoyPeriods = 4
)

var hundred = decimal.NewFromInt(100)

// ComputeGrowth returns a copy of records, sorted by (date, groupBy...)
// ascending, with YoY and QoQ growth filled in per group. Rows sharing the same
// values for every groupBy column form one group; an empty groupBy treats the
// whole table as a single group.
//
// The output always has exactly len(records) rows.
func ComputeGrowth(records []types.Record, groupBy []types.Column) []types.GrowthRecord {
	out := make([]types.GrowthRecord, len(records))
	for i, r := range records {
		out[i] = types.GrowthRecord{Record: r}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Record, out[j].Record
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		for _, c := range groupBy {
			if va, vb := c.Value(a), c.Value(b); va != vb {
				return va < vb
			}
		}
		return false
	})

	groups := make(map[string][]int)
	var order []string
	for i := range out {
		k := groupKey(out[i].Record, groupBy)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	for _, k := range order {
		idx := groups[k]
		for n, i := range idx {
			if n >= qoqPeriods {
				out[i].QoQGrowth = periodChange(out[idx[n-qoqPeriods]].Record, out[i].Record, qoqPeriods)
			}
			if n >= yoyPeriods {
				out[i].YoYGrowth = periodChange(out[idx[n-yoyPeriods]].Record, out[i].Record, yoyPeriods)
			}
		}
	}
	return out
}

// periodChange returns the percentage change from prior to cur, or nil when
// prior is not exactly k quarters before cur or prior has zero registrations.
func periodChange(prior, cur types.Record, k int) *float64 {
	if types.QuarterIndex(cur.Date)-types.QuarterIndex(prior.Date) != k {
		return nil
	}
	return PctChange(prior.Registrations, cur.Registrations)
}

// PctChange returns (cur-prior)/prior*100, or nil when prior is zero.
// The division is carried out in decimal so exact ratios stay exact.
func PctChange(prior, cur int64) *float64 {
	if prior == 0 {
		return nil
	}
	p := decimal.NewFromInt(prior)
	v := decimal.NewFromInt(cur).Sub(p).Div(p).Mul(hundred).InexactFloat64()
	return &v
}

func groupKey(r types.Record, cols []types.Column) string {
	if len(cols) == 0 {
		return ""
	}
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c.Value(r)
	}
	return strings.Join(parts, "\x1f")
}
