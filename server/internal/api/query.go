package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vahanboard/vahanboard/pkg/types"
	"github.com/vahanboard/vahanboard/server/internal/metrics"
)

// parseFilter builds the record filter from the shared query parameters.
// Parameters that are absent default to the full value space of records.
func parseFilter(q url.Values, records []types.Record) (metrics.Filter, error) {
	f := metrics.OptionsOf(records).Filter()

	if v := q.Get("start"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return f, fmt.Errorf("start: %w", err)
		}
		f.Start = t
	}
	if v := q.Get("end"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return f, fmt.Errorf("end: %w", err)
		}
		f.End = t
	}
	if vals, ok := q["vehicle_type"]; ok {
		f.VehicleTypes = splitList(vals)
	}
	if vals, ok := q["manufacturer"]; ok {
		f.Manufacturers = splitList(vals)
	}
	return f, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(types.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

// splitList flattens repeated and comma-separated values, dropping blanks.
// The result is non-nil so an explicitly empty parameter selects nothing.
func splitList(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// parseGroupBy reads group_by, falling back to def when absent.
func parseGroupBy(q url.Values, def []types.Column) ([]types.Column, error) {
	if _, ok := q["group_by"]; !ok {
		return def, nil
	}
	cols, err := types.ParseColumns(q.Get("group_by"))
	if err != nil {
		return nil, fmt.Errorf("group_by: %w", err)
	}
	return cols, nil
}

// parseTopN reads n, falling back to def when absent.
func parseTopN(q url.Values, def int) (int, error) {
	v := q.Get("n")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("n: want a positive integer, got %q", v)
	}
	return n, nil
}

func columnNames(cols []types.Column) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		out = append(out, string(c))
	}
	return out
}
