package alerts

import (
	"strconv"
	"strings"
)

// Observation is the dataset summary alert rules are evaluated against.
type Observation struct {
	SourceID    string
	State       string // "ok" | "no_data"
	RecordCount int
	Total       int64
	YoYGrowth   *float64
	QoQGrowth   *float64
}

// Observation states.
const (
	StateOK     = "ok"
	StateNoData = "no_data"
)

// evalCondition evaluates a rule condition string against an Observation.
//
// Supported expressions (field operator value):
//
//	qoq_growth < -10
//	yoy_growth > 50
//	total_registrations < 100000
//	record_count == 0
//	state == no_data
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed, the field is unknown,
// or the field is an undefined growth value.
func evalCondition(cond string, obs Observation) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	if field == "state" {
		switch op {
		case "==":
			return obs.State == rhs, 0
		case "!=":
			return obs.State != rhs, 0
		}
		return false, 0
	}

	v, ok := numericField(field, obs)
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// numericField maps a field name to its value in obs. ok is false for unknown
// fields and for growth values that are undefined.
func numericField(field string, obs Observation) (float64, bool) {
	switch field {
	case "total_registrations":
		return float64(obs.Total), true
	case "record_count":
		return float64(obs.RecordCount), true
	case "yoy_growth":
		if obs.YoYGrowth == nil {
			return 0, false
		}
		return *obs.YoYGrowth, true
	case "qoq_growth":
		if obs.QoQGrowth == nil {
			return 0, false
		}
		return *obs.QoQGrowth, true
	default:
		return 0, false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
