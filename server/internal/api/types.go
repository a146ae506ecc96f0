package api

import (
	"time"

	"github.com/vahanboard/vahanboard/pkg/types"
	"github.com/vahanboard/vahanboard/server/internal/metrics"
	"github.com/vahanboard/vahanboard/server/internal/source"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State       string `json:"state"` // "ok" | "no_data"
	RecordCount int    `json:"record_count"`
	SourceCount int    `json:"source_count"`
	AlertCount  int    `json:"alert_count"`
}

// FiltersResponse is the payload for GET /api/v1/filters.
type FiltersResponse struct {
	SourceID      string   `json:"source_id"`
	MinDate       string   `json:"min_date"`
	MaxDate       string   `json:"max_date"`
	VehicleTypes  []string `json:"vehicle_types"`
	Manufacturers []string `json:"manufacturers"`
}

// RecordRow is one registration record on the wire.
type RecordRow struct {
	Date          string `json:"date"` // YYYY-MM-DD
	Year          int    `json:"year"`
	Quarter       string `json:"quarter"`
	VehicleType   string `json:"vehicle_type,omitempty"`
	Manufacturer  string `json:"manufacturer,omitempty"`
	Registrations int64  `json:"registrations"`
}

// GrowthRow is a RecordRow with its growth columns. Undefined growth is null.
type GrowthRow struct {
	RecordRow
	YoYGrowth *float64 `json:"yoy_growth"`
	QoQGrowth *float64 `json:"qoq_growth"`
}

// RecordsResponse is the payload for GET /api/v1/records.
type RecordsResponse struct {
	SourceID string      `json:"source_id"`
	Count    int         `json:"count"`
	Records  []RecordRow `json:"records"`
}

// PointRow is one entry of a trend series.
type PointRow struct {
	Date          string `json:"date"`
	Registrations int64  `json:"registrations"`
}

// OverviewResponse is the payload for GET /api/v1/overview and the data of
// the "overview" WebSocket event.
type OverviewResponse struct {
	SourceID  string     `json:"source_id"`
	FetchedAt string     `json:"fetched_at"` // RFC3339
	Total     int64      `json:"total_registrations"`
	Periods   int        `json:"periods"`
	YoYGrowth *float64   `json:"yoy_growth"`
	QoQGrowth *float64   `json:"qoq_growth"`
	YoYTrend  string     `json:"yoy_trend"`
	QoQTrend  string     `json:"qoq_trend"`
	Series    []PointRow `json:"series"`
}

// GrowthResponse is the payload for GET /api/v1/growth.
type GrowthResponse struct {
	SourceID string      `json:"source_id"`
	GroupBy  []string    `json:"group_by"`
	Rows     []GrowthRow `json:"rows"`
}

// LabelTotal is the summed registrations of one label.
type LabelTotal struct {
	Name          string `json:"name"`
	Registrations int64  `json:"registrations"`
}

// VehicleTypesResponse is the payload for GET /api/v1/vehicle-types.
type VehicleTypesResponse struct {
	SourceID string       `json:"source_id"`
	Totals   []LabelTotal `json:"totals"`
	Rows     []GrowthRow  `json:"rows"`
}

// ManufacturersResponse is the payload for GET /api/v1/manufacturers.
type ManufacturersResponse struct {
	SourceID string       `json:"source_id"`
	N        int          `json:"n"`
	Top      []LabelTotal `json:"top"`
	Rows     []RecordRow  `json:"rows"`
}

// DiagnosticsResponse is the payload for GET /api/v1/diagnostics.
type DiagnosticsResponse struct {
	SourceID string         `json:"source_id"`
	Hints    []metrics.Hint `json:"hints"`
}

// SourceStatus is one entry of GET /api/v1/sources.
type SourceStatus struct {
	ID        string             `json:"id"`
	Type      string             `json:"type"`
	State     string             `json:"state"` // "ok" | "stale" | "error" | "pending"
	Records   int                `json:"records"`
	UpdatedAt string             `json:"updated_at,omitempty"`
	LastError string             `json:"last_error,omitempty"`
	FailedAt  string             `json:"failed_at,omitempty"`
	Failures  int                `json:"failures"`
	Cert      *source.CertStatus `json:"cert,omitempty"`
}

// ThemeResponse is the payload for GET /api/v1/theme.
type ThemeResponse struct {
	Name   string            `json:"name"`
	Colors map[string]string `json:"colors"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

func toRecordRow(r types.Record) RecordRow {
	return RecordRow{
		Date:          r.Date.UTC().Format(types.DateLayout),
		Year:          r.Year(),
		Quarter:       r.Quarter(),
		VehicleType:   r.VehicleType,
		Manufacturer:  r.Manufacturer,
		Registrations: r.Registrations,
	}
}

func toRecordRows(records []types.Record) []RecordRow {
	out := make([]RecordRow, 0, len(records))
	for _, r := range records {
		out = append(out, toRecordRow(r))
	}
	return out
}

func toGrowthRows(records []types.GrowthRecord) []GrowthRow {
	out := make([]GrowthRow, 0, len(records))
	for _, g := range records {
		out = append(out, GrowthRow{
			RecordRow: toRecordRow(g.Record),
			YoYGrowth: g.YoYGrowth,
			QoQGrowth: g.QoQGrowth,
		})
	}
	return out
}

func toPointRows(pts []metrics.Point) []PointRow {
	out := make([]PointRow, 0, len(pts))
	for _, p := range pts {
		out = append(out, PointRow{
			Date:          p.Date.UTC().Format(types.DateLayout),
			Registrations: p.Registrations,
		})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
