// Package api implements the HTTP REST API of the registration dashboard.
//
// New(store, opts) returns an http.Handler that serves:
//
//	GET /api/v1/health          - state (ok | no_data), record and source counts
//	GET /api/v1/filters         - date span and distinct labels of the dataset
//	GET /api/v1/records         - filtered records
//	GET /api/v1/overview        - headline numbers and overall trend series
//	GET /api/v1/growth          - YoY/QoQ growth per (date, group_by)
//	GET /api/v1/vehicle-types   - growth and totals per vehicle type
//	GET /api/v1/manufacturers   - top-N manufacturers and their rows
//	GET /api/v1/diagnostics     - hints explaining undefined growth values
//	GET /api/v1/alerts          - firing and recently resolved alerts
//	GET /api/v1/sources         - per-source refresh and certificate status
//	GET /api/v1/theme           - dashboard palette
//
// Data endpoints share the query parameters source, start, end (YYYY-MM-DD),
// vehicle_type and manufacturer. An absent parameter selects everything; a
// present but empty one selects nothing. Data endpoints answer 503 while no
// dataset is available.
//
// All endpoints respond with Content-Type: application/json and return 405
// for non-GET methods. JSON types are defined in types.go.
package api
