// Package metrics is the pure registration-statistics engine.
//
// growth.go provides ComputeGrowth, which sorts a table by (date, group-key
// columns) and scans every group for year-over-year (4 periods back) and
// quarter-over-quarter (1 period back) percentage change. Undefined values
// (index out of range, zero prior value, or a missing quarter between the two
// rows) are nil rather than NaN or Inf.
//
// filter.go provides FilterRecords, the closed-interval date and category
// predicate used by every dashboard view.
//
// summary.go provides the aggregates the presentation layer shows next to the
// charts: totals, top-N manufacturers, the overall trend series and the
// headline YoY/QoQ growth.
//
// diagnose.go derives human-readable hints about the data itself (gaps,
// zero baselines, short histories).
//
// No function here performs I/O or mutates its input.
package metrics
