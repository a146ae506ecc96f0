// Package types defines the shared in-memory data model used by every
// vahanboard component: the quarterly Registration Record, the growth-augmented
// GrowthRecord, the grouping-key Column, and the Dataset a source produces.
//
// Records are values. Nothing in the module mutates a Record after a source
// has produced it; derived tables are always fresh slices.
package types
