// Package store holds the latest registration dataset per source in memory.
// It replaces per-session dataframe caching with one shared, thread-safe
// cache with TTL eviction, and remembers the last fetch failure of each
// source so the API can explain an empty state.
package store
