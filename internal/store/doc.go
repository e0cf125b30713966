// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the study session and scheduling logic, so the same rules run against
// the PostgreSQL server store or the local SQLite store.
package store
