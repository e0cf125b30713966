// Package postgres provides the PostgreSQL implementations of the deck and
// card stores defined in internal/store, together with connection setup and
// the embedded schema migrations.
//
// Cards and their memory state share one row; every review also appends a
// row to review_logs inside the same transaction.
package postgres
