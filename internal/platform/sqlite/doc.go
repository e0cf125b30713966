// Package sqlite implements the deck and card stores on an embedded SQLite
// database through sqlx. It is the default backend for a single learner
// running the server locally.
package sqlite
