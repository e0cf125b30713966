// Package domain contains the core study entities: decks, cards, and the
// per-card memory state that the scheduler reads and produces. It is
// independent of any storage engine or delivery mechanism.
package domain
