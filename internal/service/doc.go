// Package service contains the application use cases that sit above the
// stores: importing unlocked decks, listing decks with their due counts,
// previewing how a card would be scheduled, and resetting a deck.
//
// Study sessions live in the study_session subpackage. Services receive
// their stores through constructor injection and never depend on a
// concrete database.
package service
