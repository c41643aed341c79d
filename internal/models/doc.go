// Package models defines the core domain records for splitledger.
//
// The persisted records are:
//   - Bill: one shared expense with a payer, participants and an allocation
//   - Group: a named collection of members that owns a mirrored bill list
//   - Friend: reference data for participant resolution (name + emoji)
//
// Participants inside records are identifier strings (the owner's display
// name or a friend's name). Participant is the resolved form produced by the
// ledger's registry; it never appears inside a persisted record.
//
// Bill and Group tolerate unknown JSON fields on load and carry them back
// out on re-save, so payloads written by a newer build survive a round trip
// through an older one.
package models
