package models

// ParticipantKind distinguishes the ledger owner from their friends.
type ParticipantKind string

const (
	// KindSelf is the single owner of the device-local ledger.
	KindSelf ParticipantKind = "self"

	// KindFriend is a free-text identifier scoped to the current owner.
	KindFriend ParticipantKind = "friend"
)

// Participant is the resolved identity behind a participant identifier.
// All split and balance computations key on Participant.ID.
type Participant struct {
	ID   string
	Kind ParticipantKind
}

// Friend is reference data for participant resolution. Names are unique
// per owner; the emoji is display-only.
type Friend struct {
	Name  string `json:"name"`
	Emoji string `json:"emoji,omitempty"`
}
