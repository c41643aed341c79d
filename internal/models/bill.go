package models

import (
	"encoding/json"
	"time"

	"github.com/mkale/splitledger/internal/money"
)

// Bill is one shared expense: who paid, who shares it, and how the amount
// was divided. It is owned by the owner-wide bill list; when GroupRef is
// set, a copy lives in that group's bill list and the ledger keeps the two
// in lockstep on every edit and delete.
type Bill struct {
	// ID is an opaque, time-ordered unique identifier (UUIDv7).
	ID string `json:"id"`

	// Name is the human-readable label, e.g. "Dinner".
	Name string `json:"name"`

	// Amount is the full bill total.
	Amount money.Money `json:"amount"`

	// CurrencyTag is a display-only tag; amounts are never converted.
	CurrencyTag string `json:"currencyTag,omitempty"`

	// Payer is the participant who fronted the full amount. Always a
	// member of Participants.
	Payer string `json:"payer"`

	// Participants is the ordered, de-duplicated set of everyone sharing
	// the bill, payer included. Order matters: equal splits hand out the
	// remainder in this order.
	Participants []string `json:"participants"`

	// Policy is how Amount was divided.
	Policy SplitPolicy `json:"policy"`

	// Allocation is the resolved per-participant share. Its key set equals
	// Participants.
	Allocation Allocation `json:"allocation"`

	// Date is when the expense was incurred.
	Date time.Time `json:"date"`

	// Note is optional free text, at most 100 words.
	Note string `json:"note,omitempty"`

	// PhotoRef is an opaque reference to an attached receipt photo.
	PhotoRef string `json:"photoRef,omitempty"`

	// GroupRef is the ID of the owning group, empty for standalone bills.
	GroupRef string `json:"groupRef,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// extra holds unrecognized fields from older/newer payloads.
	extra map[string]json.RawMessage
}

// Validate is the structural check applied on load. Records failing it are
// dropped rather than aborting the whole collection.
func (b *Bill) Validate() bool {
	if b.ID == "" || b.Name == "" || b.Payer == "" {
		return false
	}
	if len(b.Participants) == 0 {
		return false
	}
	if !b.Policy.Valid() {
		return false
	}
	return true
}

// HasParticipant reports whether name appears in the participant set.
func (b *Bill) HasParticipant(name string) bool {
	for _, p := range b.Participants {
		if p == name {
			return true
		}
	}
	return false
}

// References reports whether name appears anywhere on the bill, as payer or
// participant. Used by the member-removal guard.
func (b *Bill) References(name string) bool {
	return b.Payer == name || b.HasParticipant(name)
}

// Clone returns a deep copy, so snapshot readers can never mutate the
// ledger's state.
func (b *Bill) Clone() Bill {
	out := *b
	out.Participants = append([]string(nil), b.Participants...)
	out.Allocation = b.Allocation.Clone()
	if b.extra != nil {
		out.extra = make(map[string]json.RawMessage, len(b.extra))
		for k, v := range b.extra {
			out.extra[k] = v
		}
	}
	return out
}

type billAlias Bill

// UnmarshalJSON decodes the known fields and retains anything it does not
// recognize for the next save.
func (b *Bill) UnmarshalJSON(data []byte) error {
	var a billAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := captureUnknown(data, a)
	if err != nil {
		return err
	}
	a.extra = extra
	*b = Bill(a)
	return nil
}

// MarshalJSON writes the known fields plus any retained unknown fields.
func (b Bill) MarshalJSON() ([]byte, error) {
	return mergeUnknown(billAlias(b), b.extra)
}
