package models

import (
	"encoding/json"
	"time"

	"github.com/mkale/splitledger/internal/money"
)

// Group is a named set of members that owns a bill list. Group bills are
// mirrored into the owner-wide bill list; the ledger keeps both copies in
// lockstep.
type Group struct {
	// ID is an opaque, time-ordered unique identifier (UUIDv7).
	ID string `json:"id"`

	// Name is the display name, e.g. "Roommates".
	Name string `json:"name"`

	// Description is optional free text.
	Description string `json:"description,omitempty"`

	// CurrencyTag is display-only, like Bill.CurrencyTag.
	CurrencyTag string `json:"currencyTag,omitempty"`

	// Members is the ordered, de-duplicated member list. A member cannot
	// be removed while any bill in Bills references them.
	Members []string `json:"members"`

	// CreatedBy is the owner identity that created the group.
	CreatedBy string `json:"createdBy,omitempty"`

	CreatedAt time.Time `json:"createdAt"`

	// Bills is the group-scoped mirror of this group's bills.
	Bills []Bill `json:"bills"`

	// extra holds unrecognized fields from older/newer payloads.
	extra map[string]json.RawMessage
}

// Validate is the structural check applied on load.
func (g *Group) Validate() bool {
	return g.ID != "" && g.Name != ""
}

// HasMember reports whether name is in the member list.
func (g *Group) HasMember(name string) bool {
	for _, m := range g.Members {
		if m == name {
			return true
		}
	}
	return false
}

// Total is the group's display total: a plain sum of bill amounts. It is a
// different computation from per-friend netting and must not be confused
// with it.
func (g *Group) Total() money.Money {
	var sum money.Money
	for i := range g.Bills {
		sum = sum.Add(g.Bills[i].Amount)
	}
	return sum
}

// Clone returns a deep copy of the group and its mirrored bills.
func (g *Group) Clone() Group {
	out := *g
	out.Members = append([]string(nil), g.Members...)
	out.Bills = make([]Bill, len(g.Bills))
	for i := range g.Bills {
		out.Bills[i] = g.Bills[i].Clone()
	}
	if g.extra != nil {
		out.extra = make(map[string]json.RawMessage, len(g.extra))
		for k, v := range g.extra {
			out.extra[k] = v
		}
	}
	return out
}

type groupAlias Group

// UnmarshalJSON decodes the known fields and retains anything it does not
// recognize for the next save.
func (g *Group) UnmarshalJSON(data []byte) error {
	var a groupAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := captureUnknown(data, a)
	if err != nil {
		return err
	}
	a.extra = extra
	*g = Group(a)
	return nil
}

// MarshalJSON writes the known fields plus any retained unknown fields.
func (g Group) MarshalJSON() ([]byte, error) {
	return mergeUnknown(groupAlias(g), g.extra)
}
