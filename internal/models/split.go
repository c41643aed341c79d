package models

import "github.com/mkale/splitledger/internal/money"

// SplitPolicy is the rule used to divide a bill's amount among its
// participants.
type SplitPolicy string

const (
	// SplitEqual divides the total into equal shares, distributing the
	// integer remainder one minor unit at a time in participant order.
	SplitEqual SplitPolicy = "equal"

	// SplitCustom uses caller-supplied per-participant amounts that must
	// reconcile with the total to within one minor unit.
	SplitCustom SplitPolicy = "custom"
)

// Valid reports whether p is a known policy.
func (p SplitPolicy) Valid() bool {
	return p == SplitEqual || p == SplitCustom
}

// Allocation maps a participant identifier to that participant's share of a
// bill. Its key set is always exactly the bill's participant set.
type Allocation map[string]money.Money

// Total sums all shares.
func (a Allocation) Total() money.Money {
	var sum money.Money
	for _, v := range a {
		sum = sum.Add(v)
	}
	return sum
}

// Clone returns an independent copy of the allocation.
func (a Allocation) Clone() Allocation {
	if a == nil {
		return nil
	}
	out := make(Allocation, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
