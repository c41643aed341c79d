// Package allocator computes per-participant shares for a bill.
//
// This is the single validated computation path for splits: every surface
// that creates or edits a bill goes through Allocate, so the equal and
// custom policies cannot drift apart between callers.
package allocator

import (
	"fmt"

	"github.com/mkale/splitledger/internal/apperrors"
	"github.com/mkale/splitledger/internal/models"
	"github.com/mkale/splitledger/internal/money"
)

// customTolerance is the largest acceptable gap between the sum of custom
// shares and the bill total. One minor unit absorbs decimal-entry rounding.
const customTolerance = money.Money(1)

// Normalize de-duplicates participants preserving first-seen order and
// guarantees the payer is part of the set. The result is the canonical
// participant list stored on the bill.
func Normalize(payer string, participants []string) []string {
	out := make([]string, 0, len(participants)+1)
	seen := make(map[string]bool, len(participants)+1)
	for _, p := range participants {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	if payer != "" && !seen[payer] {
		out = append(out, payer)
	}
	return out
}

// Allocate divides total among participants according to policy.
//
// The participant list is normalized first (de-duplicated, payer included).
// For SplitCustom, customAmounts must supply a strictly-positive decimal
// string for every participant in the normalized set.
//
// On success the returned allocation's key set equals the normalized
// participant set and its sum reconciles with total: exactly for
// SplitEqual, to within one minor unit for SplitCustom.
func Allocate(total money.Money, payer string, participants []string, policy models.SplitPolicy, customAmounts map[string]string) (models.Allocation, error) {
	if total.IsNegative() || total.IsZero() {
		return nil, fmt.Errorf("%w: total must be positive, got %s", apperrors.ErrInvalidAmount, total)
	}

	normalized := Normalize(payer, participants)
	if len(normalized) == 0 {
		return nil, apperrors.ErrMissingParticipants
	}
	if len(normalized) == 1 && normalized[0] == payer {
		return nil, apperrors.ErrSelfOnlySplit
	}

	switch policy {
	case models.SplitEqual:
		return allocateEqual(total, normalized), nil
	case models.SplitCustom:
		return allocateCustom(total, normalized, customAmounts)
	default:
		return nil, fmt.Errorf("%w: unknown split policy %q", apperrors.ErrValidation, policy)
	}
}

// allocateEqual hands every participant the integer share and distributes
// the remainder one minor unit at a time in participant order. The fixed
// order makes the result deterministic, so re-submitting an unchanged edit
// reproduces the identical allocation.
func allocateEqual(total money.Money, participants []string) models.Allocation {
	share, remainder := total.Split(len(participants))

	alloc := make(models.Allocation, len(participants))
	for i, p := range participants {
		s := share
		if money.Money(i) < remainder {
			s = s.Add(money.FromMinorUnits(1))
		}
		alloc[p] = s
	}
	return alloc
}

// allocateCustom parses the supplied per-participant amounts and checks
// that they reconcile with the bill total.
func allocateCustom(total money.Money, participants []string, customAmounts map[string]string) (models.Allocation, error) {
	alloc := make(models.Allocation, len(participants))
	var sum money.Money
	for _, p := range participants {
		raw, ok := customAmounts[p]
		if !ok {
			return nil, fmt.Errorf("%w: no amount supplied for %q", apperrors.ErrInvalidAmount, p)
		}
		m, err := money.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q for %q", apperrors.ErrInvalidAmount, raw, p)
		}
		if !m.IsPositive() {
			return nil, fmt.Errorf("%w: amount for %q must be positive, got %s", apperrors.ErrInvalidAmount, p, m)
		}
		alloc[p] = m
		sum = sum.Add(m)
	}

	if sum.Sub(total).Abs().Cmp(customTolerance) > 0 {
		return nil, &apperrors.SplitMismatchError{Supplied: sum, Expected: total}
	}
	return alloc, nil
}
