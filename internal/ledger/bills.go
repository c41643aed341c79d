package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mkale/splitledger/internal/allocator"
	"github.com/mkale/splitledger/internal/apperrors"
	"github.com/mkale/splitledger/internal/models"
	"github.com/mkale/splitledger/internal/money"
)

// BillInput is the raw, UI-supplied material for creating or replacing a
// bill. Strings arrive already trimmed by the caller; the ledger
// re-validates everything regardless.
type BillInput struct {
	Name        string
	Amount      string // decimal string, e.g. "100.00"
	CurrencyTag string
	Payer       string
	SplitWith   []string // participant identifiers; payer may be omitted
	Policy      models.SplitPolicy
	// CustomAmounts supplies the per-participant share for SplitCustom,
	// keyed by participant identifier, as decimal strings.
	CustomAmounts map[string]string
	Date          time.Time
	Note          string
	PhotoRef      string
	GroupRef      string
}

// buildBill validates input and assembles an unsaved record. ID and
// timestamps are the caller's responsibility.
func (l *Ledger) buildBill(input BillInput) (models.Bill, error) {
	name, err := validateName(input.Name)
	if err != nil {
		return models.Bill{}, err
	}
	note, err := validateNote(input.Note)
	if err != nil {
		return models.Bill{}, err
	}
	if input.Payer == "" {
		return models.Bill{}, fmt.Errorf("%w: payer is required", apperrors.ErrValidation)
	}

	amount, err := l.parseAmount(input.Amount)
	if err != nil {
		return models.Bill{}, err
	}

	currency := input.CurrencyTag
	if input.GroupRef != "" {
		g := l.findGroup(input.GroupRef)
		if g == nil {
			return models.Bill{}, fmt.Errorf("group %q: %w", input.GroupRef, apperrors.ErrNotFound)
		}
		if currency == "" {
			currency = g.CurrencyTag
		}
	}

	participants := allocator.Normalize(input.Payer, input.SplitWith)
	allocation, err := allocator.Allocate(amount, input.Payer, participants, input.Policy, input.CustomAmounts)
	if err != nil {
		return models.Bill{}, err
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	return models.Bill{
		Name:         name,
		Amount:       amount,
		CurrencyTag:  currency,
		Payer:        input.Payer,
		Participants: participants,
		Policy:       input.Policy,
		Allocation:   allocation,
		Date:         date,
		Note:         note,
		PhotoRef:     input.PhotoRef,
		GroupRef:     input.GroupRef,
	}, nil
}

// AddBill validates input, computes the allocation, persists the new bill
// (and its group mirror, in lockstep) and returns the stored record.
func (l *Ledger) AddBill(ctx context.Context, input BillInput) (models.Bill, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bill, err := l.buildBill(input)
	if err != nil {
		return models.Bill{}, err
	}

	now := time.Now().UTC()
	bill.ID = newID()
	bill.CreatedAt = now
	bill.UpdatedAt = now

	newBills := append(cloneBills(l.bills), bill)

	newGroups, groupsChanged := l.groups, false
	if bill.GroupRef != "" {
		newGroups = cloneGroups(l.groups)
		g := findGroupIn(newGroups, bill.GroupRef)
		g.Bills = append(g.Bills, bill.Clone())
		extendMembers(g, bill.Participants)
		groupsChanged = true
	}

	newFriends, friendsChanged := l.withAutoFriends(bill.Participants)

	if err := l.persist(ctx, newBills, newGroups, groupsChanged, newFriends, friendsChanged); err != nil {
		return models.Bill{}, err
	}

	l.bills, l.groups, l.friends = newBills, newGroups, newFriends
	slog.Info("Bill added", "id", bill.ID, "name", bill.Name, "amount", bill.Amount, "group", bill.GroupRef)
	return bill.Clone(), nil
}

// UpdateBill replaces the stored record wholesale. The allocation is
// recomputed from input; an edit that breaks the split invariant is
// rejected with no partial application. Both the global copy and the group
// mirror are updated in lockstep, including moves between groups.
func (l *Ledger) UpdateBill(ctx context.Context, id string, input BillInput) (models.Bill, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.findBillIndex(id)
	if idx < 0 {
		return models.Bill{}, fmt.Errorf("bill %q: %w", id, apperrors.ErrNotFound)
	}
	old := l.bills[idx]

	bill, err := l.buildBill(input)
	if err != nil {
		return models.Bill{}, err
	}
	bill.ID = old.ID
	bill.CreatedAt = old.CreatedAt
	bill.UpdatedAt = time.Now().UTC()

	newBills := cloneBills(l.bills)
	newBills[idx] = bill

	newGroups, groupsChanged := l.groups, false
	if old.GroupRef != "" || bill.GroupRef != "" {
		newGroups = cloneGroups(l.groups)
		groupsChanged = true
		if old.GroupRef != "" && old.GroupRef != bill.GroupRef {
			if g := findGroupIn(newGroups, old.GroupRef); g != nil {
				removeGroupBill(g, bill.ID)
			}
		}
		if bill.GroupRef != "" {
			g := findGroupIn(newGroups, bill.GroupRef)
			upsertGroupBill(g, bill.Clone())
			extendMembers(g, bill.Participants)
		}
	}

	newFriends, friendsChanged := l.withAutoFriends(bill.Participants)

	if err := l.persist(ctx, newBills, newGroups, groupsChanged, newFriends, friendsChanged); err != nil {
		return models.Bill{}, err
	}

	l.bills, l.groups, l.friends = newBills, newGroups, newFriends
	slog.Info("Bill updated", "id", bill.ID, "name", bill.Name)
	return bill.Clone(), nil
}

// DeleteBill removes the record from the global list and, when it belongs
// to a group, from that group's mirror.
func (l *Ledger) DeleteBill(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.findBillIndex(id)
	if idx < 0 {
		return fmt.Errorf("bill %q: %w", id, apperrors.ErrNotFound)
	}
	old := l.bills[idx]

	newBills := append(cloneBills(l.bills[:idx]), cloneBills(l.bills[idx+1:])...)

	newGroups, groupsChanged := l.groups, false
	if old.GroupRef != "" {
		newGroups = cloneGroups(l.groups)
		if g := findGroupIn(newGroups, old.GroupRef); g != nil {
			removeGroupBill(g, id)
		}
		groupsChanged = true
	}

	if err := l.persist(ctx, newBills, newGroups, groupsChanged, nil, false); err != nil {
		return err
	}

	l.bills, l.groups = newBills, newGroups
	slog.Info("Bill deleted", "id", id)
	return nil
}

// Bills returns a snapshot copy of the global bill list.
func (l *Ledger) Bills() []models.Bill {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneBills(l.bills)
}

// Bill returns a copy of one record by ID.
func (l *Ledger) Bill(id string) (models.Bill, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.findBillIndex(id)
	if idx < 0 {
		return models.Bill{}, fmt.Errorf("bill %q: %w", id, apperrors.ErrNotFound)
	}
	return l.bills[idx].Clone(), nil
}

// parseAmount parses a UI-supplied total and requires it to be positive.
func (l *Ledger) parseAmount(raw string) (money.Money, error) {
	m, err := money.Parse(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", apperrors.ErrInvalidAmount, raw)
	}
	if !m.IsPositive() {
		return 0, fmt.Errorf("%w: total must be positive, got %s", apperrors.ErrInvalidAmount, m)
	}
	return m, nil
}

func (l *Ledger) findBillIndex(id string) int {
	for i := range l.bills {
		if l.bills[i].ID == id {
			return i
		}
	}
	return -1
}

// persist writes the changed collections. Saves are full replaces; memory
// is only updated by the caller after every save succeeded, so a failure
// here leaves the in-memory source of truth untouched.
func (l *Ledger) persist(ctx context.Context, bills []models.Bill, groups []models.Group, groupsChanged bool, friends []models.Friend, friendsChanged bool) error {
	if bills != nil {
		if err := l.store.SaveBills(ctx, l.owner, bills); err != nil {
			return err
		}
	}
	if groupsChanged {
		if err := l.store.SaveGroups(ctx, l.owner, groups); err != nil {
			return err
		}
	}
	if friendsChanged {
		if err := l.store.SaveFriends(ctx, l.owner, friends); err != nil {
			return err
		}
	}
	return nil
}

func cloneBills(bills []models.Bill) []models.Bill {
	out := make([]models.Bill, len(bills))
	for i := range bills {
		out[i] = bills[i].Clone()
	}
	return out
}
