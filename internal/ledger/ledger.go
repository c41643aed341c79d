// Package ledger owns the in-memory record collections for one owner and
// is the single mutation path into them. Every write validates first,
// persists second, and only then updates the in-memory state, so a failed
// save never leaves the UI believing unsaved data is durable.
//
// Mutations are serialized by an internal mutex: the store's saves are
// full-collection overwrites, so concurrent writers would silently drop
// each other's changes. Reads return deep copies and may run freely.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mkale/splitledger/internal/apperrors"
	"github.com/mkale/splitledger/internal/balance"
	"github.com/mkale/splitledger/internal/models"
	"github.com/mkale/splitledger/internal/money"
)

// Name length bounds for bills, groups and friends.
const (
	minNameLen = 2
	maxNameLen = 60
)

// maxNoteWords bounds the free-text note on a bill.
const maxNoteWords = 100

// Store is the persistence gateway the ledger talks to. Implemented by
// storage.LedgerStore; narrowed to an interface so tests can inject
// failing stores.
type Store interface {
	LoadBills(ctx context.Context, owner string) ([]models.Bill, error)
	SaveBills(ctx context.Context, owner string, bills []models.Bill) error
	LoadGroups(ctx context.Context, owner string) ([]models.Group, error)
	SaveGroups(ctx context.Context, owner string, groups []models.Group) error
	LoadFriends(ctx context.Context, owner string) ([]models.Friend, error)
	SaveFriends(ctx context.Context, owner string, friends []models.Friend) error
}

// Ledger is the full collection of bills, groups and friends for one owner
// identity.
type Ledger struct {
	mu    sync.Mutex
	owner string
	store Store

	bills   []models.Bill
	groups  []models.Group
	friends []models.Friend
}

// Open loads the owner's collections from the store. Loading is best
// effort: a collection that fails to load starts empty rather than
// aborting the open.
func Open(ctx context.Context, store Store, owner string) (*Ledger, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, fmt.Errorf("%w: owner identity is required", apperrors.ErrValidation)
	}

	l := &Ledger{owner: owner, store: store}

	var err error
	if l.bills, err = store.LoadBills(ctx, owner); err != nil {
		slog.Warn("Loading bills failed, starting empty", "owner", owner, "error", err)
		l.bills = []models.Bill{}
	}
	if l.groups, err = store.LoadGroups(ctx, owner); err != nil {
		slog.Warn("Loading groups failed, starting empty", "owner", owner, "error", err)
		l.groups = []models.Group{}
	}
	if l.friends, err = store.LoadFriends(ctx, owner); err != nil {
		slog.Warn("Loading friends failed, starting empty", "owner", owner, "error", err)
		l.friends = []models.Friend{}
	}

	slog.Info("Ledger opened",
		"owner", owner,
		"bills", len(l.bills),
		"groups", len(l.groups),
		"friends", len(l.friends),
	)
	return l, nil
}

// Owner returns the owner identity this ledger is scoped to.
func (l *Ledger) Owner() string { return l.owner }

// Self returns the owner as a resolved participant.
func (l *Ledger) Self() models.Participant {
	return models.Participant{ID: l.owner, Kind: models.KindSelf}
}

// Resolve maps a participant identifier to its resolved identity: the
// owner resolves to Self, a known friend resolves to Friend, anything else
// is ErrNotFound.
func (l *Ledger) Resolve(id string) (models.Participant, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if id == l.owner {
		return l.Self(), nil
	}
	for i := range l.friends {
		if l.friends[i].Name == id {
			return models.Participant{ID: id, Kind: models.KindFriend}, nil
		}
	}
	return models.Participant{}, fmt.Errorf("participant %q: %w", id, apperrors.ErrNotFound)
}

// NetBalances nets every bill into per-counterparty signed balances from
// the owner's perspective: positive means that friend owes the owner.
func (l *Ledger) NetBalances() map[string]money.Money {
	l.mu.Lock()
	defer l.mu.Unlock()
	return balance.NetBalances(l.bills, l.owner)
}

// Summary rolls the owner's balances up into owed/owing totals.
func (l *Ledger) Summary() balance.Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	return balance.Summarize(l.bills, l.owner)
}

// GroupNetBalances nets only the given group's bills, from the owner's
// perspective.
func (l *Ledger) GroupNetBalances(groupID string) (map[string]money.Money, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	g := l.findGroup(groupID)
	if g == nil {
		return nil, fmt.Errorf("group %q: %w", groupID, apperrors.ErrNotFound)
	}
	return balance.NetBalances(g.Bills, l.owner), nil
}

// SettleUp suggests the shortest list of transfers that would clear all
// debts inside a group. Suggestions only: the ledger never executes
// payments.
func (l *Ledger) SettleUp(groupID string) ([]balance.Transfer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	g := l.findGroup(groupID)
	if g == nil {
		return nil, fmt.Errorf("group %q: %w", groupID, apperrors.ErrNotFound)
	}
	return balance.Simplify(balance.GroupNet(g.Bills)), nil
}

// newID returns a time-ordered opaque identifier.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does; fall back to v4.
		return uuid.NewString()
	}
	return id.String()
}

// validateName enforces the shared display-name bounds.
func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len(name) < minNameLen {
		return "", fmt.Errorf("%w: %q", apperrors.ErrNameTooShort, name)
	}
	if len(name) > maxNameLen {
		return "", fmt.Errorf("%w: %d characters, max %d", apperrors.ErrNameTooLong, len(name), maxNameLen)
	}
	return name, nil
}

// validateNote bounds the free-text note.
func validateNote(note string) (string, error) {
	note = strings.TrimSpace(note)
	if len(strings.Fields(note)) > maxNoteWords {
		return "", apperrors.ErrNoteTooLong
	}
	return note, nil
}
