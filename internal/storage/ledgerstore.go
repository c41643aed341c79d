package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mkale/splitledger/internal/apperrors"
	"github.com/mkale/splitledger/internal/models"
)

// LedgerStore persists record collections as JSON arrays in a KV backend.
//
// Keys are scoped by owner identity, so switching owners never leaks
// another owner's bills, groups or friends. Saves are full-collection
// replaces: there are no partial or delta writes, and two concurrent saves
// of the same collection are last-write-wins. The ledger layer serializes
// mutations for this reason.
//
// Loads are best effort: a record that fails structural validation is
// dropped with a warning instead of aborting the whole collection.
type LedgerStore struct {
	kv KV
}

// NewLedgerStore wraps a KV backend.
func NewLedgerStore(kv KV) *LedgerStore {
	return &LedgerStore{kv: kv}
}

// Close closes the underlying backend.
func (s *LedgerStore) Close() error {
	return s.kv.Close()
}

func billsKey(owner string) string   { return "bills:" + owner }
func groupsKey(owner string) string  { return "groups:" + owner }
func friendsKey(owner string) string { return "friends:" + owner }

// LoadBills returns the owner's bill list. A never-written key yields an
// empty list, not an error.
func (s *LedgerStore) LoadBills(ctx context.Context, owner string) ([]models.Bill, error) {
	return loadCollection(ctx, s.kv, "load bills", billsKey(owner), (*models.Bill).Validate)
}

// SaveBills replaces the owner's bill list.
func (s *LedgerStore) SaveBills(ctx context.Context, owner string, bills []models.Bill) error {
	return saveCollection(ctx, s.kv, "save bills", billsKey(owner), bills)
}

// AppendBill loads the owner's bill list, appends the record and saves the
// result. Callers that already hold the collection in memory should prefer
// SaveBills; this is the convenience path for one-off writers.
func (s *LedgerStore) AppendBill(ctx context.Context, owner string, bill models.Bill) error {
	bills, err := s.LoadBills(ctx, owner)
	if err != nil {
		return err
	}
	return s.SaveBills(ctx, owner, append(bills, bill))
}

// RemoveBill loads the owner's bill list, drops the record with the given
// ID and saves the result. Removing an unknown ID is an ErrNotFound.
func (s *LedgerStore) RemoveBill(ctx context.Context, owner, id string) error {
	bills, err := s.LoadBills(ctx, owner)
	if err != nil {
		return err
	}
	kept := bills[:0]
	found := false
	for _, b := range bills {
		if b.ID == id {
			found = true
			continue
		}
		kept = append(kept, b)
	}
	if !found {
		return fmt.Errorf("bill %q: %w", id, apperrors.ErrNotFound)
	}
	return s.SaveBills(ctx, owner, kept)
}

// LoadGroups returns the owner's group list.
func (s *LedgerStore) LoadGroups(ctx context.Context, owner string) ([]models.Group, error) {
	return loadCollection(ctx, s.kv, "load groups", groupsKey(owner), (*models.Group).Validate)
}

// SaveGroups replaces the owner's group list.
func (s *LedgerStore) SaveGroups(ctx context.Context, owner string, groups []models.Group) error {
	return saveCollection(ctx, s.kv, "save groups", groupsKey(owner), groups)
}

// LoadFriends returns the owner's friend list.
func (s *LedgerStore) LoadFriends(ctx context.Context, owner string) ([]models.Friend, error) {
	return loadCollection(ctx, s.kv, "load friends", friendsKey(owner), func(f *models.Friend) bool {
		return f.Name != ""
	})
}

// SaveFriends replaces the owner's friend list.
func (s *LedgerStore) SaveFriends(ctx context.Context, owner string, friends []models.Friend) error {
	return saveCollection(ctx, s.kv, "save friends", friendsKey(owner), friends)
}

// loadCollection reads a JSON array from the backend, decoding records one
// at a time so a single bad record cannot poison the rest.
func loadCollection[T any](ctx context.Context, kv KV, op, key string, validate func(*T) bool) ([]T, error) {
	data, err := kv.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, &apperrors.StorageError{Op: op, Kind: apperrors.Unavailable, Err: err}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &apperrors.StorageError{Op: op, Kind: apperrors.CorruptCollection, Err: err}
	}

	out := make([]T, 0, len(raw))
	for i, r := range raw {
		var rec T
		if err := json.Unmarshal(r, &rec); err != nil {
			slog.Warn("Dropping undecodable record", "op", op, "key", key, "index", i, "error", err)
			continue
		}
		if !validate(&rec) {
			slog.Warn("Dropping structurally invalid record", "op", op, "key", key, "index", i)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// saveCollection marshals the full collection and overwrites the key.
func saveCollection[T any](ctx context.Context, kv KV, op, key string, records []T) error {
	if records == nil {
		records = []T{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return &apperrors.StorageError{Op: op, Kind: apperrors.SerializationFailure, Err: err}
	}
	if err := kv.Set(ctx, key, data); err != nil {
		return &apperrors.StorageError{Op: op, Kind: apperrors.Unavailable, Err: err}
	}
	return nil
}
