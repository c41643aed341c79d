package storage_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkale/splitledger/internal/apperrors"
	"github.com/mkale/splitledger/internal/models"
	"github.com/mkale/splitledger/internal/money"
	"github.com/mkale/splitledger/internal/storage"
	"github.com/mkale/splitledger/internal/storage/memkv"
)

func testBill(id, name string) models.Bill {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return models.Bill{
		ID:           id,
		Name:         name,
		Amount:       money.MustParse("30.00"),
		CurrencyTag:  "USD",
		Payer:        "Alice",
		Participants: []string{"Alice", "Bob"},
		Policy:       models.SplitEqual,
		Allocation: models.Allocation{
			"Alice": money.MustParse("15.00"),
			"Bob":   money.MustParse("15.00"),
		},
		Date:      now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestLoadMissingKeyIsEmpty(t *testing.T) {
	store := storage.NewLedgerStore(memkv.New())
	ctx := context.Background()

	bills, err := store.LoadBills(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, bills)
}

func TestBillRoundTrip(t *testing.T) {
	kv := memkv.New()
	store := storage.NewLedgerStore(kv)
	ctx := context.Background()

	in := []models.Bill{testBill("b1", "Dinner"), testBill("b2", "Cab")}
	require.NoError(t, store.SaveBills(ctx, "alice", in))

	out, err := store.LoadBills(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestAppendAndRemoveBill(t *testing.T) {
	store := storage.NewLedgerStore(memkv.New())
	ctx := context.Background()

	require.NoError(t, store.AppendBill(ctx, "alice", testBill("b1", "Dinner")))
	require.NoError(t, store.AppendBill(ctx, "alice", testBill("b2", "Cab")))

	bills, err := store.LoadBills(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, bills, 2)

	require.NoError(t, store.RemoveBill(ctx, "alice", "b1"))
	bills, err = store.LoadBills(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, bills, 1)
	assert.Equal(t, "b2", bills[0].ID)

	err = store.RemoveBill(ctx, "alice", "b1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOwnerScoping(t *testing.T) {
	kv := memkv.New()
	store := storage.NewLedgerStore(kv)
	ctx := context.Background()

	require.NoError(t, store.SaveFriends(ctx, "alice", []models.Friend{{Name: "Bob"}}))
	require.NoError(t, store.SaveGroups(ctx, "alice", []models.Group{{ID: "g1", Name: "Trip"}}))

	// Another owner must see none of it.
	friends, err := store.LoadFriends(ctx, "mallory")
	require.NoError(t, err)
	assert.Empty(t, friends)

	groups, err := store.LoadGroups(ctx, "mallory")
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestUnknownFieldsSurviveRoundTrip(t *testing.T) {
	kv := memkv.New()
	store := storage.NewLedgerStore(kv)
	ctx := context.Background()

	// A payload written by a newer build, with a field this build does not
	// know about.
	payload := `[{
		"id": "b1", "name": "Dinner", "amount": "30.00", "payer": "Alice",
		"participants": ["Alice", "Bob"], "policy": "equal",
		"allocation": {"Alice": "15.00", "Bob": "15.00"},
		"date": "2025-06-01T12:00:00Z",
		"createdAt": "2025-06-01T12:00:00Z", "updatedAt": "2025-06-01T12:00:00Z",
		"syncCursor": {"device": "phone-2", "seq": 41}
	}]`
	require.NoError(t, kv.Set(ctx, "bills:alice", []byte(payload)))

	bills, err := store.LoadBills(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, bills, 1)

	require.NoError(t, store.SaveBills(ctx, "alice", bills))

	raw, err := kv.Get(ctx, "bills:alice")
	require.NoError(t, err)

	var docs []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &docs))
	require.Len(t, docs, 1)
	assert.JSONEq(t, `{"device": "phone-2", "seq": 41}`, string(docs[0]["syncCursor"]))
}

func TestInvalidRecordsAreDropped(t *testing.T) {
	kv := memkv.New()
	store := storage.NewLedgerStore(kv)
	ctx := context.Background()

	// Second record is missing its id, third is not even an object.
	payload := `[
		{"id": "b1", "name": "Dinner", "amount": "30.00", "payer": "Alice",
		 "participants": ["Alice", "Bob"], "policy": "equal",
		 "allocation": {"Alice": "15.00", "Bob": "15.00"},
		 "date": "2025-06-01T12:00:00Z",
		 "createdAt": "2025-06-01T12:00:00Z", "updatedAt": "2025-06-01T12:00:00Z"},
		{"name": "No ID", "amount": "1.00", "payer": "X",
		 "participants": ["X", "Y"], "policy": "equal"},
		"not a record"
	]`
	require.NoError(t, kv.Set(ctx, "bills:alice", []byte(payload)))

	bills, err := store.LoadBills(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, bills, 1)
	assert.Equal(t, "b1", bills[0].ID)
}

func TestNonArrayPayloadIsCorrupt(t *testing.T) {
	kv := memkv.New()
	store := storage.NewLedgerStore(kv)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "bills:alice", []byte(`{"oops": true}`)))

	_, err := store.LoadBills(ctx, "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStorage)

	var storageErr *apperrors.StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, apperrors.CorruptCollection, storageErr.Kind)
}

func TestBackendFailureIsUnavailable(t *testing.T) {
	store := storage.NewLedgerStore(failingKV{err: errors.New("connection refused")})
	ctx := context.Background()

	_, err := store.LoadBills(ctx, "alice")
	require.Error(t, err)

	var storageErr *apperrors.StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, apperrors.Unavailable, storageErr.Kind)

	err = store.SaveBills(ctx, "alice", []models.Bill{testBill("b1", "Dinner")})
	require.Error(t, err)
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, apperrors.Unavailable, storageErr.Kind)
}

// failingKV errors on every operation.
type failingKV struct {
	err error
}

func (f failingKV) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingKV) Set(context.Context, string, []byte) error   { return f.err }
func (f failingKV) Delete(context.Context, string) error        { return f.err }
func (f failingKV) Close() error                                { return nil }
