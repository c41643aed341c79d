package ledger_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkale/splitledger/internal/apperrors"
	"github.com/mkale/splitledger/internal/ledger"
	"github.com/mkale/splitledger/internal/models"
	"github.com/mkale/splitledger/internal/money"
	"github.com/mkale/splitledger/internal/storage"
	"github.com/mkale/splitledger/internal/storage/memkv"
)

func openTestLedger(t *testing.T) (*ledger.Ledger, *storage.LedgerStore) {
	t.Helper()
	store := storage.NewLedgerStore(memkv.New())
	led, err := ledger.Open(context.Background(), store, "Alice")
	require.NoError(t, err)
	return led, store
}

func dinnerInput() ledger.BillInput {
	return ledger.BillInput{
		Name:      "Dinner",
		Amount:    "100.00",
		Payer:     "Alice",
		SplitWith: []string{"Alice", "Bob", "Carol"},
		Policy:    models.SplitEqual,
	}
}

func TestAddBill(t *testing.T) {
	led, _ := openTestLedger(t)
	ctx := context.Background()

	bill, err := led.AddBill(ctx, dinnerInput())
	require.NoError(t, err)

	assert.NotEmpty(t, bill.ID)
	assert.False(t, bill.CreatedAt.IsZero())
	assert.Equal(t, bill.CreatedAt, bill.UpdatedAt)
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, bill.Participants)

	// Remainder lands on the first participant in input order.
	assert.Equal(t, money.MustParse("33.34"), bill.Allocation["Alice"])
	assert.Equal(t, money.MustParse("33.33"), bill.Allocation["Bob"])
	assert.Equal(t, money.MustParse("33.33"), bill.Allocation["Carol"])
	assert.Equal(t, bill.Amount, bill.Allocation.Total())

	bills := led.Bills()
	require.Len(t, bills, 1)
	assert.Equal(t, bill, bills[0])
}

func TestAddBillValidation(t *testing.T) {
	led, _ := openTestLedger(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*ledger.BillInput)
		wantErr error
	}{
		{
			name:    "name too short",
			mutate:  func(in *ledger.BillInput) { in.Name = "D" },
			wantErr: apperrors.ErrNameTooShort,
		},
		{
			name:    "name too long",
			mutate:  func(in *ledger.BillInput) { in.Name = strings.Repeat("x", 61) },
			wantErr: apperrors.ErrNameTooLong,
		},
		{
			name:    "note too long",
			mutate:  func(in *ledger.BillInput) { in.Note = strings.Repeat("word ", 101) },
			wantErr: apperrors.ErrNoteTooLong,
		},
		{
			name:    "bad amount",
			mutate:  func(in *ledger.BillInput) { in.Amount = "lots" },
			wantErr: apperrors.ErrInvalidAmount,
		},
		{
			name:    "self-only split",
			mutate:  func(in *ledger.BillInput) { in.SplitWith = []string{"Alice"} },
			wantErr: apperrors.ErrSelfOnlySplit,
		},
		{
			name:    "unknown group",
			mutate:  func(in *ledger.BillInput) { in.GroupRef = "nope" },
			wantErr: apperrors.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := dinnerInput()
			tt.mutate(&in)
			_, err := led.AddBill(ctx, in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// No mutation may have leaked through.
	assert.Empty(t, led.Bills())
}

func TestEditIsIdempotent(t *testing.T) {
	led, _ := openTestLedger(t)
	ctx := context.Background()

	bill, err := led.AddBill(ctx, dinnerInput())
	require.NoError(t, err)

	// Re-submitting the unchanged form must reproduce the allocation.
	edited, err := led.UpdateBill(ctx, bill.ID, dinnerInput())
	require.NoError(t, err)
	assert.Equal(t, bill.Allocation, edited.Allocation)
	assert.Equal(t, bill.CreatedAt, edited.CreatedAt)
}

func TestUpdateBillRejectedWholesale(t *testing.T) {
	led, _ := openTestLedger(t)
	ctx := context.Background()

	bill, err := led.AddBill(ctx, dinnerInput())
	require.NoError(t, err)

	// Custom amounts that no longer reconcile: the whole edit is rejected.
	in := dinnerInput()
	in.Policy = models.SplitCustom
	in.CustomAmounts = map[string]string{
		"Alice": "50.00", "Bob": "30.00", "Carol": "30.00",
	}
	_, err = led.UpdateBill(ctx, bill.ID, in)
	require.Error(t, err)

	var mismatch *apperrors.SplitMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, money.MustParse("110.00"), mismatch.Supplied)

	unchanged, err := led.Bill(bill.ID)
	require.NoError(t, err)
	assert.Equal(t, bill, unchanged)
}

func TestGroupMirrorLockstep(t *testing.T) {
	led, _ := openTestLedger(t)
	ctx := context.Background()

	group, err := led.CreateGroup(ctx, ledger.GroupInput{
		Name:        "Ski Trip",
		CurrencyTag: "EUR",
		Members:     []string{"Alice", "Bob"},
	})
	require.NoError(t, err)

	in := dinnerInput()
	in.GroupRef = group.ID
	bill, err := led.AddBill(ctx, in)
	require.NoError(t, err)

	// Currency is inherited from the group when the input leaves it empty.
	assert.Equal(t, "EUR", bill.CurrencyTag)

	// The mirror carries the same record, and Carol was auto-added to the
	// member list.
	g, err := led.Group(group.ID)
	require.NoError(t, err)
	require.Len(t, g.Bills, 1)
	assert.Equal(t, bill, g.Bills[0])
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, g.Members)

	// Edit: both copies change together, and the mirror keeps the actual
	// policy and allocation, not a hardcoded equal split.
	edit := in
	edit.Policy = models.SplitCustom
	edit.CustomAmounts = map[string]string{
		"Alice": "50.00", "Bob": "25.00", "Carol": "25.00",
	}
	edited, err := led.UpdateBill(ctx, bill.ID, edit)
	require.NoError(t, err)

	g, err = led.Group(group.ID)
	require.NoError(t, err)
	require.Len(t, g.Bills, 1)
	assert.Equal(t, edited, g.Bills[0])
	assert.Equal(t, models.SplitCustom, g.Bills[0].Policy)
	assert.Equal(t, money.MustParse("50.00"), g.Bills[0].Allocation["Alice"])

	// Delete: gone from both.
	require.NoError(t, led.DeleteBill(ctx, bill.ID))
	assert.Empty(t, led.Bills())
	g, err = led.Group(group.ID)
	require.NoError(t, err)
	assert.Empty(t, g.Bills)
}

func TestMoveBillBetweenGroups(t *testing.T) {
	led, _ := openTestLedger(t)
	ctx := context.Background()

	first, err := led.CreateGroup(ctx, ledger.GroupInput{Name: "Trip A", Members: []string{"Alice", "Bob"}})
	require.NoError(t, err)
	second, err := led.CreateGroup(ctx, ledger.GroupInput{Name: "Trip B", Members: []string{"Alice", "Bob"}})
	require.NoError(t, err)

	in := dinnerInput()
	in.GroupRef = first.ID
	bill, err := led.AddBill(ctx, in)
	require.NoError(t, err)

	moved := in
	moved.GroupRef = second.ID
	_, err = led.UpdateBill(ctx, bill.ID, moved)
	require.NoError(t, err)

	a, err := led.GroupBills(first.ID)
	require.NoError(t, err)
	assert.Empty(t, a)

	b, err := led.GroupBills(second.ID)
	require.NoError(t, err)
	assert.Len(t, b, 1)
}

func TestRemoveMemberGuard(t *testing.T) {
	led, _ := openTestLedger(t)
	ctx := context.Background()

	group, err := led.CreateGroup(ctx, ledger.GroupInput{Name: "Flat", Members: []string{"Alice", "Bob", "Carol"}})
	require.NoError(t, err)

	in := dinnerInput()
	in.GroupRef = group.ID
	bill, err := led.AddBill(ctx, in)
	require.NoError(t, err)

	// Bob is on a bill: removal must be rejected and the group unchanged.
	err = led.RemoveMember(ctx, group.ID, "Bob")
	assert.ErrorIs(t, err, apperrors.ErrInvariant)

	g, err := led.Group(group.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, g.Members)

	// Once the bill is gone, removal goes through.
	require.NoError(t, led.DeleteBill(ctx, bill.ID))
	require.NoError(t, led.RemoveMember(ctx, group.ID, "Bob"))

	g, err = led.Group(group.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Carol"}, g.Members)
}

func TestDeleteGroupDetachesBills(t *testing.T) {
	led, _ := openTestLedger(t)
	ctx := context.Background()

	group, err := led.CreateGroup(ctx, ledger.GroupInput{Name: "Flat", Members: []string{"Alice", "Bob"}})
	require.NoError(t, err)

	in := dinnerInput()
	in.GroupRef = group.ID
	bill, err := led.AddBill(ctx, in)
	require.NoError(t, err)

	require.NoError(t, led.DeleteGroup(ctx, group.ID))

	_, err = led.Group(group.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// The expense history survives in the global list, detached.
	detached, err := led.Bill(bill.ID)
	require.NoError(t, err)
	assert.Empty(t, detached.GroupRef)
}

func TestFriends(t *testing.T) {
	led, _ := openTestLedger(t)
	ctx := context.Background()

	_, err := led.AddFriend(ctx, "Bob", "🦊")
	require.NoError(t, err)

	_, err = led.AddFriend(ctx, "Bob", "")
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)

	_, err = led.AddFriend(ctx, "Alice", "")
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)

	// Unknown bill participants are registered automatically.
	_, err = led.AddBill(ctx, dinnerInput())
	require.NoError(t, err)

	names := make([]string, 0)
	for _, f := range led.Friends() {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"Bob", "Carol"}, names)

	// Carol is still on a bill: removal is an invariant violation.
	err = led.RemoveFriend(ctx, "Carol")
	assert.ErrorIs(t, err, apperrors.ErrInvariant)

	// Resolution: owner is self, friends are friends, strangers are not
	// found.
	self, err := led.Resolve("Alice")
	require.NoError(t, err)
	assert.Equal(t, models.KindSelf, self.Kind)

	friend, err := led.Resolve("Bob")
	require.NoError(t, err)
	assert.Equal(t, models.KindFriend, friend.Kind)

	_, err = led.Resolve("Mallory")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestBalances(t *testing.T) {
	led, _ := openTestLedger(t)
	ctx := context.Background()

	_, err := led.AddBill(ctx, ledger.BillInput{
		Name:      "Dinner",
		Amount:    "30.00",
		Payer:     "Alice",
		SplitWith: []string{"Alice", "Bob", "Carol"},
		Policy:    models.SplitEqual,
	})
	require.NoError(t, err)

	net := led.NetBalances()
	assert.Equal(t, money.MustParse("10.00"), net["Bob"])
	assert.Equal(t, money.MustParse("10.00"), net["Carol"])

	summary := led.Summary()
	assert.Equal(t, money.MustParse("20.00"), summary.TotalOwedToSelf)
	assert.Equal(t, money.Zero, summary.TotalSelfOwes)
}

func TestSettleUp(t *testing.T) {
	led, _ := openTestLedger(t)
	ctx := context.Background()

	group, err := led.CreateGroup(ctx, ledger.GroupInput{Name: "Flat", Members: []string{"Alice", "Bob", "Carol"}})
	require.NoError(t, err)

	in := dinnerInput() // Alice fronts 100.00 for the three of them
	in.GroupRef = group.ID
	_, err = led.AddBill(ctx, in)
	require.NoError(t, err)

	transfers, err := led.SettleUp(group.ID)
	require.NoError(t, err)
	require.Len(t, transfers, 2)
	for _, tr := range transfers {
		assert.Equal(t, "Alice", tr.To)
		assert.Equal(t, money.MustParse("33.33"), tr.Amount)
	}
}

func TestLedgerReload(t *testing.T) {
	kv := memkv.New()
	store := storage.NewLedgerStore(kv)
	ctx := context.Background()

	led, err := ledger.Open(ctx, store, "Alice")
	require.NoError(t, err)
	bill, err := led.AddBill(ctx, dinnerInput())
	require.NoError(t, err)

	// A fresh ledger over the same backend sees the same state.
	reloaded, err := ledger.Open(ctx, store, "Alice")
	require.NoError(t, err)
	bills := reloaded.Bills()
	require.Len(t, bills, 1)
	assert.Equal(t, bill.ID, bills[0].ID)
	assert.Equal(t, bill.Allocation, bills[0].Allocation)

	// A different owner sees nothing.
	other, err := ledger.Open(ctx, store, "Oscar")
	require.NoError(t, err)
	assert.Empty(t, other.Bills())
}

// brokenStore wraps a real store but fails every save, to prove a failed
// persistence call never updates the in-memory source of truth.
type brokenStore struct {
	ledger.Store
}

func (b brokenStore) SaveBills(context.Context, string, []models.Bill) error {
	return &apperrors.StorageError{Op: "save bills", Kind: apperrors.Unavailable}
}

func (b brokenStore) SaveGroups(context.Context, string, []models.Group) error {
	return &apperrors.StorageError{Op: "save groups", Kind: apperrors.Unavailable}
}

func (b brokenStore) SaveFriends(context.Context, string, []models.Friend) error {
	return &apperrors.StorageError{Op: "save friends", Kind: apperrors.Unavailable}
}

func TestFailedSaveDoesNotMutateMemory(t *testing.T) {
	ctx := context.Background()
	led, err := ledger.Open(ctx, brokenStore{Store: storage.NewLedgerStore(memkv.New())}, "Alice")
	require.NoError(t, err)

	_, err = led.AddBill(ctx, dinnerInput())
	assert.ErrorIs(t, err, apperrors.ErrStorage)
	assert.Empty(t, led.Bills())

	_, err = led.CreateGroup(ctx, ledger.GroupInput{Name: "Flat", Members: []string{"Bob"}})
	assert.ErrorIs(t, err, apperrors.ErrStorage)
	assert.Empty(t, led.Groups())

	_, err = led.AddFriend(ctx, "Bob", "")
	assert.ErrorIs(t, err, apperrors.ErrStorage)
	assert.Empty(t, led.Friends())
}

func TestOpenSurvivesCorruptCollection(t *testing.T) {
	kv := memkv.New()
	store := storage.NewLedgerStore(kv)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "bills:Alice", []byte(`{"not":"an array"}`)))

	// The corrupt collection degrades to empty instead of failing the open.
	led, err := ledger.Open(ctx, store, "Alice")
	require.NoError(t, err)
	assert.Empty(t, led.Bills())
}
