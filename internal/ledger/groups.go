package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mkale/splitledger/internal/allocator"
	"github.com/mkale/splitledger/internal/apperrors"
	"github.com/mkale/splitledger/internal/models"
)

// GroupInput is the UI-supplied material for creating a group.
type GroupInput struct {
	Name        string
	Description string
	CurrencyTag string
	Members     []string
}

// CreateGroup validates input and persists a new group. At least one
// member is required at creation time.
func (l *Ledger) CreateGroup(ctx context.Context, input GroupInput) (models.Group, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	name, err := validateName(input.Name)
	if err != nil {
		return models.Group{}, err
	}

	members := allocator.Normalize("", input.Members)
	if len(members) == 0 {
		return models.Group{}, fmt.Errorf("%w: a group needs at least one member", apperrors.ErrValidation)
	}

	group := models.Group{
		ID:          newID(),
		Name:        name,
		Description: input.Description,
		CurrencyTag: input.CurrencyTag,
		Members:     members,
		CreatedBy:   l.owner,
		CreatedAt:   time.Now().UTC(),
		Bills:       []models.Bill{},
	}

	newGroups := append(cloneGroups(l.groups), group)
	newFriends, friendsChanged := l.withAutoFriends(members)

	if err := l.persist(ctx, nil, newGroups, true, newFriends, friendsChanged); err != nil {
		return models.Group{}, err
	}

	l.groups, l.friends = newGroups, newFriends
	slog.Info("Group created", "id", group.ID, "name", group.Name, "members", len(members))
	return group.Clone(), nil
}

// AddMember appends a member to the group's ordered member list.
func (l *Ledger) AddMember(ctx context.Context, groupID, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	name, err := validateName(name)
	if err != nil {
		return err
	}

	newGroups := cloneGroups(l.groups)
	g := findGroupIn(newGroups, groupID)
	if g == nil {
		return fmt.Errorf("group %q: %w", groupID, apperrors.ErrNotFound)
	}
	if g.HasMember(name) {
		return fmt.Errorf("%w: %q is already a member", apperrors.ErrDuplicate, name)
	}
	g.Members = append(g.Members, name)

	newFriends, friendsChanged := l.withAutoFriends([]string{name})

	if err := l.persist(ctx, nil, newGroups, true, newFriends, friendsChanged); err != nil {
		return err
	}

	l.groups, l.friends = newGroups, newFriends
	return nil
}

// RemoveMember removes a member from the group. The removal is rejected,
// not silently applied, while any bill in the group still references the
// member as payer or participant.
func (l *Ledger) RemoveMember(ctx context.Context, groupID, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	newGroups := cloneGroups(l.groups)
	g := findGroupIn(newGroups, groupID)
	if g == nil {
		return fmt.Errorf("group %q: %w", groupID, apperrors.ErrNotFound)
	}
	if !g.HasMember(name) {
		return fmt.Errorf("member %q: %w", name, apperrors.ErrNotFound)
	}

	for i := range g.Bills {
		if g.Bills[i].References(name) {
			return &apperrors.InvariantError{
				Op:     "remove member",
				Reason: fmt.Sprintf("%q still appears on bill %q", name, g.Bills[i].Name),
			}
		}
	}

	kept := g.Members[:0]
	for _, m := range g.Members {
		if m != name {
			kept = append(kept, m)
		}
	}
	g.Members = kept

	if err := l.persist(ctx, nil, newGroups, true, nil, false); err != nil {
		return err
	}

	l.groups = newGroups
	return nil
}

// DeleteGroup removes the group. Its bills survive in the global list with
// their group reference cleared, so the expense history is not lost.
func (l *Ledger) DeleteGroup(ctx context.Context, groupID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := -1
	for i := range l.groups {
		if l.groups[i].ID == groupID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("group %q: %w", groupID, apperrors.ErrNotFound)
	}

	newGroups := append(cloneGroups(l.groups[:idx]), cloneGroups(l.groups[idx+1:])...)

	newBills := cloneBills(l.bills)
	billsChanged := false
	for i := range newBills {
		if newBills[i].GroupRef == groupID {
			newBills[i].GroupRef = ""
			billsChanged = true
		}
	}
	if !billsChanged {
		newBills = nil
	}

	if err := l.persist(ctx, newBills, newGroups, true, nil, false); err != nil {
		return err
	}

	if newBills != nil {
		l.bills = newBills
	}
	l.groups = newGroups
	slog.Info("Group deleted", "id", groupID)
	return nil
}

// Groups returns a snapshot copy of the group list.
func (l *Ledger) Groups() []models.Group {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneGroups(l.groups)
}

// Group returns a copy of one group by ID.
func (l *Ledger) Group(id string) (models.Group, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	g := l.findGroup(id)
	if g == nil {
		return models.Group{}, fmt.Errorf("group %q: %w", id, apperrors.ErrNotFound)
	}
	return g.Clone(), nil
}

// GroupBills returns a snapshot copy of one group's mirrored bill list.
func (l *Ledger) GroupBills(groupID string) ([]models.Bill, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	g := l.findGroup(groupID)
	if g == nil {
		return nil, fmt.Errorf("group %q: %w", groupID, apperrors.ErrNotFound)
	}
	return cloneBills(g.Bills), nil
}

// findGroup returns a pointer into l.groups; callers must hold the mutex
// and must not retain the pointer past the critical section.
func (l *Ledger) findGroup(id string) *models.Group {
	return findGroupIn(l.groups, id)
}

func findGroupIn(groups []models.Group, id string) *models.Group {
	for i := range groups {
		if groups[i].ID == id {
			return &groups[i]
		}
	}
	return nil
}

// extendMembers adds any bill participants that are not yet group members.
func extendMembers(g *models.Group, participants []string) {
	for _, p := range participants {
		if !g.HasMember(p) {
			g.Members = append(g.Members, p)
		}
	}
}

// upsertGroupBill replaces the mirrored copy by ID, or appends it.
func upsertGroupBill(g *models.Group, bill models.Bill) {
	for i := range g.Bills {
		if g.Bills[i].ID == bill.ID {
			g.Bills[i] = bill
			return
		}
	}
	g.Bills = append(g.Bills, bill)
}

// removeGroupBill drops the mirrored copy by ID.
func removeGroupBill(g *models.Group, billID string) {
	for i := range g.Bills {
		if g.Bills[i].ID == billID {
			g.Bills = append(g.Bills[:i], g.Bills[i+1:]...)
			return
		}
	}
}

func cloneGroups(groups []models.Group) []models.Group {
	out := make([]models.Group, len(groups))
	for i := range groups {
		out[i] = groups[i].Clone()
	}
	return out
}
