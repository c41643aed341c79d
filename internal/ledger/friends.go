package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mkale/splitledger/internal/apperrors"
	"github.com/mkale/splitledger/internal/models"
)

// AddFriend registers a friend name (sanitized, unique per owner) with an
// optional display emoji.
func (l *Ledger) AddFriend(ctx context.Context, name, emoji string) (models.Friend, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	name, err := validateName(name)
	if err != nil {
		return models.Friend{}, err
	}
	if name == l.owner {
		return models.Friend{}, fmt.Errorf("%w: %q is the ledger owner", apperrors.ErrDuplicate, name)
	}
	if l.hasFriend(name) {
		return models.Friend{}, fmt.Errorf("%w: friend %q", apperrors.ErrDuplicate, name)
	}

	friend := models.Friend{Name: name, Emoji: emoji}
	newFriends := append(append([]models.Friend{}, l.friends...), friend)

	if err := l.persist(ctx, nil, nil, false, newFriends, true); err != nil {
		return models.Friend{}, err
	}

	l.friends = newFriends
	slog.Info("Friend added", "name", name)
	return friend, nil
}

// RemoveFriend deletes a friend. The removal is rejected while any bill
// still references them, the same integrity rule as group member removal.
func (l *Ledger) RemoveFriend(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.hasFriend(name) {
		return fmt.Errorf("friend %q: %w", name, apperrors.ErrNotFound)
	}

	for i := range l.bills {
		if l.bills[i].References(name) {
			return &apperrors.InvariantError{
				Op:     "remove friend",
				Reason: fmt.Sprintf("%q still appears on bill %q", name, l.bills[i].Name),
			}
		}
	}

	newFriends := make([]models.Friend, 0, len(l.friends))
	for _, f := range l.friends {
		if f.Name != name {
			newFriends = append(newFriends, f)
		}
	}

	if err := l.persist(ctx, nil, nil, false, newFriends, true); err != nil {
		return err
	}

	l.friends = newFriends
	slog.Info("Friend removed", "name", name)
	return nil
}

// Friends returns a snapshot copy of the friend list.
func (l *Ledger) Friends() []models.Friend {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Friend{}, l.friends...)
}

func (l *Ledger) hasFriend(name string) bool {
	for i := range l.friends {
		if l.friends[i].Name == name {
			return true
		}
	}
	return false
}

// withAutoFriends registers any unknown participant identifiers as friends
// so the registry can resolve them afterwards. Returns the (possibly new)
// friend list and whether it changed; the caller persists and commits.
func (l *Ledger) withAutoFriends(participants []string) ([]models.Friend, bool) {
	var added []models.Friend
	for _, p := range participants {
		if p == l.owner || l.hasFriend(p) {
			continue
		}
		known := false
		for _, a := range added {
			if a.Name == p {
				known = true
				break
			}
		}
		if !known {
			added = append(added, models.Friend{Name: p})
		}
	}
	if len(added) == 0 {
		return l.friends, false
	}

	newFriends := append(append([]models.Friend{}, l.friends...), added...)
	slog.Debug("Auto-registering participants as friends", "count", len(added))
	return newFriends, true
}
