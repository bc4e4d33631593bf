package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

const (
	keyIssued     = "issued"
	keyAuthorized = "authorized"
	keyLiked      = "liked"
	keyReadAt     = "notifications_read_at"
	keyClearedAt  = "notifications_cleared_at"
)

// State is the typed view over a Store.
type State struct {
	store Store
}

func NewState(s Store) *State {
	return &State{store: s}
}

// VisitorID returns candidate when it was issued earlier, and otherwise
// issues and records a fresh ID.
func (st *State) VisitorID(ctx context.Context, candidate string) (string, error) {
	if _, err := uuid.Parse(candidate); err == nil {
		_, ok, err := st.store.Get(ctx, candidate, keyIssued)
		if err != nil {
			return "", err
		}
		if ok {
			return candidate, nil
		}
	}

	id := uuid.NewString()
	if err := st.store.Set(ctx, id, keyIssued, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return "", fmt.Errorf("issue visitor id: %w", err)
	}
	return id, nil
}

func (st *State) Authorized(ctx context.Context, visitor string) (bool, error) {
	v, ok, err := st.store.Get(ctx, visitor, keyAuthorized)
	if err != nil || !ok {
		return false, err
	}
	return v == "true", nil
}

// SetAuthorized records a signed-in session. Signing out removes the flag.
func (st *State) SetAuthorized(ctx context.Context, visitor string, authorized bool) error {
	if !authorized {
		return st.store.Remove(ctx, visitor, keyAuthorized)
	}
	return st.store.Set(ctx, visitor, keyAuthorized, "true")
}

// LikedSet returns the product IDs the visitor liked, in the order they were liked.
func (st *State) LikedSet(ctx context.Context, visitor string) ([]string, error) {
	v, ok, err := st.store.Get(ctx, visitor, keyLiked)
	if err != nil || !ok {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal([]byte(v), &ids); err != nil {
		return nil, fmt.Errorf("decode liked set: %w", err)
	}
	return ids, nil
}

// ToggleLiked flips productID in the visitor's liked set and reports whether
// it is now liked.
func (st *State) ToggleLiked(ctx context.Context, visitor, productID string) (bool, error) {
	ids, err := st.LikedSet(ctx, visitor)
	if err != nil {
		return false, err
	}

	liked := !slices.Contains(ids, productID)
	if liked {
		ids = append(ids, productID)
	} else {
		ids = slices.DeleteFunc(ids, func(id string) bool { return id == productID })
	}

	raw, err := json.Marshal(ids)
	if err != nil {
		return false, err
	}
	if err := st.store.Set(ctx, visitor, keyLiked, string(raw)); err != nil {
		return false, err
	}
	return liked, nil
}

// NotificationMarks returns when the visitor last read and last cleared the
// notification inbox. Zero times mean never.
func (st *State) NotificationMarks(ctx context.Context, visitor string) (readAt, clearedAt time.Time, err error) {
	if readAt, err = st.timestamp(ctx, visitor, keyReadAt); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if clearedAt, err = st.timestamp(ctx, visitor, keyClearedAt); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return readAt, clearedAt, nil
}

func (st *State) MarkNotificationsRead(ctx context.Context, visitor string, at time.Time) error {
	return st.store.Set(ctx, visitor, keyReadAt, at.UTC().Format(time.RFC3339Nano))
}

// ClearNotifications hides everything up to at. Cleared items also count as read.
func (st *State) ClearNotifications(ctx context.Context, visitor string, at time.Time) error {
	if err := st.MarkNotificationsRead(ctx, visitor, at); err != nil {
		return err
	}
	return st.store.Set(ctx, visitor, keyClearedAt, at.UTC().Format(time.RFC3339Nano))
}

func (st *State) timestamp(ctx context.Context, visitor, key string) (time.Time, error) {
	v, ok, err := st.store.Get(ctx, visitor, key)
	if err != nil || !ok {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return t, nil
}
