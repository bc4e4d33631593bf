package notifier

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pauljones0/deals-storefront/internal/models"
)

const DefaultInboxSize = 50

// Inbox holds the latest notifications in memory. When full, the oldest
// item is dropped. Nothing survives a restart.
type Inbox struct {
	mu    sync.RWMutex
	items []models.NotificationItem // oldest first
	max   int
	now   func() time.Time
}

func NewInbox(max int) *Inbox {
	if max <= 0 {
		max = DefaultInboxSize
	}
	return &Inbox{max: max, now: time.Now}
}

// Push adds an unread notification and returns it.
func (b *Inbox) Push(title, message, link, image string) models.NotificationItem {
	item := models.NotificationItem{
		ID:        uuid.NewString(),
		Title:     title,
		Message:   message,
		URL:       link,
		ImageURL:  image,
		Timestamp: b.now(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, item)
	if over := len(b.items) - b.max; over > 0 {
		b.items = append(b.items[:0:0], b.items[over:]...)
	}
	return item
}

// List returns notifications, newest first.
func (b *Inbox) List() []models.NotificationItem {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.NotificationItem, len(b.items))
	for i, item := range b.items {
		out[len(b.items)-1-i] = item
	}
	return out
}

// Marks is one reader's position in the shared inbox. Items at or before
// ClearedAt are hidden and items at or before ReadAt count as read.
type Marks struct {
	ReadAt    time.Time
	ClearedAt time.Time
}

// View returns the notifications visible under m, newest first, and how many
// of them are unread. The shared items are not modified.
func (b *Inbox) View(m Marks) ([]models.NotificationItem, int) {
	all := b.List()
	items := make([]models.NotificationItem, 0, len(all))
	unread := 0
	for _, item := range all {
		if !item.Timestamp.After(m.ClearedAt) {
			continue
		}
		item.Read = !item.Timestamp.After(m.ReadAt)
		if !item.Read {
			unread++
		}
		items = append(items, item)
	}
	return items, unread
}
