// Package notify keeps the in-app notification list and forwards selected
// events to the desktop.
package notify

import (
	"sync"
	"time"

	"arkwarden/internal/domain"
)

// Center holds notifications keyed by ID. Adding an ID that is already
// present is a no-op, which is what keeps pollers from piling up duplicates.
type Center struct {
	Now func() time.Time

	mu    sync.Mutex
	items []domain.Notification
}

func NewCenter() *Center {
	return &Center{Now: time.Now}
}

// Add stores n and reports whether it was new.
func (c *Center) Add(n domain.Notification) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.items {
		if existing.ID == n.ID {
			return false
		}
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = c.Now()
	}
	c.items = append(c.items, n)
	return true
}

// Retract removes the notification with id and reports whether it existed.
func (c *Center) Retract(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, n := range c.items {
		if n.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Center) RetractProfile(profileID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.items[:0]
	for _, n := range c.items {
		if n.ProfileID != profileID {
			kept = append(kept, n)
		}
	}
	c.items = kept
}

func (c *Center) Has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range c.items {
		if n.ID == id {
			return true
		}
	}
	return false
}

// List returns newest first.
func (c *Center) List() []domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Notification, len(c.items))
	for i, n := range c.items {
		out[len(c.items)-1-i] = n
	}
	return out
}

func (c *Center) MarkAllRead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		c.items[i].Read = true
	}
}

func (c *Center) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}
