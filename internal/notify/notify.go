// Package notify holds short-lived operator notifications. Entries expire on
// their own after a fixed interval, matching the toast behavior of the
// console UI.
package notify

import (
	"sync"
	"time"

	"wumikay/pos/internal/domain"
	"wumikay/pos/internal/ident"
)

const defaultTTL = 5 * time.Second

type Center struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries []domain.Notification
	timers  map[string]*time.Timer
}

func NewCenter() *Center {
	return &Center{
		ttl:    defaultTTL,
		timers: make(map[string]*time.Timer),
	}
}

// NewCenterTTL is used by tests to shorten the expiry interval.
func NewCenterTTL(ttl time.Duration) *Center {
	c := NewCenter()
	if ttl > 0 {
		c.ttl = ttl
	}
	return c
}

// Push adds a notification and schedules its removal after the TTL.
func (c *Center) Push(message string, kind string) domain.Notification {
	n := domain.Notification{
		ID:      ident.New("ntf"),
		Message: message,
		Type:    kind,
	}

	c.mu.Lock()
	c.entries = append(c.entries, n)
	c.timers[n.ID] = time.AfterFunc(c.ttl, func() {
		c.Dismiss(n.ID)
	})
	c.mu.Unlock()

	return n
}

func (c *Center) Success(message string) domain.Notification {
	return c.Push(message, domain.NotifySuccess)
}

func (c *Center) Error(message string) domain.Notification {
	return c.Push(message, domain.NotifyError)
}

func (c *Center) Info(message string) domain.Notification {
	return c.Push(message, domain.NotifyInfo)
}

func (c *Center) Warning(message string) domain.Notification {
	return c.Push(message, domain.NotifyWarning)
}

// Dismiss removes a notification before its timer fires. Dismissing an
// unknown id is a no-op.
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if timer, ok := c.timers[id]; ok {
		timer.Stop()
		delete(c.timers, id)
	}
	for i, n := range c.entries {
		if n.ID == id {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			break
		}
	}
}

// Active returns the notifications that have not yet expired, oldest first.
func (c *Center) Active() []domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Notification, len(c.entries))
	copy(out, c.entries)
	return out
}

// Stop cancels all pending expiry timers.
func (c *Center) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, timer := range c.timers {
		timer.Stop()
		delete(c.timers, id)
	}
	c.entries = nil
}
