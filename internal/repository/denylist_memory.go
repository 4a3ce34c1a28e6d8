package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryDenyList is a process-local DenyList.
type MemoryDenyList struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryDenyList() *MemoryDenyList {
	return &MemoryDenyList{entries: make(map[string]time.Time), now: time.Now}
}

var (
	_ DenyList = (*MemoryDenyList)(nil)
	_ Purger   = (*MemoryDenyList)(nil)
)

func (d *MemoryDenyList) Deny(_ context.Context, jti string, expiresAt time.Time) error {
	if !expiresAt.After(d.now()) {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.entries[jti]; !ok || expiresAt.After(cur) {
		d.entries[jti] = expiresAt
	}
	return nil
}

func (d *MemoryDenyList) IsDenied(_ context.Context, jti string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	exp, ok := d.entries[jti]
	return ok && exp.After(d.now()), nil
}

func (d *MemoryDenyList) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var n int64
	for jti, exp := range d.entries {
		if !exp.After(now) {
			delete(d.entries, jti)
			n++
		}
	}
	return n, nil
}
