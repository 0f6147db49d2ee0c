// Package denylist provides the in-process Denylist used by single-instance
// deployments. Entries are lost on restart, which only shortens a revoked
// token's lifetime back to its natural expiry.
package denylist

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Memory is a Denylist backed by a map guarded by a RWMutex.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemory returns an empty Memory denylist. now defaults to time.Now.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		entries: make(map[string]time.Time),
		now:     now,
	}
}

// Add records jti until notAfter and drops entries that have lapsed.
func (m *Memory) Add(_ context.Context, jti string, notAfter time.Time) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweepLocked(now)
	if _, ok := m.entries[jti]; ok {
		return false, nil
	}
	m.entries[jti] = notAfter
	return true, nil
}

// Contains reports whether jti is denylisted. A lapsed entry counts as absent.
func (m *Memory) Contains(_ context.Context, jti string) (bool, error) {
	m.mu.RLock()
	notAfter, ok := m.entries[jti]
	m.mu.RUnlock()

	return ok && !m.now().After(notAfter), nil
}

// Sweep removes lapsed entries and returns how many were dropped.
func (m *Memory) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(now)
}

// Len returns the number of stored entries, lapsed or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) sweepLocked(now time.Time) int {
	removed := 0
	for jti, notAfter := range m.entries {
		if now.After(notAfter) {
			delete(m.entries, jti)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is cancelled.
func (m *Memory) Run(ctx context.Context, interval time.Duration, log zerolog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				log.Debug().Int("removed", n).Int("remaining", m.Len()).Msg("denylist swept")
			}
		}
	}
}
