package ratelimit

import "time"

// WindowStore holds per-key attempt timestamps in chronological order. It is
// a plain data structure with no locking of its own: the Limiter that owns it
// supplies the single mutual-exclusion scope, so eviction, counting and
// recording always happen as one unit.
type WindowStore struct {
	windows map[string][]time.Time
}

// NewWindowStore builds an empty store.
func NewWindowStore() *WindowStore {
	return &WindowStore{windows: make(map[string][]time.Time)}
}

// Record evicts entries older than the window, appends now, and returns the
// resulting count. The count therefore reflects only real admissions inside
// the current window, including this one.
func (s *WindowStore) Record(key string, window time.Duration, now time.Time) int {
	kept := append(s.evict(key, window, now), now)
	s.windows[key] = kept
	return len(kept)
}

// Peek evicts entries older than the window and returns the remaining count
// without recording anything. Keys whose windows empty out are dropped from
// the map.
func (s *WindowStore) Peek(key string, window time.Duration, now time.Time) int {
	kept := s.evict(key, window, now)
	if len(kept) == 0 {
		delete(s.windows, key)
		return 0
	}
	s.windows[key] = kept
	return len(kept)
}

// Oldest returns the earliest retained timestamp for the key.
func (s *WindowStore) Oldest(key string) (time.Time, bool) {
	entries := s.windows[key]
	if len(entries) == 0 {
		return time.Time{}, false
	}
	return entries[0], true
}

// Keys reports how many keys currently hold at least one entry.
func (s *WindowStore) Keys() int {
	return len(s.windows)
}

func (s *WindowStore) evict(key string, window time.Duration, now time.Time) []time.Time {
	entries := s.windows[key]
	cutoff := now.Add(-window)
	idx := 0
	for idx < len(entries) && !entries[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return entries
	}
	// Copy so the evicted prefix does not pin the old backing array.
	kept := make([]time.Time, len(entries)-idx)
	copy(kept, entries[idx:])
	return kept
}
