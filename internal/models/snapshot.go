package models

import "time"

// RemoteSnapshot maps remote ids to the latest time the remote service recorded them.
//
// The zero value is an unfetched, empty snapshot.
type RemoteSnapshot struct {
	Fetched bool
	seen    map[int64]time.Time
}

// NewRemoteSnapshot builds a fetched snapshot from remote id/time pairs, keeping the latest time per id.
func NewRemoteSnapshot(entries map[int64]time.Time) RemoteSnapshot {
	seen := make(map[int64]time.Time, len(entries))
	for id, at := range entries {
		seen[id] = at
	}
	return RemoteSnapshot{Fetched: true, seen: seen}
}

// Record adds an observation, keeping the later time when id is already known.
func (s *RemoteSnapshot) Record(id int64, at time.Time) {
	if s.seen == nil {
		s.seen = make(map[int64]time.Time)
	}
	if prev, ok := s.seen[id]; !ok || at.After(prev) {
		s.seen[id] = at
	}
}

// Covers reports whether id is already recorded at or after at.
//
// Remote times carry millisecond precision, so at is truncated before comparing.
func (s RemoteSnapshot) Covers(id int64, at time.Time) bool {
	remote, ok := s.seen[id]
	if !ok {
		return false
	}
	return !remote.Before(at.Truncate(time.Millisecond))
}

// Len returns the number of distinct ids in the snapshot.
func (s RemoteSnapshot) Len() int {
	return len(s.seen)
}
