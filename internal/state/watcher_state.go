package state

import (
	"sync"
	"time"
)

type guildEntry struct {
	mu     sync.Mutex
	window *GuildWindow
}

// WatcherState maps guild IDs to their join windows. Every guild has its own
// lock so unrelated guilds never wait on each other. Entries are created on
// first use and kept for the life of the process.
type WatcherState struct {
	mu       sync.RWMutex
	guilds   map[string]*guildEntry
	duration time.Duration
}

func NewWatcherState(duration time.Duration) *WatcherState {
	if duration <= 0 {
		duration = DefaultJoinWindow
	}
	return &WatcherState{
		guilds:   make(map[string]*guildEntry),
		duration: duration,
	}
}

func (s *WatcherState) entry(guildID string) *guildEntry {
	s.mu.RLock()
	e, exists := s.guilds[guildID]
	s.mu.RUnlock()
	if exists {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, exists = s.guilds[guildID]; exists {
		return e
	}
	e = &guildEntry{window: newGuildWindow(guildID, s.duration)}
	s.guilds[guildID] = e
	return e
}

// WithGuildWindow runs fn with exclusive access to the window of guildID.
// fn must not keep the window after returning and must not call
// WithGuildWindow itself.
func (s *WatcherState) WithGuildWindow(guildID string, fn func(w *GuildWindow)) {
	e := s.entry(guildID)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.window)
}

func (s *WatcherState) GuildCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.guilds)
}

func (s *WatcherState) Duration() time.Duration {
	return s.duration
}
