package leaderboard

import (
	"errors"
	"sort"
	"sync"
)

var ErrInvalidEntry = errors.New("invalid leaderboard entry")

// Entry is one leaderboard row.
type Entry struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// Store keeps the best score per player in memory.
type Store struct {
	mu     sync.RWMutex
	scores map[string]int
}

// NewStore creates an empty leaderboard.
func NewStore() *Store {
	return &Store{scores: make(map[string]int)}
}

// Submit records a score. Only a player's best score is kept.
func (s *Store) Submit(username string, score int) error {
	if username == "" || score < 0 {
		return ErrInvalidEntry
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if best, ok := s.scores[username]; !ok || score > best {
		s.scores[username] = score
	}
	return nil
}

// Top returns up to n entries, highest score first. Ties break by
// username so the ordering is stable.
func (s *Store) Top(n int) []Entry {
	s.mu.RLock()
	entries := make([]Entry, 0, len(s.scores))
	for name, score := range s.scores {
		entries = append(entries, Entry{Username: name, Score: score})
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Username < entries[j].Username
	})

	if n > 0 && n < len(entries) {
		entries = entries[:n]
	}
	return entries
}
