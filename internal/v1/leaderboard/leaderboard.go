// Package leaderboard keeps in-memory win counts per game family. Zero
// persistence: counts reset with the process.
package leaderboard

import (
	"sort"
	"sync"

	"github.com/parlorlive/gamehost/internal/v1/game"
)

// Entry is one row of a leaderboard response.
type Entry struct {
	Name string `json:"name"`
	Wins int    `json:"wins"`
}

// Store is a nested map of family to display name to win count. Safe for
// concurrent use.
type Store struct {
	mu   sync.Mutex
	wins map[game.Family]map[string]int
}

func NewStore() *Store {
	return &Store{wins: make(map[game.Family]map[string]int)}
}

// RecordWin increments the win count for a display name.
func (s *Store) RecordWin(family game.Family, name string) {
	if name == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	byName := s.wins[family]
	if byName == nil {
		byName = make(map[string]int)
		s.wins[family] = byName
	}
	byName[name]++
}

// Top returns the top entries by wins descending, names ascending on ties.
// An empty family aggregates across all families.
func (s *Store) Top(family game.Family, limit int) []Entry {
	s.mu.Lock()
	totals := make(map[string]int)
	for f, byName := range s.wins {
		if family != "" && f != family {
			continue
		}
		for name, wins := range byName {
			totals[name] += wins
		}
	}
	s.mu.Unlock()

	entries := make([]Entry, 0, len(totals))
	for name, wins := range totals {
		entries = append(entries, Entry{Name: name, Wins: wins})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Wins != entries[j].Wins {
			return entries[i].Wins > entries[j].Wins
		}
		return entries[i].Name < entries[j].Name
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
