package ranking

import "sync"

// Snapshot remembers the ranks produced by the previous mission-ranking
// query, per mission, so the next query can report movement. It lives only in
// process memory: restarts reset it and every delta starts from zero again,
// which is acceptable because it is presentation state, never truth.
type Snapshot struct {
	mu    sync.Mutex
	ranks map[string]map[int64]int
}

func NewSnapshot() *Snapshot {
	return &Snapshot{ranks: make(map[string]map[int64]int)}
}

// Previous returns a copy of the last recorded ranks for a mission; an empty
// map when none exist.
func (s *Snapshot) Previous(missionID string) map[int64]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]int, len(s.ranks[missionID]))
	for userID, rank := range s.ranks[missionID] {
		out[userID] = rank
	}
	return out
}

// Replace overwrites the mission's snapshot with freshly computed ranks.
// Last query wins; no history is kept.
func (s *Snapshot) Replace(missionID string, ranks map[int64]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ranks[missionID] = ranks
}
