package domain

// ScoreEntry is one vibe total in a ScoreMap.
type ScoreEntry struct {
	Vibe  string `json:"vibe"`
	Score int    `json:"score"`
}

// ScoreMap accumulates points per vibe and remembers the order in which
// vibes were first touched. Iteration follows that order.
// The zero value is an empty map ready to use.
type ScoreMap struct {
	order  []string
	totals map[string]int
}

// Add merges delta into vibe's total, registering vibe on first touch.
func (s *ScoreMap) Add(vibe string, delta int) {
	if s.totals == nil {
		s.totals = make(map[string]int)
	}
	if _, ok := s.totals[vibe]; !ok {
		s.order = append(s.order, vibe)
	}
	s.totals[vibe] += delta
}

// Merge adds every delta of an option in declaration order.
func (s *ScoreMap) Merge(points []VibePoints) {
	for _, p := range points {
		s.Add(p.Vibe, p.Delta)
	}
}

// Get returns the total for vibe.
func (s *ScoreMap) Get(vibe string) (int, bool) {
	v, ok := s.totals[vibe]
	return v, ok
}

// Len is the number of touched vibes.
func (s *ScoreMap) Len() int {
	return len(s.order)
}

// Entries returns the totals in first-touch order.
func (s *ScoreMap) Entries() []ScoreEntry {
	entries := make([]ScoreEntry, 0, len(s.order))
	for _, vibe := range s.order {
		entries = append(entries, ScoreEntry{Vibe: vibe, Score: s.totals[vibe]})
	}
	return entries
}

// Reset clears all totals.
func (s *ScoreMap) Reset() {
	s.order = nil
	s.totals = nil
}
