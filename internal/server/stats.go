package server

import (
	"maps"
	"sync"

	"github.com/danmuck/robotctl/internal/robot"
)

// sessionStats aggregates finished sessions for the admin surface.
type sessionStats struct {
	mu       sync.Mutex
	finished int64
	found    int64
	byClass  map[string]int64
	byState  map[string]int64
}

func newSessionStats() *sessionStats {
	return &sessionStats{
		byClass: make(map[string]int64),
		byState: make(map[string]int64),
	}
}

func (s *sessionStats) record(out robot.Outcome, class string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished++
	if out.Found {
		s.found++
	}
	s.byClass[class]++
	s.byState[string(out.LastState)]++
}

// SessionsSnapshot is the /sessions payload.
type SessionsSnapshot struct {
	Active   int64            `json:"active"`
	Accepted int64            `json:"accepted"`
	Finished int64            `json:"finished"`
	Found    int64            `json:"found"`
	ByClass  map[string]int64 `json:"by_class"`
	ByState  map[string]int64 `json:"by_state"`
}

// Sessions returns a point-in-time view of session counters.
func (s *Service) Sessions() SessionsSnapshot {
	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()
	return SessionsSnapshot{
		Active:   s.active.Load(),
		Accepted: s.accepted.Load(),
		Finished: s.stats.finished,
		Found:    s.stats.found,
		ByClass:  maps.Clone(s.stats.byClass),
		ByState:  maps.Clone(s.stats.byState),
	}
}
