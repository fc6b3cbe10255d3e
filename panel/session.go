// Package panel is the dispatcher's control surface: parsed commands, per-user input modes and views.
package panel

import "sync"

// Mode is what the next plain-text message of a dispatcher means.
type Mode interface {
	mode()
}

type Idle struct{}

// AwaitingDriverCount takes the next text message as the new driver count.
type AwaitingDriverCount struct{}

func (Idle) mode()                {}
func (AwaitingDriverCount) mode() {}

type Sessions struct {
	mu    sync.Mutex
	modes map[int64]Mode
}

func NewSessions() *Sessions {
	return &Sessions{modes: map[int64]Mode{}}
}

func (s *Sessions) Mode(userID int64) Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.modes[userID]; ok {
		return m
	}
	return Idle{}
}

func (s *Sessions) Enter(userID int64, m Mode) {
	if _, idle := m.(Idle); idle {
		s.Reset(userID)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modes[userID] = m
}

func (s *Sessions) Reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.modes, userID)
}
