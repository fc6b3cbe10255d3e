package services

import "sync"

// Greeter tracks who already got the welcome text in this process.
type Greeter struct {
	mu      sync.Mutex
	greeted map[int64]struct{}
}

func NewGreeter() *Greeter {
	return &Greeter{greeted: make(map[int64]struct{})}
}

// FirstVisit marks userID as greeted and reports whether this is the first call for them.
func (g *Greeter) FirstVisit(userID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.greeted[userID]; ok {
		return false
	}
	g.greeted[userID] = struct{}{}
	return true
}
