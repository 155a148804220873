package layer

import "sync"

// Guard serializes registry and router access across application threads.
// It is held for the validate and record phases of a call and never across
// the call into the next layer.
type Guard struct {
	mu sync.Mutex
}

func (g *Guard) Lock()   { g.mu.Lock() }
func (g *Guard) Unlock() { g.mu.Unlock() }

// Do runs fn with the guard held.
func (g *Guard) Do(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn()
}

var _ sync.Locker = (*Guard)(nil)
