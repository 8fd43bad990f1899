package match

import "sync"

// Guard serializes operations per match id. Two concurrent phase advances
// or window submissions for the same match take the same mutex; unrelated
// matches never contend. Entries are kept for the life of the process,
// which is bounded by the number of matches this instance has touched.
type Guard struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewGuard() *Guard {
	return &Guard{locks: map[string]*sync.Mutex{}}
}

// Lock acquires the per-match mutex and returns its unlock func.
func (g *Guard) Lock(matchID string) func() {
	g.mu.Lock()
	l, ok := g.locks[matchID]
	if !ok {
		l = &sync.Mutex{}
		g.locks[matchID] = l
	}
	g.mu.Unlock()

	l.Lock()
	return l.Unlock
}
