package dashboard

import (
	"sync"

	"github.com/scarlet-home/scarletdash/internal/metrics"
)

// Guard admits at most one running instance of each action+entity pair.
// A Guard may be shared by several controllers.
type Guard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{active: make(map[string]struct{})}
}

// Acquire claims action on key. The returned release func must be called
// once the action has finished.
func (g *Guard) Acquire(action, key string) (release func(), err error) {
	k := action + "/" + key

	g.mu.Lock()
	if _, busy := g.active[k]; busy {
		g.mu.Unlock()
		metrics.InFlightRejections.WithLabelValues(action).Inc()
		return nil, ErrInFlight
	}
	g.active[k] = struct{}{}
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, k)
			g.mu.Unlock()
		})
	}, nil
}

// Busy reports whether action on key is running.
func (g *Guard) Busy(action, key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.active[action+"/"+key]
	return busy
}
