package guard

import (
	"sync"

	"github.com/joefazee/settlement/models"
)

// Guard is a single process-wide flag held while an external value transfer
// is in flight. A nested acquisition fails instead of blocking.
type Guard struct {
	mu     sync.Mutex
	held   bool
	holder uint64
	next   uint64
}

// New returns an unlocked guard.
func New() *Guard {
	return &Guard{}
}

// Acquire takes the guard or fails with models.ErrReentrancyGuardActive.
// On success it returns a release function that must be deferred. Release
// is safe to call more than once and only clears the acquisition it belongs to.
func (g *Guard) Acquire() (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.held {
		return nil, models.ErrReentrancyGuardActive
	}
	g.next++
	token := g.next
	g.held = true
	g.holder = token

	var once sync.Once
	release := func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			if g.held && g.holder == token {
				g.held = false
			}
		})
	}
	return release, nil
}

// Locked reports whether a transfer currently holds the guard.
func (g *Guard) Locked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}

// Run brackets fn with the guard. The guard is released on every exit path,
// including a panic in fn.
func Run(g *Guard, fn func() error) error {
	release, err := g.Acquire()
	if err != nil {
		return err
	}
	defer release()
	return fn()
}
