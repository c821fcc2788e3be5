package budget

import (
	"context"
	"sync"
	"sync/atomic"
)

// Meter knows the cost ceiling of each operation.
type Meter interface {
	Ceiling(op string) (int64, bool)
}

// Report is the post-hoc comparison of an operation's cost with its ceiling.
type Report struct {
	Op       string
	Cost     int64
	Ceiling  int64
	Exceeded bool
}

// Registry is an admin-configurable map of operation name to ceiling.
// A missing or non-positive ceiling means unlimited.
type Registry struct {
	mu       sync.RWMutex
	ceilings map[string]int64
}

// NewRegistry seeds a registry with initial ceilings.
func NewRegistry(initial map[string]int64) *Registry {
	r := &Registry{ceilings: make(map[string]int64, len(initial))}
	for op, c := range initial {
		r.ceilings[op] = c
	}
	return r
}

// Set replaces the ceiling of op. Zero removes the limit.
func (r *Registry) Set(op string, ceiling int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ceiling <= 0 {
		delete(r.ceilings, op)
		return
	}
	r.ceilings[op] = ceiling
}

// Load merges ceilings, typically from persisted settings.
func (r *Registry) Load(ceilings map[string]int64) {
	for op, c := range ceilings {
		r.Set(op, c)
	}
}

func (r *Registry) Ceiling(op string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.ceilings[op]
	return c, ok
}

// Snapshot returns a copy of all ceilings.
func (r *Registry) Snapshot() map[string]int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int64, len(r.ceilings))
	for k, v := range r.ceilings {
		out[k] = v
	}
	return out
}

// Check compares cost with the ceiling of op.
func Check(m Meter, op string, cost int64) Report {
	rep := Report{Op: op, Cost: cost}
	if m == nil {
		return rep
	}
	if ceiling, ok := m.Ceiling(op); ok && ceiling > 0 {
		rep.Ceiling = ceiling
		rep.Exceeded = cost > ceiling
	}
	return rep
}

// Tally accumulates the estimated cost of one operation.
type Tally struct {
	units atomic.Int64
}

func (t *Tally) Units() int64 {
	return t.units.Load()
}

type tallyKey struct{}

// WithTally attaches a fresh tally to ctx.
func WithTally(ctx context.Context) (context.Context, *Tally) {
	t := &Tally{}
	return context.WithValue(ctx, tallyKey{}, t), t
}

// Charge adds units to the tally carried by ctx, if any.
func Charge(ctx context.Context, units int64) {
	if t, ok := ctx.Value(tallyKey{}).(*Tally); ok {
		t.units.Add(units)
	}
}
