package budget

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry(map[string]int64{"sweep": 10})

	c, ok := r.Ceiling("sweep")
	assert.True(t, ok)
	assert.Equal(t, int64(10), c)

	r.Set("claim", 3)
	r.Set("sweep", 0)
	_, ok = r.Ceiling("sweep")
	assert.False(t, ok)

	r.Load(map[string]int64{"stake": 2})
	assert.Equal(t, map[string]int64{"claim": 3, "stake": 2}, r.Snapshot())
}

func TestCheck(t *testing.T) {
	r := NewRegistry(map[string]int64{"sweep": 5})

	assert.True(t, Check(r, "sweep", 6).Exceeded)
	assert.False(t, Check(r, "sweep", 5).Exceeded)
	assert.False(t, Check(r, "claim", 1000).Exceeded, "no ceiling means unlimited")
	assert.False(t, Check(nil, "sweep", 1000).Exceeded)
}

func TestTally(t *testing.T) {
	ctx, tally := WithTally(context.Background())
	Charge(ctx, 2)
	Charge(ctx, 3)
	assert.Equal(t, int64(5), tally.Units())

	assert.NotPanics(t, func() { Charge(context.Background(), 1) })
}
