package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeCache struct {
	name    string
	size    int64
	cleared int
}

func (cache *fakeCache) Name() string    { return cache.name }
func (cache *fakeCache) SizeHint() int64 { return cache.size }
func (cache *fakeCache) Clear()          { cache.cleared++; cache.size = 0 }

func TestSweepClearsOversizeCache(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	small := &fakeCache{name: "small", size: 1024}
	big := &fakeCache{name: "big", size: SizeLimit + 1}
	Register(small)
	Register(big)

	cleared := Sweep()
	assert.Equal(t, 1, cleared)
	assert.Equal(t, 0, small.cleared)
	assert.Equal(t, 1, big.cleared)

	// the cleared cache shrank, a second sweep leaves it alone
	assert.Equal(t, 0, Sweep())
}

func TestUnregister(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	cache := &fakeCache{name: "gone", size: SizeLimit + 1}
	Register(cache)
	Unregister("gone")

	assert.Equal(t, 0, Sweep())
	assert.Equal(t, 0, cache.cleared)
}

func TestRSSPositive(t *testing.T) {
	assert.Greater(t, rss(), int64(0))
}
