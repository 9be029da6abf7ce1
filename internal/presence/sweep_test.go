package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepOnce(t *testing.T) {
	setup := func(t *testing.T) (*Registry, *Sweeper, *int64) {
		r := NewRegistry()
		now := int64(1_000_000)
		r.SetClock(func() int64 { return now })
		s := NewSweeper(r, DefaultSweepInterval, DefaultStaleTimeout)
		return r, s, &now
	}

	t.Run("flags agents past the stale timeout", func(t *testing.T) {
		r, s, now := setup(t)

		agent, err := r.Register("conn-1", Identity{Name: "alpha"})
		require.NoError(t, err)

		*now += DefaultStaleTimeout.Milliseconds() + 1
		s.sweepOnce()

		assert.True(t, r.Get(agent.ID).Stale)
	})

	t.Run("leaves recently seen agents alone", func(t *testing.T) {
		r, s, now := setup(t)

		agent, err := r.Register("conn-1", Identity{Name: "alpha"})
		require.NoError(t, err)

		*now += DefaultStaleTimeout.Milliseconds() - 1_000
		s.sweepOnce()

		assert.False(t, r.Get(agent.ID).Stale)
	})

	t.Run("stale agents are not removed", func(t *testing.T) {
		r, s, now := setup(t)

		agent, err := r.Register("conn-1", Identity{Name: "alpha"})
		require.NoError(t, err)

		*now += 10 * DefaultStaleTimeout.Milliseconds()
		s.sweepOnce()

		assert.NotNil(t, r.Get(agent.ID))
		assert.Equal(t, 1, r.Count())
	})

	t.Run("heartbeat after sweep clears the flag", func(t *testing.T) {
		r, s, now := setup(t)

		agent, err := r.Register("conn-1", Identity{Name: "alpha"})
		require.NoError(t, err)

		*now += DefaultStaleTimeout.Milliseconds() + 1
		s.sweepOnce()
		require.True(t, r.Get(agent.ID).Stale)

		refreshed := r.Heartbeat(agent.ID)
		require.NotNil(t, refreshed)
		assert.False(t, refreshed.Stale)
	})
}

func TestNewSweeperDefaults(t *testing.T) {
	s := NewSweeper(NewRegistry(), 0, -1*time.Second)
	assert.Equal(t, DefaultSweepInterval, s.interval)
	assert.Equal(t, DefaultStaleTimeout, s.timeout)
}
