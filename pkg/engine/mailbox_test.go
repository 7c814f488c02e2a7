package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailbox(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		m := NewMailbox()
		_, ok := m.Take()
		assert.False(t, ok)
	})

	t.Run("Last write wins", func(t *testing.T) {
		m := NewMailbox()
		require.NoError(t, m.Post(SetMode{Mode: "water", Tempo: 60}))
		require.NoError(t, m.Post(Pulse{Pattern: "beat", Strength: 255, Duration: 100 * time.Millisecond}))

		cmd, ok := m.Take()
		require.True(t, ok)
		assert.Equal(t, Pulse{Pattern: "beat", Strength: 255, Duration: 100 * time.Millisecond}, cmd)
		assert.Equal(t, uint64(1), m.Dropped())

		_, ok = m.Take()
		assert.False(t, ok)
	})

	t.Run("Stop has priority and latches", func(t *testing.T) {
		m := NewMailbox()
		require.NoError(t, m.Post(SetMode{Mode: "water", Tempo: 60}))
		require.NoError(t, m.Post(Stop{}))
		assert.True(t, m.Stopped())

		for i := 0; i < 3; i++ {
			cmd, ok := m.Take()
			require.True(t, ok)
			assert.Equal(t, Stop{}, cmd)
		}

		assert.ErrorIs(t, m.Post(SetMode{Mode: "breathe", Tempo: 60}), ErrStopped)
		assert.ErrorIs(t, m.Post(Stop{}), ErrStopped)
	})
}

func TestCommandType(t *testing.T) {
	assert.Equal(t, "set_mode", CommandType(SetMode{}))
	assert.Equal(t, "send_pulse", CommandType(Pulse{}))
	assert.Equal(t, "stop", CommandType(Stop{}))
	assert.Equal(t, "[1 2 3]", RGB{1, 2, 3}.String())
}
