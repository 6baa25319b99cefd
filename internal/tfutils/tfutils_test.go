package tfutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinutesFromSeconds(t *testing.T) {
	t.Run("Whole minutes convert", func(t *testing.T) {
		for seconds, minutes := range map[int]int{60: 1, 300: 5, 900: 15, 3600: 60} {
			m, err := MinutesFromSeconds(seconds)
			require.NoError(t, err)
			assert.Equal(t, minutes, m)
		}
	})

	t.Run("Partial minutes rejected", func(t *testing.T) {
		for _, seconds := range []int{0, -60, 30, 61, 90} {
			_, err := MinutesFromSeconds(seconds)
			assert.ErrorIs(t, err, ErrInvalidTimeframe, "seconds=%d", seconds)
		}
	})

	t.Run("Over one hour rejected", func(t *testing.T) {
		_, err := MinutesFromSeconds(3660)
		assert.ErrorIs(t, err, ErrInvalidTimeframe)
	})
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, int64(1700000100), Normalize(1700000159, 300))
	assert.Equal(t, int64(1700000100), Normalize(1700000100, 300))
}
