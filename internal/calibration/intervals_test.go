package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfidenceIntervals(t *testing.T) {
	t.Run("nested and centered on mu", func(t *testing.T) {
		set, err := ConfidenceIntervals(75, 2.5)
		require.NoError(t, err)
		require.Len(t, set, 3)

		ci50, ci80, ci95 := set["50%"], set["80%"], set["95%"]

		// Wider levels strictly contain narrower ones.
		assert.Less(t, ci80.Low, ci50.Low)
		assert.Greater(t, ci80.High, ci50.High)
		assert.Less(t, ci95.Low, ci80.Low)
		assert.Greater(t, ci95.High, ci80.High)

		// Symmetric around the mean to rounding tolerance.
		for name, ci := range set {
			assert.InDelta(t, 75.0, (ci.Low+ci.High)/2, 0.05, "level %s", name)
		}
	})

	t.Run("known z-scores", func(t *testing.T) {
		set, err := ConfidenceIntervals(0, 1)
		require.NoError(t, err)

		assert.InDelta(t, -0.7, set["50%"].Low, 0.05)
		assert.InDelta(t, 1.3, set["80%"].High, 0.05)
		assert.InDelta(t, -2.0, set["95%"].Low, 0.05)
		assert.InDelta(t, 2.0, set["95%"].High, 0.05)
	})

	t.Run("bounds rounded to one decimal", func(t *testing.T) {
		set, err := ConfidenceIntervals(79.73, 1.56)
		require.NoError(t, err)

		for name, ci := range set {
			assert.Equal(t, ci.Low, roundTo(ci.Low, 1), "level %s low", name)
			assert.Equal(t, ci.High, roundTo(ci.High, 1), "level %s high", name)
		}
	})
}
