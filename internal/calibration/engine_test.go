package calibration

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func julyClock(hour, minute int) clockwork.Clock {
	return clockwork.NewFakeClockAt(time.Date(2026, time.July, 15, hour, minute, 0, 0, time.UTC))
}

func floatPtr(v float64) *float64 { return &v }

func TestCalibrate(t *testing.T) {
	t.Run("live reading below forecast mid-window", func(t *testing.T) {
		// NYC in July has base sigma 2.2. Six hours remaining means half the
		// window is elapsed; the reading has not hit the forecast yet, so
		// there is no overshoot shrink and only a gentle mean pull-down.
		engine := NewEngine(DefaultSigmaTable(), julyClock(9, 0))

		result := engine.Calibrate("NYC", 80, floatPtr(78), floatPtr(6))

		assert.InDelta(t, 1.56, result.Sigma, 0.005)
		assert.InDelta(t, 79.7, result.Mu, 1e-9)
	})

	t.Run("no live reading uses forecast as mean", func(t *testing.T) {
		// 08:00 UTC morning: four hours to noon, sigma purely time-driven.
		engine := NewEngine(DefaultSigmaTable(), julyClock(8, 0))

		result := engine.Calibrate("NYC", 50, nil, nil)

		assert.Equal(t, 50.0, result.Mu)
		assert.InDelta(t, 1.27, result.Sigma, 0.005)

		require.Len(t, result.Brackets, 6)
		assert.Equal(t, 46.0, *result.Brackets[0].High)
		assert.Equal(t, 54.0, *result.Brackets[5].Low)
	})

	t.Run("unknown city falls back to sigma 3.0", func(t *testing.T) {
		engine := NewEngine(DefaultSigmaTable(), julyClock(0, 0))

		result := engine.Calibrate("Atlantis", 70, nil, floatPtr(12))

		assert.Equal(t, 3.0, result.Sigma)
	})

	t.Run("overshoot shrinks sigma", func(t *testing.T) {
		engine := NewEngine(DefaultSigmaTable(), julyClock(9, 0))

		calm := engine.Calibrate("NYC", 80, floatPtr(79), floatPtr(6))
		hot := engine.Calibrate("NYC", 80, floatPtr(83), floatPtr(6))

		assert.Less(t, hot.Sigma, calm.Sigma)
	})

	t.Run("mu and sigma rounded to two decimals", func(t *testing.T) {
		engine := NewEngine(DefaultSigmaTable(), julyClock(9, 0))

		result := engine.Calibrate("NYC", 77.77, floatPtr(71.3), floatPtr(5))

		assert.Equal(t, result.Mu, roundTo(result.Mu, 2))
		assert.Equal(t, result.Sigma, roundTo(result.Sigma, 2))
	})
}

func TestAdjustedSigma(t *testing.T) {
	t.Run("never below the floor", func(t *testing.T) {
		cases := []struct {
			name           string
			baseSigma      float64
			hoursRemaining float64
			current        *float64
			forecast       float64
		}{
			{"zero hours remaining", 2.2, 0, nil, 80},
			{"huge overshoot", 2.0, 1, floatPtr(99), 80},
			{"tiny base sigma", 0.6, 0.1, floatPtr(85), 80},
			{"full window", 4.5, 12, nil, 80},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				got := adjustedSigma(tc.baseSigma, tc.hoursRemaining, tc.current, tc.forecast)
				assert.GreaterOrEqual(t, got, 0.5)
			})
		}
	})

	t.Run("overshoot reduction bounded at 0.3", func(t *testing.T) {
		// Overshoot of 40 degrees would drive the factor negative without
		// the clamp.
		got := adjustedSigma(2.0, 12, floatPtr(120), 80)
		assert.InDelta(t, 2.0*0.3, got, 1e-9)
	})
}

func TestAdjustedMean(t *testing.T) {
	t.Run("no reading returns forecast", func(t *testing.T) {
		assert.Equal(t, 80.0, adjustedMean(80, nil, 6))
	})

	t.Run("reading at forecast locks in with upside buffer", func(t *testing.T) {
		// current == forecast: buffer is zero, only the +0.5 residual.
		assert.InDelta(t, 80.5, adjustedMean(80, floatPtr(80), 6), 1e-9)
	})

	t.Run("late cool reading blends toward the reading", func(t *testing.T) {
		// 11 of 12 hours elapsed: weight = min(0.8, 11/12) = 0.8.
		got := adjustedMean(80, floatPtr(70), 1)
		assert.InDelta(t, 70*0.8+80*0.2, got, 1e-9)
	})

	t.Run("early cool reading shrinks the gap slightly", func(t *testing.T) {
		// Half elapsed, gap of 2: mu = 80 - 2*0.5*0.3.
		assert.InDelta(t, 79.7, adjustedMean(80, floatPtr(78), 6), 1e-9)
	})
}

func TestDefaultHoursRemaining(t *testing.T) {
	cases := []struct {
		name   string
		hour   int
		minute int
		want   float64
	}{
		{"early morning counts to noon", 8, 0, 4},
		{"just before noon", 11, 30, 0.5},
		{"afternoon counts to midnight", 14, 0, 10},
		{"evening", 22, 30, 1.5},
		{"midnight clamps to window", 0, 0, 12},
		{"noon exactly", 12, 0, 12},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, defaultHoursRemaining(tc.hour, tc.minute), 1e-9)
		})
	}
}

func TestGenerateBrackets(t *testing.T) {
	t.Run("always six contiguous ranges spanning the line", func(t *testing.T) {
		for _, forecast := range []float64{49.6, 50, 50.4, 51, 73.5, 80, 99.9} {
			bounds := generateBrackets(forecast)

			// Open tails on both ends.
			assert.True(t, bounds[0][0] < bounds[0][1], "forecast=%v", forecast)

			// Contiguous, 2 degrees wide, 8 degrees of closed range.
			for i := 0; i < 5; i++ {
				assert.Equal(t, bounds[i][1], bounds[i+1][0], "forecast=%v gap at %d", forecast, i)
			}
			bottom, top := bounds[0][1], bounds[5][0]
			assert.Equal(t, 8.0, top-bottom, "forecast=%v", forecast)

			// Bounds sit on even integers.
			assert.Zero(t, int(bottom)%2, "forecast=%v", forecast)
			assert.Zero(t, int(top)%2, "forecast=%v", forecast)
		}
	})

	t.Run("odd rounds up to even center", func(t *testing.T) {
		bounds := generateBrackets(51)
		assert.Equal(t, 48.0, bounds[0][1])
		assert.Equal(t, 56.0, bounds[5][0])
	})
}

func TestPriceBrackets(t *testing.T) {
	t.Run("probabilities sum to one", func(t *testing.T) {
		for _, sigma := range []float64{0.5, 1.56, 2.2, 4.5} {
			brackets := priceBrackets(80, sigma, 80, nil)
			require.Len(t, brackets, 6)

			sum := 0.0
			for _, b := range brackets {
				sum += b.Probability
			}
			assert.InDelta(t, 1.0, sum, 1e-3, "sigma=%v", sigma)
		}
	})

	t.Run("open-ended brackets have nil bounds", func(t *testing.T) {
		brackets := priceBrackets(80, 2.2, 80, nil)

		assert.Nil(t, brackets[0].Low)
		assert.NotNil(t, brackets[0].High)
		assert.NotNil(t, brackets[5].Low)
		assert.Nil(t, brackets[5].High)
		for _, b := range brackets[1:5] {
			assert.NotNil(t, b.Low)
			assert.NotNil(t, b.High)
		}
	})

	t.Run("reading above a bracket rules it out", func(t *testing.T) {
		// Current temp 85 exceeds every finite upper bound (max 84), so all
		// mass collapses into the open-above bracket.
		brackets := priceBrackets(85.5, 1.0, 80, floatPtr(85))

		for _, b := range brackets[:5] {
			assert.Less(t, b.Probability, 0.01, "bracket %q", b.Label)
		}
		assert.Greater(t, brackets[5].Probability, 0.9)
	})

	t.Run("labels describe the range", func(t *testing.T) {
		brackets := priceBrackets(50, 1.5, 50, nil)

		assert.Equal(t, "Below 46°F", brackets[0].Label)
		assert.Equal(t, "46-48°F", brackets[1].Label)
		assert.Equal(t, "54°F or above", brackets[5].Label)
	})
}
