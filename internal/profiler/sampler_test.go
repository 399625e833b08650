package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplerClampsRate(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want float64
	}{
		{"negative clamps to zero", -0.5, 0},
		{"above one clamps to one", 1.5, 1},
		{"in range unchanged", 0.25, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSampler(SamplerConfig{Rate: tt.rate})
			assert.Equal(t, tt.want, s.Rate())
		})
	}
}

func TestSamplerFullRateAcceptsAll(t *testing.T) {
	s := NewSampler(SamplerConfig{Rate: 1.0})
	// Poison the RNG: the full-rate path must never consult it.
	s.randFn = func() float64 { panic("rng used at rate 1.0") }

	for i := 0; i < 100; i++ {
		require.True(t, s.Accept("work"))
	}
}

func TestSamplerZeroRateRejectsAll(t *testing.T) {
	s := NewSampler(SamplerConfig{Rate: 0})
	s.randFn = func() float64 { panic("rng used at rate 0") }

	for i := 0; i < 100; i++ {
		require.False(t, s.Accept("work"))
	}
}

func TestSamplerFractionalRate(t *testing.T) {
	s := NewSampler(SamplerConfig{Rate: 0.5})

	s.randFn = func() float64 { return 0.4 }
	assert.True(t, s.Accept("work"))

	s.randFn = func() float64 { return 0.6 }
	assert.False(t, s.Accept("work"))
}

func TestSamplerExcludedPrefixes(t *testing.T) {
	s := NewSampler(SamplerConfig{
		Rate:             1.0,
		ExcludedPrefixes: []string{"runtime.", "github.com/callscope/"},
	})

	assert.True(t, s.Excluded("runtime.mallocgc"))
	assert.True(t, s.Excluded("github.com/callscope/callscope/internal/profiler.goid"))
	assert.False(t, s.Excluded("main.work"))

	// Exclusion wins over the rate.
	assert.False(t, s.Accept("runtime.mallocgc"))
	assert.True(t, s.Accept("main.work"))
}

func TestAdaptiveRaisesRateForSlowFunctions(t *testing.T) {
	s := NewSampler(SamplerConfig{Rate: 0.2, Adaptive: true})

	// Well above the slow threshold: each observation doubles the rate.
	s.Observe("slow", 100*time.Millisecond)
	assert.InDelta(t, 0.4, s.EffectiveRate("slow"), 1e-9)

	s.Observe("slow", 100*time.Millisecond)
	assert.InDelta(t, 0.8, s.EffectiveRate("slow"), 1e-9)

	// Capped at 1.0.
	s.Observe("slow", 100*time.Millisecond)
	s.Observe("slow", 100*time.Millisecond)
	assert.Equal(t, 1.0, s.EffectiveRate("slow"))
}

func TestAdaptiveLowersRateForFastFunctions(t *testing.T) {
	s := NewSampler(SamplerConfig{Rate: 0.8, Adaptive: true, MinRate: 0.1})

	s.Observe("fast", 10*time.Microsecond)
	assert.InDelta(t, 0.4, s.EffectiveRate("fast"), 1e-9)

	s.Observe("fast", 10*time.Microsecond)
	assert.InDelta(t, 0.2, s.EffectiveRate("fast"), 1e-9)

	// Floored at MinRate.
	s.Observe("fast", 10*time.Microsecond)
	s.Observe("fast", 10*time.Microsecond)
	assert.InDelta(t, 0.1, s.EffectiveRate("fast"), 1e-9)
}

func TestAdaptiveNoHistoryUsesBaseRate(t *testing.T) {
	s := NewSampler(SamplerConfig{Rate: 0.3, Adaptive: true})
	assert.Equal(t, 0.3, s.EffectiveRate("never-seen"))
}

func TestAdaptiveMovingAverage(t *testing.T) {
	s := NewSampler(SamplerConfig{Rate: 1.0, Adaptive: true})

	// First observation seeds the average directly.
	s.Observe("f", 100*time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, s.avg["f"])

	// avg' = 0.9*avg + 0.1*latest
	s.Observe("f", 200*time.Millisecond)
	assert.InDelta(t, float64(110*time.Millisecond), float64(s.avg["f"]), float64(time.Microsecond))
}

func TestAdaptiveObserveNoOpWhenDisabled(t *testing.T) {
	s := NewSampler(SamplerConfig{Rate: 0.5})
	s.Observe("f", time.Second)
	assert.Empty(t, s.avg)
	assert.Equal(t, 0.5, s.EffectiveRate("f"))
}

func TestSamplerReset(t *testing.T) {
	s := NewSampler(SamplerConfig{Rate: 0.5, Adaptive: true})
	s.Observe("f", time.Second)
	require.NotEmpty(t, s.rates)

	s.reset()
	assert.Empty(t, s.avg)
	assert.Empty(t, s.rates)
	assert.Equal(t, 0.5, s.EffectiveRate("f"))
}
