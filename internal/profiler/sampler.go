package profiler

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// Adaptive sampling constants.
const (
	// emaWeight is the weight of the latest observation in the per-function
	// moving average of own duration.
	emaWeight = 0.1

	defaultSlowThreshold = 10 * time.Millisecond
	defaultFastThreshold = time.Millisecond
	defaultMinRate       = 0.1
)

// SamplerConfig configures the sampling policy.
type SamplerConfig struct {
	// Rate is the base probability of measuring a call, in [0, 1].
	// Out-of-range values are clamped. 1.0 measures every call.
	Rate float64
	// Adaptive enables the feedback loop that raises the effective rate
	// for slow functions and lowers it for fast ones.
	Adaptive bool
	// SlowThreshold is the average duration above which a function's
	// effective rate is doubled (capped at 1.0).
	SlowThreshold time.Duration
	// FastThreshold is the average duration below which a function's
	// effective rate is halved (floored at MinRate).
	FastThreshold time.Duration
	// MinRate is the floor for the adaptive effective rate.
	MinRate float64
	// ExcludedPrefixes lists function-name prefixes that are never
	// measured: the profiler's own code, runtime bootstrap, and anything
	// else the host wants invisible. Checked before any random decision.
	ExcludedPrefixes []string
}

// Sampler decides per call whether it is measured. Safe for concurrent use.
type Sampler struct {
	cfg    SamplerConfig
	randFn func() float64

	mu    sync.RWMutex
	avg   map[string]time.Duration // EMA of own duration per function
	rates map[string]float64       // effective rate per function (adaptive)
}

// NewSampler creates a sampler from cfg, clamping Rate into [0, 1] and
// filling zero-value thresholds with defaults.
func NewSampler(cfg SamplerConfig) *Sampler {
	if cfg.Rate < 0 {
		cfg.Rate = 0
	}
	if cfg.Rate > 1 {
		cfg.Rate = 1
	}
	if cfg.SlowThreshold == 0 {
		cfg.SlowThreshold = defaultSlowThreshold
	}
	if cfg.FastThreshold == 0 {
		cfg.FastThreshold = defaultFastThreshold
	}
	if cfg.MinRate <= 0 {
		cfg.MinRate = defaultMinRate
	}
	return &Sampler{
		cfg:    cfg,
		randFn: rand.Float64,
		avg:    make(map[string]time.Duration),
		rates:  make(map[string]float64),
	}
}

// Rate returns the clamped base sampling rate.
func (s *Sampler) Rate() float64 {
	return s.cfg.Rate
}

// Excluded reports whether name falls under a statically excluded
// namespace. This check is prefix-only and lock-free so rejected calls pay
// as little as possible.
func (s *Sampler) Excluded(name string) bool {
	for _, p := range s.cfg.ExcludedPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Accept decides whether this particular call to name is measured.
func (s *Sampler) Accept(name string) bool {
	if s.Excluded(name) {
		return false
	}

	rate := s.cfg.Rate
	if s.cfg.Adaptive {
		s.mu.RLock()
		if r, ok := s.rates[name]; ok {
			rate = r
		}
		s.mu.RUnlock()
	}

	// Fast paths avoid the RNG entirely.
	if rate >= 1 {
		return true
	}
	if rate <= 0 {
		return false
	}
	return s.randFn() < rate
}

// Observe feeds a measured own-duration back into the adaptive state.
// No-op unless adaptive sampling is enabled.
func (s *Sampler) Observe(name string, elapsed time.Duration) {
	if !s.cfg.Adaptive {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, seen := s.avg[name]
	var next time.Duration
	if !seen {
		next = elapsed
	} else {
		next = time.Duration((1-emaWeight)*float64(prev) + emaWeight*float64(elapsed))
	}
	s.avg[name] = next

	rate, ok := s.rates[name]
	if !ok {
		rate = s.cfg.Rate
	}
	switch {
	case next > s.cfg.SlowThreshold:
		rate *= 2
		if rate > 1 {
			rate = 1
		}
	case next < s.cfg.FastThreshold:
		rate /= 2
		if rate < s.cfg.MinRate {
			rate = s.cfg.MinRate
		}
	}
	s.rates[name] = rate
}

// EffectiveRate returns the current effective rate for name: the adaptive
// rate when one has been learned, the base rate otherwise.
func (s *Sampler) EffectiveRate(name string) float64 {
	if s.cfg.Adaptive {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if r, ok := s.rates[name]; ok {
			return r
		}
	}
	return s.cfg.Rate
}

// reset clears the adaptive feedback state.
func (s *Sampler) reset() {
	s.mu.Lock()
	s.avg = make(map[string]time.Duration)
	s.rates = make(map[string]float64)
	s.mu.Unlock()
}
