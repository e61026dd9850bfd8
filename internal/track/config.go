package track

import (
	"fmt"

	"github.com/iamlemec/waroncars/internal/config"
)

// TrackerConfig holds configuration parameters for the tracker.
// All fields are fixed for the lifetime of a Tracker.
type TrackerConfig struct {
	NDim            int       // Measurement dimensionality (4 for [l,t,r,b] boxes)
	SigmaZ          []float64 // Per-dimension measurement-noise stddev, length NDim
	SigmaV          []float64 // Per-dimension velocity-prior stddev, length NDim
	Timeout         float64   // Seconds without an update before a track is evicted
	Cutoff          float64   // Maximum association cost for a valid match
	HistoryCapacity int       // Bounded per-track sample history length
}

// DefaultTrackerConfig returns tracker configuration loaded from the
// canonical tuning defaults file (config/tuning.defaults.json).
// Panics if the file cannot be found — intended for tests and binaries
// that have already validated config availability.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfigFromTuning(config.MustLoadDefaultConfig())
}

// TrackerConfigFromTuning builds a TrackerConfig from a loaded
// TuningConfig. Use this in production code where the TuningConfig is
// already loaded.
func TrackerConfigFromTuning(cfg *config.TuningConfig) TrackerConfig {
	return TrackerConfig{
		NDim:            cfg.GetNDim(),
		SigmaZ:          cfg.GetSigmaZ(),
		SigmaV:          cfg.GetSigmaV(),
		Timeout:         cfg.GetTrackTimeoutSeconds(),
		Cutoff:          cfg.GetMatchCutoff(),
		HistoryCapacity: cfg.GetHistoryCapacity(),
	}
}

// Validate checks the configuration for internal consistency.
// Association requires an even NDim so measurements decompose into box
// low/high edges.
func (c TrackerConfig) Validate() error {
	if c.NDim <= 0 {
		return fmt.Errorf("ndim must be positive, got %d", c.NDim)
	}
	if c.NDim%2 != 0 {
		return fmt.Errorf("ndim must be even for box association, got %d", c.NDim)
	}
	if len(c.SigmaZ) != c.NDim {
		return fmt.Errorf("sigma_z must have length %d, got %d", c.NDim, len(c.SigmaZ))
	}
	if len(c.SigmaV) != c.NDim {
		return fmt.Errorf("sigma_v must have length %d, got %d", c.NDim, len(c.SigmaV))
	}
	for i, s := range c.SigmaZ {
		if s < 0 {
			return fmt.Errorf("sigma_z[%d] must be non-negative, got %f", i, s)
		}
	}
	for i, s := range c.SigmaV {
		if s < 0 {
			return fmt.Errorf("sigma_v[%d] must be non-negative, got %f", i, s)
		}
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %f", c.Timeout)
	}
	if c.Cutoff <= 0 || c.Cutoff > 1 {
		return fmt.Errorf("cutoff must be in (0, 1], got %f", c.Cutoff)
	}
	if c.HistoryCapacity <= 0 {
		return fmt.Errorf("history capacity must be positive, got %d", c.HistoryCapacity)
	}
	return nil
}
