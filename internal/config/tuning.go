package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for tracker tuning
// parameters. Fields are pointers so a partial JSON file is safe: the
// Get* accessors fall back to compiled-in defaults for anything unset.
type TuningConfig struct {
	// Kalman filter params
	NDim   *int      `json:"ndim,omitempty"`
	SigmaZ []float64 `json:"sigma_z,omitempty"`
	SigmaV []float64 `json:"sigma_v,omitempty"`

	// Association/lifecycle params
	MatchCutoff         *float64 `json:"match_cutoff,omitempty"`
	TrackTimeoutSeconds *float64 `json:"track_timeout_seconds,omitempty"`
	HistoryCapacity     *int     `json:"history_capacity,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
// Use LoadTuningConfig to load actual values from a defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// have a .json extension and be under the max file size. Fields omitted
// from the JSON retain their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath. It searches for the file in the current directory
// and common parent directories. Panics if the file cannot be loaded,
// intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from deeper packages
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.NDim != nil && *c.NDim <= 0 {
		return fmt.Errorf("ndim must be positive, got %d", *c.NDim)
	}

	ndim := c.GetNDim()
	if c.SigmaZ != nil && len(c.SigmaZ) != ndim {
		return fmt.Errorf("sigma_z must have %d entries, got %d", ndim, len(c.SigmaZ))
	}
	if c.SigmaV != nil && len(c.SigmaV) != ndim {
		return fmt.Errorf("sigma_v must have %d entries, got %d", ndim, len(c.SigmaV))
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

	if c.MatchCutoff != nil {
		if *c.MatchCutoff <= 0 || *c.MatchCutoff > 1 {
			return fmt.Errorf("match_cutoff must be in (0, 1], got %f", *c.MatchCutoff)
		}
	}
	if c.TrackTimeoutSeconds != nil && *c.TrackTimeoutSeconds <= 0 {
		return fmt.Errorf("track_timeout_seconds must be positive, got %f", *c.TrackTimeoutSeconds)
	}
	if c.HistoryCapacity != nil && *c.HistoryCapacity <= 0 {
		return fmt.Errorf("history_capacity must be positive, got %d", *c.HistoryCapacity)
	}

	return nil
}

// GetNDim returns the ndim value or the default.
func (c *TuningConfig) GetNDim() int {
	if c.NDim == nil {
		return 4 // [left, top, right, bottom] boxes
	}
	return *c.NDim
}

// GetSigmaZ returns the sigma_z values or the default.
func (c *TuningConfig) GetSigmaZ() []float64 {
	if c.SigmaZ == nil {
		return uniform(c.GetNDim(), 0.05)
	}
	out := make([]float64, len(c.SigmaZ))
	copy(out, c.SigmaZ)
	return out
}

// GetSigmaV returns the sigma_v values or the default.
func (c *TuningConfig) GetSigmaV() []float64 {
	if c.SigmaV == nil {
		return uniform(c.GetNDim(), 0.5)
	}
	out := make([]float64, len(c.SigmaV))
	copy(out, c.SigmaV)
	return out
}

// GetMatchCutoff returns the match_cutoff value or the default.
func (c *TuningConfig) GetMatchCutoff() float64 {
	if c.MatchCutoff == nil {
		return 0.2
	}
	return *c.MatchCutoff
}

// GetTrackTimeoutSeconds returns the track_timeout_seconds value or the default.
func (c *TuningConfig) GetTrackTimeoutSeconds() float64 {
	if c.TrackTimeoutSeconds == nil {
		return 2.0
	}
	return *c.TrackTimeoutSeconds
}

// GetHistoryCapacity returns the history_capacity value or the default.
func (c *TuningConfig) GetHistoryCapacity() int {
	if c.HistoryCapacity == nil {
		return 250
	}
	return *c.HistoryCapacity
}

func uniform(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
