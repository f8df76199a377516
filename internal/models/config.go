package models

import "fmt"

// AllowedCountries is the full set of market countries the engine may
// be configured for.
var AllowedCountries = []string{"GB", "IE", "ZA", "FR"}

// AllowedPointValues is the enumerated set of valid point values
var AllowedPointValues = []int{1, 2, 5, 10, 20, 50}

// EngineConfig is the hot-swappable scheduler-wide configuration. The
// engine owns the single instance; the control surface mutates it
// atomically between ticks.
type EngineConfig struct {
	DryRun               bool     `json:"dry_run"`
	PollIntervalSeconds  int      `json:"poll_interval_seconds"`
	ProcessWindowMinutes int      `json:"process_window_minutes"`
	Countries            []string `json:"countries"`
	PointValue           int      `json:"point_value"`
	SpreadControlEnabled bool     `json:"spread_control_enabled"`
	JOFSEnabled          bool     `json:"jofs_enabled"`
	MinOdds              float64  `json:"min_odds"`
	MaxLayOdds           float64  `json:"max_lay_odds"`
}

// DefaultEngineConfig returns the documented defaults
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DryRun:               true,
		PollIntervalSeconds:  30,
		ProcessWindowMinutes: 12,
		Countries:            []string{"GB", "IE"},
		PointValue:           1,
		SpreadControlEnabled: false,
		JOFSEnabled:          false,
		MinOdds:              2.0,
		MaxLayOdds:           50.0,
	}
}

// ValidCountry reports whether a country code is in the allowed set
func ValidCountry(code string) bool {
	for _, c := range AllowedCountries {
		if c == code {
			return true
		}
	}
	return false
}

// ValidPointValue reports whether v is in the enumerated set
func ValidPointValue(v int) bool {
	for _, p := range AllowedPointValues {
		if p == v {
			return true
		}
	}
	return false
}

// Validate checks the configuration against its documented ranges
func (c EngineConfig) Validate() error {
	if c.PollIntervalSeconds <= 0 {
		return fmt.Errorf("poll_interval_seconds must be positive, got %d", c.PollIntervalSeconds)
	}
	if c.ProcessWindowMinutes < 1 || c.ProcessWindowMinutes > 60 {
		return fmt.Errorf("process_window_minutes must be in [1,60], got %d", c.ProcessWindowMinutes)
	}
	if len(c.Countries) == 0 {
		return fmt.Errorf("countries must not be empty")
	}
	for _, code := range c.Countries {
		if !ValidCountry(code) {
			return fmt.Errorf("country %q not in allowed set %v", code, AllowedCountries)
		}
	}
	if !ValidPointValue(c.PointValue) {
		return fmt.Errorf("point_value %d not in allowed set %v", c.PointValue, AllowedPointValues)
	}
	if c.MinOdds < 1.0 {
		return fmt.Errorf("min_odds must be at least 1.0, got %v", c.MinOdds)
	}
	if c.MaxLayOdds <= c.MinOdds {
		return fmt.Errorf("max_lay_odds %v must exceed min_odds %v", c.MaxLayOdds, c.MinOdds)
	}
	return nil
}

// Clone returns a deep copy so callers can hand out snapshots without
// sharing the countries slice.
func (c EngineConfig) Clone() EngineConfig {
	out := c
	out.Countries = append([]string(nil), c.Countries...)
	return out
}
