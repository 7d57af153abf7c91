package engine

import "fmt"

const (
	// DefaultDayThreshold is the largest gap, in days, between an entry and an
	// episode's span for the entry to continue that episode.
	DefaultDayThreshold = 3

	// DefaultTemporalOnlyGap is the largest gap at which an entry continues an
	// episode even with no shared symptom, so symptoms may evolve day to day.
	DefaultTemporalOnlyGap = 1

	// DefaultReopenGap is the largest gap after a resolved episode's end date
	// at which a new entry reopens it instead of starting a new episode.
	DefaultReopenGap = 1
)

// Policy holds the classifier thresholds.
type Policy struct {
	DayThreshold    int `koanf:"day_threshold" json:"dayThreshold"`
	TemporalOnlyGap int `koanf:"temporal_only_gap" json:"temporalOnlyGap"`
	ReopenGap       int `koanf:"reopen_gap" json:"reopenGap"`
}

// DefaultPolicy returns the default classification thresholds.
func DefaultPolicy() Policy {
	return Policy{
		DayThreshold:    DefaultDayThreshold,
		TemporalOnlyGap: DefaultTemporalOnlyGap,
		ReopenGap:       DefaultReopenGap,
	}
}

// Validate checks that every threshold is non-negative.
func (p Policy) Validate() error {
	if p.DayThreshold < 0 {
		return fmt.Errorf("%w: day_threshold %d", ErrInvalidThreshold, p.DayThreshold)
	}
	if p.TemporalOnlyGap < 0 {
		return fmt.Errorf("%w: temporal_only_gap %d", ErrInvalidThreshold, p.TemporalOnlyGap)
	}
	if p.ReopenGap < 0 {
		return fmt.Errorf("%w: reopen_gap %d", ErrInvalidThreshold, p.ReopenGap)
	}
	return nil
}
