package model

import "time"

// Trend characterizes progression between consecutive entries.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendWorsening Trend = "worsening"
)

// Direction is the movement of a severity between two entries.
type Direction string

const (
	DirectionIncreased Direction = "increased"
	DirectionDecreased Direction = "decreased"
	DirectionUnchanged Direction = "unchanged"
)

// OverallSymptom names the synthetic severity change built from whole-entry severity.
const OverallSymptom = "overall"

// EpisodeDeterminationParams is the classifier input for one candidate entry.
type EpisodeDeterminationParams struct {
	DeviceID     string    `json:"deviceId"`
	Date         time.Time `json:"date"`
	Symptoms     []string  `json:"symptoms"`
	// DayThreshold overrides the policy threshold when set. Zero allows
	// same-day continuation only.
	DayThreshold *int      `json:"dayThreshold,omitempty"`
}

// EpisodeCreationResult is the classifier output.
type EpisodeCreationResult struct {
	Episode         Episode `json:"episode"`
	IsNewEpisode    bool    `json:"isNewEpisode"`
	Message         string  `json:"message"`
	NeedsReanalysis bool    `json:"needsReanalysis"`
	// ReopenEpisode instructs the caller to clear EndDate and set the stored
	// episode back to active before attaching the entry.
	ReopenEpisode bool `json:"reopenEpisode,omitempty"`
}

// SeverityChange records how one symptom's severity moved.
type SeverityChange struct {
	Symptom   string    `json:"symptom"`
	Previous  Severity  `json:"previous"`
	Current   Severity  `json:"current"`
	Direction Direction `json:"direction"`
}

// SymptomChanges is the symptom-set delta between the preceding and new entry.
type SymptomChanges struct {
	New             []string         `json:"new"`
	Resolved        []string         `json:"resolved"`
	Ongoing         []string         `json:"ongoing"`
	SeverityChanges []SeverityChange `json:"severityChanges"`
}

// EpisodeProgressionAnalysis is the progression analyzer output.
type EpisodeProgressionAnalysis struct {
	Trend              Trend          `json:"trend"`
	SymptomChanges     SymptomChanges `json:"symptomChanges"`
	DayNumber          int            `json:"dayNumber"`
	ProgressionSummary string         `json:"progressionSummary"`
	PreviousEntries    []SymptomEntry `json:"previousEntries,omitempty"`
	PreviousEntryIDs   []string       `json:"previousEntryIds,omitempty"`
}
