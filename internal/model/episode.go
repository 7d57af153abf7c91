// Package model defines the core episode and symptom entry types.
package model

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of an episode.
type Status string

const (
	StatusActive   Status = "active"
	StatusResolved Status = "resolved"
	StatusArchived Status = "archived"
)

// ValidStatuses are the allowed episode statuses.
var ValidStatuses = map[Status]bool{
	StatusActive:   true,
	StatusResolved: true,
	StatusArchived: true,
}

// Episode is one contiguous illness period for one device.
type Episode struct {
	ID             string     `json:"id"`
	DeviceID       string     `json:"deviceId"`
	StartDate      time.Time  `json:"startDate"`
	EndDate        *time.Time `json:"endDate,omitempty"`
	EntryCount     int        `json:"entryCount"`
	Severity       Severity   `json:"severity,omitempty"`
	Status         Status     `json:"status"`
	Symptoms       []string   `json:"symptoms"`
	RecentSymptoms []string   `json:"recentSymptoms,omitempty"`
	LastEntryDate  *time.Time `json:"lastEntryDate,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// SymptomEntry is one day's self-report, owned by exactly one episode.
type SymptomEntry struct {
	ID                string                      `json:"id"`
	EpisodeID         string                      `json:"episodeId"`
	Date              time.Time                   `json:"date"`
	Symptoms          []string                    `json:"symptoms"`
	Notes             string                      `json:"notes,omitempty"`
	Severity          Severity                    `json:"severity,omitempty"`
	SymptomSeverities map[string]Severity         `json:"symptomSeverities,omitempty"`
	AIAnalysis        json.RawMessage             `json:"aiAnalysis,omitempty"`
	Progression       *EpisodeProgressionAnalysis `json:"progression,omitempty"`
	CreatedAt         time.Time                   `json:"createdAt"`
}
