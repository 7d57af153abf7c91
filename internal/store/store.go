// Package store provides the episode storage interface and SQLite implementation.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rcliao/symptrack/internal/model"
)

// ErrNotFound is returned when an episode or entry does not exist.
var ErrNotFound = errors.New("not found")

// ListEpisodesParams holds filters for listing episodes.
type ListEpisodesParams struct {
	DeviceID string
	Status   model.Status
	Limit    int // 0 means no limit
}

// AddEntryParams holds parameters for storing a symptom entry.
type AddEntryParams struct {
	EpisodeID         string
	Date              time.Time
	Symptoms          []string
	Notes             string
	Severity          model.Severity
	SymptomSeverities map[string]model.Severity
}

// Store defines the episode storage interface.
type Store interface {
	// CreateEpisode inserts a new episode.
	CreateEpisode(ctx context.Context, ep model.Episode) error

	// UpdateEpisode overwrites the mutable fields of an existing episode.
	UpdateEpisode(ctx context.Context, ep model.Episode) error

	// GetEpisode retrieves an episode by id.
	GetEpisode(ctx context.Context, id string) (*model.Episode, error)

	// ListEpisodes lists episodes, most recent start first.
	ListEpisodes(ctx context.Context, p ListEpisodesParams) ([]model.Episode, error)

	// AddEntry stores a symptom entry and returns it with its id.
	AddEntry(ctx context.Context, p AddEntryParams) (*model.SymptomEntry, error)

	// ListEntries returns an episode's entries ascending by date.
	ListEntries(ctx context.Context, episodeID string) ([]model.SymptomEntry, error)

	// SaveProgression attaches a progression analysis to an entry.
	SaveProgression(ctx context.Context, entryID string, a *model.EpisodeProgressionAnalysis) error

	// SetAIAnalysis stores the opaque narrative payload for an entry.
	SetAIAnalysis(ctx context.Context, entryID string, payload json.RawMessage) error

	// InTx runs fn with a store whose reads and writes share one
	// transaction. An error from fn rolls every write back.
	InTx(ctx context.Context, fn func(Store) error) error

	// Close closes the store.
	Close() error
}
