// Package tracker runs the classify, persist and analyze flow for new symptom
// entries on top of a Store.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rcliao/symptrack/internal/engine"
	"github.com/rcliao/symptrack/internal/model"
	"github.com/rcliao/symptrack/internal/narrative"
	"github.com/rcliao/symptrack/internal/store"
)

// LogParams describes a new symptom report.
type LogParams struct {
	DeviceID          string
	Date              time.Time
	Symptoms          []string
	Notes             string
	Severity          model.Severity
	SymptomSeverities map[string]model.Severity
	DayThreshold      *int // nil uses the classifier policy
}

// LogResult is what LogEntry persisted.
type LogResult struct {
	Classification *model.EpisodeCreationResult      `json:"classification"`
	Episode        model.Episode                     `json:"episode"`
	Entry          model.SymptomEntry                `json:"entry"`
	Analysis       *model.EpisodeProgressionAnalysis `json:"analysis"`
	Reanalyzed     int                               `json:"reanalyzed,omitempty"`
}

// Tracker serializes writes per device so every classification sees a
// consistent snapshot of that device's episodes. Each operation runs its reads
// and writes in one store transaction; the store's immediate transactions
// serialize writers across processes sharing a database file.
type Tracker struct {
	store      store.Store
	classifier *engine.Classifier
	narrator   narrative.Narrator
	logger     *slog.Logger
	now        func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a tracker. narrator may be nil to disable narratives.
func New(s store.Store, c *engine.Classifier, n narrative.Narrator, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		store:      s,
		classifier: c,
		narrator:   n,
		logger:     logger,
		now:        time.Now,
		locks:      make(map[string]*sync.Mutex),
	}
}

func (t *Tracker) lock(deviceID string) func() {
	t.mu.Lock()
	l, ok := t.locks[deviceID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[deviceID] = l
	}
	t.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// LogEntry classifies a new report, creates or reopens its episode, stores
// the entry with its progression analysis and refreshes the episode's
// cached fields. Nothing is persisted unless every step succeeds. The
// narrative is generated after commit.
func (t *Tracker) LogEntry(ctx context.Context, p LogParams) (*LogResult, error) {
	unlock := t.lock(p.DeviceID)
	defer unlock()

	var out *LogResult
	err := t.store.InTx(ctx, func(tx store.Store) error {
		var err error
		out, err = t.logEntry(ctx, tx, p)
		return err
	})
	if err != nil {
		return nil, err
	}

	t.narrate(ctx, out.Episode, &out.Entry, out.Analysis)
	return out, nil
}

func (t *Tracker) logEntry(ctx context.Context, tx store.Store, p LogParams) (*LogResult, error) {
	existing, err := tx.ListEpisodes(ctx, store.ListEpisodesParams{DeviceID: p.DeviceID})
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}

	res, err := t.classifier.DetermineEpisode(model.EpisodeDeterminationParams{
		DeviceID:     p.DeviceID,
		Date:         p.Date,
		Symptoms:     p.Symptoms,
		DayThreshold: p.DayThreshold,
	}, existing)
	if err != nil {
		return nil, err
	}
	t.logger.Info("episode classified",
		"device_id", p.DeviceID,
		"episode_id", res.Episode.ID,
		"new", res.IsNewEpisode,
		"reopen", res.ReopenEpisode,
		"reason", res.Message)

	ep := res.Episode
	switch {
	case res.IsNewEpisode:
		if err := tx.CreateEpisode(ctx, ep); err != nil {
			return nil, err
		}
	case res.ReopenEpisode:
		if err := tx.UpdateEpisode(ctx, ep); err != nil {
			return nil, fmt.Errorf("reopen episode: %w", err)
		}
	}

	entry, err := tx.AddEntry(ctx, store.AddEntryParams{
		EpisodeID:         ep.ID,
		Date:              engine.Day(p.Date),
		Symptoms:          engine.NormalizeSymptoms(p.Symptoms),
		Notes:             p.Notes,
		Severity:          p.Severity,
		SymptomSeverities: p.SymptomSeverities,
	})
	if err != nil {
		return nil, err
	}

	updated := engine.ApplyEntry(ep, *entry, t.now())
	if err := tx.UpdateEpisode(ctx, updated); err != nil {
		return nil, fmt.Errorf("update episode: %w", err)
	}

	out := &LogResult{Classification: res, Episode: updated, Entry: *entry}

	// A moved start date shifts every day number, so replay the whole episode.
	needsReanalysis := res.NeedsReanalysis || !updated.StartDate.Equal(ep.StartDate) ||
		(updated.LastEntryDate != nil && entry.Date.Before(*updated.LastEntryDate))
	if needsReanalysis {
		analyses, err := t.reanalyze(ctx, tx, updated)
		if err != nil {
			return nil, err
		}
		out.Reanalyzed = len(analyses)
		out.Analysis = analyses[entry.ID]
	} else {
		prior, err := tx.ListEntries(ctx, ep.ID)
		if err != nil {
			return nil, fmt.Errorf("list entries: %w", err)
		}
		analysis, err := engine.AnalyzeProgression(updated, prior, *entry)
		if err != nil {
			return nil, err
		}
		if err := tx.SaveProgression(ctx, entry.ID, analysis); err != nil {
			return nil, err
		}
		out.Analysis = analysis
	}
	out.Entry.Progression = out.Analysis

	t.logger.Debug("progression analyzed",
		"entry_id", entry.ID,
		"trend", out.Analysis.Trend,
		"day", out.Analysis.DayNumber,
		"reanalyzed", out.Reanalyzed)
	return out, nil
}

// Reanalyze recomputes progression for every entry of an episode in date order.
func (t *Tracker) Reanalyze(ctx context.Context, episodeID string) (int, error) {
	ep, err := t.store.GetEpisode(ctx, episodeID)
	if err != nil {
		return 0, err
	}
	unlock := t.lock(ep.DeviceID)
	defer unlock()

	n := 0
	err = t.store.InTx(ctx, func(tx store.Store) error {
		ep, err := tx.GetEpisode(ctx, episodeID)
		if err != nil {
			return err
		}
		analyses, err := t.reanalyze(ctx, tx, *ep)
		n = len(analyses)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (t *Tracker) reanalyze(ctx context.Context, tx store.Store, ep model.Episode) (map[string]*model.EpisodeProgressionAnalysis, error) {
	entries, err := tx.ListEntries(ctx, ep.ID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	out := make(map[string]*model.EpisodeProgressionAnalysis, len(entries))
	for _, e := range entries {
		a, err := engine.AnalyzeProgression(ep, entries, e)
		if err != nil {
			return nil, err
		}
		if err := tx.SaveProgression(ctx, e.ID, a); err != nil {
			return nil, err
		}
		out[e.ID] = a
	}
	t.logger.Info("episode reanalyzed", "episode_id", ep.ID, "entries", len(entries))
	return out, nil
}

// narrate asks the narrator for a narrative and stores it on the entry.
// Failures are logged and leave AIAnalysis empty; the entry is already saved.
func (t *Tracker) narrate(ctx context.Context, ep model.Episode, entry *model.SymptomEntry, a *model.EpisodeProgressionAnalysis) {
	if t.narrator == nil {
		return
	}
	n, err := t.narrator.Narrate(ctx, narrative.Request{Episode: ep, Entry: *entry, Analysis: a})
	if err != nil {
		t.logger.Warn("narrative generation failed", "entry_id", entry.ID, "model", t.narrator.Model(), "error", err)
		return
	}
	payload, err := n.Payload()
	if err == nil {
		err = t.store.SetAIAnalysis(ctx, entry.ID, payload)
	}
	if err != nil {
		t.logger.Warn("storing narrative failed", "entry_id", entry.ID, "error", err)
		return
	}
	entry.AIAnalysis = payload
}

// CloseEpisode resolves an episode as of end.
func (t *Tracker) CloseEpisode(ctx context.Context, episodeID string, end time.Time) (*model.Episode, error) {
	return t.transition(ctx, episodeID, func(ep model.Episode) (model.Episode, error) {
		return engine.CloseEpisode(ep, end, t.now())
	})
}

// ArchiveEpisode archives an episode so it is never continued.
func (t *Tracker) ArchiveEpisode(ctx context.Context, episodeID string) (*model.Episode, error) {
	return t.transition(ctx, episodeID, func(ep model.Episode) (model.Episode, error) {
		return engine.ArchiveEpisode(ep, t.now()), nil
	})
}

// ReopenEpisode clears a resolved episode's end date.
func (t *Tracker) ReopenEpisode(ctx context.Context, episodeID string) (*model.Episode, error) {
	return t.transition(ctx, episodeID, func(ep model.Episode) (model.Episode, error) {
		return engine.ReopenEpisode(ep, t.now())
	})
}

func (t *Tracker) transition(ctx context.Context, episodeID string, fn func(model.Episode) (model.Episode, error)) (*model.Episode, error) {
	ep, err := t.store.GetEpisode(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	unlock := t.lock(ep.DeviceID)
	defer unlock()

	var from model.Status
	var next model.Episode
	err = t.store.InTx(ctx, func(tx store.Store) error {
		// Re-read under the device lock.
		cur, err := tx.GetEpisode(ctx, episodeID)
		if err != nil {
			return err
		}
		from = cur.Status
		if next, err = fn(*cur); err != nil {
			return err
		}
		return tx.UpdateEpisode(ctx, next)
	})
	if err != nil {
		return nil, err
	}
	t.logger.Info("episode status changed", "episode_id", next.ID, "from", from, "to", next.Status)
	return &next, nil
}

// IsValidation reports whether err is an input validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, engine.ErrEmptySymptoms) ||
		errors.Is(err, engine.ErrInvalidDate) ||
		errors.Is(err, engine.ErrUnknownDevice) ||
		errors.Is(err, engine.ErrInvalidThreshold) ||
		errors.Is(err, engine.ErrEndBeforeStart) ||
		errors.Is(err, engine.ErrArchived)
}
