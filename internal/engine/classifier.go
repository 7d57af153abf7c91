package engine

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/symptrack/internal/model"
)

// IDSource generates the id for a newly constructed episode. seq is the number
// of episodes the device already has.
type IDSource func(p model.EpisodeDeterminationParams, seq int) string

// Option configures a Classifier.
type Option func(*Classifier)

// WithPolicy overrides the classification thresholds.
func WithPolicy(p Policy) Option {
	return func(c *Classifier) { c.policy = p }
}

// WithClock sets the time source used for created/updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) { c.now = now }
}

// WithIDSource sets the id generator for new episodes.
func WithIDSource(src IDSource) Option {
	return func(c *Classifier) { c.newID = src }
}

// Classifier maps a new (device, date, symptoms) observation onto an episode.
type Classifier struct {
	policy Policy
	now    func() time.Time
	newID  IDSource
}

// NewClassifier creates a classifier with the default policy, the wall clock
// and deterministic episode ids.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		policy: DefaultPolicy(),
		now:    time.Now,
		newID:  DeterministicID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the thresholds in effect.
func (c *Classifier) Policy() Policy {
	return c.policy
}

// DeterministicID derives a ULID from the candidate date and a hash of the
// device, symptoms and seq, so replaying the same input yields the same id.
func DeterministicID(p model.EpisodeDeterminationParams, seq int) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%s", p.DeviceID, model.FormatDate(Day(p.Date)), seq,
		strings.Join(sortedSymptoms(p.Symptoms), ","))
	entropy := bytes.NewReader(h.Sum(nil))
	return ulid.MustNew(ulid.Timestamp(Day(p.Date)), entropy).String()
}

type candidate struct {
	episode model.Episode
	gap     int
	shared  []string
}

// DetermineEpisode decides whether the candidate entry continues one of the
// device's existing episodes or starts a new one. Only active episodes are
// continued; a resolved episode is reopened only when no active episode
// qualifies. existing is never modified.
func (c *Classifier) DetermineEpisode(p model.EpisodeDeterminationParams, existing []model.Episode) (*model.EpisodeCreationResult, error) {
	symptoms, threshold, err := c.validate(p)
	if err != nil {
		return nil, err
	}
	date := Day(p.Date)

	var active, reopenable []candidate
	seq := 0
	for _, ep := range existing {
		if ep.DeviceID != p.DeviceID {
			continue
		}
		seq++
		cand, ok := c.evaluate(ep, date, symptoms, threshold)
		if !ok {
			continue
		}
		switch ep.Status {
		case model.StatusActive:
			active = append(active, cand)
		case model.StatusResolved:
			if cand.gap <= c.policy.ReopenGap {
				reopenable = append(reopenable, cand)
			}
		}
	}

	if best, ok := pick(active); ok {
		res := &model.EpisodeCreationResult{Episode: cloneEpisode(best.episode)}
		if len(best.shared) > 0 {
			res.Message = fmt.Sprintf("continuing episode %s: %d day(s) from its last activity, shared symptoms: %s",
				best.episode.ID, best.gap, strings.Join(best.shared, ", "))
		} else {
			res.Message = fmt.Sprintf("continuing episode %s: %d day(s) from its last activity with no shared symptoms (within %d-day proximity)",
				best.episode.ID, best.gap, c.policy.TemporalOnlyGap)
		}
		return res, nil
	}

	if best, ok := pick(reopenable); ok {
		res := &model.EpisodeCreationResult{
			Episode:         cloneEpisode(best.episode),
			NeedsReanalysis: true,
			ReopenEpisode:   true,
			Message: fmt.Sprintf("reopening resolved episode %s: entry is %d day(s) from its end date %s",
				best.episode.ID, best.gap, model.FormatDate(LastActivity(best.episode))),
		}
		res.Episode.EndDate = nil
		res.Episode.Status = model.StatusActive
		res.Episode.UpdatedAt = c.now().UTC()
		return res, nil
	}

	now := c.now().UTC()
	ep := model.Episode{
		ID:        c.newID(p, seq),
		DeviceID:  p.DeviceID,
		StartDate: date,
		Status:    model.StatusActive,
		Symptoms:  symptoms,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return &model.EpisodeCreationResult{
		Episode:      ep,
		IsNewEpisode: true,
		Message: fmt.Sprintf("no eligible episode within %d day(s); starting new episode on %s",
			threshold, model.FormatDate(date)),
	}, nil
}

// pick returns the candidate with the smallest gap, breaking ties by the
// latest start date and then the lowest id.
func pick(cands []candidate) (candidate, bool) {
	if len(cands) == 0 {
		return candidate{}, false
	}
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.gap != b.gap {
			return a.gap < b.gap
		}
		if !a.episode.StartDate.Equal(b.episode.StartDate) {
			return a.episode.StartDate.After(b.episode.StartDate)
		}
		return a.episode.ID < b.episode.ID
	})
	return cands[0], true
}

func (c *Classifier) validate(p model.EpisodeDeterminationParams) ([]string, int, error) {
	if strings.TrimSpace(p.DeviceID) == "" {
		return nil, 0, fmt.Errorf("%w: device id is required", ErrUnknownDevice)
	}
	if !validDate(p.Date) {
		return nil, 0, fmt.Errorf("%w: entry date %v", ErrInvalidDate, p.Date)
	}
	symptoms := NormalizeSymptoms(p.Symptoms)
	if len(symptoms) == 0 {
		return nil, 0, ErrEmptySymptoms
	}
	if p.DayThreshold == nil {
		return symptoms, c.policy.DayThreshold, nil
	}
	if *p.DayThreshold < 0 {
		return nil, 0, fmt.Errorf("%w: %d", ErrInvalidThreshold, *p.DayThreshold)
	}
	return symptoms, *p.DayThreshold, nil
}

// evaluate applies the gap and overlap rules to one episode of the same
// device, ignoring its status.
func (c *Classifier) evaluate(ep model.Episode, date time.Time, symptoms []string, threshold int) (candidate, bool) {
	gap := gapDays(ep, date)
	if gap > threshold {
		return candidate{}, false
	}
	shared := Intersect(symptoms, Union(ep.Symptoms, ep.RecentSymptoms))
	if len(shared) == 0 && gap > c.policy.TemporalOnlyGap {
		return candidate{}, false
	}
	return candidate{episode: ep, gap: gap, shared: shared}, true
}

func cloneEpisode(ep model.Episode) model.Episode {
	out := ep
	out.Symptoms = append([]string(nil), ep.Symptoms...)
	out.RecentSymptoms = append([]string(nil), ep.RecentSymptoms...)
	if ep.EndDate != nil {
		t := *ep.EndDate
		out.EndDate = &t
	}
	if ep.LastEntryDate != nil {
		t := *ep.LastEntryDate
		out.LastEntryDate = &t
	}
	return out
}
