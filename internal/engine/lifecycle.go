package engine

import (
	"fmt"
	"time"

	"github.com/rcliao/symptrack/internal/model"
)

// ApplyEntry returns ep updated for a newly attached entry: entry count,
// rolled-up severity, latest entry date and symptoms, and UpdatedAt.
// An entry dated before StartDate moves the start back.
func ApplyEntry(ep model.Episode, entry model.SymptomEntry, now time.Time) model.Episode {
	out := cloneEpisode(ep)
	out.EntryCount++
	out.Severity = model.MaxSeverity(out.Severity, OverallSeverity(entry))

	date := Day(entry.Date)
	symptoms := NormalizeSymptoms(entry.Symptoms)
	if len(out.Symptoms) == 0 {
		out.Symptoms = symptoms
	}
	if out.LastEntryDate == nil || !date.Before(*out.LastEntryDate) {
		out.LastEntryDate = &date
		out.RecentSymptoms = symptoms
	}
	if date.Before(Day(out.StartDate)) {
		out.StartDate = date
	}
	out.UpdatedAt = now.UTC()
	return out
}

// CloseEpisode marks ep resolved as of end.
func CloseEpisode(ep model.Episode, end, now time.Time) (model.Episode, error) {
	if ep.Status == model.StatusArchived {
		return ep, fmt.Errorf("%w: %s", ErrArchived, ep.ID)
	}
	if !validDate(end) {
		return ep, fmt.Errorf("%w: end date %v", ErrInvalidDate, end)
	}
	end = Day(end)
	if end.Before(Day(ep.StartDate)) {
		return ep, fmt.Errorf("%w: %s < %s", ErrEndBeforeStart, model.FormatDate(end), model.FormatDate(ep.StartDate))
	}
	out := cloneEpisode(ep)
	out.EndDate = &end
	out.Status = model.StatusResolved
	out.UpdatedAt = now.UTC()
	return out, nil
}

// ArchiveEpisode marks ep archived. A missing end date is set to its last activity.
func ArchiveEpisode(ep model.Episode, now time.Time) model.Episode {
	out := cloneEpisode(ep)
	if out.EndDate == nil {
		end := LastActivity(ep)
		out.EndDate = &end
	}
	out.Status = model.StatusArchived
	out.UpdatedAt = now.UTC()
	return out
}

// ReopenEpisode clears the end date of a resolved episode.
func ReopenEpisode(ep model.Episode, now time.Time) (model.Episode, error) {
	if ep.Status == model.StatusArchived {
		return ep, fmt.Errorf("%w: %s", ErrArchived, ep.ID)
	}
	out := cloneEpisode(ep)
	out.EndDate = nil
	out.Status = model.StatusActive
	out.UpdatedAt = now.UTC()
	return out, nil
}
