package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rcliao/symptrack/internal/model"
)

// AnalyzeProgression compares entry against the immediately preceding entry of
// the episode and derives the symptom delta, trend and day number.
//
// prior may be in any order and may include entry itself; duplicate dates
// collapse to the most recently created entry, and entries dated on or after
// entry are not considered.
func AnalyzeProgression(ep model.Episode, prior []model.SymptomEntry, entry model.SymptomEntry) (*model.EpisodeProgressionAnalysis, error) {
	if !validDate(ep.StartDate) {
		return nil, fmt.Errorf("%w: episode %s start date %v", ErrInvalidDate, ep.ID, ep.StartDate)
	}
	if !validDate(entry.Date) {
		return nil, fmt.Errorf("%w: entry %s date %v", ErrInvalidDate, entry.ID, entry.Date)
	}
	for _, e := range prior {
		if !validDate(e.Date) {
			return nil, fmt.Errorf("%w: prior entry %s date %v", ErrInvalidDate, e.ID, e.Date)
		}
	}

	history := precedingHistory(prior, entry)
	analysis := &model.EpisodeProgressionAnalysis{
		Trend:     model.TrendStable,
		DayNumber: DayNumber(ep, entry.Date),
		SymptomChanges: model.SymptomChanges{
			New:             []string{},
			Resolved:        []string{},
			Ongoing:         []string{},
			SeverityChanges: []model.SeverityChange{},
		},
		PreviousEntries:  history,
		PreviousEntryIDs: make([]string, 0, len(history)),
	}
	for _, e := range history {
		analysis.PreviousEntryIDs = append(analysis.PreviousEntryIDs, e.ID)
	}

	if len(history) == 0 {
		analysis.ProgressionSummary = fmt.Sprintf("Day %d: first entry of episode with %d symptom(s).",
			analysis.DayNumber, len(NormalizeSymptoms(entry.Symptoms)))
		return analysis, nil
	}

	prev := history[len(history)-1]
	changes := &analysis.SymptomChanges
	changes.New = Difference(entry.Symptoms, prev.Symptoms)
	changes.Resolved = Difference(prev.Symptoms, entry.Symptoms)
	changes.Ongoing = Intersect(entry.Symptoms, prev.Symptoms)
	changes.SeverityChanges = severityChanges(prev, entry, changes.Ongoing)

	analysis.Trend = deriveTrend(OverallSeverity(prev), OverallSeverity(entry), len(changes.New), len(changes.Resolved))
	analysis.ProgressionSummary = summarize(analysis, OverallSeverity(prev), OverallSeverity(entry))
	return analysis, nil
}

// DayNumber is the 1-based calendar day of date within the episode.
func DayNumber(ep model.Episode, date time.Time) int {
	n := DaysBetween(ep.StartDate, date) + 1
	if n < 1 {
		return 1
	}
	return n
}

// OverallSeverity is the whole-entry severity, falling back to the highest
// per-symptom severity.
func OverallSeverity(e model.SymptomEntry) model.Severity {
	if e.Severity.Rank() > 0 {
		return e.Severity
	}
	overall := model.SeverityNone
	for _, s := range e.SymptomSeverities {
		overall = model.MaxSeverity(overall, s)
	}
	return overall
}

// precedingHistory returns the entries dated before entry, ascending by date,
// one per date.
func precedingHistory(prior []model.SymptomEntry, entry model.SymptomEntry) []model.SymptomEntry {
	day := Day(entry.Date)
	sorted := make([]model.SymptomEntry, 0, len(prior))
	for _, e := range prior {
		if entry.ID != "" && e.ID == entry.ID {
			continue
		}
		if !Day(e.Date).Before(day) {
			continue
		}
		sorted = append(sorted, e)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := Day(sorted[i].Date), Day(sorted[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	out := make([]model.SymptomEntry, 0, len(sorted))
	for _, e := range sorted {
		if n := len(out); n > 0 && Day(out[n-1].Date).Equal(Day(e.Date)) {
			out[n-1] = e
			continue
		}
		out = append(out, e)
	}
	return out
}

func severityChanges(prev, cur model.SymptomEntry, ongoing []string) []model.SeverityChange {
	changes := []model.SeverityChange{}
	if len(prev.SymptomSeverities) > 0 && len(cur.SymptomSeverities) > 0 {
		ps, cs := normalizeSeverities(prev.SymptomSeverities), normalizeSeverities(cur.SymptomSeverities)
		for _, s := range ongoing {
			p, okp := ps[s]
			c, okc := cs[s]
			if !okp || !okc {
				continue
			}
			changes = append(changes, model.SeverityChange{Symptom: s, Previous: p, Current: c, Direction: direction(p, c)})
		}
		if len(changes) > 0 {
			return changes
		}
	}

	p, c := OverallSeverity(prev), OverallSeverity(cur)
	if p.Rank() == 0 || c.Rank() == 0 {
		return changes
	}
	return append(changes, model.SeverityChange{Symptom: model.OverallSymptom, Previous: p, Current: c, Direction: direction(p, c)})
}

func normalizeSeverities(in map[string]model.Severity) map[string]model.Severity {
	out := make(map[string]model.Severity, len(in))
	for k, v := range in {
		if v.Rank() > 0 {
			out[NormalizeSymptom(k)] = v
		}
	}
	return out
}

func direction(prev, cur model.Severity) model.Direction {
	switch {
	case cur.Rank() > prev.Rank():
		return model.DirectionIncreased
	case cur.Rank() < prev.Rank():
		return model.DirectionDecreased
	default:
		return model.DirectionUnchanged
	}
}

// deriveTrend applies severity first, then the symptom-count delta.
func deriveTrend(prev, cur model.Severity, added, resolved int) model.Trend {
	if prev.Rank() > 0 && cur.Rank() > 0 {
		if cur.Rank() > prev.Rank() {
			return model.TrendWorsening
		}
		if cur.Rank() < prev.Rank() {
			return model.TrendImproving
		}
	}
	switch {
	case added > resolved:
		return model.TrendWorsening
	case resolved > added:
		return model.TrendImproving
	default:
		return model.TrendStable
	}
}

func summarize(a *model.EpisodeProgressionAnalysis, prev, cur model.Severity) string {
	parts := []string{fmt.Sprintf("Day %d: %s", a.DayNumber, a.Trend)}
	if ch := a.SymptomChanges; len(ch.New) > 0 {
		parts = append(parts, "new: "+strings.Join(ch.New, ", "))
	}
	if ch := a.SymptomChanges; len(ch.Resolved) > 0 {
		parts = append(parts, "resolved: "+strings.Join(ch.Resolved, ", "))
	}
	parts = append(parts, fmt.Sprintf("%d ongoing", len(a.SymptomChanges.Ongoing)))
	if prev.Rank() > 0 && cur.Rank() > 0 && prev != cur {
		parts = append(parts, fmt.Sprintf("severity %s -> %s", prev, cur))
	}
	return strings.Join(parts, "; ") + "."
}
