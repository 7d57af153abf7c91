package engine

import (
	"time"

	"github.com/rcliao/symptrack/internal/model"
)

var unixEpoch = time.Unix(0, 0).UTC()

// Day truncates t to its calendar date, expressed as UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the signed number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// validDate reports whether t can be used as an entry or episode date.
func validDate(t time.Time) bool {
	return !t.IsZero() && !Day(t).Before(unixEpoch)
}

// LastActivity is the most recent date associated with an episode: its end
// date once resolved, else its latest entry date, else its start date.
func LastActivity(ep model.Episode) time.Time {
	if ep.Status == model.StatusResolved && ep.EndDate != nil {
		return Day(*ep.EndDate)
	}
	if ep.LastEntryDate != nil && !ep.LastEntryDate.Before(ep.StartDate) {
		return Day(*ep.LastEntryDate)
	}
	return Day(ep.StartDate)
}

// gapDays is the absolute number of days between date and the episode's
// last activity. Entries before it count the same as entries after it.
func gapDays(ep model.Episode, date time.Time) int {
	gap := DaysBetween(LastActivity(ep), date)
	if gap < 0 {
		return -gap
	}
	return gap
}
