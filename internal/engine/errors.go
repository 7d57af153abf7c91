// Package engine classifies symptom entries into illness episodes and
// analyzes how an episode progresses across its entries.
//
// Everything here is a pure function of its inputs: no I/O, no locking and
// no mutation of caller data. Callers persist whatever the engine returns.
package engine

import "errors"

// Validation errors. Callers match them with errors.Is.
var (
	ErrEmptySymptoms    = errors.New("symptom set is empty")
	ErrInvalidDate      = errors.New("invalid date")
	ErrUnknownDevice    = errors.New("unknown device id")
	ErrInvalidThreshold = errors.New("invalid day threshold")
	ErrEndBeforeStart   = errors.New("end date is before start date")
	ErrArchived         = errors.New("episode is archived")
)
