package checker

import (
	"time"

	"github.com/JakeFAU/stockwatch/internal/stock"
)

// Outcome labels used for metrics when a check finishes without error.
const (
	OutcomeAlerted = "alerted"
	OutcomeNoAlert = "no_alert"
)

// Outcome summarizes one run.
type Outcome struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	// Reading is nil when fetch or parse failed.
	Reading *stock.Reading
	Alerted bool
	Err     *stock.Error
}

// CheckSucceeded reports whether a count was obtained. A failed alert does not
// fail the check.
func (o Outcome) CheckSucceeded() bool {
	return o.Reading != nil
}

// Kind returns the failure kind, or KindUnknown when the run had no error.
func (o Outcome) Kind() stock.Kind {
	if o.Err == nil {
		return stock.KindUnknown
	}
	return o.Err.Kind
}

// Label is a short, stable description of the outcome.
func (o Outcome) Label() string {
	switch {
	case o.Err != nil:
		return o.Err.Kind.String()
	case o.Alerted:
		return OutcomeAlerted
	default:
		return OutcomeNoAlert
	}
}
