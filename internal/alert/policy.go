// Package alert decides whether a parsed stock count should trigger a
// notification.
package alert

import (
	"fmt"
	"strings"
)

// Policy names accepted by FromConfig.
const (
	PolicyThreshold = "threshold"
	PolicyAlways    = "always"
)

// DefaultThreshold is the count at or above which the threshold policy alerts.
const DefaultThreshold int64 = 100

// Policy reports whether a count warrants an alert.
type Policy interface {
	ShouldAlert(count int64) bool
	Name() string
}

// Limiter is implemented by policies that alert at a fixed count.
type Limiter interface {
	Limit() int64
}

// Threshold alerts when the count is at or above Min.
type Threshold struct {
	Min int64
}

// ShouldAlert implements Policy.
func (t Threshold) ShouldAlert(count int64) bool {
	return count >= t.Min
}

// Name implements Policy.
func (t Threshold) Name() string {
	return PolicyThreshold
}

// Limit implements Limiter.
func (t Threshold) Limit() int64 {
	return t.Min
}

// Always alerts on every successful parse regardless of count.
type Always struct{}

// ShouldAlert implements Policy.
func (Always) ShouldAlert(int64) bool {
	return true
}

// Name implements Policy.
func (Always) Name() string {
	return PolicyAlways
}

// FromConfig builds a Policy from its configured name.
func FromConfig(name string, threshold int64) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyThreshold:
		if threshold < 0 {
			return nil, fmt.Errorf("alert threshold must be >= 0, got %d", threshold)
		}
		return Threshold{Min: threshold}, nil
	case PolicyAlways:
		return Always{}, nil
	default:
		return nil, fmt.Errorf("unknown alert policy %q", name)
	}
}
