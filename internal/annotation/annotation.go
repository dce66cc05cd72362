// Package annotation lets the user attach a reason to a finished idle
// period. Short idles pass without a prompt; annotated ones are uploaded and
// recorded in the local activity log.
package annotation

import (
	"errors"
	"fmt"
	"time"
)

// Reasons a user can pick for an idle period, in presentation order.
var reasons = []string{
	"Meeting",
	"Break",
	"Lunch",
	"Phone Call",
	"Away from Desk",
	"Other",
}

// Reasons returns the selectable idle reasons.
func Reasons() []string {
	out := make([]string, len(reasons))
	copy(out, reasons)
	return out
}

// ErrEmptyReason rejects a submission without a reason.
var ErrEmptyReason = errors.New("annotation reason must not be empty")

// Validate checks a submission. The note is always optional.
func Validate(reason string) error {
	if reason == "" {
		return ErrEmptyReason
	}
	return nil
}

// FormatDuration renders an idle duration for display, e.g. "2m 5s".
func FormatDuration(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	minutes := seconds / 60
	seconds = seconds % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}
