// Package aggregate slices transactions into day, shift and period windows
// and reduces them to business totals.
package aggregate

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var ErrInvalidWindow = errors.New("invalid window")

// Window is an inclusive [Start, End] range with millisecond resolution.
type Window struct {
	Label string
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls in the window. Anything before the next
// millisecond after End counts as inside.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End.Add(time.Millisecond))
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func endOfDay(t time.Time, loc *time.Location) time.Time {
	start := startOfDay(t, loc)
	return start.AddDate(0, 0, 1).Add(-time.Millisecond)
}

// Day is the calendar day holding t in loc.
func Day(t time.Time, loc *time.Location) Window {
	return Window{
		Label: startOfDay(t, loc).Format(DateLayout),
		Start: startOfDay(t, loc),
		End:   endOfDay(t, loc),
	}
}

type Shift string

const (
	ShiftA Shift = "A"
	ShiftB Shift = "B"
)

func ParseShift(raw string) (Shift, error) {
	switch Shift(strings.ToUpper(strings.TrimSpace(raw))) {
	case ShiftA:
		return ShiftA, nil
	case ShiftB:
		return ShiftB, nil
	}
	return "", fmt.Errorf("%w: unknown shift %q", ErrInvalidWindow, raw)
}

// ShiftOf places t in shift A (up to and including the 13:00 minute) or B.
func ShiftOf(t time.Time, loc *time.Location) Shift {
	local := t.In(loc)
	if local.Hour() < 13 || (local.Hour() == 13 && local.Minute() == 0) {
		return ShiftA
	}
	return ShiftB
}

// ShiftWindow is shift A [00:00, 13:00:59.999] or shift B [13:01, 23:59:59.999]
// of the day holding t.
func ShiftWindow(t time.Time, shift Shift, loc *time.Location) Window {
	start := startOfDay(t, loc)
	boundary := start.Add(13*time.Hour + time.Minute)
	label := start.Format(DateLayout) + " shift " + string(shift)
	if shift == ShiftB {
		return Window{Label: label, Start: boundary, End: endOfDay(t, loc)}
	}
	return Window{Label: label, Start: start, End: boundary.Add(-time.Millisecond)}
}

// CurrentShift is the shift now falls in, with its window.
func CurrentShift(now time.Time, loc *time.Location) (Shift, Window) {
	shift := ShiftOf(now, loc)
	return shift, ShiftWindow(now, shift, loc)
}

// RollingDays covers today and the n-1 days before it.
func RollingDays(now time.Time, n int, loc *time.Location) Window {
	if n < 1 {
		n = 1
	}
	start := startOfDay(now, loc).AddDate(0, 0, -(n - 1))
	return Window{
		Label: fmt.Sprintf("last %d days", n),
		Start: start,
		End:   endOfDay(now, loc),
	}
}

// Custom normalizes start to the beginning of its day and end to the end of
// its day.
func Custom(start time.Time, end time.Time, loc *time.Location) (Window, error) {
	w := Window{Start: startOfDay(start, loc), End: endOfDay(end, loc)}
	if w.End.Before(w.Start) {
		return Window{}, fmt.Errorf("%w: end before start", ErrInvalidWindow)
	}
	w.Label = w.Start.Format(DateLayout) + " - " + w.End.Format(DateLayout)
	return w, nil
}

// Days lists the local dates the window touches, oldest first.
func (w Window) Days(loc *time.Location) []Window {
	var out []Window
	for day := startOfDay(w.Start, loc); !day.After(w.End); day = day.AddDate(0, 0, 1) {
		out = append(out, Day(day, loc))
	}
	return out
}
