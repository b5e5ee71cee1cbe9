package stats

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"trading-journal/internal/models"
)

// ErrUnknownWindow is returned by ParseWindow for an unsupported selector.
var ErrUnknownWindow = errors.New("unknown window")

// WindowKind selects the time range a view is computed over.
type WindowKind string

const (
	WindowAll      WindowKind = "all"
	WindowWeek     WindowKind = "week"
	WindowMonth    WindowKind = "month"
	WindowYear     WindowKind = "year"
	WindowLastYear WindowKind = "lastyear"
	WindowCustom   WindowKind = "custom"
)

// Window is a window selector. Start and End are only read for
// WindowCustom; a zero value there means the bound is missing.
type Window struct {
	Kind  WindowKind
	Start time.Time
	End   time.Time
}

// AllTime is the unfiltered window.
var AllTime = Window{Kind: WindowAll}

// ParseWindow builds a Window from request parameters. Custom bounds use the
// YYYY-MM-DD form and are read in loc.
func ParseWindow(kind, start, end string, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.Local
	}
	k := WindowKind(strings.ToLower(strings.TrimSpace(kind)))
	switch k {
	case "":
		return AllTime, nil
	case WindowAll, WindowWeek, WindowMonth, WindowYear, WindowLastYear:
		return Window{Kind: k}, nil
	case WindowCustom:
		w := Window{Kind: k}
		var err error
		if w.Start, err = parseDay(start, loc); err != nil {
			return Window{}, fmt.Errorf("invalid start date: %w", err)
		}
		if w.End, err = parseDay(end, loc); err != nil {
			return Window{}, fmt.Errorf("invalid end date: %w", err)
		}
		return w, nil
	default:
		return Window{}, fmt.Errorf("%w: %q", ErrUnknownWindow, kind)
	}
}

func parseDay(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(dayLayout, s, loc)
}

// Bounds returns the inclusive [from, to] range of w relative to now. A zero
// to means open-ended; bounded is false when nothing is filtered.
func (w Window) Bounds(now time.Time) (from, to time.Time, bounded bool) {
	loc := now.Location()
	switch w.Kind {
	case WindowWeek:
		return now.AddDate(0, 0, -7), time.Time{}, true
	case WindowMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc), time.Time{}, true
	case WindowYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc), time.Time{}, true
	case WindowLastYear:
		y := now.Year() - 1
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc), endOfDay(time.Date(y, time.December, 31, 0, 0, 0, 0, loc)), true
	case WindowCustom:
		if w.Start.IsZero() || w.End.IsZero() {
			return time.Time{}, time.Time{}, false
		}
		start := w.Start
		return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location()), endOfDay(w.End), true
	default:
		return time.Time{}, time.Time{}, false
	}
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// FilterWindow returns the trades whose open date falls inside w. Under a
// bounded window, trades without an open date are dropped. The input slice
// is never modified.
func FilterWindow(trades []models.Trade, w Window, now time.Time) []models.Trade {
	from, to, bounded := w.Bounds(now)
	if !bounded {
		return trades
	}
	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if !t.OpenDate.Valid {
			continue
		}
		open := t.OpenDate.Time
		if open.Before(from) {
			continue
		}
		if !to.IsZero() && open.After(to) {
			continue
		}
		out = append(out, t)
	}
	return out
}
