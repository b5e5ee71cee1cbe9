// Package stats aggregates journal trades into the figures the dashboard
// displays. Every function here is pure: inputs are only read, and the
// current time and calendar location come in through Options.
package stats

import (
	"time"

	"trading-journal/internal/models"
)

// Options carries the parameters that would otherwise be ambient.
type Options struct {
	// Now is the reference time for relative windows.
	Now time.Time
	// Location decides calendar days and month boundaries. Nil means
	// time.Local.
	Location     *time.Location
	CalendarMode CalendarMode
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

// Dashboard bundles everything the dashboard widgets render.
type Dashboard struct {
	Window   WindowKind     `json:"window"`
	Summary  Summary        `json:"summary"`
	Series   Series         `json:"series"`
	Calendar map[string]Day `json:"calendar"`
}

// Build computes the summary and series over the trades inside w. The
// calendar index always covers the whole snapshot, as the calendar pages
// through months on its own.
func Build(trades []models.Trade, w Window, opts Options) Dashboard {
	windowed := FilterWindow(trades, w, opts.Now.In(opts.location()))
	kind := w.Kind
	if kind == "" {
		kind = WindowAll
	}
	return Dashboard{
		Window:   kind,
		Summary:  Summarize(windowed),
		Series:   CumulativeSeries(trades, w, opts),
		Calendar: CalendarIndex(trades, opts),
	}
}
