package stats

import (
	"fmt"
	"iter"
	"math"
	"slices"
	"time"

	"trading-journal/internal/models"
)

// Point is one trade on the cumulative R:R chart.
type Point struct {
	Date         time.Time `json:"date"`
	TradeRR      float64   `json:"trade_rr"`
	CumulativeRR float64   `json:"cumulative_rr"`
	Label        string    `json:"label"`
}

// Series is an ordered cumulative R:R series.
type Series []Point

// All ranges over the points in order.
func (s Series) All() iter.Seq[Point] {
	return func(yield func(Point) bool) {
		for _, p := range s {
			if !yield(p) {
				return
			}
		}
	}
}

// Last returns the final cumulative R:R, or 0 for an empty series.
func (s Series) Last() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].CumulativeRR
}

// CumulativeSeries filters trades to w, orders them by open date and walks
// them accumulating R:R. Each call recomputes the series from scratch.
//
// Only the first point of a calendar month carries a label: "Jan '24" for
// the first point of the series and for any January, the short month name
// otherwise. Cumulative values are rounded to two decimals for display; the
// running sum itself keeps full precision.
func CumulativeSeries(trades []models.Trade, w Window, opts Options) Series {
	loc := opts.location()
	filtered := FilterWindow(trades, w, opts.Now.In(loc))

	dated := make([]models.Trade, 0, len(filtered))
	for _, t := range filtered {
		if t.OpenDate.Valid {
			dated = append(dated, t)
		}
	}
	slices.SortStableFunc(dated, func(a, b models.Trade) int {
		return a.OpenDate.Time.Compare(b.OpenDate.Time)
	})

	series := make(Series, 0, len(dated))
	seenMonths := make(map[monthKey]struct{})
	var running float64

	for i, t := range dated {
		rr := t.RRValue()
		running += rr

		date := t.OpenDate.Time.In(loc)
		key := monthKey{year: date.Year(), month: date.Month()}

		var label string
		if _, seen := seenMonths[key]; !seen {
			seenMonths[key] = struct{}{}
			label = monthLabel(date, i == 0)
		}

		series = append(series, Point{
			Date:         date,
			TradeRR:      rr,
			CumulativeRR: round2(running),
			Label:        label,
		})
	}
	return series
}

type monthKey struct {
	year  int
	month time.Month
}

func monthLabel(date time.Time, first bool) string {
	name := date.Format("Jan")
	if first || date.Month() == time.January {
		return fmt.Sprintf("%s '%02d", name, date.Year()%100)
	}
	return name
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
