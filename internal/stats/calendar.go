package stats

import (
	"fmt"
	"strings"
	"time"

	"trading-journal/internal/models"
)

const dayLayout = "2006-01-02"

// CalendarMode decides what happens when several trades share a day.
type CalendarMode int

const (
	// CalendarLastWrite keeps only the trade processed last for a day.
	CalendarLastWrite CalendarMode = iota
	// CalendarSum adds up every trade of the day.
	CalendarSum
)

func (m CalendarMode) String() string {
	if m == CalendarSum {
		return "sum"
	}
	return "last"
}

// ParseCalendarMode accepts "last" (or empty) and "sum".
func ParseCalendarMode(s string) (CalendarMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last":
		return CalendarLastWrite, nil
	case "sum":
		return CalendarSum, nil
	default:
		return CalendarLastWrite, fmt.Errorf("unknown calendar mode %q", s)
	}
}

// Day is the calendar entry of a single date.
type Day struct {
	Profit float64 `json:"profit"`
	Trades int     `json:"trades"`
}

// CalendarIndex maps YYYY-MM-DD dates, in opts.Location, to the R:R booked
// on that day. Trades without an open date are skipped.
//
// With CalendarLastWrite, the default, a later trade in input order replaces
// an earlier one on the same day and Trades stays 1. CalendarSum adds them
// up instead.
func CalendarIndex(trades []models.Trade, opts Options) map[string]Day {
	loc := opts.location()
	index := make(map[string]Day)
	for _, t := range trades {
		if !t.OpenDate.Valid {
			continue
		}
		key := t.OpenDate.Time.In(loc).Format(dayLayout)
		rr := t.RRValue()
		if opts.CalendarMode == CalendarSum {
			d := index[key]
			d.Profit += rr
			d.Trades++
			index[key] = d
			continue
		}
		index[key] = Day{Profit: rr, Trades: 1}
	}
	return index
}

// Tone classifies a calendar cell for colouring.
type Tone string

const (
	ToneNone   Tone = "none"
	ToneProfit Tone = "profit"
	ToneLoss   Tone = "loss"
	ToneFlat   Tone = "flat"
)

// DayCell is one day of a month grid.
type DayCell struct {
	Date     string  `json:"date"`
	Day      int     `json:"day"`
	HasTrade bool    `json:"has_trade"`
	Profit   float64 `json:"profit"`
	Tone     Tone    `json:"tone"`
}

// MonthGrid lays out one month, Sunday first.
type MonthGrid struct {
	Year          int        `json:"year"`
	Month         time.Month `json:"month"`
	Title         string     `json:"title"`
	LeadingBlanks int        `json:"leading_blanks"`
	Days          []DayCell  `json:"days"`
}

// BuildMonthGrid renders the index for a month: the number of blank cells
// before the 1st and one cell per day.
func BuildMonthGrid(index map[string]Day, year int, month time.Month, loc *time.Location) MonthGrid {
	if loc == nil {
		loc = time.Local
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	days := first.AddDate(0, 1, -1).Day()

	grid := MonthGrid{
		Year:          first.Year(),
		Month:         first.Month(),
		Title:         first.Format("January 2006"),
		LeadingBlanks: int(first.Weekday()),
		Days:          make([]DayCell, 0, days),
	}
	for d := 1; d <= days; d++ {
		date := time.Date(year, month, d, 0, 0, 0, 0, loc)
		key := date.Format(dayLayout)
		cell := DayCell{Date: key, Day: d, Tone: ToneNone}
		if entry, ok := index[key]; ok {
			cell.HasTrade = true
			cell.Profit = entry.Profit
			cell.Tone = toneOf(entry.Profit)
		}
		grid.Days = append(grid.Days, cell)
	}
	return grid
}

func toneOf(profit float64) Tone {
	switch {
	case profit > 0:
		return ToneProfit
	case profit < 0:
		return ToneLoss
	default:
		return ToneFlat
	}
}
