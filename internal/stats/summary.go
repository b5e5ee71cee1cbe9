package stats

import (
	"encoding/json"
	"math"
	"strconv"

	"trading-journal/internal/models"
)

// NoLosses is how an unbounded profit factor is rendered.
const NoLosses = "no losses"

// ProfitFactor is the ratio of winning to losing R:R. When there are gains
// but no losses the ratio is undefined and Unbounded is set instead of a
// numeric stand-in.
type ProfitFactor struct {
	Ratio     float64
	Unbounded bool
}

func (p ProfitFactor) String() string {
	if p.Unbounded {
		return NoLosses
	}
	return strconv.FormatFloat(p.Ratio, 'f', 2, 64)
}

// MarshalJSON writes the ratio as a number, or the NoLosses string.
func (p ProfitFactor) MarshalJSON() ([]byte, error) {
	if p.Unbounded {
		return json.Marshal(NoLosses)
	}
	return json.Marshal(p.Ratio)
}

// ResultCount is one slice of the results pie chart.
type ResultCount struct {
	Result models.Result `json:"name"`
	Count  int           `json:"value"`
}

// Summary holds the headline statistics of a set of trades.
type Summary struct {
	TotalTrades  int           `json:"total_trades"`
	WinRate      float64       `json:"win_rate"`
	TotalRR      float64       `json:"total_rr"`
	ProfitFactor ProfitFactor  `json:"profit_factor"`
	ResultCounts []ResultCount `json:"result_counts"`
}

// DisplayTotalRR is TotalRR rounded to one decimal place.
func (s Summary) DisplayTotalRR() float64 {
	return round1(s.TotalRR)
}

// Count returns how many trades had result r.
func (s Summary) Count(r models.Result) int {
	for _, rc := range s.ResultCounts {
		if rc.Result == r {
			return rc.Count
		}
	}
	return 0
}

// Summarize computes count, win rate, summed R:R, profit factor and
// per-result counts. Results outside Win, Loss and BE are counted in
// TotalTrades only.
func Summarize(trades []models.Trade) Summary {
	counts := make(map[models.Result]int, len(models.Results))
	var total, gains, losses float64

	for _, t := range trades {
		if t.Result.Known() {
			counts[t.Result]++
		}
		rr := t.RRValue()
		total += rr
		switch {
		case rr > 0:
			gains += rr
		case rr < 0:
			losses += -rr
		}
	}

	s := Summary{
		TotalTrades:  len(trades),
		TotalRR:      total,
		ProfitFactor: profitFactor(gains, losses),
		ResultCounts: make([]ResultCount, 0, len(models.Results)),
	}
	if s.TotalTrades > 0 {
		s.WinRate = round1(100 * float64(counts[models.ResultWin]) / float64(s.TotalTrades))
	}
	for _, r := range models.Results {
		s.ResultCounts = append(s.ResultCounts, ResultCount{Result: r, Count: counts[r]})
	}
	return s
}

func profitFactor(gains, losses float64) ProfitFactor {
	switch {
	case losses > 0:
		return ProfitFactor{Ratio: gains / losses}
	case gains > 0:
		return ProfitFactor{Unbounded: true}
	default:
		return ProfitFactor{}
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
