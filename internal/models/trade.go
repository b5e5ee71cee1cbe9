package models

import "errors"

// ErrTradeNotFound is returned when a trade id matches no stored row.
var ErrTradeNotFound = errors.New("trade not found")

// Result is the outcome tag of a trade.
type Result string

const (
	ResultWin       Result = "Win"
	ResultLoss      Result = "Loss"
	ResultBreakEven Result = "BE"
)

// Results lists the known outcomes in the order charts consume them.
var Results = []Result{ResultWin, ResultLoss, ResultBreakEven}

// Known reports whether r is one of Win, Loss or BE.
func (r Result) Known() bool {
	switch r {
	case ResultWin, ResultLoss, ResultBreakEven:
		return true
	default:
		return false
	}
}

// Enumerated values accepted by the journal form.
var (
	Pairs      = []string{"XAU/USD", "EUR/USD", "GBP/USD", "AUD/USD", "USD/JPY"}
	EntryTypes = []string{"FVG", "OB", "CISD"}
	Directions = []string{"ERL", "IRL"}
	Timeframes = []string{"4H", "1H"}
	TradeTypes = []string{"Buy", "Sell"}
)

// Trade represents a journal entry as stored by the hosted backend.
type Trade struct {
	ID          ID         `gorm:"primaryKey" json:"id,omitempty"`
	Pair        string     `gorm:"index" json:"pair"`
	Direction   string     `json:"direction"`
	TradeType   string     `json:"trade_type"`
	EntryType   string     `json:"entry_type"`
	Timeframe   string     `json:"timeframe"`
	Result      Result     `json:"result"`
	RR          RiskReward `gorm:"column:rr" json:"rr"`
	OpenDate    Timestamp  `gorm:"index" json:"open_date"`
	ClosureDate Timestamp  `json:"closure_date"`
	DP          bool       `gorm:"column:dp" json:"dp"`
	ImageBefore string     `json:"image_before"`
	ImageAfter  string     `json:"image_after"`
	Comments    string     `json:"comments"`
}

// IsOpen reports whether the trade has no closure date yet.
func (t Trade) IsOpen() bool {
	return !t.ClosureDate.Valid
}

// RRValue returns the trade's risk/reward with the parse-or-zero rule applied.
func (t Trade) RRValue() float64 {
	return ParseRR(t.RR)
}
