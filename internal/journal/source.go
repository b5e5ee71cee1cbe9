package journal

import (
	"context"

	"trading-journal/internal/models"
)

// TradeLister reads the full list of trades.
type TradeLister interface {
	ListTrades(ctx context.Context) ([]models.Trade, error)
}

// TradeSource is where the journal reads and writes trades. Both the hosted
// backend client and the local store implement it.
type TradeSource interface {
	TradeLister
	Name() string
	InsertTrade(ctx context.Context, trade models.Trade) (models.Trade, error)
	DeleteTrade(ctx context.Context, id models.ID) error
}
