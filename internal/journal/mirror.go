package journal

import (
	"context"
	"fmt"
	"time"

	"trading-journal/internal/models"

	"go.uber.org/zap"
)

// Replacer swaps a stored trade set for a new one.
type Replacer interface {
	ReplaceAll(ctx context.Context, trades []models.Trade) (int, error)
}

// Mirror periodically copies the hosted trades into the local store so the
// journal can serve them offline.
type Mirror struct {
	logger   *zap.Logger
	source   TradeLister
	target   Replacer
	interval time.Duration

	// OnSync, when set, is called after every successful copy.
	OnSync func(count int)
}

// NewMirror creates a mirror copying from source into target every interval.
func NewMirror(logger *zap.Logger, source TradeLister, target Replacer, interval time.Duration) *Mirror {
	return &Mirror{
		logger:   logger.Named("mirror"),
		source:   source,
		target:   target,
		interval: interval,
	}
}

// Run copies once right away and then on every tick until ctx is cancelled.
// Failed copies are logged and retried on the next tick.
func (m *Mirror) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("Starting mirror loop", zap.Duration("interval", m.interval))
	m.syncLogged(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Stopping mirror...")
			return
		case <-ticker.C:
			m.syncLogged(ctx)
		}
	}
}

func (m *Mirror) syncLogged(ctx context.Context) {
	if _, err := m.Sync(ctx); err != nil && ctx.Err() == nil {
		m.logger.Error("Mirror sync failed", zap.Error(err))
	}
}

// Sync performs a single copy and returns the number of trades stored.
func (m *Mirror) Sync(ctx context.Context) (int, error) {
	trades, err := m.source.ListTrades(ctx)
	if err != nil {
		return 0, fmt.Errorf("could not fetch trades: %w", err)
	}
	n, err := m.target.ReplaceAll(ctx, trades)
	if err != nil {
		return 0, fmt.Errorf("could not store trades: %w", err)
	}
	if skipped := len(trades) - n; skipped > 0 {
		m.logger.Warn("Skipped trades without an id", zap.Int("count", skipped))
	}
	m.logger.Info("Mirror sync complete", zap.Int("count", n))
	if m.OnSync != nil {
		m.OnSync(n)
	}
	return n, nil
}
