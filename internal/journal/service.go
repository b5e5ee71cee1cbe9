// Package journal serves trade snapshots and the statistics computed from
// them on top of a TradeSource.
package journal

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"trading-journal/internal/config"
	"trading-journal/internal/models"
	"trading-journal/internal/stats"

	"github.com/microcosm-cc/bluemonday"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

var (
	// ErrInvalidTrade is wrapped by every validation failure of AddTrade.
	ErrInvalidTrade = errors.New("invalid trade")
	// ErrNotFound is returned when a trade id matches nothing.
	ErrNotFound = models.ErrTradeNotFound
)

const (
	snapshotKey     = "snapshot"
	defaultPageSize = 10
	maxPageSize     = 100
)

// Service is the journal's read and write path. Reads share one cached
// snapshot of the source; writes go straight to the source and drop it.
type Service struct {
	source    TradeSource
	logger    *zap.Logger
	cache     *cache.Cache
	ttl       time.Duration
	sanitizer *bluemonday.Policy
	loc       *time.Location
	mode      stats.CalendarMode
	pageSize  int
	now       func() time.Time

	// fetchMu keeps concurrent cache misses down to one fetch.
	fetchMu sync.Mutex
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces time.Now as the reference for relative windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a journal service reading from source.
func NewService(source TradeSource, cfg *config.Config, logger *zap.Logger, opts ...Option) (*Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	mode, err := stats.ParseCalendarMode(cfg.Journal.CalendarMode)
	if err != nil {
		return nil, err
	}
	pageSize := cfg.Journal.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	s := &Service{
		source:    source,
		logger:    logger.Named("journal"),
		cache:     cache.New(cfg.Journal.CacheTTL, 2*time.Minute),
		ttl:       cfg.Journal.CacheTTL,
		sanitizer: bluemonday.StrictPolicy(),
		loc:       loc,
		mode:      mode,
		pageSize:  clamp(pageSize, 1, maxPageSize),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SourceName reports which source the service reads from.
func (s *Service) SourceName() string {
	return s.source.Name()
}

// Location is the timezone calendar days are read in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Now is the service clock's current time in Location.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

// CalendarMode is the configured same-day rule of the calendar.
func (s *Service) CalendarMode() stats.CalendarMode {
	return s.mode
}

// Snapshot returns the current list of trades, newest first. A cached copy
// is served while it is fresh. The result must not be modified.
func (s *Service) Snapshot(ctx context.Context) ([]models.Trade, error) {
	if cached, ok := s.cache.Get(snapshotKey); ok {
		return cached.([]models.Trade), nil
	}

	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()
	if cached, ok := s.cache.Get(snapshotKey); ok {
		return cached.([]models.Trade), nil
	}

	trades, err := s.source.ListTrades(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load trades from %s: %w", s.source.Name(), err)
	}
	if trades == nil {
		trades = []models.Trade{}
	}
	if s.ttl > 0 {
		s.cache.Set(snapshotKey, trades, cache.DefaultExpiration)
	}
	s.logger.Debug("Snapshot refreshed", zap.String("source", s.source.Name()), zap.Int("count", len(trades)))
	return trades, nil
}

// Invalidate drops the cached snapshot so the next read refetches.
func (s *Service) Invalidate() {
	s.cache.Delete(snapshotKey)
}

func (s *Service) options(mode stats.CalendarMode) stats.Options {
	return stats.Options{
		Now:          s.Now(),
		Location:     s.loc,
		CalendarMode: mode,
	}
}

// Dashboard computes every dashboard widget over the trades inside w.
func (s *Service) Dashboard(ctx context.Context, w stats.Window) (stats.Dashboard, error) {
	trades, err := s.Snapshot(ctx)
	if err != nil {
		return stats.Dashboard{}, err
	}
	return stats.Build(trades, w, s.options(s.mode)), nil
}

// Summary computes the headline figures over the trades inside w.
func (s *Service) Summary(ctx context.Context, w stats.Window) (stats.Summary, error) {
	trades, err := s.Snapshot(ctx)
	if err != nil {
		return stats.Summary{}, err
	}
	opts := s.options(s.mode)
	return stats.Summarize(stats.FilterWindow(trades, w, opts.Now)), nil
}

// Series computes the cumulative R:R curve over the trades inside w.
func (s *Service) Series(ctx context.Context, w stats.Window) (stats.Series, error) {
	trades, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return stats.CumulativeSeries(trades, w, s.options(s.mode)), nil
}

// CalendarView is the calendar index plus the grid of one month.
type CalendarView struct {
	Mode  string               `json:"mode"`
	Index map[string]stats.Day `json:"index"`
	Grid  stats.MonthGrid      `json:"grid"`
}

// Calendar builds the calendar of the given month over all trades.
func (s *Service) Calendar(ctx context.Context, year int, month time.Month, mode stats.CalendarMode) (CalendarView, error) {
	trades, err := s.Snapshot(ctx)
	if err != nil {
		return CalendarView{}, err
	}
	index := stats.CalendarIndex(trades, s.options(mode))
	return CalendarView{
		Mode:  mode.String(),
		Index: index,
		Grid:  stats.BuildMonthGrid(index, year, month, s.loc),
	}, nil
}

// TradeRow is a trade as listed in the trades table.
type TradeRow struct {
	models.Trade
	Open bool `json:"open"`
}

// TradePage is one page of the trades table.
type TradePage struct {
	Trades     []TradeRow `json:"trades"`
	Page       int        `json:"page"`
	PerPage    int        `json:"per_page"`
	Total      int        `json:"total"`
	TotalPages int        `json:"total_pages"`
}

// Page returns the 1-based page of the snapshot. perPage is clamped to
// [1, 100]; zero or less picks the configured page size. A page past the
// end is empty.
func (s *Service) Page(ctx context.Context, page, perPage int) (TradePage, error) {
	trades, err := s.Snapshot(ctx)
	if err != nil {
		return TradePage{}, err
	}
	if perPage <= 0 {
		perPage = s.pageSize
	}
	perPage = clamp(perPage, 1, maxPageSize)
	if page < 1 {
		page = 1
	}

	total := len(trades)
	result := TradePage{
		Trades:     []TradeRow{},
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	// Bounded by TotalPages before the multiplication below.
	if page > result.TotalPages {
		return result, nil
	}
	start := (page - 1) * perPage
	end := min(start+perPage, total)
	for _, t := range trades[start:end] {
		result.Trades = append(result.Trades, TradeRow{Trade: t, Open: t.IsOpen()})
	}
	return result, nil
}

// AddTrade validates and stores a new trade. Comments are stripped of any
// markup before they are saved.
func (s *Service) AddTrade(ctx context.Context, trade models.Trade) (models.Trade, error) {
	trade.ID = ""
	trade.RR = models.RiskReward(strings.TrimSpace(string(trade.RR)))
	trade.Comments = s.cleanComments(trade.Comments)

	if err := Validate(trade); err != nil {
		return models.Trade{}, err
	}

	saved, err := s.source.InsertTrade(ctx, trade)
	if err != nil {
		return models.Trade{}, err
	}
	s.Invalidate()

	s.logger.Info("Trade added",
		zap.String("id", saved.ID.String()),
		zap.String("pair", saved.Pair),
		zap.String("result", string(saved.Result)),
	)
	return saved, nil
}

// cleanComments strips markup from free text. The policy escapes what it
// keeps, so entities are decoded again to store plain text.
func (s *Service) cleanComments(text string) string {
	return html.UnescapeString(s.sanitizer.Sanitize(strings.TrimSpace(text)))
}

// DeleteTrade removes a trade. It returns ErrNotFound when the id is unknown.
func (s *Service) DeleteTrade(ctx context.Context, id models.ID) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidTrade)
	}
	if err := s.source.DeleteTrade(ctx, id); err != nil {
		return err
	}
	s.Invalidate()
	s.logger.Info("Trade deleted", zap.String("id", id.String()))
	return nil
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
