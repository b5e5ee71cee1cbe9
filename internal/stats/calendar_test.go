package stats

import (
	"testing"
	"time"

	"trading-journal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendarIndex(t *testing.T) {
	trades := []models.Trade{
		newTrade(t, "1.5", models.ResultWin, "2024-01-05T09:00:00Z"),
		newTrade(t, "-1", models.ResultLoss, "2024-01-05T15:00:00Z"),
		newTrade(t, "2", models.ResultWin, "2024-01-08T10:00:00Z"),
		newTrade(t, "3", models.ResultWin, ""),
	}

	t.Run("Last write wins", func(t *testing.T) {
		index := CalendarIndex(trades, utcOpts)

		require.Len(t, index, 2)
		assert.Equal(t, Day{Profit: -1, Trades: 1}, index["2024-01-05"])
		assert.Equal(t, Day{Profit: 2, Trades: 1}, index["2024-01-08"])
	})

	t.Run("Input order decides, not time of day", func(t *testing.T) {
		reordered := []models.Trade{trades[1], trades[0]}
		index := CalendarIndex(reordered, utcOpts)
		assert.Equal(t, 1.5, index["2024-01-05"].Profit)
	})

	t.Run("Sum mode", func(t *testing.T) {
		opts := utcOpts
		opts.CalendarMode = CalendarSum
		index := CalendarIndex(trades, opts)

		assert.Equal(t, Day{Profit: 0.5, Trades: 2}, index["2024-01-05"])
		assert.Equal(t, Day{Profit: 2, Trades: 1}, index["2024-01-08"])
	})

	t.Run("Days follow the configured location", func(t *testing.T) {
		opts := utcOpts
		opts.Location = time.FixedZone("UTC-10", -10*3600)
		index := CalendarIndex(trades[:1], opts)
		assert.Contains(t, index, "2024-01-04")
	})
}

func TestParseCalendarMode(t *testing.T) {
	m, err := ParseCalendarMode("")
	require.NoError(t, err)
	assert.Equal(t, CalendarLastWrite, m)

	m, err = ParseCalendarMode("SUM")
	require.NoError(t, err)
	assert.Equal(t, CalendarSum, m)
	assert.Equal(t, "sum", m.String())

	_, err = ParseCalendarMode("average")
	assert.Error(t, err)
}

func TestBuildMonthGrid(t *testing.T) {
	index := map[string]Day{
		"2024-02-01": {Profit: 1.5, Trades: 1},
		"2024-02-02": {Profit: 0, Trades: 1},
		"2024-02-29": {Profit: -1, Trades: 1},
		"2024-03-01": {Profit: 4, Trades: 1},
	}

	grid := BuildMonthGrid(index, 2024, time.February, time.UTC)

	assert.Equal(t, "February 2024", grid.Title)
	assert.Equal(t, 4, grid.LeadingBlanks) // Thursday
	require.Len(t, grid.Days, 29)
	assert.Equal(t, ToneProfit, grid.Days[0].Tone)
	assert.Equal(t, ToneFlat, grid.Days[1].Tone)
	assert.True(t, grid.Days[1].HasTrade)
	assert.Equal(t, ToneNone, grid.Days[2].Tone)
	assert.False(t, grid.Days[2].HasTrade)
	assert.Equal(t, ToneLoss, grid.Days[28].Tone)
	assert.Equal(t, "2024-02-29", grid.Days[28].Date)
}
