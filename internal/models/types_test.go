package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRR(t *testing.T) {
	testCases := []struct {
		name     string
		rr       RiskReward
		expected float64
	}{
		{name: "Positive", rr: "1.5", expected: 1.5},
		{name: "Negative", rr: "-1", expected: -1},
		{name: "Padded", rr: " 2.25 ", expected: 2.25},
		{name: "Empty", rr: "", expected: 0},
		{name: "Garbage", rr: "abc", expected: 0},
		{name: "NaN", rr: "NaN", expected: 0},
		{name: "Infinity", rr: "Inf", expected: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseRR(tc.rr))
		})
	}
}

func TestTradeUnmarshalFromBackend(t *testing.T) {
	payload := `[
		{"id": 42, "pair": "EUR/USD", "result": "Win", "rr": 1.5, "open_date": "2024-01-05T10:00:00+00:00", "closure_date": null, "dp": true},
		{"id": "abc", "pair": "XAU/USD", "result": "Loss", "rr": "-1", "open_date": "not a date"},
		{"id": 7, "pair": "GBP/USD", "result": "BE", "rr": null, "open_date": "2024-02-01T09:30"}
	]`

	var trades []Trade
	require.NoError(t, json.Unmarshal([]byte(payload), &trades))
	require.Len(t, trades, 3)

	assert.Equal(t, ID("42"), trades[0].ID)
	assert.Equal(t, 1.5, trades[0].RRValue())
	assert.True(t, trades[0].OpenDate.Valid)
	assert.Equal(t, time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), trades[0].OpenDate.Time.UTC())
	assert.True(t, trades[0].IsOpen())
	assert.True(t, trades[0].DP)

	assert.Equal(t, ID("abc"), trades[1].ID)
	assert.Equal(t, -1.0, trades[1].RRValue())
	assert.False(t, trades[1].OpenDate.Valid)
	text, ok := trades[1].OpenDate.Unparsed()
	assert.True(t, ok)
	assert.Equal(t, "not a date", text)
	_, ok = trades[0].ClosureDate.Unparsed()
	assert.False(t, ok, "null is absent, not malformed")

	assert.Equal(t, RiskReward(""), trades[2].RR)
	assert.Equal(t, 0.0, trades[2].RRValue())
	assert.True(t, trades[2].OpenDate.Valid)
	assert.Equal(t, time.Local, trades[2].OpenDate.Time.Location())
}

func TestTradeMarshal(t *testing.T) {
	trade := Trade{
		Pair:     "EUR/USD",
		Result:   ResultWin,
		RR:       "2.50",
		OpenDate: NewTimestamp(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)),
	}

	b, err := json.Marshal(trade)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.NotContains(t, raw, "id")
	assert.Equal(t, 2.5, raw["rr"])
	assert.Equal(t, "2024-03-01T08:00:00Z", raw["open_date"])
	assert.Nil(t, raw["closure_date"])
}

func TestTimestampScan(t *testing.T) {
	var ts Timestamp
	require.NoError(t, ts.Scan(nil))
	assert.False(t, ts.Valid)

	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	require.NoError(t, ts.Scan(now))
	assert.True(t, ts.Valid)
	assert.Equal(t, now, ts.Time)

	require.NoError(t, ts.Scan("2024-05-06 07:08:09+00:00"))
	assert.True(t, now.Equal(ts.Time))

	assert.Error(t, ts.Scan(12))

	v, err := Timestamp{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestResultKnown(t *testing.T) {
	assert.True(t, ResultWin.Known())
	assert.True(t, ResultBreakEven.Known())
	assert.False(t, Result("Partial").Known())
	assert.False(t, Result("").Known())
}
