package reconcile

import (
	"testing"
	"time"

	"market-sync/src/helpers"
	"market-sync/src/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candle(t int64, close float64) models.Candle {
	c := decimal.NewFromFloat(close)
	return models.Candle{Time: t, Open: c, High: c, Low: c, Close: c, Volume: decimal.NewFromInt(10)}
}

func candles(ts ...int64) []models.Candle {
	out := make([]models.Candle, len(ts))
	for i, t := range ts {
		out[i] = candle(t, float64(t))
	}
	return out
}

func timesOf(cs []models.Candle) []int64 {
	out := make([]int64, len(cs))
	for i, c := range cs {
		out[i] = c.Time
	}
	return out
}

func at(sec int64) time.Time {
	return time.Unix(sec, 0)
}

// -----------------------------------------------------------------------------
// ApplyTick
// -----------------------------------------------------------------------------

func Test_ApplyTick_Directions(t *testing.T) {
	s := NewStore(10)

	first := s.ApplyTick("btcusdt", decimal.NewFromInt(100), at(10))
	assert.Equal(t, Applied, first.Signal)
	assert.Equal(t, Unchanged, first.Direction)
	assert.Equal(t, "BTCUSDT", first.Entry.Symbol)

	up := s.ApplyTick("BTCUSDT", decimal.NewFromInt(101), at(11))
	assert.Equal(t, Up, up.Direction)

	down := s.ApplyTick("BTCUSDT", decimal.NewFromInt(99), at(12))
	assert.Equal(t, Down, down.Direction)

	same := s.ApplyTick("BTCUSDT", decimal.RequireFromString("99.000"), at(12))
	assert.Equal(t, Applied, same.Signal)
	assert.Equal(t, Unchanged, same.Direction)
}

func Test_ApplyTick_StaleIgnored(t *testing.T) {
	s := NewStore(10)

	first := s.ApplyTick("BTCUSDT", decimal.NewFromInt(100), at(10))
	second := s.ApplyTick("BTCUSDT", decimal.NewFromInt(95), at(5))

	assert.Equal(t, Unchanged, first.Direction)
	assert.Equal(t, Stale, second.Signal)

	entry, ok := s.Price("BTCUSDT")
	require.True(t, ok)
	assert.True(t, entry.LastPrice.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, at(10), entry.LastUpdatedAt)
}

func Test_ApplyTick_UpFromLowerPrior(t *testing.T) {
	s := NewStore(10)
	s.ApplyTick("BTCUSDT", decimal.NewFromInt(90), at(1))

	res := s.ApplyTick("BTCUSDT", decimal.NewFromInt(100), at(10))
	assert.Equal(t, Up, res.Direction)

	stale := s.ApplyTick("BTCUSDT", decimal.NewFromInt(95), at(5))
	assert.Equal(t, Stale, stale.Signal)
	entry, _ := s.Price("BTCUSDT")
	assert.Equal(t, "100", entry.LastPrice.String())
}

// -----------------------------------------------------------------------------
// ApplyCandle
// -----------------------------------------------------------------------------

func Test_ApplyCandle_EvictsOldestFirst(t *testing.T) {
	s := NewStore(3)
	s.OpenSeries("BTCUSDT", "1m")

	for _, ts := range []int64{1, 2, 3, 4} {
		res := s.ApplyCandle("BTCUSDT", "1m", candle(ts, 1))
		require.Equal(t, Applied, res.Signal)
	}

	points, ok := s.Series("BTCUSDT", "1m")
	require.True(t, ok)
	assert.Equal(t, []int64{2, 3, 4}, timesOf(points))
}

func Test_ApplyCandle_ReplacesInProgressCandle(t *testing.T) {
	s := NewStore(5)
	s.OpenSeries("BTCUSDT", "1m")
	s.ApplyCandle("BTCUSDT", "1m", candle(1, 10))
	s.ApplyCandle("BTCUSDT", "1m", candle(2, 11))

	res := s.ApplyCandle("BTCUSDT", "1m", candle(2, 12.5))
	assert.Equal(t, Applied, res.Signal)
	assert.True(t, res.Replaced)
	require.Len(t, res.Points, 2)
	assert.Equal(t, "12.5", res.Points[1].Close.String())

	// replacing an older, still buffered candle keeps length too
	res = s.ApplyCandle("BTCUSDT", "1m", candle(1, 9))
	assert.True(t, res.Replaced)
	assert.Len(t, res.Points, 2)
}

func Test_ApplyCandle_OlderAbsentIsStale(t *testing.T) {
	s := NewStore(5)
	s.OpenSeries("BTCUSDT", "1m")
	s.ApplyCandle("BTCUSDT", "1m", candle(10, 1))
	s.ApplyCandle("BTCUSDT", "1m", candle(20, 1))

	res := s.ApplyCandle("BTCUSDT", "1m", candle(15, 1))
	assert.Equal(t, Stale, res.Signal)

	points, _ := s.Series("BTCUSDT", "1m")
	assert.Equal(t, []int64{10, 20}, timesOf(points))
}

func Test_ApplyCandle_NoActiveSeries(t *testing.T) {
	s := NewStore(5)
	res := s.ApplyCandle("BTCUSDT", "1m", candle(1, 1))
	assert.Equal(t, NoActiveSeries, res.Signal)

	s.OpenSeries("BTCUSDT", "1m")
	s.CloseSeries("BTCUSDT", "1m")
	res = s.ApplyCandle("BTCUSDT", "1m", candle(1, 1))
	assert.Equal(t, NoActiveSeries, res.Signal)
	assert.False(t, s.HasSeries("BTCUSDT", "1m"))
}

// -----------------------------------------------------------------------------
// ApplySnapshot
// -----------------------------------------------------------------------------

func Test_ApplySnapshot_TruncatesToCapacity(t *testing.T) {
	s := NewStore(3)

	res, err := s.ApplySnapshot("BTCUSDT", "1h", candles(1, 2, 3, 4, 5), nil)
	require.NoError(t, err)
	assert.Equal(t, Applied, res.Signal)
	assert.Equal(t, []int64{3, 4, 5}, timesOf(res.Points))
	assert.True(t, s.HasSeries("BTCUSDT", "1h"))
}

func Test_ApplySnapshot_RejectsNonMonotonic(t *testing.T) {
	s := NewStore(5)
	_, err := s.ApplySnapshot("BTCUSDT", "1h", candles(1, 2, 3), nil)
	require.NoError(t, err)

	for _, bad := range [][]models.Candle{candles(1, 3, 2), candles(1, 1, 2)} {
		_, err = s.ApplySnapshot("BTCUSDT", "1h", bad, nil)
		require.Error(t, err)
		assert.Equal(t, helpers.KindInvalidSnapshot, helpers.Kind(err))
	}

	points, _ := s.Series("BTCUSDT", "1h")
	assert.Equal(t, []int64{1, 2, 3}, timesOf(points))
}

func Test_ApplySnapshot_GuardDiscards(t *testing.T) {
	s := NewStore(5)
	s.OpenSeries("BTCUSDT", "1h")
	s.ApplyCandle("BTCUSDT", "1h", candle(7, 1))

	res, err := s.ApplySnapshot("BTCUSDT", "1h", candles(1, 2), func() bool { return false })
	require.NoError(t, err)
	assert.Equal(t, Discarded, res.Signal)

	points, _ := s.Series("BTCUSDT", "1h")
	assert.Equal(t, []int64{7}, timesOf(points))
}

func Test_ApplySnapshot_KeepsNewerPushedPoints(t *testing.T) {
	s := NewStore(4)
	s.OpenSeries("BTCUSDT", "1m")
	s.ApplyCandle("BTCUSDT", "1m", candle(3, 1))
	s.ApplyCandle("BTCUSDT", "1m", candle(6, 1))

	res, err := s.ApplySnapshot("BTCUSDT", "1m", candles(1, 2, 3, 4), nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 4, 6}, timesOf(res.Points))
}

func Test_ApplySnapshot_EmptyKeepsPushedPoints(t *testing.T) {
	s := NewStore(4)
	s.OpenSeries("BTCUSDT", "1m")
	s.ApplyCandle("BTCUSDT", "1m", candle(5, 1))
	s.ApplyCandle("BTCUSDT", "1m", candle(6, 1))

	res, err := s.ApplySnapshot("BTCUSDT", "1m", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Applied, res.Signal)
	assert.Equal(t, []int64{5, 6}, timesOf(res.Points))

	res, err = s.ApplySnapshot("ETHUSDT", "1m", []models.Candle{}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Points)
	assert.True(t, s.HasSeries("ETHUSDT", "1m"))
}

// Buffer length stays within capacity and strictly increasing under any mix.
func Test_Store_InvariantsUnderMixedUpdates(t *testing.T) {
	s := NewStore(4)
	ops := []func(){
		func() { s.ApplyCandle("ETHUSDT", "5m", candle(5, 1)) },
		func() { s.ApplySnapshot("ETHUSDT", "5m", candles(1, 2, 3, 4, 5, 6), nil) },
		func() { s.ApplyCandle("ETHUSDT", "5m", candle(6, 2)) },
		func() { s.ApplyCandle("ETHUSDT", "5m", candle(2, 2)) },
		func() { s.ApplyCandle("ETHUSDT", "5m", candle(9, 2)) },
		func() { s.ApplySnapshot("ETHUSDT", "5m", candles(8), nil) },
		func() { s.ApplyCandle("ETHUSDT", "5m", candle(10, 2)) },
	}

	for _, op := range ops {
		op()
		points, ok := s.Series("ETHUSDT", "5m")
		if !ok {
			continue
		}
		require.LessOrEqual(t, len(points), 4)
		for i := 1; i < len(points); i++ {
			require.Greater(t, points[i].Time, points[i-1].Time)
		}
	}

	points, _ := s.Series("ETHUSDT", "5m")
	assert.Equal(t, []int64{8, 9, 10}, timesOf(points))
}

// -----------------------------------------------------------------------------
// Retain / readers
// -----------------------------------------------------------------------------

func Test_Retain(t *testing.T) {
	s := NewStore(5)
	s.ApplyTick("BTCUSDT", decimal.NewFromInt(1), at(1))
	s.ApplyTick("ETHUSDT", decimal.NewFromInt(1), at(1))

	evicted := s.Retain(map[string]struct{}{"ETHUSDT": {}})
	assert.Equal(t, []string{"BTCUSDT"}, evicted)

	_, ok := s.Price("BTCUSDT")
	assert.False(t, ok)
	assert.Len(t, s.Prices(), 1)
}

func Test_NewStore_DefaultCapacity(t *testing.T) {
	assert.Equal(t, 100, NewStore(0).Capacity())
}
