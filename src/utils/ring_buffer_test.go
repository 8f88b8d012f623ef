package utils

import (
	"testing"

	"market-sync/src/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candleAt(t int64) models.Candle {
	p := decimal.NewFromInt(t)
	return models.Candle{Time: t, Open: p, High: p, Low: p, Close: p, Volume: decimal.NewFromInt(1)}
}

func times(cs []models.Candle) []int64 {
	out := make([]int64, len(cs))
	for i, c := range cs {
		out[i] = c.Time
	}
	return out
}

func Test_RingBuffer_AppendEvictsOldest(t *testing.T) {
	rb := NewRingBuffer(3)

	assert.False(t, rb.Append(candleAt(1)))
	assert.False(t, rb.Append(candleAt(2)))
	assert.False(t, rb.Append(candleAt(3)))
	assert.True(t, rb.IsFull())
	assert.True(t, rb.Append(candleAt(4)))

	assert.Equal(t, []int64{2, 3, 4}, times(rb.GetAll()))
	assert.Equal(t, 3, rb.Size())
	assert.Equal(t, 3, rb.Capacity())
}

func Test_RingBuffer_IndexOfTimeAcrossWrap(t *testing.T) {
	rb := NewRingBuffer(4)
	for i := int64(1); i <= 6; i++ {
		rb.Append(candleAt(i * 10))
	}

	// holds 30,40,50,60 with the physical head wrapped
	assert.Equal(t, 0, rb.IndexOfTime(30))
	assert.Equal(t, 3, rb.IndexOfTime(60))
	assert.Equal(t, -1, rb.IndexOfTime(20))
	assert.Equal(t, -1, rb.IndexOfTime(45))

	rb.Set(1, candleAt(40))
	last, ok := rb.Last()
	require.True(t, ok)
	assert.Equal(t, int64(60), last.Time)
}

func Test_RingBuffer_GetLatest(t *testing.T) {
	rb := NewRingBuffer(5)
	assert.Empty(t, rb.GetLatest(2))

	for i := int64(1); i <= 7; i++ {
		rb.Append(candleAt(i))
	}
	assert.Equal(t, []int64{6, 7}, times(rb.GetLatest(2)))
	assert.Equal(t, []int64{3, 4, 5, 6, 7}, times(rb.GetLatest(50)))

	rb.Clear()
	assert.Equal(t, 0, rb.Size())
	_, ok := rb.Last()
	assert.False(t, ok)
}

func Test_NewRingBuffer_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultSeriesCapacity, NewRingBuffer(0).Capacity())
}

func Test_IntervalDuration(t *testing.T) {
	d, ok := IntervalDuration("4h")
	require.True(t, ok)
	assert.Equal(t, int64(4*3600*1000), d.Milliseconds())

	_, ok = IntervalDuration("7m")
	assert.False(t, ok)

	assert.Equal(t, int64(120000), BucketStart(179999, d/240))
}
