package utils

import "time"

// DefaultSeriesCapacity is the chart window length: older candles are shifted out past it.
const DefaultSeriesCapacity = 100

var intervalDurations = map[string]time.Duration{
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"6h":  6 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
	"3d":  72 * time.Hour,
	"1w":  7 * 24 * time.Hour,
}

// -----------------------------------------------------------------------------

// IntervalDuration returns the bucket length of a kline interval ("1m", "4h", "1d").
func IntervalDuration(interval string) (time.Duration, bool) {
	d, ok := intervalDurations[interval]
	return d, ok
}

// -----------------------------------------------------------------------------

// BucketStart aligns t (unix ms) to the open time of its interval bucket.
func BucketStart(t int64, d time.Duration) int64 {
	ms := d.Milliseconds()
	if ms <= 0 {
		return t
	}
	return t - t%ms
}
