package models

// MSyncMetrics counts how push events and snapshots were reconciled.
type MSyncMetrics struct {
	TicksApplied        int64 `json:"ticks_applied"`
	TicksStale          int64 `json:"ticks_stale"`
	CandlesApplied      int64 `json:"candles_applied"`
	CandlesStale        int64 `json:"candles_stale"`
	CandlesNoSeries     int64 `json:"candles_no_active_series"`
	PushesUnwanted      int64 `json:"pushes_unwanted"`
	SnapshotsApplied    int64 `json:"snapshots_applied"`
	SnapshotsDiscarded  int64 `json:"snapshots_discarded"`
	FetchErrors         int64 `json:"fetch_errors"`
	DeliveryFailures    int64 `json:"delivery_failures"`
	Reconnects          int64 `json:"reconnects"`
	ActiveSubscriptions int   `json:"active_subscriptions"`
}
