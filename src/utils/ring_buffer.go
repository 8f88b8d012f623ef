package utils

import (
	"sort"

	"market-sync/src/models"
)

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-size circular buffer of candles.
// Appending past capacity overwrites the oldest element (FIFO eviction).
// -----------------------------------------------------------------------------

type RingBuffer struct {
	data     []models.Candle
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = DefaultSeriesCapacity
	}

	return &RingBuffer{
		data:     make([]models.Candle, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Append adds a candle at the tail; reports whether the head was evicted.
func (rb *RingBuffer) Append(c models.Candle) bool {
	evicted := rb.size == rb.capacity
	rb.data[rb.index] = c
	rb.index = (rb.index + 1) % rb.capacity

	// Update size (never exceeds capacity)
	if rb.size < rb.capacity {
		rb.size++
	}
	return evicted
}

// -----------------------------------------------------------------------------

// physical maps a logical position (0 = oldest) to a slot in data.
func (rb *RingBuffer) physical(i int) int {
	start := 0
	if rb.size == rb.capacity {
		start = rb.index
	}
	return (start + i) % rb.capacity
}

// -----------------------------------------------------------------------------

// At returns the i-th candle counting from the oldest.
func (rb *RingBuffer) At(i int) models.Candle {
	return rb.data[rb.physical(i)]
}

// -----------------------------------------------------------------------------

// Set overwrites the i-th candle counting from the oldest.
func (rb *RingBuffer) Set(i int, c models.Candle) {
	rb.data[rb.physical(i)] = c
}

// -----------------------------------------------------------------------------

// Last returns the newest candle.
func (rb *RingBuffer) Last() (models.Candle, bool) {
	if rb.size == 0 {
		return models.Candle{}, false
	}
	return rb.At(rb.size - 1), true
}

// -----------------------------------------------------------------------------

// IndexOfTime finds the logical position of the candle opened at t, or -1.
// Relies on candles being stored in strictly increasing time order.
func (rb *RingBuffer) IndexOfTime(t int64) int {
	i := sort.Search(rb.size, func(i int) bool { return rb.At(i).Time >= t })
	if i < rb.size && rb.At(i).Time == t {
		return i
	}
	return -1
}

// -----------------------------------------------------------------------------

// GetLatest returns the n newest candles, oldest first
func (rb *RingBuffer) GetLatest(n int) []models.Candle {
	if rb.size == 0 || n <= 0 {
		return []models.Candle{}
	}

	count := n
	if n > rb.size {
		count = rb.size
	}

	result := make([]models.Candle, count)
	offset := rb.size - count
	for i := 0; i < count; i++ {
		result[i] = rb.At(offset + i)
	}
	return result
}

// -----------------------------------------------------------------------------

// GetAll returns all data in insertion order (oldest to newest)
func (rb *RingBuffer) GetAll() []models.Candle {
	return rb.GetLatest(rb.size)
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *RingBuffer) Size() int {
	return rb.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (rb *RingBuffer) Capacity() int {
	return rb.capacity
}

// -----------------------------------------------------------------------------

// IsFull returns whether buffer is full
func (rb *RingBuffer) IsFull() bool {
	return rb.size == rb.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer
func (rb *RingBuffer) Clear() {
	rb.index = 0
	rb.size = 0
}
