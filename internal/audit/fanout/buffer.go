package fanout

import (
	"sync"

	"kycgate/internal/audit/models"
)

// RingBuffer is a bounded, thread-safe queue of attempts waiting to be
// streamed. When full, the oldest attempt is dropped to make room.
type RingBuffer struct {
	mu       sync.Mutex
	items    []models.Attempt
	head     int // next write position
	tail     int // next read position
	count    int
	capacity int

	dropped int64
}

func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1024
	}
	return &RingBuffer{
		items:    make([]models.Attempt, capacity),
		capacity: capacity,
	}
}

// Enqueue adds an attempt and reports whether an older one was dropped.
func (b *RingBuffer) Enqueue(a models.Attempt) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	dropped := false
	if b.count >= b.capacity {
		b.items[b.tail] = models.Attempt{}
		b.tail = (b.tail + 1) % b.capacity
		b.count--
		b.dropped++
		dropped = true
	}

	b.items[b.head] = a
	b.head = (b.head + 1) % b.capacity
	b.count++
	return dropped
}

// DequeueBatch removes up to n attempts in FIFO order.
func (b *RingBuffer) DequeueBatch(n int) []models.Attempt {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}

	out := make([]models.Attempt, n)
	for i := range n {
		out[i] = b.items[b.tail]
		b.items[b.tail] = models.Attempt{}
		b.tail = (b.tail + 1) % b.capacity
	}
	b.count -= n
	return out
}

func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Dropped returns the total number of attempts dropped for space.
func (b *RingBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
