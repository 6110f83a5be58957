// Package sequence keeps the recent history of encoded frames.
package sequence

import "github.com/Zeenjinn/sign-language-translation/internal/feature"

// DefaultCapacity retains two inference windows worth of frames.
const DefaultCapacity = 60

// Buffer is a fixed-capacity ring of feature vectors in arrival order.
// Once full, each append overwrites the oldest vector. It is not safe for
// concurrent use; the pipeline confines it to a single goroutine.
type Buffer struct {
	items []feature.Vector
	head  int // index of the oldest retained vector
	size  int
	total int
}

// NewBuffer creates a Buffer retaining at most capacity vectors.
// A capacity below 1 falls back to DefaultCapacity.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Buffer{items: make([]feature.Vector, capacity)}
}

// Append adds v after the most recent vector.
func (b *Buffer) Append(v feature.Vector) {
	capacity := len(b.items)
	if b.size < capacity {
		b.items[(b.head+b.size)%capacity] = v
		b.size++
	} else {
		b.items[b.head] = v
		b.head = (b.head + 1) % capacity
	}
	b.total++
}

// Trailing returns the n most recent vectors, oldest first. The second result
// is false when fewer than n vectors are retained.
func (b *Buffer) Trailing(n int) ([]feature.Vector, bool) {
	if n <= 0 || n > b.size {
		return nil, false
	}

	capacity := len(b.items)
	start := b.head + b.size - n
	window := make([]feature.Vector, n)
	for i := 0; i < n; i++ {
		window[i] = b.items[(start+i)%capacity]
	}
	return window, true
}

// Len returns the number of retained vectors.
func (b *Buffer) Len() int { return b.size }

// Total returns the number of vectors appended since the last reset.
func (b *Buffer) Total() int { return b.total }

// Capacity returns the maximum number of retained vectors.
func (b *Buffer) Capacity() int { return len(b.items) }

// Reset discards all history.
func (b *Buffer) Reset() {
	for i := range b.items {
		b.items[i] = nil
	}
	b.head = 0
	b.size = 0
	b.total = 0
}
