package queue

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the maximum number of queued batches.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithMaxSamples caps the total number of samples held across queued batches.
func WithMaxSamples(n int64) Option {
	return func(q *InMemoryQueue) {
		if n > 0 {
			q.maxSamples = n
		}
	}
}
