package memory

import (
	"context"
	"sync"
)

// Counter is a mutex-protected SequenceCounter.
type Counter struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewCounter returns a counter whose keys all start at zero.
func NewCounter() *Counter {
	return &Counter{values: make(map[string]int64)}
}

// Next implements port.SequenceCounter.
func (c *Counter) Next(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key]++
	return c.values[key], nil
}
