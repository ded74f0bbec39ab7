// Package sensor turns raw transducer access into validated per-tick readings.
package sensor

import (
	"fmt"
	"log"
	"sync/atomic"
)

// Fence pauses and resumes an asynchronous edge source.
type Fence interface {
	Pause() error
	Resume() error
}

// Counter counts edges delivered from an asynchronous context.
// Edge is the only method safe to call from the edge handler.
type Counter struct {
	n     atomic.Uint64
	fence Fence
}

// NewCounter creates a counter. The fence may be set later with SetFence
// when the edge source needs Edge as its callback.
func NewCounter(fence Fence) *Counter {
	return &Counter{fence: fence}
}

// SetFence sets the edge source that Take pauses. Call before the first Take.
func (c *Counter) SetFence(f Fence) {
	c.fence = f
}

// Edge records one edge.
func (c *Counter) Edge() {
	c.n.Add(1)
}

// Pending returns the count accumulated since the last Take.
func (c *Counter) Pending() uint64 {
	return c.n.Load()
}

// Take returns the count since the last Take and resets it to zero, with the
// edge source paused for the duration. If the source cannot be paused the
// count is left untouched for the next Take.
func (c *Counter) Take() (uint64, error) {
	if c.fence == nil {
		return c.n.Swap(0), nil
	}
	if err := c.fence.Pause(); err != nil {
		return 0, fmt.Errorf("pause edge source: %w", err)
	}
	n := c.n.Swap(0)
	if err := c.fence.Resume(); err != nil {
		// The count is already taken; the next tick will find out whether
		// edges are still arriving.
		log.Printf("flow: resume edge source: %v", err)
	}
	return n, nil
}
