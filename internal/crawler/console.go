package crawler

import (
	"io"
	"sync"
)

// Console serializes writes to an underlying writer so that progress lines
// from concurrent workers never interleave. Each Write is passed through
// whole.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole wraps w. A nil w discards all output.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = io.Discard
	}
	return &Console{w: w}
}

// Write implements io.Writer.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Write(p)
}
