// Package toast is the single-slot transient notification channel. At most
// one toast is live; showing another replaces it immediately rather than
// queueing behind it.
package toast

import (
	"sync"
	"time"
)

// Severity classifies a toast for styling.
type Severity string

const (
	Success Severity = "success"
	Error   Severity = "error"
	Info    Severity = "info"
)

// Position places a toast on screen.
type Position string

const (
	Top    Position = "top"
	Bottom Position = "bottom"
)

// DefaultTTL is how long a toast stays visible without being replaced.
const DefaultTTL = 3 * time.Second

// Toast is one visible notification.
type Toast struct {
	Message  string
	Severity Severity
	Position Position
}

// Channel holds the single toast slot. The zero value is ready to use.
//
// Each Show advances a generation counter and returns the new generation.
// Dismiss only clears the slot when called with the current generation, so
// a timer left over from a replaced toast can never clear its successor.
type Channel struct {
	mu      sync.Mutex
	current *Toast
	gen     uint64
	ttl     time.Duration
}

// SetTTL overrides DefaultTTL. Zero or negative keeps the default.
func (c *Channel) SetTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttl = ttl
}

// TTL returns the visible duration callers should schedule dismissal with.
func (c *Channel) TTL() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ttl > 0 {
		return c.ttl
	}
	return DefaultTTL
}

// Show replaces any live toast with the given one and returns the
// generation to pass to Dismiss after TTL elapses. Empty severity and
// position default to Info and Top.
func (c *Channel) Show(message string, severity Severity, position Position) uint64 {
	if severity == "" {
		severity = Info
	}
	if position == "" {
		position = Top
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.current = &Toast{Message: message, Severity: severity, Position: position}
	return c.gen
}

// Dismiss clears the slot if gen is still the live generation. It reports
// whether anything was cleared.
func (c *Channel) Dismiss(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || gen != c.gen {
		return false
	}
	c.current = nil
	return true
}

// Current returns the live toast, if any.
func (c *Channel) Current() (Toast, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Toast{}, false
	}
	return *c.current, true
}
