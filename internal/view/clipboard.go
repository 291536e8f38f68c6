package view

import (
	"fmt"
	"sync"
	"time"

	"github.com/newthinker/signaldeck/internal/core"
)

// DefaultCopiedFor is how long the "copied" indicator stays visible.
const DefaultCopiedFor = 2 * time.Second

// ClipboardLine formats a signal as "SYMBOL - TYPE @ $PRICE - SYSTEM".
func ClipboardLine(s core.Signal) string {
	return fmt.Sprintf("%s - %s @ $%.6f - %s", s.Symbol, s.Type.Raw, s.Price, s.System.Raw)
}

// CopyIndicator tracks which signal was copied last, for a limited time.
type CopyIndicator struct {
	mu       sync.Mutex
	duration time.Duration
	id       string
	until    time.Time
	now      func() time.Time
}

// NewCopyIndicator creates an indicator that clears after d.
func NewCopyIndicator(d time.Duration) *CopyIndicator {
	if d <= 0 {
		d = DefaultCopiedFor
	}
	return &CopyIndicator{duration: d, now: time.Now}
}

// Mark records that id was just copied and returns when the mark expires.
// Marking again restarts the timer.
func (c *CopyIndicator) Mark(id string) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.id = id
	c.until = c.now().Add(c.duration)
	return c.until
}

// Active returns the copied signal ID, or "" once the mark has expired.
func (c *CopyIndicator) Active() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.id == "" || !c.now().Before(c.until) {
		return ""
	}
	return c.id
}

// Duration returns how long a mark stays active.
func (c *CopyIndicator) Duration() time.Duration {
	return c.duration
}
