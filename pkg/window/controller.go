// Package window tracks the launcher overlay's visibility. The native window is driven by the UI
// process; this controller owns the state and tells subscribers when it changes.
package window

import "sync"

// Controller holds the overlay visibility.
type Controller struct {
	mu          sync.Mutex
	visible     bool
	subscribers []func(visible bool)
}

// NewController creates a controller with the overlay hidden.
func NewController() *Controller {
	return &Controller{}
}

// Show makes the overlay visible.
func (c *Controller) Show() { c.set(func(bool) bool { return true }) }

// Hide hides the overlay.
func (c *Controller) Hide() { c.set(func(bool) bool { return false }) }

// Toggle flips visibility and returns the new state.
func (c *Controller) Toggle() bool {
	var now bool
	c.set(func(v bool) bool {
		now = !v
		return now
	})
	return now
}

// Visible reports the current state.
func (c *Controller) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

// Subscribe registers fn to be called after every change. It is not called for no-op updates.
func (c *Controller) Subscribe(fn func(visible bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

func (c *Controller) set(next func(bool) bool) {
	c.mu.Lock()
	prev := c.visible
	c.visible = next(prev)
	changed := prev != c.visible
	visible := c.visible
	subs := append([]func(bool){}, c.subscribers...)
	c.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range subs {
		fn(visible)
	}
}
