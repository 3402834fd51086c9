// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package recorder

import (
	"sync"
	"time"
)

// DwellClock measures how long the current item has been on screen.
type DwellClock struct {
	mu      sync.Mutex
	itemID  int64
	started time.Time
	now     func() time.Time
}

// NewDwellClock returns a stopped clock.
func NewDwellClock() *DwellClock {
	return &DwellClock{now: time.Now}
}

// Start marks itemID as presented now.
func (c *DwellClock) Start(itemID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.itemID = itemID
	c.started = c.now()
}

// Stop returns the dwell in milliseconds for itemID and stops the clock.
// It returns 0 when itemID is not the item being timed.
func (c *DwellClock) Stop(itemID int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started.IsZero() || c.itemID != itemID {
		return 0
	}
	d := c.now().Sub(c.started).Milliseconds()
	c.started = time.Time{}
	c.itemID = 0
	if d < 0 {
		return 0
	}
	return d
}
