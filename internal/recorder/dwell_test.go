// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package recorder

import (
	"testing"
	"time"
)

func TestDwellClock(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewDwellClock()
	c.now = func() time.Time { return now }

	if got := c.Stop(1); got != 0 {
		t.Errorf("Stop before Start = %d, want 0", got)
	}

	c.Start(7)
	now = now.Add(2500 * time.Millisecond)
	if got := c.Stop(8); got != 0 {
		t.Errorf("Stop for another item = %d, want 0", got)
	}
	if got := c.Stop(7); got != 2500 {
		t.Errorf("Stop = %d, want 2500", got)
	}
	if got := c.Stop(7); got != 0 {
		t.Errorf("second Stop = %d, want 0", got)
	}

	c.Start(9)
	now = now.Add(-time.Second)
	if got := c.Stop(9); got != 0 {
		t.Errorf("Stop with clock skew = %d, want 0", got)
	}
}
