// Package button implements the reset button's long-press detection.
// Like the logic package it never sleeps and takes time as a parameter.
package button

import "time"

const (
	// DefaultDebounce is how long a raw level must hold before it is accepted.
	DefaultDebounce = 50 * time.Millisecond

	// LongPressDuration is how long the button must be held to count as a
	// reset. Build-time constant.
	LongPressDuration = time.Second
)

// LongPress turns raw button levels into a one-shot long-press pulse.
// Poll must be called on every control cycle regardless of what the rest of
// the system is doing, otherwise hold time is measured late.
type LongPress struct {
	debounce time.Duration
	hold     time.Duration

	stable       bool // debounced level, true = pressed
	pending      bool // a raw level differing from stable is being observed
	pendingSince time.Time
	pressedSince time.Time
	fired        bool
}

// NewLongPress creates a detector with the given debounce and hold durations.
func NewLongPress(debounce, hold time.Duration) *LongPress {
	return &LongPress{
		debounce: debounce,
		hold:     hold,
	}
}

// Poll feeds one raw sample (true = pressed) and reports whether a long
// press completed on this sample. It returns true at most once per hold.
func (b *LongPress) Poll(pressed bool, now time.Time) bool {
	if pressed == b.stable {
		// Bounce back to the stable level; drop the pending change.
		b.pending = false
	} else {
		if !b.pending {
			b.pending = true
			b.pendingSince = now
		}
		if now.Sub(b.pendingSince) >= b.debounce {
			b.stable = pressed
			b.pending = false
			if pressed {
				// Hold time counts from the first edge, not from debounce.
				b.pressedSince = b.pendingSince
				b.fired = false
			}
		}
	}

	if !b.stable || b.fired {
		return false
	}
	if now.Sub(b.pressedSince) < b.hold {
		return false
	}
	b.fired = true
	return true
}

// Pressed returns the debounced button level.
func (b *LongPress) Pressed() bool {
	return b.stable
}
