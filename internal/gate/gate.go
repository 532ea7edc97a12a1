// Package gate decides whether a module is readable for a member, based on
// the module's position in the catalog and the time since purchase.
package gate

import (
	"math"
	"time"
)

const (
	// FreeModules is the highest sequence number readable from day zero.
	FreeModules = 9
	// UnlockAfterDays is how long after purchase the remaining modules open.
	UnlockAfterDays = 7
)

// DaysSince returns whole days elapsed from purchase to now, rounded down.
// A purchase date in the future yields a negative count.
func DaysSince(purchase, now time.Time) int {
	return int(math.Floor(now.Sub(purchase).Hours() / 24))
}

// IsLocked reports whether a module is unavailable.
func IsLocked(sequence, daysSincePurchase int) bool {
	if sequence <= FreeModules {
		return false
	}
	return daysSincePurchase < UnlockAfterDays
}

// DaysUntilUnlock returns the number of days left before gated modules open.
func DaysUntilUnlock(daysSincePurchase int) int {
	left := UnlockAfterDays - daysSincePurchase
	if left < 0 {
		return 0
	}
	return left
}

// State bundles the gate decision for a single module.
type State struct {
	Locked        bool `json:"locked"`
	DaysRemaining int  `json:"days_remaining"`
}

// Evaluate computes the gate state of a module for a purchase date.
func Evaluate(sequence int, purchase, now time.Time) State {
	days := DaysSince(purchase, now)
	if !IsLocked(sequence, days) {
		return State{}
	}
	return State{Locked: true, DaysRemaining: DaysUntilUnlock(days)}
}
