package auction

import "time"

// AutoExtendPolicy pushes the close time outward when a price-moving
// event lands near the deadline. The new deadline is relative to the
// triggering event, not additive with prior extensions.
type AutoExtendPolicy struct {
	Threshold time.Duration
	Duration  time.Duration
}

// Apply extends the auction's end time when the triggering event falls
// within the threshold window. Returns true when an extension happened.
// Callers must only invoke this for events that moved the clearing
// price. That reading is deliberately narrow: a maximum-only raise
// never counts as activity, and neither does a first bid that takes
// the lead while the price sits at the start price.
func (p AutoExtendPolicy) Apply(a *Auction, now time.Time) bool {
	if !a.AutoExtendEnabled {
		return false
	}
	if a.EndTime.Sub(now) > p.Threshold {
		return false
	}
	a.EndTime = now.Add(p.Duration)
	a.UpdatedAt = now
	return true
}
