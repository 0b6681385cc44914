// Package services – Timing Policy
//
// Policy holds the three per-invocation timing decisions of the campaign:
// the business-hours gate, the randomized daily quota and the randomized
// pause between two sends. None of them is persisted; each call re-derives
// its answer from the configuration snapshot and the random source.
package services

import (
	"math/rand/v2"
	"time"

	"github.com/tbourn/go-outreach/internal/domain"
)

// Rand is the random source used for quota, delay and shuffle decisions.
// *rand.Rand from math/rand/v2 satisfies it, which lets tests pass a seeded
// generator.
type Rand interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// globalRand forwards to the auto-seeded top-level math/rand/v2 functions.
type globalRand struct{}

func (globalRand) IntN(n int) int                     { return rand.IntN(n) }
func (globalRand) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// Quota modes.
const (
	// QuotaPerRun draws a fresh quota on every batch run.
	QuotaPerRun = "per_run"
	// QuotaPerDay draws once per calendar day and caches the roll next to
	// the counter's reset date.
	QuotaPerDay = "per_day"
)

// Policy is a configuration snapshot for timing decisions.
type Policy struct {
	// Location is the campaign timezone; nil means time.Local.
	Location *time.Location
	// StartHour and EndHour bound the working window [StartHour, EndHour).
	StartHour int
	EndHour   int
	// WorkDays lists the weekdays on which sending is allowed.
	WorkDays []time.Weekday

	// QuotaMin and QuotaMax bound the daily quota, inclusive.
	QuotaMin int
	QuotaMax int
	// QuotaMode is QuotaPerRun (default) or QuotaPerDay.
	QuotaMode string

	// DelayMinMinutes and DelayMaxMinutes bound the pause between sends.
	DelayMinMinutes int
	DelayMaxMinutes int

	// Rand is the random source; nil means the global generator.
	Rand Rand
}

func (p Policy) rng() Rand {
	if p.Rand == nil {
		return globalRand{}
	}
	return p.Rand
}

func (p Policy) loc() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

// In converts t to the campaign timezone.
func (p Policy) In(t time.Time) time.Time { return t.In(p.loc()) }

// Today returns the calendar date of t in the campaign timezone.
func (p Policy) Today(t time.Time) string {
	return p.In(t).Format(domain.DateLayout)
}

// IsBusinessHours reports whether now falls on a working day and inside
// [StartHour, EndHour), both evaluated in the campaign timezone.
func (p Policy) IsBusinessHours(now time.Time) bool {
	local := p.In(now)
	workday := false
	for _, d := range p.WorkDays {
		if d == local.Weekday() {
			workday = true
			break
		}
	}
	if !workday {
		return false
	}
	h := local.Hour()
	return h >= p.StartHour && h < p.EndHour
}

// DailyQuota draws a quota uniformly from [QuotaMin, QuotaMax].
func (p Policy) DailyQuota() int {
	return uniform(p.rng(), p.QuotaMin, p.QuotaMax)
}

// Delay draws the pause before the next send uniformly, at millisecond
// resolution, from [DelayMinMinutes, DelayMaxMinutes].
func (p Policy) Delay() time.Duration {
	const msPerMinute = int(time.Minute / time.Millisecond)
	ms := uniform(p.rng(), p.DelayMinMinutes*msPerMinute, p.DelayMaxMinutes*msPerMinute)
	return time.Duration(ms) * time.Millisecond
}

// Shuffle permutes pairs in place, uniformly.
func (p Policy) Shuffle(n int, swap func(i, j int)) {
	p.rng().Shuffle(n, swap)
}

// BatchSize is the number of sends one run may attempt with remaining quota
// left: min(remaining, ceil(remaining/2)).
func BatchSize(remaining int) int {
	if remaining <= 0 {
		return 0
	}
	half := (remaining + 1) / 2
	return min(remaining, half)
}

func uniform(r Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo+1)
}
