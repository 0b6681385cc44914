// Package services – Eligibility Resolver
//
// ResolveEligible maps a snapshot of contacts onto the messages they are
// due for right now. Follow-ups are gated by a calendar cutoff of whole
// days since the previous send; the comparison is inclusive so a run at an
// irregular time never skips a contact sitting exactly on the boundary.
package services

import (
	"time"

	"github.com/tbourn/go-outreach/internal/domain"
)

// Intervals are the follow-up waiting periods, in whole days.
type Intervals struct {
	AfterInitial   int
	AfterFollowUp1 int
	AfterFollowUp2 int
}

// wait returns the waiting period that gates m, and false for the initial
// message, which is never time-gated.
func (iv Intervals) wait(m domain.MessageType) (int, bool) {
	switch m {
	case domain.MessageFollowUp1:
		return iv.AfterInitial, true
	case domain.MessageFollowUp2:
		return iv.AfterFollowUp1, true
	case domain.MessageFollowUp3:
		return iv.AfterFollowUp2, true
	}
	return 0, false
}

// ResolveEligible returns every (contact, next message) pair that is due at
// now. The result has no particular order.
func ResolveEligible(contacts []domain.Contact, iv Intervals, now time.Time) []domain.EligiblePair {
	out := make([]domain.EligiblePair, 0, len(contacts))
	for _, c := range contacts {
		m, ok := dueMessage(c, iv, now)
		if !ok {
			continue
		}
		out = append(out, domain.EligiblePair{Contact: c, MessageType: m})
	}
	return out
}

func dueMessage(c domain.Contact, iv Intervals, now time.Time) (domain.MessageType, bool) {
	m, ok := c.Status.NextMessage()
	if !ok {
		return "", false
	}
	days, gated := iv.wait(m)
	if !gated {
		return m, true
	}
	if c.LastContacted == nil {
		return "", false
	}
	cutoff := now.AddDate(0, 0, -days)
	if c.LastContacted.After(cutoff) {
		return "", false
	}
	return m, true
}

// countDue tallies pairs by message type.
func countDue(pairs []domain.EligiblePair) map[domain.MessageType]int {
	out := make(map[domain.MessageType]int, len(domain.MessageTypes))
	for _, p := range pairs {
		out[p.MessageType]++
	}
	return out
}
