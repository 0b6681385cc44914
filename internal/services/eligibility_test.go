package services

import (
	"testing"
	"time"

	"github.com/tbourn/go-outreach/internal/domain"
)

func ptrTime(t time.Time) *time.Time { return &t }

func TestResolveEligible_Rules(t *testing.T) {
	now := monday10
	daysAgo := func(n int) *time.Time { return ptrTime(now.AddDate(0, 0, -n)) }

	tests := []struct {
		name   string
		c      domain.Contact
		want   domain.MessageType
		wantOK bool
	}{
		{"pending always initial", domain.Contact{Status: domain.StatusPending}, domain.MessageInitial, true},
		{"contacted_1 exactly at cutoff", domain.Contact{Status: domain.StatusContacted1, LastContacted: daysAgo(3)}, domain.MessageFollowUp1, true},
		{"contacted_1 one day short", domain.Contact{Status: domain.StatusContacted1, LastContacted: daysAgo(2)}, "", false},
		{"contacted_1 one second short", domain.Contact{Status: domain.StatusContacted1, LastContacted: ptrTime(now.AddDate(0, 0, -3).Add(time.Second))}, "", false},
		{"contacted_1 well past", domain.Contact{Status: domain.StatusContacted1, LastContacted: daysAgo(30)}, domain.MessageFollowUp1, true},
		{"follow_up_1 at 5 days", domain.Contact{Status: domain.StatusFollowUp1, LastContacted: daysAgo(5)}, domain.MessageFollowUp2, true},
		{"follow_up_1 at 4 days", domain.Contact{Status: domain.StatusFollowUp1, LastContacted: daysAgo(4)}, "", false},
		{"follow_up_2 at 7 days", domain.Contact{Status: domain.StatusFollowUp2, LastContacted: daysAgo(7)}, domain.MessageFollowUp3, true},
		{"follow_up_2 at 6 days", domain.Contact{Status: domain.StatusFollowUp2, LastContacted: daysAgo(6)}, "", false},
		{"follow_up_3 never", domain.Contact{Status: domain.StatusFollowUp3, LastContacted: daysAgo(100)}, "", false},
		{"responded never", domain.Contact{Status: domain.StatusResponded, LastContacted: daysAgo(100)}, "", false},
		{"missing last contacted", domain.Contact{Status: domain.StatusContacted1}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveEligible([]domain.Contact{tt.c}, testIntervals, now)
			if !tt.wantOK {
				if len(got) != 0 {
					t.Fatalf("expected no pair, got %+v", got)
				}
				return
			}
			if len(got) != 1 || got[0].MessageType != tt.want {
				t.Fatalf("got %+v; want one pair for %s", got, tt.want)
			}
		})
	}
}

func TestResolveEligible_ZeroIntervalsAndMixedSet(t *testing.T) {
	now := monday10
	contacts := []domain.Contact{
		{ID: "a", Status: domain.StatusPending},
		{ID: "b", Status: domain.StatusContacted1, LastContacted: ptrTime(now)},
		{ID: "c", Status: domain.StatusResponded},
	}
	got := ResolveEligible(contacts, Intervals{}, now)
	if len(got) != 2 {
		t.Fatalf("expected 2 pairs with zero intervals, got %d", len(got))
	}
	due := countDue(got)
	if due[domain.MessageInitial] != 1 || due[domain.MessageFollowUp1] != 1 {
		t.Fatalf("unexpected tally: %v", due)
	}
}
