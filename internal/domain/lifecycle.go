package domain

import (
	"fmt"
	"time"
)

// Status is a contact's position in the outreach lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusContacted1 Status = "contacted_1"
	StatusFollowUp1  Status = "follow_up_1"
	StatusFollowUp2  Status = "follow_up_2"
	StatusFollowUp3  Status = "follow_up_3"
	StatusResponded  Status = "responded"
)

// MessageType identifies which message of the sequence is sent.
type MessageType string

const (
	MessageInitial   MessageType = "initial"
	MessageFollowUp1 MessageType = "follow_up_1"
	MessageFollowUp2 MessageType = "follow_up_2"
	MessageFollowUp3 MessageType = "follow_up_3"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusPending, StatusContacted1, StatusFollowUp1, StatusFollowUp2, StatusFollowUp3, StatusResponded,
}

// MessageTypes lists every message type in sequence order.
var MessageTypes = []MessageType{MessageInitial, MessageFollowUp1, MessageFollowUp2, MessageFollowUp3}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Valid reports whether m is a known message type.
func (m MessageType) Valid() bool {
	for _, v := range MessageTypes {
		if m == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool { return s == StatusResponded }

// NextMessage returns the message a contact in status s is due for next.
// follow_up_3 and responded have no next message.
func (s Status) NextMessage() (MessageType, bool) {
	switch s {
	case StatusPending:
		return MessageInitial, true
	case StatusContacted1:
		return MessageFollowUp1, true
	case StatusFollowUp1:
		return MessageFollowUp2, true
	case StatusFollowUp2:
		return MessageFollowUp3, true
	}
	return "", false
}

// ResultingStatus returns the status a contact moves to once m is sent.
func (m MessageType) ResultingStatus() (Status, bool) {
	switch m {
	case MessageInitial:
		return StatusContacted1, true
	case MessageFollowUp1:
		return StatusFollowUp1, true
	case MessageFollowUp2:
		return StatusFollowUp2, true
	case MessageFollowUp3:
		return StatusFollowUp3, true
	}
	return "", false
}

// GuardResult represents the outcome of a lifecycle guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string // populated when not allowed
}

// Error returns the guard result as an error if not allowed, nil otherwise.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// CanRecordSend evaluates whether message m may be recorded for c.
// Rule: only the next message of the sequence can be recorded, and never
// after the contact responded.
func CanRecordSend(c *Contact, m MessageType) GuardResult {
	if c.Status.Terminal() {
		return GuardResult{Reason: fmt.Sprintf("contact %s already responded", c.ID)}
	}
	next, ok := c.Status.NextMessage()
	if !ok || next != m {
		return GuardResult{Reason: fmt.Sprintf("contact %s in status %s cannot receive %s", c.ID, c.Status, m)}
	}
	return GuardResult{Allowed: true}
}

// ApplySend advances c after a successful send of rec. It appends rec to the
// history, stamps LastContacted with rec.SentAt and moves Status one step.
func (c *Contact) ApplySend(rec MessageRecord) error {
	if err := CanRecordSend(c, rec.Type).Error(); err != nil {
		return err
	}
	next, _ := rec.Type.ResultingStatus()
	sentAt := rec.SentAt
	rec.ContactID = c.ID
	c.History = append(c.History, rec)
	c.LastContacted = &sentAt
	c.Status = next
	return nil
}

// MarkResponded moves c to responded and stamps RespondedAt. It reports
// false, leaving c untouched, when c already responded.
func (c *Contact) MarkResponded(at time.Time) bool {
	if c.Status.Terminal() {
		return false
	}
	c.Status = StatusResponded
	c.RespondedAt = &at
	return true
}
