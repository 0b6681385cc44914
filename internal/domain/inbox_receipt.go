package domain

import "time"

// InboxReceipt records an inbound message that the reply checker already
// processed, keyed by its Message-ID header. Inbox checks look back several
// days on every run, so receipts let later runs skip mail they have seen.
// Receipts expire after ExpiresAt and may then be purged.
type InboxReceipt struct {
	MessageID string    `gorm:"type:varchar(512);primaryKey"`
	Sender    string    `gorm:"type:varchar(320);not null;index"`
	Outcome   string    `gorm:"type:varchar(32);not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (InboxReceipt) TableName() string { return "inbox_receipts" }

// Receipt outcomes. NoChange covers legitimate replies that moved nothing:
// unknown senders and contacts that had already responded.
const (
	ReceiptResponded = "responded"
	ReceiptIgnored   = "ignored"
	ReceiptNoChange  = "no_change"
)
