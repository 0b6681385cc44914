// Package domain defines the persistence models and lifecycle rules for
// outreach contacts. These types are mapped with GORM and form the core data
// layer of the drip campaign: who is being contacted, what has been sent to
// them, and where each of them stands in the outreach sequence.
package domain

import (
	"strings"
	"time"
)

// Contact is one outreach target tracked through the lifecycle
// pending → contacted_1 → follow_up_1 → follow_up_2 → follow_up_3, with
// responded reachable from any of those and terminal once reached.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Email: lower-cased address, unique across all contacts.
//   - FirstName / LastName / Name / CompanyName / City: optional profile
//     attributes used only for message personalization.
//   - Status: current lifecycle status (exactly one at any time).
//   - LastContacted: time of the most recent send; nil while pending.
//   - RespondedAt: set once, when the contact transitions to responded.
//   - History: append-only audit trail of every message sent.
type Contact struct {
	ID            string     `json:"id"             gorm:"type:char(36);primaryKey"`
	Email         string     `json:"email"          gorm:"type:varchar(320);not null;uniqueIndex:ux_contacts_email"`
	FirstName     string     `json:"first_name"     gorm:"type:varchar(128)"`
	LastName      string     `json:"last_name"      gorm:"type:varchar(128)"`
	Name          string     `json:"name"           gorm:"type:varchar(255)"`
	CompanyName   string     `json:"company_name"   gorm:"type:varchar(255)"`
	City          string     `json:"city"           gorm:"type:varchar(128)"`
	Status        Status     `json:"status"         gorm:"type:varchar(16);not null;default:'pending';index:idx_contacts_status"`
	LastContacted *time.Time `json:"last_contacted,omitempty"`
	RespondedAt   *time.Time `json:"responded_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// History is ordered by SentAt ascending when preloaded.
	History []MessageRecord `json:"message_history,omitempty" gorm:"foreignKey:ContactID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Contact.
func (Contact) TableName() string { return "contacts" }

// MessageRecord is one entry of a contact's message history. Records are
// only ever inserted; the core never updates or deletes them.
type MessageRecord struct {
	ID                uint        `json:"-"                             gorm:"primaryKey;autoIncrement"`
	ContactID         string      `json:"-"                             gorm:"type:char(36);not null;index:idx_history_contact,priority:1"`
	Type              MessageType `json:"type"                          gorm:"type:varchar(16);not null"`
	SentAt            time.Time   `json:"sent_at"                       gorm:"not null;index:idx_history_contact,priority:2"`
	TemplateVariant   int         `json:"template_variant"`
	SubjectVariant    int         `json:"subject_variant"`
	ProviderMessageID string      `json:"provider_message_id,omitempty" gorm:"type:varchar(255)"`
}

// TableName returns the database table name for MessageRecord.
func (MessageRecord) TableName() string { return "message_history" }

// NormalizeEmail trims and lower-cases an address so that lookups and the
// unique index are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewContactInput carries the user-supplied attributes of a contact to add.
type NewContactInput struct {
	Email       string `json:"email"        example:"jane@example.com"`
	FirstName   string `json:"first_name"   example:"Jane"`
	LastName    string `json:"last_name"    example:"Doe"`
	Name        string `json:"name"         example:"Jane Doe"`
	CompanyName string `json:"company_name" example:"Acme Realty"`
	City        string `json:"city"         example:"Milford"`
}

// DisplayName returns Name, falling back to FirstName.
func (in NewContactInput) DisplayName() string {
	if n := strings.TrimSpace(in.Name); n != "" {
		return n
	}
	return strings.TrimSpace(in.FirstName)
}

// EligiblePair is a contact together with the message it is due for. Pairs
// are computed per batch run and never stored.
type EligiblePair struct {
	Contact     Contact     `json:"contact"`
	MessageType MessageType `json:"message_type"`
}
