package domain

import "time"

// CampaignStateID is the primary key of the single campaign state row.
const CampaignStateID = 1

// DateLayout is the calendar-date format used for LastResetDate.
const DateLayout = "2006-01-02"

// CampaignState is the process-wide daily counter persisted alongside the
// contacts. There is exactly one row (ID == CampaignStateID).
//
// Fields:
//   - ContactedToday: successful sends since LastResetDate began.
//   - LastResetDate: calendar date (in the campaign timezone) the counter
//     belongs to, formatted with DateLayout.
//   - DailyQuota: cached quota roll for LastResetDate; 0 when not rolled.
//     Only consulted when the quota is fixed once per day.
type CampaignState struct {
	ID             int       `json:"-"                gorm:"primaryKey;autoIncrement:false"`
	ContactedToday int       `json:"contacted_today"  gorm:"not null;default:0;check:contacted_today >= 0"`
	LastResetDate  string    `json:"last_reset_date"  gorm:"type:varchar(10)"`
	DailyQuota     int       `json:"daily_quota"      gorm:"not null;default:0"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for CampaignState.
func (CampaignState) TableName() string { return "campaign_state" }

// RollOver resets the counter when today differs from LastResetDate and
// reports whether a reset happened.
func (s *CampaignState) RollOver(today string) bool {
	if s.LastResetDate == today {
		return false
	}
	s.ContactedToday = 0
	s.DailyQuota = 0
	s.LastResetDate = today
	return true
}
