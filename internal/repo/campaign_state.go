package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-outreach/internal/domain"
)

// GetCampaignState returns the single campaign state row, creating it with
// a zero counter on first use.
func GetCampaignState(ctx context.Context, db *gorm.DB) (*domain.CampaignState, error) {
	var s domain.CampaignState
	err := db.WithContext(ctx).
		Where(domain.CampaignState{ID: domain.CampaignStateID}).
		FirstOrCreate(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveCampaignState writes back the counter, reset date and cached quota.
func SaveCampaignState(ctx context.Context, db *gorm.DB, s *domain.CampaignState) error {
	s.ID = domain.CampaignStateID
	return db.WithContext(ctx).
		Model(&domain.CampaignState{ID: domain.CampaignStateID}).
		Select("contacted_today", "last_reset_date", "daily_quota", "updated_at").
		Updates(s).Error
}

// IncrementContactedToday adds one to the daily counter atomically.
func IncrementContactedToday(ctx context.Context, db *gorm.DB) error {
	res := db.WithContext(ctx).
		Model(&domain.CampaignState{}).
		Where("id = ?", domain.CampaignStateID).
		Update("contacted_today", gorm.Expr("contacted_today + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
