// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the InboxReceipt
// model used to make inbox checks safe to repeat over overlapping windows.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-outreach/internal/domain"
)

// GetReceipt returns a non-expired receipt for messageID or ErrNotFound.
func GetReceipt(ctx context.Context, db *gorm.DB, messageID string, now time.Time) (*domain.InboxReceipt, error) {
	if strings.TrimSpace(messageID) == "" {
		return nil, ErrNotFound
	}
	var rec domain.InboxReceipt
	err := db.WithContext(ctx).
		Where("message_id = ? AND expires_at > ?", messageID, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateReceipt inserts a receipt and returns ErrDuplicate on unique violation.
func CreateReceipt(ctx context.Context, db *gorm.DB, messageID, sender, outcome string, now time.Time, ttl time.Duration) (*domain.InboxReceipt, error) {
	rec := &domain.InboxReceipt{
		MessageID: messageID,
		Sender:    domain.NormalizeEmail(sender),
		Outcome:   outcome,
		CreatedAt: now.UTC(),
		ExpiresAt: now.UTC().Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// PurgeExpiredReceipts deletes receipts whose ExpiresAt is at or before now
// and returns how many rows were removed.
func PurgeExpiredReceipts(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&domain.InboxReceipt{})
	return res.RowsAffected, res.Error
}
