// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used by the
// campaign statistics and status endpoints.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-outreach/internal/domain"
)

// StatusCounts returns the number of contacts per lifecycle status. Every
// known status is present in the result, with 0 when no contact holds it.
func StatusCounts(ctx context.Context, db *gorm.DB) (map[domain.Status]int64, error) {
	var rows []struct {
		Status domain.Status
		N      int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Contact{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.Status]int64, len(domain.Statuses))
	for _, s := range domain.Statuses {
		out[s] = 0
	}
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

// LastSentAt returns the most recent history SentAt, or nil when nothing
// has been sent yet.
func LastSentAt(ctx context.Context, db *gorm.DB) (*time.Time, error) {
	q := db.WithContext(ctx).Model(&domain.MessageRecord{})

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	// Latest sent_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		SentAt time.Time
	}
	if err := q.Select("sent_at").Order("sent_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return nil, err
	}
	return &row.SentAt, nil
}
