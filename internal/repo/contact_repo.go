// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Contact
// model and its message history.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: lifecycle rules live in the domain
// package and the services; this file only persists and queries.
//
// Error semantics:
//   - When a contact is not found, functions return ErrNotFound.
//   - Inserting an address that already exists returns ErrDuplicate.
//   - Conditional status updates that lose a race return ErrStaleStatus.
//   - Any other DB error is propagated unchanged.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-outreach/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates that a row with the same unique key already exists.
var ErrDuplicate = errors.New("duplicate")

// ErrStaleStatus is returned when a contact's status changed between the
// read and the conditional update that should advance it.
var ErrStaleStatus = errors.New("contact status changed concurrently")

// isUniqueViolation recognizes unique-constraint failures across drivers.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key value") // postgres 23505
}

// CreateContact inserts a new pending contact built from in. The address is
// normalized before insert. It returns ErrDuplicate when the address exists.
func CreateContact(ctx context.Context, db *gorm.DB, in domain.NewContactInput, now time.Time) (*domain.Contact, error) {
	c := &domain.Contact{
		ID:          uuid.NewString(),
		Email:       domain.NormalizeEmail(in.Email),
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		Name:        in.DisplayName(),
		CompanyName: strings.TrimSpace(in.CompanyName),
		City:        strings.TrimSpace(in.City),
		Status:      domain.StatusPending,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return c, nil
}

// GetContact fetches a contact by ID with its history ordered by send time.
func GetContact(ctx context.Context, db *gorm.DB, id string) (*domain.Contact, error) {
	var c domain.Contact
	err := db.WithContext(ctx).
		Preload("History", func(tx *gorm.DB) *gorm.DB { return tx.Order("sent_at asc, id asc") }).
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetContactByEmail fetches a contact by address, case-insensitively.
func GetContactByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Contact, error) {
	var c domain.Contact
	err := db.WithContext(ctx).
		Preload("History", func(tx *gorm.DB) *gorm.DB { return tx.Order("sent_at asc, id asc") }).
		First(&c, "email = ?", domain.NormalizeEmail(email)).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListContacts returns every contact ordered by creation time, without
// history. It returns an empty slice when there are none.
func ListContacts(ctx context.Context, db *gorm.DB) ([]domain.Contact, error) {
	var out []domain.Contact
	err := db.WithContext(ctx).
		Order("created_at asc, id asc").
		Find(&out).Error
	return out, err
}

// CountContacts returns the number of contacts, optionally filtered by
// status (empty status means all).
func CountContacts(ctx context.Context, db *gorm.DB, status domain.Status) (int64, error) {
	var total int64
	q := db.WithContext(ctx).Model(&domain.Contact{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Count(&total).Error
	return total, err
}

// ListContactsPage returns a paginated slice of contacts, optionally
// filtered by status. Use CountContacts to obtain the total for pagination
// metadata.
//
// The caller is responsible for computing offset and limit (e.g., (page-1)*pageSize).
func ListContactsPage(ctx context.Context, db *gorm.DB, status domain.Status, offset, limit int) ([]domain.Contact, error) {
	var out []domain.Contact
	q := db.WithContext(ctx).Order("created_at asc, id asc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Offset(offset).Limit(limit).Find(&out).Error
	return out, err
}

// SaveSend persists a successful send in one transaction: the history row is
// inserted, the contact's status and LastContacted advance (only if the
// status is still prevStatus), and the daily counter is incremented.
//
// c must already reflect the applied send (see domain.Contact.ApplySend).
func SaveSend(ctx context.Context, db *gorm.DB, c *domain.Contact, prevStatus domain.Status, rec domain.MessageRecord) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec.ContactID = c.ID
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		res := tx.Model(&domain.Contact{}).
			Where("id = ? AND status = ?", c.ID, prevStatus).
			Updates(map[string]any{
				"status":         c.Status,
				"last_contacted": c.LastContacted,
				"updated_at":     rec.SentAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleStatus
		}
		return IncrementContactedToday(ctx, tx)
	})
}

// MarkContactResponded moves the contact to responded unless it already is.
// It reports whether a row changed.
func MarkContactResponded(ctx context.Context, db *gorm.DB, id string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Contact{}).
		Where("id = ? AND status <> ?", id, domain.StatusResponded).
		Updates(map[string]any{
			"status":       domain.StatusResponded,
			"responded_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
