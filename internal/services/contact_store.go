// Package services – ContactStore
//
// ContactStore owns the authoritative contact collection and the daily send
// counter. It validates input, applies the lifecycle rules from the domain
// package and persists every mutation through the repo layer in a single
// transaction. Mutations are serialized with a mutex because HTTP handlers,
// cron jobs and CLI commands may call into the same store concurrently.
//
// Duplicate adds are not errors: adding an address that already exists
// returns the existing record.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-outreach/internal/domain"
	"github.com/tbourn/go-outreach/internal/repo"
	"github.com/tbourn/go-outreach/internal/utils"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ContactStore is the persistence-backed contact collection plus the daily
// counter.
type ContactStore struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Location is the campaign timezone used for the counter's calendar date.
	Location *time.Location
	// Now returns the current time; defaults to time.Now.
	Now func() time.Time

	mu sync.Mutex
}

// NewContactStore constructs a ContactStore for the given timezone.
func NewContactStore(db *gorm.DB, loc *time.Location) *ContactStore {
	if loc == nil {
		loc = time.Local
	}
	return &ContactStore{DB: db, Location: loc, Now: time.Now}
}

func (s *ContactStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *ContactStore) today() string {
	return Policy{Location: s.Location}.Today(s.now())
}

// Add inserts a pending contact. When the address already exists (compared
// case-insensitively) the existing record is returned and created is false.
func (s *ContactStore) Add(ctx context.Context, in domain.NewContactInput) (c *domain.Contact, created bool, err error) {
	ctx, span := otel.Tracer("services/ContactStore").Start(ctx, "Add")
	defer span.End()

	email := domain.NormalizeEmail(in.Email)
	if email == "" {
		return nil, false, ErrEmailRequired
	}
	in.Email = email

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, err := repo.GetContactByEmail(ctx, s.DB, email); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, false, err
	}

	c, err = repo.CreateContact(ctx, s.DB, in, s.now())
	if errors.Is(err, repo.ErrDuplicate) {
		// Lost a race against another process sharing the database.
		existing, gerr := repo.GetContactByEmail(ctx, s.DB, email)
		if gerr != nil {
			return nil, false, gerr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	span.SetAttributes(attribute.String("contact.id", c.ID))
	return c, true, nil
}

// BulkResult summarizes an AddBulk call.
type BulkResult struct {
	Added   int      `json:"added"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// AddBulk adds every input in order. Existing addresses are counted as
// skipped; inputs that fail validation or persistence are reported in
// Errors and do not stop the import.
func (s *ContactStore) AddBulk(ctx context.Context, inputs []domain.NewContactInput) BulkResult {
	res := BulkResult{Errors: []string{}}
	for i, in := range inputs {
		_, created, err := s.Add(ctx, in)
		switch {
		case err != nil:
			res.Errors = append(res.Errors, fmt.Sprintf("row %d (%s): %v", i+1, strings.TrimSpace(in.Email), err))
		case created:
			res.Added++
		default:
			res.Skipped++
		}
	}
	return res
}

// Get returns a contact with its history, or ErrContactNotFound.
func (s *ContactStore) Get(ctx context.Context, id string) (*domain.Contact, error) {
	c, err := repo.GetContact(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrContactNotFound
	}
	return c, err
}

// GetByEmail looks a contact up by address, case-insensitively.
func (s *ContactStore) GetByEmail(ctx context.Context, email string) (*domain.Contact, error) {
	if domain.NormalizeEmail(email) == "" {
		return nil, ErrContactNotFound
	}
	c, err := repo.GetContactByEmail(ctx, s.DB, email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrContactNotFound
	}
	return c, err
}

// Contacts returns the full collection snapshot.
func (s *ContactStore) Contacts(ctx context.Context) ([]domain.Contact, error) {
	return repo.ListContacts(ctx, s.DB)
}

// ListPage returns a page of contacts, optionally filtered by status (empty
// means all), together with the total matching count. Invalid page and
// pageSize values fall back to 1 and 20.
func (s *ContactStore) ListPage(ctx context.Context, status domain.Status, page, pageSize int) ([]domain.Contact, int64, error) {
	if status != "" && !status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	pg := utils.NewPage(page, pageSize, 20, 0)

	total, err := repo.CountContacts(ctx, s.DB, status)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Contact{}, 0, nil
	}
	items, err := repo.ListContactsPage(ctx, s.DB, status, pg.Offset(), pg.Size)
	return items, total, err
}

// RecordSend stores a successful send of rec.Type to the contact: the
// history entry is appended, the status advances one step, LastContacted
// is stamped and the daily counter is incremented, all in one transaction.
// It returns ErrInvalidTransition when the contact is not due for rec.Type.
func (s *ContactStore) RecordSend(ctx context.Context, contactID string, rec domain.MessageRecord) (*domain.Contact, error) {
	ctx, span := otel.Tracer("services/ContactStore").Start(ctx, "RecordSend",
		trace.WithAttributes(
			attribute.String("contact.id", contactID),
			attribute.String("message.type", string(rec.Type)),
		),
	)
	defer span.End()

	if rec.SentAt.IsZero() {
		rec.SentAt = s.now()
	}
	rec.SentAt = rec.SentAt.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := repo.GetContact(ctx, s.DB, contactID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrContactNotFound
	}
	if err != nil {
		return nil, err
	}

	// Counter must belong to today before it is incremented.
	if _, err := s.resetLocked(ctx); err != nil {
		return nil, err
	}

	prev := c.Status
	if err := c.ApplySend(rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	if err := repo.SaveSend(ctx, s.DB, c, prev, rec); err != nil {
		if errors.Is(err, repo.ErrStaleStatus) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
		}
		return nil, err
	}
	return c, nil
}

// MarkResponded moves the contact to responded and stamps RespondedAt. It
// reports false without error when the contact had already responded.
func (s *ContactStore) MarkResponded(ctx context.Context, contactID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := repo.GetContact(ctx, s.DB, contactID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, ErrContactNotFound
		}
		return false, err
	}
	if !c.MarkResponded(s.now().UTC()) {
		return false, nil
	}
	// The conditional update guards against a concurrent writer.
	return repo.MarkContactResponded(ctx, s.DB, c.ID, *c.RespondedAt)
}

// ResetDailyCounterIfNeeded zeroes the daily counter when the calendar date
// in the campaign timezone moved past the stored reset date, and returns the
// current counter state.
func (s *ContactStore) ResetDailyCounterIfNeeded(ctx context.Context) (*domain.CampaignState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetLocked(ctx)
}

func (s *ContactStore) resetLocked(ctx context.Context) (*domain.CampaignState, error) {
	st, err := repo.GetCampaignState(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	if st.RollOver(s.today()) {
		if err := repo.SaveCampaignState(ctx, s.DB, st); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// CachedQuota returns the quota rolled for today, drawing and storing one
// with roll when none exists yet. Used when the quota is fixed per day.
func (s *ContactStore) CachedQuota(ctx context.Context, roll func() int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.resetLocked(ctx)
	if err != nil {
		return 0, err
	}
	if st.DailyQuota > 0 {
		return st.DailyQuota, nil
	}
	st.DailyQuota = roll()
	if err := repo.SaveCampaignState(ctx, s.DB, st); err != nil {
		return 0, err
	}
	return st.DailyQuota, nil
}

// Statistics is a point-in-time summary of the campaign.
type Statistics struct {
	Total          int64 `json:"total"`
	Pending        int64 `json:"pending"`
	Contacted1     int64 `json:"contacted_1"`
	FollowUp1      int64 `json:"follow_up_1"`
	FollowUp2      int64 `json:"follow_up_2"`
	FollowUp3      int64 `json:"follow_up_3"`
	Responded      int64 `json:"responded"`
	ContactedToday int   `json:"contacted_today"`
	NeedFollowUp1  int   `json:"need_follow_up_1"`
	NeedFollowUp2  int   `json:"need_follow_up_2"`
	NeedFollowUp3  int   `json:"need_follow_up_3"`
}

// Statistics counts contacts per status, reports today's sends and how many
// contacts are currently due for each follow-up.
func (s *ContactStore) Statistics(ctx context.Context, iv Intervals) (Statistics, error) {
	ctx, span := otel.Tracer("services/ContactStore").Start(ctx, "Statistics")
	defer span.End()

	st, err := s.ResetDailyCounterIfNeeded(ctx)
	if err != nil {
		return Statistics{}, err
	}
	counts, err := repo.StatusCounts(ctx, s.DB)
	if err != nil {
		return Statistics{}, err
	}
	contacts, err := s.Contacts(ctx)
	if err != nil {
		return Statistics{}, err
	}
	due := countDue(ResolveEligible(contacts, iv, s.now()))

	out := Statistics{
		Pending:        counts[domain.StatusPending],
		Contacted1:     counts[domain.StatusContacted1],
		FollowUp1:      counts[domain.StatusFollowUp1],
		FollowUp2:      counts[domain.StatusFollowUp2],
		FollowUp3:      counts[domain.StatusFollowUp3],
		Responded:      counts[domain.StatusResponded],
		ContactedToday: st.ContactedToday,
		NeedFollowUp1:  due[domain.MessageFollowUp1],
		NeedFollowUp2:  due[domain.MessageFollowUp2],
		NeedFollowUp3:  due[domain.MessageFollowUp3],
	}
	for _, n := range counts {
		out.Total += n
	}
	return out, nil
}
