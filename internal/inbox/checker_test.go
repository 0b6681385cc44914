package inbox

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-outreach/internal/domain"
	"github.com/tbourn/go-outreach/internal/repo"
	"github.com/tbourn/go-outreach/internal/services"
)

type fakeSource struct {
	msgs  []Email
	err   error
	since time.Time
}

func (f *fakeSource) Recent(ctx context.Context, since time.Time) ([]Email, error) {
	f.since = since
	return f.msgs, f.err
}

type failingReplier struct{}

func (failingReplier) OnReplyDetected(context.Context, string, bool) (bool, error) {
	return false, errors.New("db locked")
}

func newInboxDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:inbox_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repo.AutoMigrate(db))
	return db
}

func setup(t *testing.T, msgs ...Email) (*Checker, *services.ContactStore, *fakeSource) {
	t.Helper()
	db := newInboxDB(t)
	now := time.Date(2025, 3, 5, 14, 0, 0, 0, time.UTC)
	store := services.NewContactStore(db, time.UTC)
	store.Now = func() time.Time { return now }
	src := &fakeSource{msgs: msgs}
	c := NewChecker(src, &services.ReplyBridge{Store: store}, db, 7)
	c.Now = store.Now
	return c, store, src
}

func addContact(t *testing.T, s *services.ContactStore, email string) *domain.Contact {
	t.Helper()
	c, _, err := s.Add(context.Background(), domain.NewContactInput{Email: email})
	require.NoError(t, err)
	return c
}

func TestCheck_MarksLegitimateRepliesOnly(t *testing.T) {
	c, store, src := setup(t,
		Email{MessageID: "<1@x>", From: "Jane <JANE@x.com>", Subject: "Re: intro", Body: "Let's talk"},
		Email{MessageID: "<2@x>", From: "bob@x.com", Subject: "Out of office"},
		Email{MessageID: "<3@x>", From: "stranger@y.com", Subject: "Hello"},
		Email{MessageID: "<4@x>", From: "mailer-daemon@x.com", Subject: "failure notice"},
	)
	jane := addContact(t, store, "jane@x.com")
	bob := addContact(t, store, "bob@x.com")

	res, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Checked: 4, Responses: 1}, res)
	assert.Equal(t, c.Now().AddDate(0, 0, -7), src.since)

	got, err := store.Get(context.Background(), jane.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResponded, got.Status)
	require.NotNil(t, got.RespondedAt)

	got, err = store.Get(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)

	rec, err := repo.GetReceipt(context.Background(), c.DB, "<2@x>", c.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.ReceiptIgnored, rec.Outcome)
	rec, err = repo.GetReceipt(context.Background(), c.DB, "<3@x>", c.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.ReceiptNoChange, rec.Outcome)
}

func TestCheck_SkipsAlreadyProcessedMessages(t *testing.T) {
	c, store, _ := setup(t, Email{MessageID: "<1@x>", From: "jane@x.com", Subject: "Re: intro"})
	addContact(t, store, "jane@x.com")

	first, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Responses)

	second, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Checked: 1, Skipped: 1}, second)
}

func TestCheck_RepeatedReplyWithoutMessageIDIsIdempotent(t *testing.T) {
	c, store, _ := setup(t,
		Email{From: "jane@x.com", Subject: "Re: intro"},
		Email{From: "jane@x.com", Subject: "Re: Re: intro"},
	)
	addContact(t, store, "jane@x.com")

	res, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Responses)
	assert.Equal(t, 0, res.Errors)
}

func TestCheck_SourceErrorPropagates(t *testing.T) {
	c, _, src := setup(t)
	src.err = errors.New("imap dial: connection refused")
	_, err := c.Check(context.Background())
	require.Error(t, err)
}

func TestCheck_ReplierErrorIsCountedAndRetried(t *testing.T) {
	c, _, _ := setup(t, Email{MessageID: "<1@x>", From: "jane@x.com", Subject: "Re: intro"})
	c.Replier = failingReplier{}

	res, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Errors)

	_, err = repo.GetReceipt(context.Background(), c.DB, "<1@x>", c.Now())
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestCheck_PurgesExpiredReceipts(t *testing.T) {
	c, _, _ := setup(t)
	old := c.Now().AddDate(0, 0, -30)
	_, err := repo.CreateReceipt(context.Background(), c.DB, "<old@x>", "a@x.com", domain.ReceiptIgnored, old, 24*time.Hour)
	require.NoError(t, err)

	_, err = c.Check(context.Background())
	require.NoError(t, err)

	var n int64
	require.NoError(t, c.DB.Model(&domain.InboxReceipt{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestChecker_ReceiptTTL(t *testing.T) {
	c := NewChecker(nil, nil, nil, 7)
	assert.Equal(t, 8*24*time.Hour, c.ttl())
	c.ReceiptTTL = time.Hour
	assert.Equal(t, time.Hour, c.ttl())
}
