package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-outreach/internal/domain"
	"github.com/tbourn/go-outreach/internal/repo"
)

// testLoc is a fixed-offset zone so tests do not depend on tzdata.
var testLoc = time.FixedZone("EST", -5*60*60)

// monday10 is Monday 2025-03-03 10:00 in testLoc, inside business hours.
var monday10 = time.Date(2025, 3, 3, 10, 0, 0, 0, testLoc)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// clock is a settable time source shared by store and scheduler.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T, clk *clock) *ContactStore {
	t.Helper()
	s := NewContactStore(newTestDB(t), testLoc)
	s.Now = clk.Now
	return s
}

func testPolicy(quotaMin, quotaMax int) Policy {
	return Policy{
		Location:        testLoc,
		StartHour:       8,
		EndHour:         17,
		WorkDays:        []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		QuotaMin:        quotaMin,
		QuotaMax:        quotaMax,
		QuotaMode:       QuotaPerRun,
		DelayMinMinutes: 5,
		DelayMaxMinutes: 20,
		Rand:            rand.New(rand.NewPCG(1, 2)),
	}
}

var testIntervals = Intervals{AfterInitial: 3, AfterFollowUp1: 5, AfterFollowUp2: 7}

func seedPending(t *testing.T, s *ContactStore, n int) []*domain.Contact {
	t.Helper()
	out := make([]*domain.Contact, 0, n)
	for i := 0; i < n; i++ {
		c, created, err := s.Add(context.Background(), domain.NewContactInput{
			Email:     fmt.Sprintf("lead%02d@example.com", i),
			FirstName: fmt.Sprintf("Lead%02d", i),
		})
		if err != nil || !created {
			t.Fatalf("seed %d: created=%v err=%v", i, created, err)
		}
		out = append(out, c)
	}
	return out
}

// mockTransport is a testify mock of Transport keyed by message type.
type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Send(ctx context.Context, c domain.Contact, mt domain.MessageType) (SendResult, error) {
	args := m.Called(c.Email, mt)
	return args.Get(0).(SendResult), args.Error(1)
}

// recordingSleep captures requested delays without waiting.
type recordingSleep struct{ delays []time.Duration }

func (r *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}
