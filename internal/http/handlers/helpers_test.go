package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-outreach/internal/domain"
	"github.com/tbourn/go-outreach/internal/repo"
	"github.com/tbourn/go-outreach/internal/services"
)

func newTestStore(t *testing.T) *services.ContactStore {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())
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
		t.Fatalf("migrate: %v", err)
	}
	return services.NewContactStore(db, time.UTC)
}

// stubCampaign is a configurable CampaignService.
type stubCampaign struct {
	sending  bool
	run      func(context.Context) (services.BatchResult, error)
	status   services.SchedulerStatus
	stats    services.Statistics
	eligible []domain.EligiblePair
	err      error
}

func (s *stubCampaign) RunBatch(ctx context.Context) (services.BatchResult, error) {
	if s.run != nil {
		return s.run(ctx)
	}
	return services.BatchResult{}, s.err
}

func (s *stubCampaign) IsSending() bool { return s.sending }

func (s *stubCampaign) Status(context.Context) (services.SchedulerStatus, error) {
	return s.status, s.err
}

func (s *stubCampaign) Statistics(context.Context) (services.Statistics, error) {
	return s.stats, s.err
}

func (s *stubCampaign) Eligible(context.Context) ([]domain.EligiblePair, error) {
	return s.eligible, s.err
}

// testRouter mounts every handler without the middleware stack.
func testRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/contacts", h.CreateContact)
	r.POST("/contacts/bulk", h.ImportContacts)
	r.GET("/contacts", h.ListContacts)
	r.GET("/contacts/:id", h.GetContact)
	r.GET("/campaign/stats", h.CampaignStats)
	r.GET("/campaign/status", h.CampaignStatus)
	r.GET("/campaign/eligible", h.EligibleContacts)
	r.POST("/campaign/run", h.RunBatch)
	r.POST("/replies", h.RecordReply)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}
