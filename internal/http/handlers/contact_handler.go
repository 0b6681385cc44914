// Contact HTTP handlers.
//
// This file exposes REST endpoints for outreach contacts:
//   - POST   /contacts          (add one)
//   - POST   /contacts/bulk     (import many)
//   - GET    /contacts          (list, paginated, optional status filter)
//   - GET    /contacts/{id}     (fetch one with its message history)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-outreach/internal/domain"
	"github.com/tbourn/go-outreach/internal/http/middleware"
	"github.com/tbourn/go-outreach/internal/services"
	"github.com/tbourn/go-outreach/internal/utils"
)

//
// Service contracts (context-aware)
//

// ContactService defines the contact store operations consumed by HTTP
// handlers. Implementations must be safe for concurrent use.
type ContactService interface {
	// Add inserts a pending contact, or returns the existing one (created=false).
	Add(ctx context.Context, in domain.NewContactInput) (*domain.Contact, bool, error)
	// AddBulk adds every input, reporting per-row errors instead of failing.
	AddBulk(ctx context.Context, inputs []domain.NewContactInput) services.BulkResult
	// Get returns a contact with its history.
	Get(ctx context.Context, id string) (*domain.Contact, error)
	// ListPage returns a page of contacts and the total count.
	ListPage(ctx context.Context, status domain.Status, page, pageSize int) ([]domain.Contact, int64, error)
}

// CampaignService defines the scheduler operations consumed by HTTP handlers.
type CampaignService interface {
	RunBatch(ctx context.Context) (services.BatchResult, error)
	IsSending() bool
	Status(ctx context.Context) (services.SchedulerStatus, error)
	Statistics(ctx context.Context) (services.Statistics, error)
	Eligible(ctx context.Context) ([]domain.EligiblePair, error)
}

// ReplyService marks the sender of a detected reply as responded.
type ReplyService interface {
	OnReplyDetected(ctx context.Context, sender string, legitimate bool) (bool, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for contacts, the campaign and replies.
type Handlers struct {
	contacts ContactService
	campaign CampaignService
	replies  ReplyService

	// runCtx parents batch runs started without ?wait=true, so they outlive
	// the request but stop on shutdown.
	runCtx context.Context
}

// New constructs and returns a Handlers instance bound to the given services.
func New(contacts ContactService, campaign CampaignService, replies ReplyService) *Handlers {
	return &Handlers{contacts: contacts, campaign: campaign, replies: replies, runCtx: context.Background()}
}

// WithRunContext sets the context background batch runs derive from.
func (h *Handlers) WithRunContext(ctx context.Context) *Handlers {
	h.runCtx = ctx
	return h
}

//
// DTOs
//

// maxBulkContacts bounds a single bulk import request.
const maxBulkContacts = 5000

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListContactsResponse wraps a page of contacts and pagination information.
type ListContactsResponse struct {
	Contacts   []domain.Contact `json:"contacts"`
	Pagination Pagination       `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits.
func clampPagination(c *gin.Context) utils.Page {
	const (
		defaultPageSize = 20
		maxPageSize     = 100
	)
	return utils.NewPage(
		utils.AtoiDefault(c.Query("page"), 1),
		utils.AtoiDefault(c.Query("page_size"), defaultPageSize),
		defaultPageSize, maxPageSize,
	)
}

//
// Handlers
//

// CreateContact godoc
// @ID          createContact
// @Summary     Add a contact
// @Description Adds a pending contact. An existing address (case-insensitive) is returned unchanged with 200.
// @Tags        Contacts
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
//
// @Param       body  body  domain.NewContactInput  true  "Contact attributes"
//
// @Success     201  {object}  domain.Contact          "Created"
// @Success     200  {object}  domain.Contact          "Already present"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contacts [post]
func (h *Handlers) CreateContact(c *gin.Context) {
	var req domain.NewContactInput
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	ct, created, err := h.contacts.Add(c.Request.Context(), req)
	switch {
	case errors.Is(err, services.ErrEmailRequired):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email is required")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	if created {
		ok(c, http.StatusCreated, ct)
		return
	}
	ok(c, http.StatusOK, ct)
}

// ImportContacts godoc
// @ID          importContacts
// @Summary     Import contacts
// @Description Adds every contact in the array. Existing addresses are skipped; invalid rows are reported in errors.
// @Tags        Contacts
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
//
// @Param       body  body  []domain.NewContactInput  true  "Contacts to add (max 5000)"
//
// @Success     200  {object}  services.BulkResult
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /contacts/bulk [post]
func (h *Handlers) ImportContacts(c *gin.Context) {
	var req []domain.NewContactInput
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "body must be a JSON array of contacts")
		return
	}
	if len(req) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no contacts given")
		return
	}
	if len(req) > maxBulkContacts {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "too many contacts in one request")
		return
	}

	res := h.contacts.AddBulk(c.Request.Context(), req)
	middleware.LoggerFrom(c).Info().
		Int("added", res.Added).
		Int("skipped", res.Skipped).
		Int("errors", len(res.Errors)).
		Msg("contacts imported")
	ok(c, http.StatusOK, res)
}

// ListContacts godoc
// @ID          listContacts
// @Summary     List contacts (paginated)
// @Description Returns a page of contacts ordered by creation time, optionally filtered by lifecycle status.
// @Tags        Contacts
// @Produce     json
// @Security    ApiKeyAuth
//
// @Param       status     query  string  false  "Lifecycle status"  Enums(pending, contacted_1, follow_up_1, follow_up_2, follow_up_3, responded)
// @Param       page       query  int     false  "Page number"       minimum(1) default(1)
// @Param       page_size  query  int     false  "Items per page"    minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListContactsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contacts [get]
func (h *Handlers) ListContacts(c *gin.Context) {
	pg := clampPagination(c)
	status := domain.Status(strings.ToLower(strings.TrimSpace(c.Query("status"))))

	items, total, err := h.contacts.ListPage(c.Request.Context(), status, pg.Number, pg.Size)
	switch {
	case errors.Is(err, services.ErrInvalidStatus):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown status")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if items == nil {
		items = []domain.Contact{}
	}

	totalPages := pg.TotalPages(total)
	ok(c, http.StatusOK, ListContactsResponse{
		Contacts: items,
		Pagination: Pagination{
			Page:       pg.Number,
			PageSize:   pg.Size,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    pg.Number < totalPages,
		},
	})
}

// GetContact godoc
// @ID          getContact
// @Summary     Get a contact
// @Description Returns one contact with its message history.
// @Tags        Contacts
// @Produce     json
// @Security    ApiKeyAuth
//
// @Param       id  path  string  true  "Contact ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.Contact
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Contact not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contacts/{id} [get]
func (h *Handlers) GetContact(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "contact id must be a UUID")
		return
	}

	ct, err := h.contacts.Get(c.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrContactNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "contact not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, ct)
}
