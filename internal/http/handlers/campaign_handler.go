// Campaign HTTP handlers: statistics, scheduler status, the eligible set and
// manual batch runs.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-outreach/internal/domain"
	"github.com/tbourn/go-outreach/internal/http/middleware"
	"github.com/tbourn/go-outreach/internal/services"
)

// EligibleResponse lists the contacts due for a message right now.
type EligibleResponse struct {
	Total  int                        `json:"total"`
	ByType map[domain.MessageType]int `json:"by_type"`
	Pairs  []domain.EligiblePair      `json:"pairs"`
}

// RunStartedResponse acknowledges a batch run started in the background.
type RunStartedResponse struct {
	Status string `json:"status" example:"started"`
}

// CampaignStats godoc
// @ID          campaignStats
// @Summary     Campaign statistics
// @Description Counts per lifecycle status, the number of contacts awaiting a follow-up and today's send count.
// @Tags        Campaign
// @Produce     json
// @Security    ApiKeyAuth
// @Success     200  {object}  services.Statistics
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /campaign/stats [get]
func (h *Handlers) CampaignStats(c *gin.Context) {
	st, err := h.campaign.Statistics(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, st)
}

// CampaignStatus godoc
// @ID          campaignStatus
// @Summary     Scheduler status
// @Description Whether a batch run is active, whether it is currently business hours, today's send count and statistics.
// @Tags        Campaign
// @Produce     json
// @Security    ApiKeyAuth
// @Success     200  {object}  services.SchedulerStatus
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /campaign/status [get]
func (h *Handlers) CampaignStatus(c *gin.Context) {
	st, err := h.campaign.Status(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, st)
}

// EligibleContacts godoc
// @ID          eligibleContacts
// @Summary     Eligible contacts
// @Description Contacts due for a message right now, with the message each one is due for. Nothing is sent.
// @Tags        Campaign
// @Produce     json
// @Security    ApiKeyAuth
// @Success     200  {object}  handlers.EligibleResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /campaign/eligible [get]
func (h *Handlers) EligibleContacts(c *gin.Context) {
	pairs, err := h.campaign.Eligible(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	if pairs == nil {
		pairs = []domain.EligiblePair{}
	}
	byType := make(map[domain.MessageType]int, len(domain.MessageTypes))
	for _, p := range pairs {
		byType[p.MessageType]++
	}
	ok(c, http.StatusOK, EligibleResponse{Total: len(pairs), ByType: byType, Pairs: pairs})
}

// RunBatch godoc
// @ID          runBatch
// @Summary     Run a batch
// @Description Starts one batch run. By default the run continues in the background and 202 is returned;
// @Description with wait=true the request blocks until the run ends and returns its result.
// @Tags        Campaign
// @Produce     json
// @Security    ApiKeyAuth
//
// @Param       wait  query  bool  false  "Block until the run completes"  default(false)
//
// @Success     200  {object}  services.BatchResult
// @Success     202  {object}  handlers.RunStartedResponse
// @Failure     409  {object}  handlers.ErrorResponse  "A run is already in progress"
// @Failure     503  {object}  handlers.ErrorResponse  "Mail transport unavailable"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /campaign/run [post]
func (h *Handlers) RunBatch(c *gin.Context) {
	if h.campaign.IsSending() {
		fail(c, http.StatusConflict, ErrCodeConflict, "a batch run is already in progress")
		return
	}

	wait, _ := strconv.ParseBool(c.Query("wait"))
	if !wait {
		lg := *middleware.LoggerFrom(c)
		go func() {
			res, err := h.campaign.RunBatch(h.runCtx)
			if err != nil {
				lg.Error().Err(err).Msg("background batch run failed")
				return
			}
			lg.Info().
				Int("sent", res.Sent).
				Int("failed", res.Failed).
				Int("skipped", res.Skipped).
				Str("reason", res.Reason).
				Msg("background batch run finished")
		}()
		ok(c, http.StatusAccepted, RunStartedResponse{Status: "started"})
		return
	}

	res, err := h.campaign.RunBatch(c.Request.Context())
	switch {
	case errors.Is(err, services.ErrTransportUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeTransportDown, err.Error())
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeRunFailed, err.Error())
		return
	case res.Reason == services.ReasonAlreadyRunning:
		fail(c, http.StatusConflict, ErrCodeConflict, "a batch run is already in progress")
		return
	}
	ok(c, http.StatusOK, res)
}
