package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-outreach/internal/http/middleware"
	"github.com/tbourn/go-outreach/internal/inbox"
)

// ReplyRequest reports an inbound reply. Either pass the raw message
// (from/subject/body) to have it classified, or pass email together with an
// explicit legitimate verdict.
type ReplyRequest struct {
	From       string `json:"from"       example:"Jane Doe <jane@example.com>"`
	Subject    string `json:"subject"    example:"Re: Quick question about Acme Realty"`
	Body       string `json:"body"       example:"Sounds interesting, let's talk."`
	Email      string `json:"email"      example:"jane@example.com"`
	Legitimate *bool  `json:"legitimate" example:"true"`
}

// ReplyResponse reports how a reply was handled.
type ReplyResponse struct {
	Sender     string `json:"sender"`
	Legitimate bool   `json:"legitimate"`
	Responded  bool   `json:"responded"`
}

// RecordReply godoc
// @ID          recordReply
// @Summary     Record a reply
// @Description Marks the sender as responded when the reply is legitimate. Auto-replies and bounces are ignored;
// @Description unknown senders and contacts that already responded are left unchanged.
// @Tags        Replies
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
//
// @Param       body  body  handlers.ReplyRequest  true  "Reply"
//
// @Success     200  {object}  handlers.ReplyResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /replies [post]
func (h *Handlers) RecordReply(c *gin.Context) {
	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	var (
		sender     string
		legitimate bool
	)
	switch {
	case strings.TrimSpace(req.Email) != "" && req.Legitimate != nil:
		sender = inbox.ExtractAddress(req.Email)
		legitimate = *req.Legitimate
	case strings.TrimSpace(req.From) != "":
		sender = inbox.ExtractAddress(req.From)
		legitimate = inbox.IsLegitimateReply(inbox.Email{From: req.From, Subject: req.Subject, Body: req.Body})
	default:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "from, or email with legitimate, is required")
		return
	}
	if sender == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no email address found in sender")
		return
	}

	changed, err := h.replies.OnReplyDetected(c.Request.Context(), sender, legitimate)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	if changed {
		middleware.LoggerFrom(c).Info().Msg("contact marked responded via API")
	}
	ok(c, http.StatusOK, ReplyResponse{Sender: sender, Legitimate: legitimate, Responded: changed})
}
