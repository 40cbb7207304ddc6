package handler

import (
	"strconv"

	"krwx-ledger/internal/adapter/http/dto"
	"krwx-ledger/internal/core/domain"
	"krwx-ledger/internal/core/ports"
	"krwx-ledger/pkg/apperror"
	"krwx-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// EventHandler serves the Postgres mirror of the event log.
type EventHandler struct {
	mirrorSvc ports.MirrorService
}

func NewEventHandler(mirrorSvc ports.MirrorService) *EventHandler {
	return &EventHandler{mirrorSvc: mirrorSvc}
}

// ListEvents handles GET /api/v1/events?from_seq=&limit=.
func (h *EventHandler) ListEvents(c *gin.Context) {
	fromSeq, err := strconv.ParseUint(c.DefaultQuery("from_seq", "0"), 10, 64)
	if err != nil {
		response.Error(c, apperror.Validation("from_seq must be a non-negative integer"))
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		response.Error(c, apperror.Validation("limit must be a non-negative integer"))
		return
	}

	events, err := h.mirrorSvc.ListEvents(c.Request.Context(), fromSeq, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	if events == nil {
		events = []domain.Event{}
	}

	next := fromSeq
	if n := len(events); n > 0 {
		next = events[n-1].Seq + 1
	}
	response.OK(c, dto.EventListResponse{Events: events, NextFromSeq: next})
}

// GetMirroredBalance handles GET /api/v1/mirror/balances/:address.
func (h *EventHandler) GetMirroredBalance(c *gin.Context) {
	addr, err := addressParam(c, "address")
	if err != nil {
		response.Error(c, err)
		return
	}

	bal, err := h.mirrorSvc.GetBalance(c.Request.Context(), addr)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.MirroredBalanceResponse{
		Account: bal.Account,
		Balance: dto.AmountFromString(bal.Balance),
	}
	if !bal.UpdatedAt.IsZero() {
		resp.UpdatedAt = &bal.UpdatedAt
	}
	response.OK(c, resp)
}
