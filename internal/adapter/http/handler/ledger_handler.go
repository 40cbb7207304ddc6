package handler

import (
	"krwx-ledger/internal/adapter/http/dto"
	"krwx-ledger/internal/core/domain"
	"krwx-ledger/internal/core/ports"
	"krwx-ledger/pkg/apperror"
	"krwx-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// LedgerHandler serves ledger reads and holder operations.
type LedgerHandler struct {
	ledgerSvc ports.LedgerService
}

func NewLedgerHandler(ledgerSvc ports.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc}
}

// GetLedger handles GET /api/v1/ledger.
func (h *LedgerHandler) GetLedger(c *gin.Context) {
	response.OK(c, dto.NewLedgerResponse(h.ledgerSvc.Info(c.Request.Context())))
}

// GetAccount handles GET /api/v1/accounts/:address.
func (h *LedgerHandler) GetAccount(c *gin.Context) {
	addr, err := addressParam(c, "address")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewAccountResponse(h.ledgerSvc.Account(c.Request.Context(), addr)))
}

// GetRoleMembers handles GET /api/v1/roles/:role.
func (h *LedgerHandler) GetRoleMembers(c *gin.Context) {
	role, err := domain.ParseRole(c.Param("role"))
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	response.OK(c, dto.NewRoleMembersResponse(role, h.ledgerSvc.RoleMembers(c.Request.Context(), role)))
}

// GetAllowance handles GET /api/v1/accounts/:address/allowances/:spender.
func (h *LedgerHandler) GetAllowance(c *gin.Context) {
	owner, err := addressParam(c, "address")
	if err != nil {
		response.Error(c, err)
		return
	}
	spender, err := addressParam(c, "spender")
	if err != nil {
		response.Error(c, err)
		return
	}

	allowance := h.ledgerSvc.Allowance(c.Request.Context(), owner, spender)
	response.OK(c, dto.AllowanceResponse{
		Owner:     owner,
		Spender:   spender,
		Allowance: dto.NewAmount(allowance),
		Unlimited: allowance != nil && allowance.Eq(domain.MaxAmount),
	})
}

// Transfer handles POST /api/v1/transfers.
func (h *LedgerHandler) Transfer(c *gin.Context) {
	meta, err := callMeta(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.TransferRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	amount, err := toAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	receipt, err := h.ledgerSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		CallMeta: meta,
		To:       toAddress(req.To),
		Amount:   amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, receipt)
}

// BatchTransfer handles POST /api/v1/transfers/batch.
func (h *LedgerHandler) BatchTransfer(c *gin.Context) {
	meta, err := callMeta(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.BatchTransferRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	amounts, err := toAmounts(req.Amounts)
	if err != nil {
		response.Error(c, err)
		return
	}

	receipt, err := h.ledgerSvc.BatchTransfer(c.Request.Context(), ports.BatchTransferRequest{
		CallMeta:   meta,
		Recipients: toAddresses(req.Recipients),
		Amounts:    amounts,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, receipt)
}

// TransferFrom handles POST /api/v1/transfers/from.
func (h *LedgerHandler) TransferFrom(c *gin.Context) {
	meta, err := callMeta(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.TransferFromRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	amount, err := toAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	receipt, err := h.ledgerSvc.TransferFrom(c.Request.Context(), ports.TransferFromRequest{
		CallMeta: meta,
		From:     toAddress(req.From),
		To:       toAddress(req.To),
		Amount:   amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, receipt)
}

// Approve handles POST /api/v1/approvals.
func (h *LedgerHandler) Approve(c *gin.Context) {
	meta, err := callMeta(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ApproveRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	amount, err := toAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	receipt, err := h.ledgerSvc.Approve(c.Request.Context(), ports.ApproveRequest{
		CallMeta: meta,
		Spender:  toAddress(req.Spender),
		Amount:   amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, receipt)
}
