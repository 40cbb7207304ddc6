package handler

import (
	"krwx-ledger/internal/adapter/http/dto"
	"krwx-ledger/internal/core/domain"
	"krwx-ledger/internal/core/ports"
	"krwx-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves the role-gated administrative operations. Role
// checks happen in the ledger; the handler only authenticates.
type AdminHandler struct {
	ledgerSvc ports.LedgerService
}

func NewAdminHandler(ledgerSvc ports.LedgerService) *AdminHandler {
	return &AdminHandler{ledgerSvc: ledgerSvc}
}

func writeReceipt(c *gin.Context, receipt *domain.Receipt, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, receipt)
}

// Mint handles POST /api/v1/admin/mint.
func (h *AdminHandler) Mint(c *gin.Context) {
	meta, err := callMeta(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.MintRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	amount, err := toAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	receipt, err := h.ledgerSvc.Mint(c.Request.Context(), ports.MintRequest{
		CallMeta: meta,
		To:       toAddress(req.To),
		Amount:   amount,
	})
	writeReceipt(c, receipt, err)
}

// Burn handles POST /api/v1/admin/burn.
func (h *AdminHandler) Burn(c *gin.Context) {
	meta, err := callMeta(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.BurnRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	amount, err := toAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	receipt, err := h.ledgerSvc.Burn(c.Request.Context(), ports.BurnRequest{
		CallMeta: meta,
		From:     toAddress(req.From),
		Amount:   amount,
	})
	writeReceipt(c, receipt, err)
}

// Pause handles POST /api/v1/admin/pause.
func (h *AdminHandler) Pause(c *gin.Context) {
	meta, err := callMeta(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	receipt, err := h.ledgerSvc.Pause(c.Request.Context(), meta)
	writeReceipt(c, receipt, err)
}

// Unpause handles POST /api/v1/admin/unpause.
func (h *AdminHandler) Unpause(c *gin.Context) {
	meta, err := callMeta(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	receipt, err := h.ledgerSvc.Unpause(c.Request.Context(), meta)
	writeReceipt(c, receipt, err)
}

// Blacklist handles POST /api/v1/admin/blacklist.
func (h *AdminHandler) Blacklist(c *gin.Context) {
	req, ok := h.accountRequest(c)
	if !ok {
		return
	}
	receipt, err := h.ledgerSvc.Blacklist(c.Request.Context(), req)
	writeReceipt(c, receipt, err)
}

// Unblacklist handles POST /api/v1/admin/unblacklist.
func (h *AdminHandler) Unblacklist(c *gin.Context) {
	req, ok := h.accountRequest(c)
	if !ok {
		return
	}
	receipt, err := h.ledgerSvc.Unblacklist(c.Request.Context(), req)
	writeReceipt(c, receipt, err)
}

// SetFeeRecipient handles POST /api/v1/admin/fee-recipient.
func (h *AdminHandler) SetFeeRecipient(c *gin.Context) {
	req, ok := h.accountRequest(c)
	if !ok {
		return
	}
	receipt, err := h.ledgerSvc.SetFeeRecipient(c.Request.Context(), req)
	writeReceipt(c, receipt, err)
}

// SetFeeRate handles POST /api/v1/admin/fee-rate.
func (h *AdminHandler) SetFeeRate(c *gin.Context) {
	meta, err := callMeta(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.FeeRateRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	receipt, err := h.ledgerSvc.SetFeeRate(c.Request.Context(), ports.FeeRateRequest{
		CallMeta: meta,
		RateBps:  *req.RateBps,
	})
	writeReceipt(c, receipt, err)
}

// GrantRole handles POST /api/v1/admin/roles/grant.
func (h *AdminHandler) GrantRole(c *gin.Context) {
	req, ok := h.roleRequest(c)
	if !ok {
		return
	}
	receipt, err := h.ledgerSvc.GrantRole(c.Request.Context(), req)
	writeReceipt(c, receipt, err)
}

// RevokeRole handles POST /api/v1/admin/roles/revoke.
func (h *AdminHandler) RevokeRole(c *gin.Context) {
	req, ok := h.roleRequest(c)
	if !ok {
		return
	}
	receipt, err := h.ledgerSvc.RevokeRole(c.Request.Context(), req)
	writeReceipt(c, receipt, err)
}

// RenounceRole handles POST /api/v1/admin/roles/renounce. The caller drops
// its own role.
func (h *AdminHandler) RenounceRole(c *gin.Context) {
	meta, err := callMeta(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.RenounceRoleRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	role, _ := domain.ParseRole(req.Role)

	receipt, err := h.ledgerSvc.RenounceRole(c.Request.Context(), ports.RoleRequest{
		CallMeta: meta,
		Role:     role,
		Account:  meta.Caller,
	})
	writeReceipt(c, receipt, err)
}

// Recover handles POST /api/v1/admin/recover.
func (h *AdminHandler) Recover(c *gin.Context) {
	meta, err := callMeta(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.AssetRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	amount, err := toAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	receipt, err := h.ledgerSvc.Recover(c.Request.Context(), ports.RecoverRequest{
		CallMeta: meta,
		Asset:    toAddress(req.Asset),
		Amount:   amount,
	})
	writeReceipt(c, receipt, err)
}

// DepositStray handles POST /api/v1/admin/stray-deposits. It records a
// foreign asset landing on the ledger's address so it can be recovered.
func (h *AdminHandler) DepositStray(c *gin.Context) {
	if _, err := callMeta(c); err != nil {
		response.Error(c, err)
		return
	}
	var req dto.AssetRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	amount, err := toAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	asset := toAddress(req.Asset)
	if err := h.ledgerSvc.DepositStray(c.Request.Context(), asset, amount); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{
		"asset":  asset,
		"amount": dto.NewAmount(amount),
	})
}

func (h *AdminHandler) accountRequest(c *gin.Context) (ports.AccountRequest, bool) {
	meta, err := callMeta(c)
	if err != nil {
		response.Error(c, err)
		return ports.AccountRequest{}, false
	}
	var req dto.AccountRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return ports.AccountRequest{}, false
	}
	return ports.AccountRequest{CallMeta: meta, Account: toAddress(req.Account)}, true
}

func (h *AdminHandler) roleRequest(c *gin.Context) (ports.RoleRequest, bool) {
	meta, err := callMeta(c)
	if err != nil {
		response.Error(c, err)
		return ports.RoleRequest{}, false
	}
	var req dto.RoleRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return ports.RoleRequest{}, false
	}
	role, _ := domain.ParseRole(req.Role)
	return ports.RoleRequest{CallMeta: meta, Role: role, Account: toAddress(req.Account)}, true
}
