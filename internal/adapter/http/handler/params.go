package handler

import (
	"fmt"

	"krwx-ledger/internal/adapter/http/middleware"
	"krwx-ledger/internal/core/domain"
	"krwx-ledger/internal/core/ports"
	"krwx-ledger/pkg/apperror"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/holiman/uint256"
)

// callMeta reads the authenticated caller and the optional Idempotency-Key.
func callMeta(c *gin.Context) (ports.CallMeta, error) {
	caller, ok := middleware.Caller(c)
	if !ok {
		return ports.CallMeta{}, apperror.ErrInvalidToken()
	}
	return ports.CallMeta{
		Caller:         caller,
		IdempotencyKey: c.GetHeader(middleware.HeaderIdempotencyKey),
	}, nil
}

// bindJSON binds and validates the request body.
func bindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperror.Validation(err.Error())
	}
	return nil
}

func addressParam(c *gin.Context, name string) (common.Address, error) {
	addr, err := domain.ParseAddress(c.Param(name))
	if err != nil {
		return common.Address{}, apperror.Validation(fmt.Sprintf("%s: %v", name, err))
	}
	return addr, nil
}

// Values below already passed the eth_address / amount validators.

func toAddress(s string) common.Address {
	return common.HexToAddress(s)
}

func toAmount(s string) (*uint256.Int, error) {
	v, err := domain.ParseAmount(s)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}
	return v, nil
}

func toAmounts(ss []string) ([]*uint256.Int, error) {
	out := make([]*uint256.Int, len(ss))
	for i, s := range ss {
		v, err := toAmount(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func toAddresses(ss []string) []common.Address {
	out := make([]common.Address, len(ss))
	for i, s := range ss {
		out[i] = toAddress(s)
	}
	return out
}
