package dto

import (
	"krwx-ledger/internal/core/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterValidations(v)
	}
}

// RegisterValidations installs the ledger tags on v:
//
//	eth_address  0x-prefixed 20-byte hex address (the zero address passes)
//	amount       base-unit decimal integer that fits in 256 bits
//	role         ADMIN, MINTER, PAUSER or BLACKLISTER, any case, optional _ROLE suffix
func RegisterValidations(v *validator.Validate) {
	_ = v.RegisterValidation("eth_address", validateAddress)
	_ = v.RegisterValidation("amount", validateAmount)
	_ = v.RegisterValidation("role", validateRole)
}

func validateAddress(fl validator.FieldLevel) bool {
	return common.IsHexAddress(fl.Field().String())
}

func validateAmount(fl validator.FieldLevel) bool {
	_, err := domain.ParseAmount(fl.Field().String())
	return err == nil
}

func validateRole(fl validator.FieldLevel) bool {
	_, err := domain.ParseRole(fl.Field().String())
	return err == nil
}
