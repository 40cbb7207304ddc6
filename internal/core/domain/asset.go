package domain

import "github.com/ethereum/go-ethereum/common"

// NativeAsset identifies native value sent to the ledger's holding account.
// Foreign tokens are identified by their contract address.
var NativeAsset = common.Address{}
