package types

import (
	"cosmossdk.io/errors"
)

// Exchange module sentinel errors
var (
	ErrInvalidAmount      = errors.Register(ModuleName, 1, "invalid amount")
	ErrInvalidPath        = errors.Register(ModuleName, 2, "swap path must contain at least two tokens")
	ErrNotFound           = errors.Register(ModuleName, 3, "pair, book or order not found")
	ErrBookExists         = errors.Register(ModuleName, 4, "order book already registered for pair")
	ErrPoolExists         = errors.Register(ModuleName, 5, "pool already exists for pair")
	ErrUnauthorized       = errors.Register(ModuleName, 6, "caller not authorized")
	ErrDeadlineExceeded   = errors.Register(ModuleName, 7, "deadline exceeded")
	ErrSlippageExceeded   = errors.Register(ModuleName, 8, "slippage tolerance exceeded")
	ErrInvariantViolation = errors.Register(ModuleName, 9, "invariant violation")
	ErrNotFullyFilled     = errors.Register(ModuleName, 10, "market order not fully filled")
	ErrTransferFailed     = errors.Register(ModuleName, 11, "token transfer failed")
	ErrInvalidTokenPair   = errors.Register(ModuleName, 12, "invalid token pair")
	ErrStoreFailure       = errors.Register(ModuleName, 13, "durable store operation failed")
)
