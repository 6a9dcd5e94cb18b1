package types

import (
	"encoding/binary"
)

const (
	// ModuleName defines the module name
	ModuleName = "exchange"

	// ModuleAccount is the vault account that escrows resting-order funds
	// and pool reserves. Makers pay into it on placement; fills and
	// cancellations pay out of it.
	ModuleAccount = "exchange-vault"
)

// Store key prefixes
var (
	PoolKeyPrefix  = []byte{0x01} // prefix for pool storage, keyed by pair
	BookKeyPrefix  = []byte{0x02} // prefix for order book heads, keyed by pair
	OrderKeyPrefix = []byte{0x03} // prefix for resting orders, keyed by pair || orderID
)

// PairKey returns the canonical pair key for two token denoms. The key is
// venue-agnostic: both (a, b) and (b, a) map to the same key.
func PairKey(tokenA, tokenB string) string {
	if tokenA > tokenB {
		tokenA, tokenB = tokenB, tokenA
	}
	return tokenA + "/" + tokenB
}

// GetPoolKey returns the store key for a pool
func GetPoolKey(pair string) []byte {
	return append(PoolKeyPrefix, []byte(pair)...)
}

// GetBookKey returns the store key for an order book's metadata
func GetBookKey(pair string) []byte {
	return append(BookKeyPrefix, []byte(pair)...)
}

// GetOrderKey returns the store key for a resting order.
// Key format: 0x03 || pair || '/' || orderID (big-endian).
func GetOrderKey(pair string, orderID uint64) []byte {
	idBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(idBytes, orderID)
	key := append(OrderKeyPrefix, []byte(pair)...)
	key = append(key, '/')
	return append(key, idBytes...)
}

// GetOrderPrefix returns the store key prefix covering every resting order
// of one book, for range scans on load.
func GetOrderPrefix(pair string) []byte {
	key := append(OrderKeyPrefix, []byte(pair)...)
	return append(key, '/')
}
