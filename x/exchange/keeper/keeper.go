package keeper

import (
	"cosmossdk.io/log"

	"github.com/gridexchange/gridex/x/exchange/types"
)

// Keeper is the exchange core: AMM pricing, the order book store and
// matching engine, and the router that splits execution between the two
// venues. External concerns — custody, authentication, time, randomness,
// durable storage — are injected as collaborator interfaces so tests can
// substitute doubles.
type Keeper struct {
	state   *State
	bank    types.BankKeeper
	auth    types.Authorizer
	clock   types.Clock
	entropy types.Entropy
	store   types.Store
	logger  log.Logger
	metrics *Metrics
	params  types.Params
}

// NewKeeper creates a new exchange Keeper instance. store may be nil to
// run without persistence (tests, ephemeral deployments).
func NewKeeper(
	bank types.BankKeeper,
	auth types.Authorizer,
	clock types.Clock,
	entropy types.Entropy,
	store types.Store,
	logger log.Logger,
) *Keeper {
	return &Keeper{
		state:   NewState(),
		bank:    bank,
		auth:    auth,
		clock:   clock,
		entropy: entropy,
		store:   store,
		logger:  logger.With("module", types.ModuleName),
		metrics: NewMetrics(),
		params:  types.DefaultParams(),
	}
}

// Params returns the module parameters.
func (k *Keeper) Params() types.Params {
	return k.params
}

// Logger returns the keeper's logger.
func (k *Keeper) Logger() log.Logger {
	return k.logger
}
