package keeper

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"sort"
	"sync"

	"cosmossdk.io/math"

	"github.com/gridexchange/gridex/x/exchange/types"
)

// State is the explicit container for every pool and order book. It is
// owned by the keeper and passed nowhere else; there are no package-level
// singletons. The settle mutex serializes every mutating operation end to
// end, from its first snapshot through transfers and commit, which subsumes
// the per-pair serialization the matching and swap paths require. The RW
// lock guards the maps themselves so read-only quoting can take a
// consistent snapshot concurrently with a settlement in flight.
type State struct {
	// settle is held for the whole of a mutating operation, begin through
	// commit. Two settlements therefore never plan against the same
	// snapshot, and custody can never diverge from the committed state.
	settle sync.Mutex
	mu     sync.RWMutex
	pools  map[string]*types.Pool
	books  map[string]*types.Book
}

// NewState returns an empty state container.
func NewState() *State {
	return &State{
		pools: make(map[string]*types.Pool),
		books: make(map[string]*types.Book),
	}
}

// snapshotPair returns deep copies of the pool and book for a pair under
// the read lock. Either return may be nil when the venue does not exist.
func (s *State) snapshotPair(pair string) (*types.Pool, *types.Book) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pool *types.Pool
	var book *types.Book
	if p, ok := s.pools[pair]; ok {
		pool = p.Clone()
	}
	if b, ok := s.books[pair]; ok {
		book = b.Clone()
	}
	return pool, book
}

// transferOp is a custody movement queued during staging and issued only
// once the whole operation has succeeded in memory.
type transferOp struct {
	token  string
	from   string
	to     string
	amount math.Int
}

// staging is the copy-on-write workspace of one mutating operation. All
// reads and writes during the operation go through the staged copies; the
// live state is swapped only on commit, so a failure at any step leaves
// state provably unchanged.
type staging struct {
	state     *State
	pools     map[string]*types.Pool
	books     map[string]*types.Book
	removed   map[string][]uint64
	transfers []transferOp
	// afterCommit holds metric updates for staged mutations. They run only
	// once the commit has succeeded; a discarded staging (quote paths, any
	// failure) never reports them.
	afterCommit []func()
}

func (s *State) begin() *staging {
	return &staging{
		state:   s,
		pools:   make(map[string]*types.Pool),
		books:   make(map[string]*types.Book),
		removed: make(map[string][]uint64),
	}
}

// pool returns the staged copy of a pair's pool, cloning on first touch.
func (st *staging) pool(pair string) (*types.Pool, error) {
	if p, ok := st.pools[pair]; ok {
		return p, nil
	}
	st.state.mu.RLock()
	live, ok := st.state.pools[pair]
	st.state.mu.RUnlock()
	if !ok {
		return nil, types.ErrNotFound.Wrapf("no pool for pair %s", pair)
	}
	p := live.Clone()
	st.pools[pair] = p
	return p, nil
}

// book returns the staged copy of a pair's book, cloning on first touch.
func (st *staging) book(pair string) (*types.Book, error) {
	if b, ok := st.books[pair]; ok {
		return b, nil
	}
	st.state.mu.RLock()
	live, ok := st.state.books[pair]
	st.state.mu.RUnlock()
	if !ok {
		return nil, types.ErrNotFound.Wrapf("no order book for pair %s", pair)
	}
	b := live.Clone()
	st.books[pair] = b
	return b, nil
}

// stageBook inserts a brand-new book into the staging area.
func (st *staging) stageBook(b *types.Book) {
	st.books[b.Pair()] = b
}

// stagePool inserts a brand-new pool into the staging area.
func (st *staging) stagePool(p *types.Pool) {
	st.pools[p.Pair()] = p
}

// dropOrder records the deletion of a resting order for persistence.
func (st *staging) dropOrder(pair string, id uint64) {
	st.removed[pair] = append(st.removed[pair], id)
}

// reportOnCommit defers a metric update until the commit succeeds.
func (st *staging) reportOnCommit(fn func()) {
	st.afterCommit = append(st.afterCommit, fn)
}

// queueTransfer schedules a custody movement for commit time. Transfers
// to self (the vault trading against its own escrow during routing) and
// zero amounts are dropped.
func (st *staging) queueTransfer(token, from, to string, amount math.Int) {
	if amount.IsZero() || from == to {
		return
	}
	st.transfers = append(st.transfers, transferOp{token: token, from: from, to: to, amount: amount})
}

// queueTransferFirst schedules a custody movement ahead of everything
// queued so far. Used for the trader's input leg when its size is only
// known after planning, so the vault is funded before it pays makers.
func (st *staging) queueTransferFirst(token, from, to string, amount math.Int) {
	if amount.IsZero() || from == to {
		return
	}
	op := transferOp{token: token, from: from, to: to, amount: amount}
	st.transfers = append([]transferOp{op}, st.transfers...)
}

// commit issues the queued transfers, persists the staged entries, then
// swaps them into the live state. Transfer or persistence failure unwinds
// the transfers already made and aborts with the in-memory state untouched.
func (k *Keeper) commit(ctx context.Context, st *staging) error {
	done := 0
	var failErr error
	for _, t := range st.transfers {
		if err := k.bank.Transfer(ctx, t.token, t.from, t.to, t.amount); err != nil {
			failErr = types.ErrTransferFailed.Wrapf("%s %s from %s to %s: %v", t.amount, t.token, t.from, t.to, err)
			break
		}
		done++
	}

	if failErr == nil && k.store != nil {
		ops, err := persistOps(st)
		if err != nil {
			failErr = err
		} else if len(ops) > 0 {
			if err := k.store.Batch(ctx, ops); err != nil {
				failErr = types.ErrStoreFailure.Wrapf("persist staged state: %v", err)
			}
		}
	}

	if failErr != nil {
		// Unwind in reverse order. The funds just arrived at each
		// destination, so reversal can only fail on a broken bank.
		for i := done - 1; i >= 0; i-- {
			t := st.transfers[i]
			if err := k.bank.Transfer(ctx, t.token, t.to, t.from, t.amount); err != nil {
				k.logger.Error("transfer unwind failed",
					"token", t.token, "from", t.to, "to", t.from,
					"amount", t.amount.String(), "err", err)
			}
		}
		return failErr
	}

	st.state.mu.Lock()
	for pair, p := range st.pools {
		st.state.pools[pair] = p
	}
	for pair, b := range st.books {
		st.state.books[pair] = b
	}
	st.state.mu.Unlock()

	for _, fn := range st.afterCommit {
		fn()
	}
	return nil
}

// persistOps encodes the staged entries as one atomic store batch.
func persistOps(st *staging) ([]types.BatchOp, error) {
	var ops []types.BatchOp
	for pair, p := range st.pools {
		bz, err := json.Marshal(p)
		if err != nil {
			return nil, types.ErrInvariantViolation.Wrapf("marshal pool %s: %v", pair, err)
		}
		ops = append(ops, types.BatchOp{Type: types.BatchSet, Key: types.GetPoolKey(pair), Value: bz})
	}
	for pair, b := range st.books {
		bz, err := json.Marshal(b)
		if err != nil {
			return nil, types.ErrInvariantViolation.Wrapf("marshal book %s: %v", pair, err)
		}
		ops = append(ops, types.BatchOp{Type: types.BatchSet, Key: types.GetBookKey(pair), Value: bz})
		ids := make([]uint64, 0, len(b.Orders))
		for id := range b.Orders {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			obz, err := json.Marshal(b.Orders[id])
			if err != nil {
				return nil, types.ErrInvariantViolation.Wrapf("marshal order %d: %v", id, err)
			}
			ops = append(ops, types.BatchOp{Type: types.BatchSet, Key: types.GetOrderKey(pair, id), Value: obz})
		}
	}
	for pair, ids := range st.removed {
		for _, id := range ids {
			ops = append(ops, types.BatchOp{Type: types.BatchDelete, Key: types.GetOrderKey(pair, id)})
		}
	}
	return ops, nil
}

// LoadState rebuilds the in-memory state from the store. Called once at
// boot, before the keeper serves requests.
func (k *Keeper) LoadState(ctx context.Context) error {
	if k.store == nil {
		return nil
	}

	k.state.mu.Lock()
	defer k.state.mu.Unlock()

	err := k.store.Iterate(ctx, types.PoolKeyPrefix, func(key, value []byte) (bool, error) {
		var pool types.Pool
		if err := json.Unmarshal(value, &pool); err != nil {
			return false, types.ErrInvariantViolation.Wrapf("unmarshal pool %q: %v", key, err)
		}
		k.state.pools[pool.Pair()] = &pool
		return true, nil
	})
	if err != nil {
		return err
	}

	err = k.store.Iterate(ctx, types.BookKeyPrefix, func(key, value []byte) (bool, error) {
		var book types.Book
		if err := json.Unmarshal(value, &book); err != nil {
			return false, types.ErrInvariantViolation.Wrapf("unmarshal book %q: %v", key, err)
		}
		book.Orders = make(map[uint64]*types.LimitOrder)
		k.state.books[book.Pair()] = &book
		return true, nil
	})
	if err != nil {
		return err
	}

	err = k.store.Iterate(ctx, types.OrderKeyPrefix, func(key, value []byte) (bool, error) {
		// key layout: prefix || pair || '/' || 8-byte big-endian id
		if len(key) < len(types.OrderKeyPrefix)+1+9 {
			return false, types.ErrInvariantViolation.Wrapf("malformed order key %q", key)
		}
		pair := string(key[len(types.OrderKeyPrefix) : len(key)-9])
		id := binary.BigEndian.Uint64(key[len(key)-8:])
		book, ok := k.state.books[pair]
		if !ok {
			return false, types.ErrInvariantViolation.Wrapf("order %d references unknown book %s", id, pair)
		}
		var order types.LimitOrder
		if err := json.Unmarshal(value, &order); err != nil {
			return false, types.ErrInvariantViolation.Wrapf("unmarshal order %d: %v", id, err)
		}
		book.Orders[order.ID] = &order
		return true, nil
	})
	if err != nil {
		return err
	}

	for pair, book := range k.state.books {
		if err := checkBookChains(book); err != nil {
			return types.ErrInvariantViolation.Wrapf("book %s failed integrity check on load: %v", pair, err)
		}
	}
	return nil
}
