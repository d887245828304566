// Copyright (C) 2019-2025 Algorand, Inc.
// This file is part of go-provenance
//
// go-provenance is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// go-provenance is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with go-provenance.  If not, see <https://www.gnu.org/licenses/>.

package pools

import (
	"fmt"

	"github.com/algorand/go-deadlock"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/algorand/go-provenance/config"
	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/bookkeeping"
	"github.com/algorand/go-provenance/data/transactions"
	"github.com/algorand/go-provenance/util/metrics"
)

// committedHistory is how many committed txids the pool remembers for
// duplicate rejection, as a multiple of the pool size.
const committedHistory = 10

var poolSize = metrics.MakeGauge(metrics.TransactionPoolSize)

// TransactionPool holds transactions that have been proposed or received but
// not yet committed. It never validates; callers only Remember properly-signed
// and well-formed transactions.
type TransactionPool struct {
	mu deadlock.RWMutex

	// pending is in arrival order; pendingTxids indexes it.
	pending      []transactions.SignedTxn
	pendingTxids map[transactions.Txid]int

	committed     *lru.Cache[transactions.Txid, struct{}]
	txPoolMaxSize int
}

// MakeTransactionPool is the constructor.
func MakeTransactionPool(cfg config.Local) *TransactionPool {
	size := cfg.TxPoolSize
	if size <= 0 {
		size = config.GetDefaultLocal().TxPoolSize
	}
	committed, err := lru.New[transactions.Txid, struct{}](size * committedHistory)
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	return &TransactionPool{
		pendingTxids:  make(map[transactions.Txid]int),
		committed:     committed,
		txPoolMaxSize: size,
	}
}

// Remember stores the provided transaction.
// Precondition: Only Remember() properly-signed and well-formed transactions (i.e., ensure verify.Txn)
func (pool *TransactionPool) Remember(stx transactions.SignedTxn) error {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	if _, ok := pool.pendingTxids[stx.Hash]; ok {
		return fmt.Errorf("%w: %v pending", ErrDuplicate, stx.Hash)
	}
	if pool.committed.Contains(stx.Hash) {
		return fmt.Errorf("%w: %v committed", ErrDuplicate, stx.Hash)
	}
	if len(pool.pending) >= pool.txPoolMaxSize {
		return ErrPoolFull
	}

	pool.pendingTxids[stx.Hash] = len(pool.pending)
	pool.pending = append(pool.pending, stx)
	poolSize.Set(float64(len(pool.pending)))
	return nil
}

// Lookup returns the pending transaction with the given txid.
func (pool *TransactionPool) Lookup(txid transactions.Txid) (tx transactions.SignedTxn, found bool) {
	if pool == nil {
		return transactions.SignedTxn{}, false
	}
	pool.mu.RLock()
	defer pool.mu.RUnlock()

	idx, ok := pool.pendingTxids[txid]
	if !ok {
		return transactions.SignedTxn{}, false
	}
	return pool.pending[idx], true
}

// Committed reports whether txid was seen in a recent block.
func (pool *TransactionPool) Committed(txid transactions.Txid) bool {
	return pool.committed.Contains(txid)
}

// Pending returns a copy of the pending transactions, in arrival order.
func (pool *TransactionPool) Pending() []transactions.SignedTxn {
	pool.mu.RLock()
	defer pool.mu.RUnlock()
	out := make([]transactions.SignedTxn, len(pool.pending))
	copy(out, pool.pending)
	return out
}

// Len returns the number of pending transactions.
func (pool *TransactionPool) Len() int {
	pool.mu.RLock()
	defer pool.mu.RUnlock()
	return len(pool.pending)
}

// Remove drops txid from the pending set without marking it committed,
// as for a rejected or timed-out proposal.
func (pool *TransactionPool) Remove(txid transactions.Txid) {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	pool.excise(map[transactions.Txid]bool{txid: true})
}

// OnNewBlock excises transactions from the pool that are included in the specified Block.
func (pool *TransactionPool) OnNewBlock(block bookkeeping.Block) {
	gone := make(map[transactions.Txid]bool, len(block.Payset))
	for _, stx := range block.Payset {
		gone[stx.Hash] = true
		pool.committed.Add(stx.Hash, struct{}{})
	}

	pool.mu.Lock()
	defer pool.mu.Unlock()
	pool.excise(gone)
}

// Reset forgets every committed txid, as after the ledger was replaced.
func (pool *TransactionPool) Reset() {
	pool.committed.Purge()
}

// OnReset implements ledger.ResetListener.
func (pool *TransactionPool) OnReset(latest basics.Ordinal) {
	pool.Reset()
}

func (pool *TransactionPool) excise(gone map[transactions.Txid]bool) {
	kept := pool.pending[:0]
	for _, stx := range pool.pending {
		if !gone[stx.Hash] {
			kept = append(kept, stx)
		}
	}
	for i := len(kept); i < len(pool.pending); i++ {
		pool.pending[i] = transactions.SignedTxn{}
	}
	pool.pending = kept

	pool.pendingTxids = make(map[transactions.Txid]int, len(kept))
	for i, stx := range kept {
		pool.pendingTxids[stx.Hash] = i
	}
	poolSize.Set(float64(len(pool.pending)))
}
