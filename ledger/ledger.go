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

package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/algorand/go-deadlock"

	"github.com/algorand/go-provenance/config"
	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/bookkeeping"
	"github.com/algorand/go-provenance/data/committee"
	"github.com/algorand/go-provenance/data/transactions"
	"github.com/algorand/go-provenance/logging"
	"github.com/algorand/go-provenance/util/db"
	"github.com/algorand/go-provenance/util/metrics"
)

var (
	blocksAppended = metrics.MakeCounter(metrics.LedgerBlocksAppended)
	blocksRejected = metrics.MakeCounter(metrics.LedgerBlocksRejected)
	latestOrdinal  = metrics.MakeGauge(metrics.LedgerLatestOrdinal)
)

// Ledger is a database storing the contents of the ledger.
type Ledger struct {
	// Database connections to the DB storing blocks and the state derived
	// from them.
	blockDBs db.Pair

	log logging.Logger

	genesis bookkeeping.Genesis

	maxSyncBlocks uint64

	// writeMu serializes Append and Replace. mu guards state.
	writeMu deadlock.Mutex
	mu      deadlock.RWMutex
	state   *ledgerState

	registry *Registry
	bulletin *bulletin
	notifier blockNotifier
}

// OpenLedger creates a Ledger object, using SQLite database filenames
// based on dbPathPrefix (in-memory if inMem is set). The ledger of a
// fresh database is empty until its genesis block is appended.
func OpenLedger(log logging.Logger, dbPathPrefix string, inMem bool, genesis bookkeeping.Genesis, cfg config.Local) (*Ledger, error) {
	var err error
	l := &Ledger{
		log:           log,
		genesis:       genesis,
		maxSyncBlocks: cfg.MaxSyncBlocks,
	}

	l.blockDBs, err = db.OpenPair(dbPathPrefix+".block.sqlite", inMem)
	if err != nil {
		err = fmt.Errorf("OpenLedger.openLedgerDB %v", err)
		return nil, err
	}
	l.blockDBs.SetLogger(log)

	var marks map[basics.Address]NodeRecord
	st := makeLedgerState()
	err = l.blockDBs.Wdb.Atomic(func(tx *sql.Tx) error {
		for _, initFn := range []func(*sql.Tx) error{blockInit, registryInit, artifactInit} {
			if err := initFn(tx); err != nil {
				return err
			}
		}
		return loadState(tx, st, &marks)
	})
	if err != nil {
		l.blockDBs.Close()
		err = fmt.Errorf("OpenLedger.loadState %v", err)
		return nil, err
	}

	l.state = st
	l.registry = makeRegistry(l, l.blockDBs.Wdb, marks)
	l.bulletin = makeBulletin(st.next)
	l.notifier.start()
	latestOrdinal.Set(float64(l.Latest()))
	return l, nil
}

// loadState reads the derived state back from the tables.
func loadState(tx *sql.Tx, st *ledgerState, marks *map[basics.Address]NodeRecord) (err error) {
	st.next, err = blockNext(tx)
	if err != nil {
		return err
	}
	if st.next > 0 {
		st.tip, err = blockGetHdr(tx, st.next-1)
		if err != nil {
			return err
		}
	}
	st.nodes, err = registryLoadNodes(tx)
	if err != nil {
		return err
	}
	st.artifacts, err = artifactLoad(tx)
	if err != nil {
		return err
	}
	st.txids, err = txnsLoad(tx)
	if err != nil {
		return err
	}
	st.refreshMembership()

	*marks, err = registryLoadMarks(tx)
	return err
}

// Close reclaims resources used by the ledger (namely, the database connection
// and goroutines used by trackers).
func (l *Ledger) Close() {
	l.notifier.close()
	l.blockDBs.Close()
}

// RegisterBlockListeners registers listeners that will be called when a
// new block is added to the ledger.
func (l *Ledger) RegisterBlockListeners(listeners []BlockListener) {
	l.notifier.register(listeners)
}

// RegisterResetListeners registers listeners that will be called when the
// ledger history is replaced.
func (l *Ledger) RegisterResetListeners(listeners []ResetListener) {
	l.notifier.registerReset(listeners)
}

// Genesis returns the genesis this ledger was opened with.
func (l *Ledger) Genesis() bookkeeping.Genesis {
	return l.genesis
}

// Registry returns the authorized node registry backed by this ledger.
func (l *Ledger) Registry() *Registry {
	return l.registry
}

// Append validates blk against the tip and, when it is valid, writes it and
// its state changes in one database transaction. This is the only way blocks
// enter the ledger outside of Replace.
func (l *Ledger) Append(blk bookkeeping.Block) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	// state is only replaced under writeMu, so it is safe to read here
	st := l.state
	d, err := st.eval(blk, l.genesis)
	if err != nil {
		blocksRejected.Inc()
		return err
	}

	err = l.blockDBs.Wdb.Atomic(func(tx *sql.Tx) error {
		if err := blockPut(tx, blk); err != nil {
			return err
		}
		if err := txnsPut(tx, blk); err != nil {
			return err
		}
		if err := registryPut(tx, d.nodes); err != nil {
			return err
		}
		return artifactPut(tx, d.artifacts)
	})
	if err != nil {
		l.log.Warnf("ledger.Append: could not write block %d: %v", blk.Ordinal(), err)
		return err
	}

	l.mu.Lock()
	st.apply(blk, d)
	l.mu.Unlock()

	l.registry.reconcile(d.nodes)
	l.bulletin.committedUpTo(blk.Ordinal() + 1)
	l.notifier.newBlock(blk)

	blocksAppended.Inc()
	latestOrdinal.Set(float64(blk.Ordinal()))
	l.log.With("ordinal", blk.Ordinal()).With("txns", len(blk.Payset)).Info("block appended")
	return nil
}

// Replace validates chain as a complete history starting at genesis and, if it
// is valid and longer than the current one, swaps it in. Reset listeners are
// told the new tip.
func (l *Ledger) Replace(chain []bookkeeping.Block) error {
	if len(chain) == 0 {
		return errEmptyChain
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if basics.Ordinal(len(chain)) <= l.state.next {
		return fmt.Errorf("%w: %d blocks against %d", errShorterChain, len(chain), l.state.next)
	}

	st := makeLedgerState()
	var nodes []NodeRecord
	for _, blk := range chain {
		d, err := st.eval(blk, l.genesis)
		if err != nil {
			return err
		}
		st.apply(blk, d)
		nodes = append(nodes, d.nodes...)
	}

	err := l.blockDBs.Wdb.Atomic(func(tx *sql.Tx) error {
		if err := blockStartStaging(tx); err != nil {
			return err
		}
		for _, blk := range chain {
			if err := blockPutStaging(tx, blk); err != nil {
				return err
			}
		}
		if err := blockCompleteStaging(tx); err != nil {
			return err
		}

		for _, resetFn := range []func(*sql.Tx) error{txnsReset, registryReset, artifactReset} {
			if err := resetFn(tx); err != nil {
				return err
			}
		}
		for _, blk := range chain {
			if err := txnsPut(tx, blk); err != nil {
				return err
			}
		}
		recs := make([]NodeRecord, 0, len(st.nodes))
		for _, rec := range st.nodes {
			recs = append(recs, rec)
		}
		if err := registryPut(tx, recs); err != nil {
			return err
		}
		arts := make([]ArtifactRecord, 0, len(st.artifacts))
		for _, rec := range st.artifacts {
			arts = append(arts, rec)
		}
		return artifactPut(tx, arts)
	})
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.state = st
	l.mu.Unlock()

	latest := st.next - 1
	l.registry.reconcile(nodes)
	l.bulletin.committedUpTo(st.next)
	l.notifier.reset(latest)
	latestOrdinal.Set(float64(latest))
	l.log.Warnf("ledger history replaced, new tip %d", latest)
	return nil
}

// Block returns the block at ord.
func (l *Ledger) Block(ord basics.Ordinal) (blk bookkeeping.Block, err error) {
	err = l.blockDBs.Rdb.Atomic(func(tx *sql.Tx) error {
		var err0 error
		blk, err0 = blockGet(tx, ord)
		return err0
	})
	if e, ok := err.(ErrNoEntry); ok {
		e.Next = l.NextOrdinal()
		err = e
	}
	return
}

// BlockHdr returns the header of the block at ord.
func (l *Ledger) BlockHdr(ord basics.Ordinal) (hdr bookkeeping.BlockHeader, err error) {
	l.mu.RLock()
	if l.state.next > 0 && ord == l.state.next-1 {
		hdr = l.state.tip
		l.mu.RUnlock()
		return
	}
	next := l.state.next
	l.mu.RUnlock()

	err = l.blockDBs.Rdb.Atomic(func(tx *sql.Tx) error {
		var err0 error
		hdr, err0 = blockGetHdr(tx, ord)
		return err0
	})
	if e, ok := err.(ErrNoEntry); ok {
		e.Next = next
		err = e
	}
	return
}

// GetRange returns the blocks in [from, to], at most MaxSyncBlocks of them.
// A range-start beyond the tip is ErrNoEntry; an end beyond the tip is
// truncated.
func (l *Ledger) GetRange(from, to basics.Ordinal) ([]bookkeeping.Block, error) {
	if to < from {
		return nil, fmt.Errorf("%w: [%d, %d]", errBadRange, from, to)
	}
	next := l.NextOrdinal()
	if from >= next {
		return nil, ErrNoEntry{Ordinal: from, Next: next}
	}
	if l.maxSyncBlocks > 0 && uint64(to-from) >= l.maxSyncBlocks {
		to = from + basics.Ordinal(l.maxSyncBlocks) - 1
	}

	var blocks []bookkeeping.Block
	err := l.blockDBs.Rdb.Atomic(func(tx *sql.Tx) error {
		var err0 error
		blocks, err0 = blockGetRange(tx, from, to)
		return err0
	})
	return blocks, err
}

// Latest returns the ordinal of the tip, or 0 for an empty ledger.
func (l *Ledger) Latest() basics.Ordinal {
	return l.NextOrdinal().SubSaturate(1)
}

// NextOrdinal returns the ordinal the next appended block must carry.
func (l *Ledger) NextOrdinal() basics.Ordinal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.next
}

// Empty reports whether the genesis block has not been appended yet.
func (l *Ledger) Empty() bool {
	return l.NextOrdinal() == 0
}

// LatestHeader returns the header of the tip.
func (l *Ledger) LatestHeader() bookkeeping.BlockHeader {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.tip
}

// LatestHash returns the hash of the tip header.
func (l *Ledger) LatestHash() bookkeeping.BlockHash {
	return l.LatestHeader().Hash()
}

// Wait returns a channel that closes once the ledger holds block ord.
func (l *Ledger) Wait(ord basics.Ordinal) chan struct{} {
	return l.bulletin.Wait(ord)
}

// WaitContext blocks until the ledger holds block ord or ctx is done.
func (l *Ledger) WaitContext(ctx context.Context, ord basics.Ordinal) error {
	select {
	case <-l.Wait(ord):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the authorized set as of the tip. On an empty ledger this
// is the genesis bootstrap node.
func (l *Ledger) Snapshot() committee.Membership {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.snapshot(l.genesis)
}

// IsAuthorized reports whether addr is a committed authorized node.
func (l *Ledger) IsAuthorized(addr basics.Address) bool {
	return l.Snapshot().Contains(addr)
}

// ArtifactCommitted reports whether the artifact pair is already in the ledger.
func (l *Ledger) ArtifactCommitted(id string, hash string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.state.artifacts[artifactKey{id, hash}]
	return ok
}

// Artifact returns the commit record of an artifact pair.
func (l *Ledger) Artifact(id string, hash string) (ArtifactRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.state.artifacts[artifactKey{id, hash}]
	return rec, ok
}

// TxnOrdinal returns the ordinal of the block holding txid.
func (l *Ledger) TxnOrdinal(txid transactions.Txid) (basics.Ordinal, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ord, ok := l.state.txids[txid]
	return ord, ok
}

// Committed reports whether txid is in the ledger.
func (l *Ledger) Committed(txid transactions.Txid) bool {
	_, ok := l.TxnOrdinal(txid)
	return ok
}

func (l *Ledger) committedNode(addr basics.Address) (NodeRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.state.nodes[addr]
	return rec, ok
}

func (l *Ledger) committedNodes() map[basics.Address]NodeRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[basics.Address]NodeRecord, len(l.state.nodes))
	for addr, rec := range l.state.nodes {
		out[addr] = rec
	}
	return out
}
