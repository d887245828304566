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

// Package indexer keeps the transparency log: a queryable projection of the
// artifacts committed to the ledger, rebuilt from the ledger when lost.
package indexer

import (
	"context"
	"errors"
	"time"

	"github.com/algorand/go-deadlock"

	"github.com/algorand/go-provenance/config"
	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/bookkeeping"
	"github.com/algorand/go-provenance/logging"
	"github.com/algorand/go-provenance/protocol"
	"github.com/algorand/go-provenance/util/metrics"
)

const applyRetryDelay = 500 * time.Millisecond

var entriesWritten = metrics.MakeCounter(metrics.IndexerEntries)

// errForked is returned when a block does not extend the last indexed block,
// which happens after the ledger history was replaced.
var errForked = errors.New("block does not link to the indexed tip")

// Ledger interface to make testing easier
type Ledger interface {
	Block(ord basics.Ordinal) (bookkeeping.Block, error)
	GetRange(from, to basics.Ordinal) ([]bookkeeping.Block, error)
	NextOrdinal() basics.Ordinal
	Wait(ord basics.Ordinal) chan struct{}
}

// Indexer follows the ledger and projects every committed AddArtifact
// transaction into the transparency log.
type Indexer struct {
	IDB *DB

	l     Ledger
	log   logging.Logger
	batch uint64

	// writeMu serializes index writes
	writeMu deadlock.Mutex
	reset   chan struct{}

	ctx       context.Context
	cancelCtx context.CancelFunc
	done      chan struct{}
}

// MakeIndexer makes a new indexer.
func MakeIndexer(log logging.Logger, dataDir string, ledger Ledger, cfg config.Local, inMemory bool) (*Indexer, error) {
	orm, err := MakeIndexerDB(log, dataDir, inMemory)
	if err != nil {
		return nil, err
	}

	batch := cfg.IndexerBatchSize
	if batch == 0 {
		batch = maxRows
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Indexer{
		IDB:       orm,
		l:         ledger,
		log:       log,
		batch:     batch,
		reset:     make(chan struct{}, 1),
		ctx:       ctx,
		cancelCtx: cancel,
	}, nil
}

// OnCommitted appends one entry per AddArtifact transaction of blk. A block
// at or below the indexed height is skipped.
func (idx *Indexer) OnCommitted(blk bookkeeping.Block) error {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()
	return idx.add(idx.ctx, []bookkeeping.Block{blk})
}

func (idx *Indexer) add(ctx context.Context, blocks []bookkeeping.Block) error {
	n, err := idx.IDB.AddBlocks(ctx, blocks)
	if err != nil {
		return err
	}
	entriesWritten.AddUint64(uint64(n))
	return nil
}

// Rebuild clears the index and replays the ledger from ordinal 0. The
// result depends only on the ledger contents.
func (idx *Indexer) Rebuild(ctx context.Context) error {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	start := time.Now()
	if err := idx.IDB.Reset(ctx); err != nil {
		return err
	}
	next := idx.l.NextOrdinal()
	for from := basics.Ordinal(0); from < next; {
		to := from + basics.Ordinal(idx.batch) - 1
		if to >= next {
			to = next - 1
		}
		blocks, err := idx.l.GetRange(from, to)
		if err != nil {
			return err
		}
		if len(blocks) == 0 {
			break
		}
		if err := idx.add(ctx, blocks); err != nil {
			return err
		}
		from = blocks[len(blocks)-1].Ordinal() + 1
	}
	idx.log.Infof("transparency log rebuilt up to ordinal %d in %v", next, time.Since(start))
	return nil
}

// checkHealth reports whether the index can be trusted against the ledger.
func (idx *Indexer) checkHealth() error {
	if err := idx.IDB.IntegrityCheck(); err != nil {
		return err
	}
	next, tip, err := idx.IDB.Height()
	if err != nil {
		return err
	}
	if next > idx.l.NextOrdinal() {
		return errors.New("index is ahead of the ledger")
	}
	if next == 0 {
		return nil
	}
	blk, err := idx.l.Block(next - 1)
	if err != nil {
		return err
	}
	if blk.Hash().String() != tip {
		return errForked
	}
	return nil
}

// Start checks the index, rebuilding it when it is corrupt, and starts
// following the ledger.
func (idx *Indexer) Start() error {
	if err := idx.checkHealth(); err != nil {
		idx.log.Warnf("transparency log invalid (%v), rebuilding", err)
		if err := idx.Rebuild(idx.ctx); err != nil {
			return err
		}
	}
	idx.done = make(chan struct{})
	go idx.update()
	return nil
}

// OnReset implements ledger.ResetListener.
func (idx *Indexer) OnReset(latest basics.Ordinal) {
	select {
	case idx.reset <- struct{}{}:
	default:
	}
}

func (idx *Indexer) update() {
	defer close(idx.done)
	for {
		next, _, err := idx.IDB.Height()
		if err != nil {
			idx.log.Errorf("failed reading index height, trying again in %v: %v", applyRetryDelay, err)
			if !idx.sleep(applyRetryDelay) {
				return
			}
			continue
		}

		select {
		case <-idx.reset:
			idx.rebuildOrRetry()
		case <-idx.l.Wait(next):
			blk, err := idx.l.Block(next)
			if err == nil {
				err = idx.OnCommitted(blk)
			}
			switch {
			case errors.Is(err, errForked):
				idx.rebuildOrRetry()
			case err != nil:
				idx.log.Warnf("failed indexing block %d, trying again in %v: %v", next, applyRetryDelay, err)
				if !idx.sleep(applyRetryDelay) {
					return
				}
			}
		case <-idx.ctx.Done():
			return
		}
	}
}

func (idx *Indexer) rebuildOrRetry() {
	if err := idx.Rebuild(idx.ctx); err != nil && idx.ctx.Err() == nil {
		idx.log.Warnf("transparency log rebuild failed: %v", err)
		idx.OnReset(0)
		idx.sleep(applyRetryDelay)
	}
}

func (idx *Indexer) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-idx.ctx.Done():
		return false
	}
}

// Height returns the next ordinal the indexer will index.
func (idx *Indexer) Height() (basics.Ordinal, error) {
	next, _, err := idx.IDB.Height()
	return next, err
}

// Query returns the entries of a package in commit order. The iterator reads
// the index lazily, page by page; a new Query starts over.
func (idx *Indexer) Query(ctx context.Context, packageType protocol.PackageType, packageSpecificID string) (*EntryIterator, error) {
	if !packageType.Valid() {
		return nil, errors.New("unknown package type " + string(packageType))
	}
	return &EntryIterator{
		ctx:               ctx,
		idb:               idx.IDB,
		packageType:       string(packageType),
		packageSpecificID: packageSpecificID,
		pageSize:          maxRows,
		after:             cursor{position: -1},
	}, nil
}

// LookupArtifact returns the first committed entry whose artifact hash is artifactHash.
func (idx *Indexer) LookupArtifact(ctx context.Context, artifactHash string) (Entry, error) {
	return idx.IDB.byArtifactHash(ctx, artifactHash)
}

// Latest returns the most recently committed entry of a package.
func (idx *Indexer) Latest(ctx context.Context, packageType protocol.PackageType, packageSpecificID string) (Entry, error) {
	return idx.IDB.latest(ctx, string(packageType), packageSpecificID)
}

// Entries returns the whole log in commit order.
func (idx *Indexer) Entries(ctx context.Context) ([]Entry, error) {
	return idx.IDB.all(ctx)
}

// Shutdown closes the indexer
func (idx *Indexer) Shutdown() {
	idx.cancelCtx()
	if idx.done != nil {
		<-idx.done
	}
	idx.IDB.Close()
}

// EntryIterator walks the entries of one package in commit order.
type EntryIterator struct {
	ctx               context.Context
	idb               *DB
	packageType       string
	packageSpecificID string
	pageSize          int

	after cursor
	page  []Entry
	cur   Entry
	done  bool
	err   error
}

// Next advances to the next entry and reports whether there is one.
func (it *EntryIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if len(it.page) == 0 {
		if it.done {
			return false
		}
		it.page, it.err = it.idb.page(it.ctx, it.packageType, it.packageSpecificID, it.after, it.pageSize)
		if it.err != nil {
			return false
		}
		if len(it.page) < it.pageSize {
			it.done = true
		}
		if len(it.page) == 0 {
			return false
		}
	}
	it.cur, it.page = it.page[0], it.page[1:]
	it.after = cursor{ordinal: it.cur.Ordinal, position: it.cur.Position}
	return true
}

// Entry returns the current entry.
func (it *EntryIterator) Entry() Entry {
	return it.cur
}

// Err returns the error that stopped the iteration, if any.
func (it *EntryIterator) Err() error {
	return it.err
}

// Collect drains the iterator.
func Collect(it *EntryIterator) ([]Entry, error) {
	var out []Entry
	for it.Next() {
		out = append(out, it.Entry())
	}
	return out, it.Err()
}
